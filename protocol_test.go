package typical

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

type ptUser struct {
	ID        uuid.UUID `typical:"id"`
	Name      string    `typical:"name" constraint:"strip,minlen=1"`
	Age       int       `typical:"age" constraint:"ge=0"`
	Plan      string    `typical:"plan" default:"free"`
	Nickname  *string   `typical:"nickname"`
	CreatedAt time.Time `typical:"created_at"`
}

func mustResolve(t *testing.T, token any, opts ...Option) *Protocol {
	t.Helper()
	p, err := Resolve(token, opts...)
	if err != nil {
		t.Fatalf("resolve %T: %v", token, err)
	}
	return p
}

func TestDeserializeStructFromWire(t *testing.T) {
	p := mustResolve(t, ptUser{})
	raw := []byte(`{
		"id": "c6e4f4ab-8a3f-4e2c-9d8e-0a1b2c3d4e5f",
		"name": "  ada  ",
		"age": 36,
		"created_at": "2023-11-14T12:00:00Z"
	}`)
	v, err := p.Deserialize(raw)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	u, ok := v.(ptUser)
	if !ok {
		t.Fatalf("got %T, want ptUser", v)
	}
	if u.Name != "ada" {
		t.Errorf("name = %q, want stripped %q", u.Name, "ada")
	}
	if u.Age != 36 {
		t.Errorf("age = %d, want 36", u.Age)
	}
	if u.Plan != "free" {
		t.Errorf("plan = %q, want baked default %q", u.Plan, "free")
	}
	if u.Nickname != nil {
		t.Errorf("nickname = %v, want nil", u.Nickname)
	}
	if u.ID.String() != "c6e4f4ab-8a3f-4e2c-9d8e-0a1b2c3d4e5f" {
		t.Errorf("id = %s", u.ID)
	}
	if !u.CreatedAt.Equal(time.Date(2023, 11, 14, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("created_at = %v", u.CreatedAt)
	}
}

func TestDeserializeStringWire(t *testing.T) {
	p := mustResolve(t, ptUser{})
	v, err := p.Deserialize(`{"id":"c6e4f4ab-8a3f-4e2c-9d8e-0a1b2c3d4e5f","name":"ada","age":1,"created_at":"2023-11-14T12:00:00Z"}`)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if v.(ptUser).Name != "ada" {
		t.Errorf("name = %q", v.(ptUser).Name)
	}
}

func TestScalarStringStaysVerbatim(t *testing.T) {
	p := mustResolve(t, reflect.TypeFor[string]())
	v, err := p.Deserialize(`"quoted"`)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	// A string-shaped target takes string input verbatim, not as a document.
	if v != `"quoted"` {
		t.Errorf("got %q, want the raw string", v)
	}
}

func TestScalarCoercions(t *testing.T) {
	tests := []struct {
		name  string
		token any
		raw   any
		want  any
	}{
		{"string to int", reflect.TypeFor[int](), "42", 42},
		{"float to int", reflect.TypeFor[int](), float64(42), 42},
		{"int to string", reflect.TypeFor[string](), 42, "42"},
		{"string to bool", reflect.TypeFor[bool](), "true", true},
		{"number to bool", reflect.TypeFor[bool](), float64(1), true},
		{"string to float", reflect.TypeFor[float64](), "1.5", 1.5},
		{"int to float", reflect.TypeFor[float64](), 3, 3.0},
		{"bool to string", reflect.TypeFor[string](), true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustResolve(t, tt.token)
			got, err := p.Deserialize(tt.raw)
			if err != nil {
				t.Fatalf("deserialize(%v): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestScalarCoercionFailures(t *testing.T) {
	tests := []struct {
		name  string
		token any
		raw   any
	}{
		{"lossy float to int", reflect.TypeFor[int](), 1.5},
		{"bool to int", reflect.TypeFor[int](), true},
		{"negative to uint", reflect.TypeFor[uint](), -1},
		{"garbage to bool", reflect.TypeFor[bool](), "maybe"},
		{"object to string", reflect.TypeFor[string](), map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustResolve(t, tt.token)
			if _, err := p.Deserialize(tt.raw); !errors.Is(err, ErrDeserialize) {
				t.Errorf("deserialize(%v) = %v, want ErrDeserialize", tt.raw, err)
			}
		})
	}
}

func TestTimeCoercions(t *testing.T) {
	p := mustResolve(t, reflect.TypeFor[time.Time]())

	v, err := p.Deserialize("2023-11-14T12:00:00Z")
	if err != nil {
		t.Fatalf("rfc3339: %v", err)
	}
	if !v.(time.Time).Equal(time.Date(2023, 11, 14, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("rfc3339 = %v", v)
	}

	v, err = p.Deserialize("2023-11-14")
	if err != nil {
		t.Fatalf("date: %v", err)
	}
	if v.(time.Time).Day() != 14 {
		t.Errorf("date = %v", v)
	}

	v, err = p.Deserialize(1700000000)
	if err != nil {
		t.Fatalf("unix: %v", err)
	}
	if v.(time.Time).Unix() != 1700000000 {
		t.Errorf("unix = %v", v)
	}

	if _, err := p.Deserialize("yesterday"); !errors.Is(err, ErrDeserialize) {
		t.Errorf("garbage = %v, want ErrDeserialize", err)
	}
}

func TestBytesCoercion(t *testing.T) {
	p := mustResolve(t, reflect.TypeFor[[]byte]())

	v, err := p.Deserialize([]byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("passthrough: %v", err)
	}
	if b := v.([]byte); len(b) != 2 || b[0] != 0x01 {
		t.Errorf("passthrough = %v", b)
	}

	v, err = p.Deserialize("aGVsbG8=")
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	if string(v.([]byte)) != "hello" {
		t.Errorf("base64 = %q, want hello", v)
	}

	out, err := p.Serialize([]byte("hello"))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if out != "aGVsbG8=" {
		t.Errorf("serialize = %v, want base64", out)
	}
}

func TestDeserializeMissingRequired(t *testing.T) {
	p := mustResolve(t, ptUser{})
	_, err := p.Deserialize(map[string]any{"name": "ada", "created_at": "2023-11-14T12:00:00Z", "id": uuid.Nil})
	var de *DeserializeError
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want DeserializeError", err)
	}
	if de.Path != "age" {
		t.Errorf("path = %q, want %q", de.Path, "age")
	}
}

func TestDeserializeNestedPath(t *testing.T) {
	type ptInner struct {
		City string `typical:"city"`
	}
	type ptOuter struct {
		Addr ptInner `typical:"addr"`
	}
	p := mustResolve(t, ptOuter{})
	_, err := p.Deserialize(map[string]any{"addr": map[string]any{"city": []int{1}}})
	var de *DeserializeError
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want DeserializeError", err)
	}
	if de.Path != "addr.city" {
		t.Errorf("path = %q, want %q", de.Path, "addr.city")
	}
}

func TestDeserializeForeignStruct(t *testing.T) {
	type wireUser struct {
		ID        uuid.UUID
		Name      string
		Age       int
		CreatedAt time.Time
	}
	p := mustResolve(t, ptUser{})
	src := wireUser{ID: uuid.New(), Name: "ada", Age: 36, CreatedAt: time.Now()}
	v, err := p.Deserialize(src)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	u := v.(ptUser)
	if u.Name != "ada" || u.Age != 36 || u.ID != src.ID {
		t.Errorf("attribute pull = %+v", u)
	}
}

func TestDeserializeTypedPassthrough(t *testing.T) {
	p := mustResolve(t, ptUser{})
	src := ptUser{Name: "ada", Age: 1, Plan: "pro"}
	v, err := p.Deserialize(src)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if v.(ptUser) != src {
		t.Errorf("passthrough changed the value: %+v", v)
	}
}

func TestCollectionAndMapping(t *testing.T) {
	cp := mustResolve(t, reflect.TypeFor[[]int]())
	v, err := cp.Deserialize([]any{"1", 2, 3.0})
	if err != nil {
		t.Fatalf("collection: %v", err)
	}
	got := v.([]int)
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("collection = %v", got)
	}

	_, err = cp.Deserialize([]any{"1", "x"})
	var de *DeserializeError
	if !errors.As(err, &de) {
		t.Fatalf("bad element error = %v", err)
	}
	if de.Path != "1" {
		t.Errorf("element path = %q, want %q", de.Path, "1")
	}

	mp := mustResolve(t, reflect.TypeFor[map[string]int]())
	v, err = mp.Deserialize(map[string]any{"a": 1.0, "b": "2"})
	if err != nil {
		t.Fatalf("mapping: %v", err)
	}
	m := v.(map[string]int)
	if m["a"] != 1 || m["b"] != 2 {
		t.Errorf("mapping = %v", m)
	}
}

func TestOptionalField(t *testing.T) {
	p := mustResolve(t, ptUser{})
	doc := map[string]any{
		"id": "c6e4f4ab-8a3f-4e2c-9d8e-0a1b2c3d4e5f", "name": "ada", "age": 1,
		"created_at": "2023-11-14T12:00:00Z", "nickname": "grace",
	}
	v, err := p.Deserialize(doc)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	u := v.(ptUser)
	if u.Nickname == nil || *u.Nickname != "grace" {
		t.Errorf("nickname = %v, want grace", u.Nickname)
	}

	doc["nickname"] = nil
	v, err = p.Deserialize(doc)
	if err != nil {
		t.Fatalf("deserialize nil: %v", err)
	}
	if v.(ptUser).Nickname != nil {
		t.Error("explicit null should leave the pointer nil")
	}
}

type ptPlanProvider struct{}

func (ptPlanProvider) Source() string { return "test-plans" }

func (ptPlanProvider) Default(field string, aliases ...string) (any, bool) {
	if field == "Plan" {
		return "premium", true
	}
	return nil, false
}

func TestProviderDefaultsBaked(t *testing.T) {
	p := mustResolve(t, ptUser{}, WithDefaultsProvider(ptPlanProvider{}))
	v, err := p.Deserialize(map[string]any{
		"id": "c6e4f4ab-8a3f-4e2c-9d8e-0a1b2c3d4e5f", "name": "ada", "age": 1,
		"created_at": "2023-11-14T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got := v.(ptUser).Plan; got != "premium" {
		t.Errorf("plan = %q, want provider default %q", got, "premium")
	}
}

func TestStrictScalar(t *testing.T) {
	p := mustResolve(t, StrictOf(reflect.TypeFor[int]()))

	v, err := p.Deserialize(1)
	if err != nil {
		t.Fatalf("deserialize(1): %v", err)
	}
	if v != 1 {
		t.Errorf("got %v, want 1", v)
	}

	if _, err := p.Deserialize("1"); !errors.Is(err, ErrConstraintValue) {
		t.Errorf("deserialize(\"1\") = %v, want ErrConstraintValue", err)
	}
	if _, err := p.Deserialize(1.5); !errors.Is(err, ErrConstraintValue) {
		t.Errorf("deserialize(1.5) = %v, want ErrConstraintValue", err)
	}
}

func TestStrictScalarVerbatim(t *testing.T) {
	// Strict primitives are validate-only: the input passes through
	// untouched, parse-time transforms included.
	p := mustResolve(t, StrictOf(reflect.TypeFor[string]()), WithConstraint("strip,minlen=1"))
	v, err := p.Deserialize("  ada  ")
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if v != "  ada  " {
		t.Errorf("got %q, want the input untouched", v)
	}
}

func TestStrictStruct(t *testing.T) {
	type ptStrict struct {
		Bar string `typical:"bar"`
	}
	p := mustResolve(t, StrictOf(ptStrict{}))

	v, err := p.Deserialize([]byte(`{"bar":"ok"}`))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if v.(ptStrict).Bar != "ok" {
		t.Errorf("bar = %q", v.(ptStrict).Bar)
	}

	if _, err := p.Deserialize([]byte(`{"bar":1}`)); !errors.Is(err, ErrConstraintValue) {
		t.Errorf("strict coercion = %v, want ErrConstraintValue", err)
	}
}

func TestGlobalStrictMode(t *testing.T) {
	defer unstrictMode()
	defer resetResolver()
	StrictMode()

	p := mustResolve(t, reflect.TypeFor[int]())
	if _, err := p.Deserialize("1"); !errors.Is(err, ErrConstraintValue) {
		t.Errorf("global strict deserialize = %v, want ErrConstraintValue", err)
	}
}

func TestSerializeStruct(t *testing.T) {
	p := mustResolve(t, ptUser{})
	id := uuid.New()
	created := time.Date(2023, 11, 14, 12, 0, 0, 0, time.UTC)
	out, err := p.Serialize(ptUser{ID: id, Name: "ada", Age: 36, Plan: "free", CreatedAt: created})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	m := out.(map[string]any)
	if m["id"] != id.String() {
		t.Errorf("id = %v", m["id"])
	}
	if m["name"] != "ada" {
		t.Errorf("name = %v", m["name"])
	}
	if m["age"] != int64(36) {
		t.Errorf("age = %v (%T)", m["age"], m["age"])
	}
	if m["created_at"] != created.Format(time.RFC3339Nano) {
		t.Errorf("created_at = %v", m["created_at"])
	}
	if m["nickname"] != nil {
		t.Errorf("nickname = %v, want nil", m["nickname"])
	}
}

func TestSerializeFlags(t *testing.T) {
	type ptReport struct {
		UserID    int
		FullName  string
		SecretKey string
	}
	flags := SerdeFlags{
		Case:    CaseSnake,
		Exclude: []string{"SecretKey"},
		Rename:  map[string]string{"FullName": "name"},
		Omit:    []any{int64(0)},
	}
	p := mustResolve(t, ptReport{}, WithFlags(flags))
	out, err := p.Serialize(ptReport{UserID: 7, FullName: "ada", SecretKey: "hunter2"})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	m := out.(map[string]any)
	if m["user_id"] != int64(7) {
		t.Errorf("user_id = %v", m["user_id"])
	}
	if m["name"] != "ada" {
		t.Errorf("name = %v", m["name"])
	}
	if _, leaked := m["secret_key"]; leaked {
		t.Error("excluded field leaked into output")
	}

	out, err = p.Serialize(ptReport{FullName: "ada"})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if _, present := out.(map[string]any)["user_id"]; present {
		t.Error("omitted zero value should be dropped")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	p := mustResolve(t, ptUser{})
	want := ptUser{
		ID: uuid.New(), Name: "ada", Age: 36, Plan: "pro",
		CreatedAt: time.Date(2023, 11, 14, 12, 0, 0, 0, time.UTC),
	}
	data, err := p.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	v, err := p.Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := v.(ptUser); got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestValidate(t *testing.T) {
	p := mustResolve(t, ptUser{})
	u := ptUser{Name: "ada", Age: 36, Plan: "free"}
	v, err := p.Validate(u)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.(ptUser) != u {
		t.Error("validate must return the value unchanged")
	}
	if _, err := p.Validate(ptUser{Name: "", Age: -1}); !errors.Is(err, ErrConstraintValue) {
		t.Errorf("validate bad value = %v, want ErrConstraintValue", err)
	}
}

type ptColor string

func TestEnumProtocol(t *testing.T) {
	if err := RegisterEnum(EnumOf("ptColor", map[string]ptColor{
		"Red":  "red",
		"Blue": "blue",
	})); err != nil {
		t.Fatalf("register: %v", err)
	}
	p := mustResolve(t, reflect.TypeFor[ptColor]())

	v, err := p.Deserialize("red")
	if err != nil {
		t.Fatalf("by value: %v", err)
	}
	if v.(ptColor) != "red" {
		t.Errorf("by value = %v", v)
	}

	v, err = p.Deserialize("Blue")
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	if v.(ptColor) != "blue" {
		t.Errorf("by name = %v", v)
	}

	if _, err := p.Deserialize("green"); !errors.Is(err, ErrDeserialize) {
		t.Errorf("unknown member = %v, want ErrDeserialize", err)
	}

	out, err := p.Serialize(ptColor("red"))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if out != "red" {
		t.Errorf("serialize = %v (%T), want plain string", out, out)
	}
}

type ptChecksum struct {
	A, B int
}

func (c *ptChecksum) DeserializeFrom(raw any) error {
	m, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("want object, got %T", raw)
	}
	a, _ := asNumber(m["a"])
	b, _ := asNumber(m["b"])
	c.A, c.B = int(a), int(b)
	return nil
}

func (c ptChecksum) SerializeInto() (any, error) {
	return map[string]any{"a": c.A, "b": c.B, "sum": c.A + c.B}, nil
}

func TestOverrideInterfaces(t *testing.T) {
	p := mustResolve(t, ptChecksum{})

	v, err := p.Deserialize(map[string]any{"a": 1.0, "b": 2.0})
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got := v.(ptChecksum); got.A != 1 || got.B != 2 {
		t.Errorf("override deserialize = %+v", got)
	}

	out, err := p.Serialize(ptChecksum{A: 1, B: 2})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if out.(map[string]any)["sum"] != 3 {
		t.Errorf("override serialize = %v", out)
	}
}

type ptCelsius struct {
	deg float64
}

func (c *ptCelsius) DecodePrimitive(raw any) error {
	f, ok := asNumber(raw)
	if !ok {
		return fmt.Errorf("want number, got %T", raw)
	}
	c.deg = f
	return nil
}

func (c ptCelsius) EncodePrimitive() (any, error) {
	return c.deg, nil
}

func TestScalarValueContract(t *testing.T) {
	p := mustResolve(t, reflect.TypeFor[ptCelsius]())
	if p.Annotation().Kind != KindScalar {
		t.Fatalf("kind = %v, want scalar", p.Annotation().Kind)
	}

	v, err := p.Deserialize(21.5)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if v.(ptCelsius).deg != 21.5 {
		t.Errorf("decode = %+v", v)
	}

	out, err := p.Serialize(ptCelsius{deg: 21.5})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if out != 21.5 {
		t.Errorf("encode = %v", out)
	}

	if _, err := p.Deserialize("warm"); !errors.Is(err, ErrDeserialize) {
		t.Errorf("bad decode = %v, want ErrDeserialize", err)
	}
}

func TestRecursiveProtocol(t *testing.T) {
	p := mustResolve(t, ntNode{})
	v, err := p.Deserialize([]byte(`{"value":1,"next":{"value":2,"next":{"value":3}}}`))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	n := v.(ntNode)
	if n.Value != 1 || n.Next == nil || n.Next.Value != 2 || n.Next.Next == nil || n.Next.Next.Value != 3 {
		t.Errorf("tree = %+v", n)
	}
	if n.Next.Next.Next != nil {
		t.Error("leaf should terminate")
	}

	out, err := p.Serialize(n)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	m := out.(map[string]any)
	if m["value"] != int64(1) {
		t.Errorf("value = %v", m["value"])
	}
	child := m["next"].(map[string]any)
	if child["value"] != int64(2) {
		t.Errorf("child value = %v", child["value"])
	}
}
