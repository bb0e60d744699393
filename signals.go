package typical

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for resolution and serde events.
var (
	SignalResolveComplete     = capitan.NewSignal("typical.resolve.complete", "Protocol resolution finished")
	SignalPendingResolved     = capitan.NewSignal("typical.pending.resolved", "Deferred declarations resolved")
	SignalDeserializeComplete = capitan.NewSignal("typical.deserialize.complete", "Deserialize operation finished")
	SignalSerializeComplete   = capitan.NewSignal("typical.serialize.complete", "Serialize operation finished")
	SignalValidateComplete    = capitan.NewSignal("typical.validate.complete", "Validate operation finished")
)

// Keys for typed event data.
var (
	KeyTypeName    = capitan.NewStringKey("type_name")
	KeyFlags       = capitan.NewStringKey("flags")
	KeyContentType = capitan.NewStringKey("content_type")
	KeySource      = capitan.NewStringKey("source")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyError       = capitan.NewErrorKey("error")
	KeyCount       = capitan.NewIntKey("count")
)

// Sources for resolve events.
const (
	sourceCache = "cache"
	sourceBuild = "build"
)

// emitResolveComplete emits an event when a resolution finishes, whether it
// was served from cache or built fresh.
func emitResolveComplete(ctx context.Context, typeName, flags, source string, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyFlags.Field(flags),
		KeySource.Field(source),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalResolveComplete, fields...)
		return
	}
	capitan.Emit(ctx, SignalResolveComplete, fields...)
}

// emitPendingResolved emits an event when deferred declarations are built.
func emitPendingResolved(ctx context.Context, count int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyCount.Field(count),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalPendingResolved, fields...)
		return
	}
	capitan.Emit(ctx, SignalPendingResolved, fields...)
}

// emitDeserializeComplete emits an event when a deserialize finishes.
func emitDeserializeComplete(ctx context.Context, typeName, contentType string, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyContentType.Field(contentType),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalDeserializeComplete, fields...)
		return
	}
	capitan.Emit(ctx, SignalDeserializeComplete, fields...)
}

// emitSerializeComplete emits an event when a serialize finishes.
func emitSerializeComplete(ctx context.Context, typeName string, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalSerializeComplete, fields...)
		return
	}
	capitan.Emit(ctx, SignalSerializeComplete, fields...)
}

// emitValidateComplete emits an event when a validate finishes.
func emitValidateComplete(ctx context.Context, typeName string, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalValidateComplete, fields...)
		return
	}
	capitan.Emit(ctx, SignalValidateComplete, fields...)
}
