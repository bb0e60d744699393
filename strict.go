package typical

import "sync/atomic"

// strictMode is the process-wide strict toggle. It is read exactly once per
// resolution, inside Resolve, and captured into the compiled Protocol. It is
// never consulted by Deserialize or Serialize, so enabling it does not alter
// protocols that were already cached.
var strictMode atomic.Bool

// StrictMode turns on process-wide strict mode. The transition is one-way:
// there is no exported way to turn it back off during the lifetime of the
// process. Enable it once, at startup, before types are resolved; protocols
// resolved beforehand keep the policy in effect when they were built.
//
// For per-type strictness prefer StrictOf, which scopes the policy to a
// single resolution instead of global state.
func StrictMode() {
	strictMode.Store(true)
}

// IsStrictMode reports whether process-wide strict mode is enabled.
func IsStrictMode() bool {
	return strictMode.Load()
}

// unstrictMode resets the global toggle. Test use only.
func unstrictMode() {
	strictMode.Store(false)
}
