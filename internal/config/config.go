// Package config holds qcc's small, fixed option set. The teacher's
// own config.go uses a generic string-keyed map for a grammar
// compiler's much larger surface of knobs; qcc's knobs are few and
// known at compile time, so they are a plain struct instead.
package config

// Options controls the compiler pipeline end to end.
type Options struct {
	// Verbose turns on context-stack and allocator/emitter tracing
	// through internal/trace.
	Verbose bool

	// GprCount and FprCount size the allocator's register pools.
	// Defaults match the original implementation's constants.
	GprCount int
	FprCount int
}

// Default returns the options qcc runs with absent any flags.
func Default() Options {
	return Options{
		Verbose:  false,
		GprCount: 7,
		FprCount: 7,
	}
}
