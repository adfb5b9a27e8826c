package ir

// Version constants for the compiler and cache formats.
const (
	// CompilerVersion changes whenever emitted query text may change, so
	// caches keyed on pattern sets can be invalidated.
	CompilerVersion = "0.3.0"

	// CacheFormatVersion is the on-disk encoding version of cached results.
	CacheFormatVersion = "1"
)
