package ir

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/xxh3"
)

// Domain prefixes for content-addressed keys.
// Version suffix enables future algorithm migration.
const (
	DomainPatternSet = "graphpush/patternset/v1"
)

// hashWithDomain computes a 128-bit XXH3 fingerprint with domain separation.
// Format: XXH3-128(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	buf := make([]byte, 0, len(domain)+1+len(data))
	buf = append(buf, domain...)
	buf = append(buf, 0x00)
	buf = append(buf, data...)
	sum := xxh3.Hash128(buf).Bytes()
	return hex.EncodeToString(sum[:])
}

// PatternSetKey computes the cache key for a normalized compile request.
//
// The request is any canonical-JSON-encodable object; callers build it from
// EncodePatterns plus whatever modifiers (filter, optional block, union side,
// aggregation) select the compile entry point. Equal requests produce equal
// keys across processes.
func PatternSetKey(request map[string]any) (string, error) {
	canonical, err := MarshalCanonical(request)
	if err != nil {
		return "", fmt.Errorf("PatternSetKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPatternSet, canonical), nil
}

// MustPatternSetKey is like PatternSetKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustPatternSetKey(request map[string]any) string {
	key, err := PatternSetKey(request)
	if err != nil {
		panic(err)
	}
	return key
}
