// Package ir provides the foundational types shared by every graphpush package.
//
// This package contains RDF term and triple-pattern definitions, the ordered
// parameter table handed to the query executor, and the canonical pattern-set
// key used by caller-side caches. All other internal packages import ir; ir
// imports nothing internal.
//
// Key design constraints:
//   - Terms are immutable value types, compared with ==
//   - Parameter tables preserve insertion order (deterministic output)
//   - The canonical key is stable across processes (NFC object keys, byte-exact terms, sorted keys)
package ir
