// Package testutil provides deterministic collaborators for pushdown tests.
package testutil

// FixedRequestIDs returns the same request ID every time.
//
// This keeps log output and golden comparisons stable across runs.
//
// Thread-safety: FixedRequestIDs is stateless and safe for concurrent use.
type FixedRequestIDs struct {
	id string
}

// NewFixedRequestIDs creates a generator returning id. An empty id becomes
// "test-request-default".
func NewFixedRequestIDs(id string) *FixedRequestIDs {
	if id == "" {
		id = "test-request-default"
	}
	return &FixedRequestIDs{id: id}
}

// Generate returns the fixed ID.
//
// Implements pushdown.RequestIDGenerator.
func (g *FixedRequestIDs) Generate() string {
	return g.id
}
