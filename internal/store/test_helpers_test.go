package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/graphpush/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestQuery creates a cache entry with a representative parameter table.
func createTestQuery(key string) CachedQuery {
	params := ir.NewParams()
	params.Set("p0", "http://ex/knows")
	params.Set("p1", int64(42))
	params.Set("p2", 2.5)
	params.Set("p3", true)
	params.Set("c_p", []any{"http://ex/a", "http://ex/b"})
	return CachedQuery{
		PatternKey:      key,
		Query:           "MATCH (s:Resource)-[__r0]->(o:Resource) WHERE type(__r0) = $p0\nRETURN s.uri AS s, o.uri AS o",
		Parameters:      params,
		VariableMapping: map[string]string{"s": "s", "o": "o"},
		Columns:         []string{"s", "o"},
		CompilerVersion: ir.CompilerVersion,
	}
}
