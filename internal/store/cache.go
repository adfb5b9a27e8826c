package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/graphpush/internal/ir"
)

// CachedQuery is one stored compile result.
type CachedQuery struct {
	ID              string
	PatternKey      string
	Query           string
	Parameters      *ir.Params
	VariableMapping map[string]string
	Columns         []string
	CompilerVersion string
	Seq             int64
}

// PutResult stores q under q.PatternKey, replacing any earlier entry for
// the key. ID and Seq are assigned by the store; the stored row is returned.
// An empty CompilerVersion is recorded as ir.CompilerVersion.
func (s *Store) PutResult(ctx context.Context, q CachedQuery) (CachedQuery, error) {
	if q.PatternKey == "" {
		return CachedQuery{}, fmt.Errorf("put result: empty pattern key")
	}
	if q.CompilerVersion == "" {
		q.CompilerVersion = ir.CompilerVersion
	}
	if q.Columns == nil {
		q.Columns = []string{}
	}
	if q.VariableMapping == nil {
		q.VariableMapping = map[string]string{}
	}

	params, err := marshalParams(q.Parameters)
	if err != nil {
		return CachedQuery{}, fmt.Errorf("put result: %w", err)
	}
	mapping, err := marshalJSON(q.VariableMapping)
	if err != nil {
		return CachedQuery{}, fmt.Errorf("put result: marshal variable mapping: %w", err)
	}
	columns, err := marshalJSON(q.Columns)
	if err != nil {
		return CachedQuery{}, fmt.Errorf("put result: marshal columns: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CachedQuery{}, fmt.Errorf("put result: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	seq, err := nextSeq(ctx, tx, "compiled_queries")
	if err != nil {
		return CachedQuery{}, fmt.Errorf("put result: %w", err)
	}
	q.ID = uuid.Must(uuid.NewV7()).String()
	q.Seq = seq

	_, err = tx.ExecContext(ctx, `
		INSERT INTO compiled_queries
		(id, pattern_key, query, params, variable_mapping, columns, compiler_version, format_version, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pattern_key) DO UPDATE SET
			id = excluded.id,
			query = excluded.query,
			params = excluded.params,
			variable_mapping = excluded.variable_mapping,
			columns = excluded.columns,
			compiler_version = excluded.compiler_version,
			format_version = excluded.format_version,
			seq = excluded.seq
	`,
		q.ID,
		q.PatternKey,
		q.Query,
		params,
		mapping,
		columns,
		q.CompilerVersion,
		ir.CacheFormatVersion,
		q.Seq,
	)
	if err != nil {
		return CachedQuery{}, fmt.Errorf("put result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return CachedQuery{}, fmt.Errorf("put result: commit: %w", err)
	}
	return q, nil
}

// GetResult returns the entry stored under key. An entry written by a
// different compiler version or cache format is reported as a miss.
func (s *Store) GetResult(ctx context.Context, key, compilerVersion string) (CachedQuery, bool, error) {
	var (
		q                        CachedQuery
		params                   []byte
		mapping, columns, format string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, pattern_key, query, params, variable_mapping, columns, compiler_version, format_version, seq
		FROM compiled_queries
		WHERE pattern_key = ?
	`, key).Scan(&q.ID, &q.PatternKey, &q.Query, &params, &mapping, &columns, &q.CompilerVersion, &format, &q.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedQuery{}, false, nil
	}
	if err != nil {
		return CachedQuery{}, false, fmt.Errorf("get result: %w", err)
	}
	if q.CompilerVersion != compilerVersion || format != ir.CacheFormatVersion {
		return CachedQuery{}, false, nil
	}

	if q.Parameters, err = unmarshalParams(params); err != nil {
		return CachedQuery{}, false, fmt.Errorf("get result: %w", err)
	}
	if q.VariableMapping, err = unmarshalMapping(mapping); err != nil {
		return CachedQuery{}, false, fmt.Errorf("get result: %w", err)
	}
	if q.Columns, err = unmarshalColumns(columns); err != nil {
		return CachedQuery{}, false, fmt.Errorf("get result: %w", err)
	}
	return q, true, nil
}

// PurgeStale deletes every cached entry not written by compilerVersion and
// returns how many were removed.
func (s *Store) PurgeStale(ctx context.Context, compilerVersion string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM compiled_queries WHERE compiler_version <> ?
	`, compilerVersion)
	if err != nil {
		return 0, fmt.Errorf("purge stale: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge stale: %w", err)
	}
	return n, nil
}

// CountResults returns the number of cached entries.
func (s *Store) CountResults(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM compiled_queries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}

// nextSeq returns the next logical sequence number for table.
func nextSeq(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	var seq int64
	err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT COALESCE(MAX(seq), 0) + 1 FROM %s`, table)).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}
