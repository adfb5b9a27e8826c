package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Fallback records one refusal to compile a pattern set.
type Fallback struct {
	ID         string `json:"id"`
	PatternKey string `json:"pattern_key"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
	Seq        int64  `json:"seq"`
}

// RecordFallback appends a refusal to the log. Refusals are not
// deduplicated: each one is an event.
func (s *Store) RecordFallback(ctx context.Context, key, code, reason string) (Fallback, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Fallback{}, fmt.Errorf("record fallback: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	seq, err := nextSeq(ctx, tx, "fallbacks")
	if err != nil {
		return Fallback{}, fmt.Errorf("record fallback: %w", err)
	}
	fb := Fallback{
		ID:         uuid.Must(uuid.NewV7()).String(),
		PatternKey: key,
		Code:       code,
		Reason:     reason,
		Seq:        seq,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO fallbacks (id, pattern_key, code, reason, seq)
		VALUES (?, ?, ?, ?, ?)
	`, fb.ID, fb.PatternKey, fb.Code, fb.Reason, fb.Seq)
	if err != nil {
		return Fallback{}, fmt.Errorf("record fallback: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Fallback{}, fmt.Errorf("record fallback: commit: %w", err)
	}
	return fb, nil
}

// Fallbacks lists recorded refusals in record order. An empty key lists
// every refusal. Returns an empty slice (not nil) when there are none.
func (s *Store) Fallbacks(ctx context.Context, key string) ([]Fallback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pattern_key, code, reason, seq
		FROM fallbacks
		WHERE ? = '' OR pattern_key = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, key, key)
	if err != nil {
		return nil, fmt.Errorf("query fallbacks: %w", err)
	}
	defer rows.Close()

	out := []Fallback{}
	for rows.Next() {
		var fb Fallback
		if err := rows.Scan(&fb.ID, &fb.PatternKey, &fb.Code, &fb.Reason, &fb.Seq); err != nil {
			return nil, fmt.Errorf("scan fallback: %w", err)
		}
		out = append(out, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fallbacks: %w", err)
	}
	return out, nil
}
