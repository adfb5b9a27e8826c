package testutil

import (
	"context"
	"sync"

	"github.com/roach88/graphpush/internal/pushdown"
)

// Call is one query a RecordingExecutor received.
type Call struct {
	Query  string
	Params map[string]any
}

// RecordingExecutor records every query it runs and answers with Rows.
//
// Thread-safety: safe for concurrent use via internal mutex.
type RecordingExecutor struct {
	Rows []pushdown.Row
	Err  error

	mu    sync.Mutex
	calls []Call
}

// Run records the call and returns the canned rows or error.
func (e *RecordingExecutor) Run(_ context.Context, query string, params map[string]any) ([]pushdown.Row, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Call{Query: query, Params: params})
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Rows, nil
}

// Calls returns the recorded calls in order.
func (e *RecordingExecutor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// StaticFallback answers every request with Rows and counts its calls.
type StaticFallback struct {
	Rows []pushdown.Row
	Err  error

	mu       sync.Mutex
	requests []pushdown.Request
}

// Evaluate records req and returns the canned rows or error.
func (f *StaticFallback) Evaluate(_ context.Context, req pushdown.Request) ([]pushdown.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Rows, nil
}

// Requests returns the requests evaluated so far.
func (f *StaticFallback) Requests() []pushdown.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pushdown.Request(nil), f.requests...)
}
