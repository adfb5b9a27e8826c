package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/graphpush/internal/cypher"
	"github.com/roach88/graphpush/internal/pushdown"
	"github.com/roach88/graphpush/internal/schema"
	"github.com/roach88/graphpush/internal/store"
)

// Harness compiles scenarios through a pushdown engine backed by a
// fresh cache, so refusals are recorded exactly as in production.
type Harness struct {
	engine *pushdown.Engine
	store  *store.Store
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory cache for isolation.
// An error is returned only when the scenario itself cannot be run
// (bad schema file, unparsable query); compile refusals are outcomes.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	sch := schema.Default()
	if scenario.Schema != "" {
		var err error
		if sch, err = schema.LoadCUE(scenario.Schema); err != nil {
			return nil, fmt.Errorf("load schema: %w", err)
		}
	}

	h, err := newHarness(sch)
	if err != nil {
		return nil, err
	}
	defer h.store.Close()

	req, err := scenario.Query.Request()
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	result := NewResult()
	res, _, err := h.engine.Compile(ctx, req)
	if err := classify(result, res, err); err != nil {
		return nil, err
	}
	recorded, err := h.store.Fallbacks(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("read fallbacks: %w", err)
	}
	result.Recorded = len(recorded)

	if result.Outcome != scenario.Expect.Outcome {
		result.AddError(fmt.Sprintf("expected outcome %s, got %s (%s)",
			scenario.Expect.Outcome, result.Outcome, result.Reason))
		return result, nil
	}
	if scenario.Expect.Code != "" && result.Code != scenario.Expect.Code {
		result.AddError(fmt.Sprintf("expected code %s, got %s (%s)",
			scenario.Expect.Code, result.Code, result.Reason))
		return result, nil
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(sch schema.Schema) (*Harness, error) {
	// Suppress logs in scenario runs
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	compiler, err := cypher.New(cypher.WithSchema(sch), cypher.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create compiler: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}

	// Scenarios only compile; nothing executes or falls back.
	eng := pushdown.New(compiler, nil, nil,
		pushdown.WithCache(st),
		pushdown.WithLogger(logger))

	return &Harness{engine: eng, store: st}, nil
}

// classify records the compile outcome on result. Errors that are not
// compile refusals are returned.
func classify(result *Result, res *cypher.Result, err error) error {
	switch {
	case err == nil:
		result.Outcome = OutcomeCompiled
		result.Query = res.Query
		result.Params = res.Parameters
		result.Columns = res.Columns
		result.Plans = res.Plans
	case errors.Is(err, cypher.ErrInvalidInput):
		result.Outcome = OutcomeInvalidInput
		result.Reason = err.Error()
	case errors.Is(err, cypher.ErrCannotCompile):
		result.Outcome = OutcomeCannotCompile
		result.Reason = err.Error()
		if code, ok := cypher.CodeOf(err); ok {
			result.Code = string(code)
		}
	case errors.Is(err, cypher.ErrCannotTranslateAggregation):
		result.Outcome = OutcomeNoAggregation
		result.Reason = err.Error()
	default:
		return fmt.Errorf("compile: %w", err)
	}
	return nil
}
