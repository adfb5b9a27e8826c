package pushdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/graphpush/internal/cypher"
	"github.com/roach88/graphpush/internal/ir"
	"github.com/roach88/graphpush/internal/store"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Executor runs native query text against the graph database.
type Executor interface {
	Run(ctx context.Context, query string, params map[string]any) ([]Row, error)
}

// Fallback evaluates a request generically, in memory, when it cannot be
// pushed down. Rows are keyed by pattern variable name.
type Fallback interface {
	Evaluate(ctx context.Context, req Request) ([]Row, error)
}

// Cache persists compile results and refusals. *store.Store implements it.
type Cache interface {
	GetResult(ctx context.Context, key, compilerVersion string) (store.CachedQuery, bool, error)
	PutResult(ctx context.Context, q store.CachedQuery) (store.CachedQuery, error)
	RecordFallback(ctx context.Context, key, code, reason string) (store.Fallback, error)
}

// RequestIDGenerator generates IDs correlating the log lines of one request.
type RequestIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 request IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Engine answers pattern requests by pushing them down to the graph
// database, falling back to generic evaluation when the compiler refuses.
//
// Thread-safety: Execute and Compile are safe for concurrent use as long as
// the collaborators are.
type Engine struct {
	compiler *cypher.Compiler
	exec     Executor
	fallback Fallback
	cache    Cache
	ids      RequestIDGenerator
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache stores compile results (and refusals) in c.
func WithCache(c Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRequestIDs overrides the request ID generator (tests use fixed IDs).
func WithRequestIDs(g RequestIDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// New creates an Engine.
func New(compiler *cypher.Compiler, exec Executor, fallback Fallback, opts ...Option) *Engine {
	e := &Engine{
		compiler: compiler,
		exec:     exec,
		fallback: fallback,
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Outcome is the answer to one request.
type Outcome struct {
	RequestID string

	// PushedDown is false when the request was evaluated by the fallback.
	PushedDown bool

	// Cached is set when the compiled query came from the cache.
	Cached bool

	// Query is the native query that ran. Empty after a fallback.
	Query string

	// FallbackReason is the compiler's refusal, set after a fallback.
	FallbackReason string

	// Rows are keyed by pattern variable (or aggregate alias).
	Rows []Row
}

// Execute answers req.
//
// A compile refusal (cypher.ErrCannotCompile, except invalid input) or an
// untranslatable aggregation sends req to the fallback. Invalid input and
// executor failures are returned as errors.
func (e *Engine) Execute(ctx context.Context, req Request) (*Outcome, error) {
	out := &Outcome{RequestID: e.ids.Generate()}
	log := e.logger.With("request", out.RequestID)

	res, cached, err := e.Compile(ctx, req)
	if err != nil {
		if !fallsBack(err) {
			return nil, err
		}
		log.Info("query not pushed down", "reason", err.Error())
		rows, ferr := e.fallback.Evaluate(ctx, req)
		if ferr != nil {
			return nil, fmt.Errorf("fallback evaluation: %w", ferr)
		}
		out.FallbackReason = err.Error()
		out.Rows = rows
		return out, nil
	}

	raw, err := e.exec.Run(ctx, res.Query, res.Parameters.Map())
	if err != nil {
		return nil, fmt.Errorf("execute pushed-down query: %w", err)
	}

	out.PushedDown = true
	out.Cached = cached
	out.Query = res.Query
	out.Rows = renameRows(raw, res.VariableMapping)
	log.Debug("query pushed down",
		"cached", cached,
		"rows", len(out.Rows))
	return out, nil
}

// Compile compiles req, consulting the cache first when one is configured.
// The second return value reports a cache hit. Refusals are recorded in the
// cache before they are returned.
func (e *Engine) Compile(ctx context.Context, req Request) (*cypher.Result, bool, error) {
	mode, err := req.Mode()
	if err != nil {
		return nil, false, &cypher.CompileError{Code: cypher.ErrCodeUnsupportedShape, Reason: err.Error()}
	}

	var key string
	if e.cache != nil {
		key, err = req.Key(e.compiler.Schema())
		if err != nil {
			return nil, false, fmt.Errorf("cache key: %w", err)
		}
		q, ok, err := e.cache.GetResult(ctx, key, ir.CompilerVersion)
		if err != nil {
			e.logger.Warn("cache read failed", "key", key, "error", err)
		} else if ok {
			return fromCached(q), true, nil
		}
	}

	res, err := e.compile(mode, req)
	if err != nil {
		if e.cache != nil && fallsBack(err) {
			code := "AGGREGATION"
			if c, ok := cypher.CodeOf(err); ok {
				code = string(c)
			}
			if _, rerr := e.cache.RecordFallback(ctx, key, code, err.Error()); rerr != nil {
				e.logger.Warn("fallback not recorded", "key", key, "error", rerr)
			}
		}
		return nil, false, err
	}

	if e.cache != nil {
		_, err := e.cache.PutResult(ctx, store.CachedQuery{
			PatternKey:      key,
			Query:           res.Query,
			Parameters:      res.Parameters,
			VariableMapping: res.VariableMapping,
			Columns:         res.Columns,
			CompilerVersion: ir.CompilerVersion,
		})
		if err != nil {
			e.logger.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return res, false, nil
}

func (e *Engine) compile(mode Mode, req Request) (*cypher.Result, error) {
	switch mode {
	case ModeOptional:
		return e.compiler.CompileWithOptional(req.Patterns, req.Optional, req.Filter)
	case ModeUnion:
		return e.compiler.CompileUnion(req.Patterns, req.Union)
	case ModeAggregate:
		return e.compiler.CompileWithAggregation(req.Patterns, req.Filter, req.GroupBy, req.Aggregates)
	default:
		return e.compiler.CompileWithFilter(req.Patterns, req.Filter)
	}
}

// fallsBack reports whether err is a refusal the fallback should handle.
func fallsBack(err error) bool {
	if errors.Is(err, cypher.ErrCannotTranslateAggregation) {
		return true
	}
	return cypher.IsCannotCompile(err) && !cypher.IsInvalidInput(err)
}

func fromCached(q store.CachedQuery) *cypher.Result {
	return &cypher.Result{
		Query:           q.Query,
		Parameters:      q.Parameters,
		VariableMapping: q.VariableMapping,
		Columns:         q.Columns,
	}
}

// renameRows rekeys native columns by pattern variable. Columns the mapping
// does not name (internal helpers) are dropped.
func renameRows(rows []Row, mapping map[string]string) []Row {
	byColumn := make(map[string]string, len(mapping))
	for v, col := range mapping {
		byColumn[col] = v
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		renamed := make(Row, len(r))
		for col, val := range r {
			if v, ok := byColumn[col]; ok {
				renamed[v] = val
			}
		}
		out[i] = renamed
	}
	return out
}
