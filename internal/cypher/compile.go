package cypher

import (
	"log/slog"

	"github.com/roach88/graphpush/internal/ir"
	"github.com/roach88/graphpush/internal/queryir"
	"github.com/roach88/graphpush/internal/schema"
)

// Compiler compiles triple-pattern sets to parameterized Cypher.
//
// CRITICAL: pattern URIs and literals are always parameters (never
// interpolated). The only literal tokens in emitted text are the schema's
// resource label and identity property.
//
// A Compiler holds no mutable state after New returns; every compile call
// allocates its own working state, so one Compiler may be shared freely
// across goroutines.
type Compiler struct {
	schema schema.Schema
	logger *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithSchema targets a storage schema other than schema.Default().
func WithSchema(s schema.Schema) Option {
	return func(c *Compiler) {
		c.schema = s
	}
}

// WithLogger sets the logger compile decisions are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Compiler. It fails only when the configured schema is invalid.
func New(opts ...Option) (*Compiler, error) {
	c := &Compiler{
		schema: schema.Default(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.schema.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Schema returns the storage schema the compiler targets.
func (c *Compiler) Schema() schema.Schema {
	return c.schema
}

// Result is one compiled query. It is never mutated after it is returned.
type Result struct {
	// Query is native query text with $name placeholders.
	Query string

	// Parameters is the exact binding table for Query's placeholders.
	Parameters *ir.Params

	// VariableMapping maps each pattern variable to its output column.
	VariableMapping map[string]string

	// Columns lists the pattern variables (and aggregate aliases) in
	// output-column order.
	Columns []string

	// Plans records the strategy chosen for each triple.
	Plans []Plan
}

// Compile compiles a plain pattern set.
func (c *Compiler) Compile(patterns []ir.TriplePattern) (*Result, error) {
	return c.run("compile", func(b *builder) (Query, []string, error) {
		return b.single(patterns, nil, nil)
	})
}

// CompileWithFilter compiles patterns and applies filter before any row is
// returned. A nil filter is the same as Compile.
func (c *Compiler) CompileWithFilter(patterns []ir.TriplePattern, filter queryir.Expr) (*Result, error) {
	return c.run("compile_with_filter", func(b *builder) (Query, []string, error) {
		return b.single(patterns, nil, filter)
	})
}

// CompileWithOptional compiles a mandatory pattern set followed by an
// optional block. Every row matching required is kept; optional-only
// variables are null when the block does not match. filter, when non-nil,
// restricts the required match and is applied before the optional block.
//
// An optional block holding more than one variable-predicate triple is
// refused.
func (c *Compiler) CompileWithOptional(required, optional []ir.TriplePattern, filter queryir.Expr) (*Result, error) {
	return c.run("compile_with_optional", func(b *builder) (Query, []string, error) {
		if len(optional) == 0 {
			return Query{}, nil, newCompileError(ErrCodeInvalidInput, "optional pattern set is empty")
		}
		return b.single(required, optional, filter)
	})
}

// CompileUnion compiles both sides independently and joins them with
// UNION ALL. Both sides project the same columns: a variable bound on one
// side only is null on the other.
func (c *Compiler) CompileUnion(left, right []ir.TriplePattern) (*Result, error) {
	return c.run("compile_union", func(b *builder) (Query, []string, error) {
		return b.union(left, right)
	})
}

// CompileWithAggregation compiles patterns (and filter, when non-nil) and
// replaces the projection with a grouped aggregate RETURN.
//
// Aggregation failures match ErrCannotTranslateAggregation rather than
// ErrCannotCompile.
func (c *Compiler) CompileWithAggregation(patterns []ir.TriplePattern, filter queryir.Expr, groupVars []string, aggs []queryir.Aggregator) (*Result, error) {
	return c.run("compile_with_aggregation", func(b *builder) (Query, []string, error) {
		return b.aggregate(patterns, filter, groupVars, aggs)
	})
}

func (c *Compiler) run(op string, build func(*builder) (Query, []string, error)) (*Result, error) {
	b := newBuilder(c.schema)

	q, columns, err := build(b)
	if err != nil {
		c.logger.Debug("pattern set not compiled",
			"op", op,
			"error", err)
		return nil, err
	}

	mapping := make(map[string]string, len(columns))
	for _, v := range columns {
		mapping[v] = identifier(v)
	}

	res := &Result{
		Query:           Serialize(q),
		Parameters:      b.params,
		VariableMapping: mapping,
		Columns:         columns,
		Plans:           b.plans,
	}
	c.logger.Debug("pattern set compiled",
		"op", op,
		"triples", len(b.plans),
		"params", res.Parameters.Len(),
		"columns", len(columns))
	return res, nil
}
