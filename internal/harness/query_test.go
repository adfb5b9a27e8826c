package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphpush/internal/ir"
	"github.com/roach88/graphpush/internal/pushdown"
	"github.com/roach88/graphpush/internal/queryir"
)

func TestLoadQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
patterns:
  - "?s <http://ex/knows> ?f"
group_by: [s]
aggregates:
  - {func: count, var: "?f", distinct: true, as: n}
`), 0644))

	q, err := LoadQuery(path)
	require.NoError(t, err)

	req, err := q.Request()
	require.NoError(t, err)

	mode, err := req.Mode()
	require.NoError(t, err)
	assert.Equal(t, pushdown.ModeAggregate, mode)
	assert.Equal(t, []string{"s"}, req.GroupBy)
	assert.Equal(t, []queryir.Aggregator{
		{Func: queryir.AggCount, Var: "f", Distinct: true, Alias: "n"},
	}, req.Aggregates)
}

func TestLoadQuery_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pattern: [\"?s ?p ?o\"]\n"), 0644))

	_, err := LoadQuery(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestQuery_Request(t *testing.T) {
	q := Query{
		Patterns: []string{`?s a <http://ex/Person>`},
		Optional: []string{`?s <http://ex/email> ?e`},
	}
	req, err := q.Request()
	require.NoError(t, err)

	assert.Equal(t, []ir.TriplePattern{ir.MustParseTriple(`?s a <http://ex/Person>`)}, req.Patterns)
	assert.Equal(t, []ir.TriplePattern{ir.MustParseTriple(`?s <http://ex/email> ?e`)}, req.Optional)
	assert.Nil(t, req.Union)
	assert.Nil(t, req.Filter)
}

func TestQuery_RequestReportsBadPattern(t *testing.T) {
	q := Query{Patterns: []string{`?s ?p ?o`, `?s <http://ex/p>`}}
	_, err := q.Request()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patterns[1]")
}

func TestQuery_AggregateNeedsFunc(t *testing.T) {
	q := Query{
		Patterns:   []string{`?s ?p ?o`},
		Aggregates: []AggregateSpec{{As: "n"}},
	}
	_, err := q.Request()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "func is required")
}

func TestFilterNode_Expr(t *testing.T) {
	tests := []struct {
		name string
		node FilterNode
		want queryir.Expr
	}{
		{
			name: "variable",
			node: FilterNode{Var: "?o"},
			want: queryir.Var("o"),
		},
		{
			name: "constant",
			node: FilterNode{Const: "<http://ex/a>"},
			want: queryir.Const(ir.NewURI("http://ex/a")),
		},
		{
			name: "comparison",
			node: FilterNode{Op: ">", Args: []FilterNode{{Var: "age"}, {Const: "18"}}},
			want: queryir.Compare(queryir.OpGt, queryir.Var("age"), queryir.Const(ir.NewIntLiteral(18))),
		},
		{
			name: "or of equalities",
			node: FilterNode{Or: []FilterNode{
				{Op: "=", Args: []FilterNode{{Var: "p"}, {Const: "<http://ex/a>"}}},
				{Op: "=", Args: []FilterNode{{Var: "p"}, {Const: "<http://ex/b>"}}},
			}},
			want: queryir.Or(
				queryir.Eq(queryir.Var("p"), queryir.Const(ir.NewURI("http://ex/a"))),
				queryir.Eq(queryir.Var("p"), queryir.Const(ir.NewURI("http://ex/b"))),
			),
		},
		{
			name: "negated membership",
			node: FilterNode{Not: &FilterNode{In: &InNode{
				Expr:   FilterNode{Var: "p"},
				Values: []string{"<http://ex/a>"},
			}}},
			want: queryir.Not(queryir.In(queryir.Var("p"), ir.NewURI("http://ex/a"))),
		},
		{
			name: "function call",
			node: FilterNode{Call: "bound", Args: []FilterNode{{Var: "e"}}},
			want: queryir.Call("bound", queryir.Var("e")),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.node.Expr()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFilterNode_ExprErrors(t *testing.T) {
	tests := []struct {
		name    string
		node    FilterNode
		wantErr string
	}{
		{"empty", FilterNode{}, "exactly one form, has 0"},
		{"two forms", FilterNode{Var: "a", Call: "bound"}, "exactly one form, has 2"},
		{"variable constant", FilterNode{Const: "?x"}, "is a variable"},
		{"op arity", FilterNode{Op: "=", Args: []FilterNode{{Var: "a"}}}, "takes 2 args"},
		{"bad in value", FilterNode{In: &InNode{Expr: FilterNode{Var: "p"}, Values: []string{"<unterminated"}}}, "in.values[0]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.node.Expr()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
