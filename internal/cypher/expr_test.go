package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphpush/internal/geo"
	"github.com/roach88/graphpush/internal/ir"
	"github.com/roach88/graphpush/internal/queryir"
)

func TestTranslateFilter(t *testing.T) {
	accessors := map[string]string{
		"s":    "s.uri",
		"p":    "p",
		"name": "name",
		"age":  "age",
		"loc":  "loc",
	}
	uriA, uriB := ir.NewURI("http://ex/a"), ir.NewURI("http://ex/b")

	tests := []struct {
		name   string
		expr   queryir.Expr
		want   string
		params map[string]any
	}{
		{
			name:   "equality",
			expr:   queryir.Eq(queryir.Var("name"), queryir.Const(ir.NewLiteral("Bob"))),
			want:   "name = $f0_1",
			params: map[string]any{"f0_1": "Bob"},
		},
		{
			name: "conjunction with not-equal",
			expr: queryir.And(
				queryir.Compare(queryir.OpGt, queryir.Var("age"), queryir.Const(ir.NewIntLiteral(18))),
				queryir.Compare(queryir.OpNe, queryir.Var("name"), queryir.Const(ir.NewLiteral("Al"))),
			),
			want:   "(age > $f0_0_1 AND name <> $f0_1_1)",
			params: map[string]any{"f0_0_1": int64(18), "f0_1_1": "Al"},
		},
		{
			name: "disjunction of constant on the left",
			expr: queryir.Or(
				queryir.Eq(queryir.Const(uriA), queryir.Var("p")),
				queryir.Eq(queryir.Var("p"), queryir.Const(uriB)),
			),
			want:   "($f0_0_0 = p OR p = $f0_1_1)",
			params: map[string]any{"f0_0_0": "http://ex/a", "f0_1_1": "http://ex/b"},
		},
		{
			name:   "IN binds one list parameter",
			expr:   queryir.In(queryir.Var("p"), uriA, uriB),
			want:   "p IN $f0",
			params: map[string]any{"f0": []any{"http://ex/a", "http://ex/b"}},
		},
		{
			name:   "NOT IN",
			expr:   queryir.InList{Expr: queryir.Var("p"), Values: []ir.Term{uriA}, Negated: true},
			want:   "NOT (p IN $f0)",
			params: map[string]any{"f0": []any{"http://ex/a"}},
		},
		{
			name:   "NOT wraps its operand",
			expr:   queryir.Not(queryir.Call("bound", queryir.Var("name"))),
			want:   "NOT (name IS NOT NULL)",
			params: map[string]any{},
		},
		{
			name:   "bound on a node uses its identity",
			expr:   queryir.Call("bound", queryir.Var("s")),
			want:   "s.uri IS NOT NULL",
			params: map[string]any{},
		},
		{
			name:   "contains over str",
			expr:   queryir.Call("CONTAINS", queryir.Call("str", queryir.Var("s")), queryir.Const(ir.NewLiteral("ex"))),
			want:   "toString(s.uri) CONTAINS $f0_1",
			params: map[string]any{"f0_1": "ex"},
		},
		{
			name:   "strstarts",
			expr:   queryir.Call("strStarts", queryir.Var("name"), queryir.Const(ir.NewLiteral("B"))),
			want:   "name STARTS WITH $f0_1",
			params: map[string]any{"f0_1": "B"},
		},
		{
			name:   "strends",
			expr:   queryir.Call("strends", queryir.Var("name"), queryir.Const(ir.NewLiteral("b"))),
			want:   "name ENDS WITH $f0_1",
			params: map[string]any{"f0_1": "b"},
		},
		{
			name:   "regex searches anywhere",
			expr:   queryir.Call("regex", queryir.Var("name"), queryir.Const(ir.NewLiteral("^B")), queryir.Const(ir.NewLiteral("i"))),
			want:   "name =~ $f0_1",
			params: map[string]any{"f0_1": "(?si).*(?:^B).*"},
		},
		{
			name: "geometry distance",
			expr: queryir.Compare(queryir.OpLt,
				queryir.Call(geo.FuncDistance,
					queryir.Const(ir.NewWKTLiteral("POINT(2 1)")),
					queryir.Const(ir.NewWKTLiteral("POINT(0 0)"))),
				queryir.Const(ir.NewIntLiteral(1000)),
			),
			want: "distance(point({latitude: $f0_0_0_lat, longitude: $f0_0_0_lon}), point({latitude: $f0_0_1_lat, longitude: $f0_0_1_lon})) < $f0_1",
			params: map[string]any{
				"f0_0_0_lat": 1.0,
				"f0_0_0_lon": 2.0,
				"f0_0_1_lat": 0.0,
				"f0_0_1_lon": 0.0,
				"f0_1":       int64(1000),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := ir.NewParams()
			got, err := TranslateFilter(tc.expr, accessors, params)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.params, params.Map())
		})
	}
}

func TestTranslateFilter_Refusals(t *testing.T) {
	accessors := map[string]string{"name": "name"}

	tests := []struct {
		name string
		expr queryir.Expr
		code CompileErrorCode
	}{
		{"nil", nil, ErrCodeUnsupportedExpression},
		{"unbound variable", queryir.Eq(queryir.Var("nope"), queryir.Const(ir.NewLiteral("x"))), ErrCodeUnboundVariable},
		{"unknown function", queryir.Call("lcase", queryir.Var("name")), ErrCodeUnsupportedExpression},
		{"bound on a constant", queryir.Call("bound", queryir.Const(ir.NewLiteral("x"))), ErrCodeUnsupportedExpression},
		{"regex with variable pattern", queryir.Call("regex", queryir.Var("name"), queryir.Var("name")), ErrCodeUnsupportedExpression},
		{"regex with unknown flag", queryir.Call("regex", queryir.Var("name"), queryir.Const(ir.NewLiteral("a")), queryir.Const(ir.NewLiteral("q"))), ErrCodeUnsupportedExpression},
		{"malformed geometry", queryir.Call(geo.FuncSfWithin, queryir.Const(ir.NewWKTLiteral("POINT(0 0)")), queryir.Const(ir.NewWKTLiteral("POINT(1)"))), ErrCodeUnsupportedExpression},
		{"geometry variable argument", queryir.Call(geo.FuncDistance, queryir.Var("name"), queryir.Const(ir.NewWKTLiteral("POINT(0 0)"))), ErrCodeUnsupportedExpression},
		{"unknown comparison", queryir.Compare("~", queryir.Var("name"), queryir.Var("name")), ErrCodeUnsupportedExpression},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := ir.NewParams()
			_, err := TranslateFilter(tc.expr, accessors, params)
			require.Error(t, err)
			code, ok := CodeOf(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, code)
			assert.Zero(t, params.Len(), "a refused filter binds nothing")
		})
	}
}

func TestTranslateFilter_FailureLeavesExistingParams(t *testing.T) {
	params := ir.NewParams()
	params.Set("p0", "http://ex/knows")

	_, err := TranslateFilter(
		queryir.And(
			queryir.Eq(queryir.Var("name"), queryir.Const(ir.NewLiteral("ok"))),
			queryir.Eq(queryir.Var("missing"), queryir.Const(ir.NewLiteral("x"))),
		),
		map[string]string{"name": "name"},
		params,
	)
	require.Error(t, err)
	assert.Equal(t, []string{"p0"}, params.Keys())
}

func TestTranslateFilter_LiteralAgainstNodeIsRefused(t *testing.T) {
	accessors := map[string]string{"s": "s.uri", "name": "name"}
	nodes := map[string]bool{"s": true}
	iri := ir.NewLiteral("http://ex/a")

	refused := []queryir.Expr{
		queryir.Eq(queryir.Var("s"), queryir.Const(iri)),
		queryir.Eq(queryir.Const(iri), queryir.Var("s")),
		queryir.In(queryir.Var("s"), ir.NewURI("http://ex/b"), iri),
	}
	for _, expr := range refused {
		t.Run(queryir.Format(expr), func(t *testing.T) {
			params := ir.NewParams()
			_, err := translateFilter(expr, accessors, nodes, params)
			code, ok := CodeOf(err)
			require.True(t, ok)
			assert.Equal(t, ErrCodeUnsupportedExpression, code)
			assert.Zero(t, params.Len())
		})
	}

	allowed := []queryir.Expr{
		queryir.Eq(queryir.Var("s"), queryir.Const(ir.NewURI("http://ex/a"))),
		queryir.Eq(queryir.Var("name"), queryir.Const(iri)),
	}
	for _, expr := range allowed {
		t.Run(queryir.Format(expr), func(t *testing.T) {
			_, err := translateFilter(expr, accessors, nodes, ir.NewParams())
			assert.NoError(t, err)
		})
	}
}
