package cypher

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphpush/internal/ir"
	"github.com/roach88/graphpush/internal/queryir"
	"github.com/roach88/graphpush/internal/schema"
)

const (
	exKnows  = "http://ex/knows"
	exName   = "http://ex/name"
	exPerson = "http://ex/Person"
)

func newTestCompiler(t *testing.T, opts ...Option) *Compiler {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func bgp(lines ...string) []ir.TriplePattern {
	out := make([]ir.TriplePattern, len(lines))
	for i, l := range lines {
		out[i] = ir.MustParseTriple(l)
	}
	return out
}

func assertGolden(t *testing.T, name string, res *Result) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(res.Query+"\n"))
}

func TestCompile_AmbiguousObjectUnionsTwoBranches(t *testing.T) {
	c := newTestCompiler(t)

	res, err := c.Compile(bgp("?s <http://ex/knows> ?o"))
	require.NoError(t, err)

	assertGolden(t, "ambiguous_object", res)
	assert.Equal(t, 1, strings.Count(res.Query, "UNION ALL"))
	assert.Equal(t, 2, strings.Count(res.Query, "AS o\n"), "both branches project o")
	assert.Equal(t, map[string]any{"p0": exKnows}, res.Parameters.Map())
	assert.Equal(t, map[string]string{"s": "s", "o": "o"}, res.VariableMapping)
	assert.Equal(t, []string{"s", "o"}, res.Columns)

	require.Len(t, res.Plans, 1)
	assert.Equal(t, AmbiguousUnion, res.Plans[0].Strategy)
	assert.Equal(t, []Branch{BranchEdge, BranchProperty}, res.Plans[0].Branches)
}

func TestCompile_VariablePredicateUnionsThreeBranches(t *testing.T) {
	c := newTestCompiler(t)

	res, err := c.Compile(bgp("?s ?p ?o"))
	require.NoError(t, err)

	assertGolden(t, "variable_predicate", res)
	assert.Equal(t, 2, strings.Count(res.Query, "UNION ALL"))
	assert.Contains(t, res.Query, "keys(s)", "unconstrained property branch enumerates every key")
	assert.NotContains(t, res.Query, "$c_p")
	assert.Equal(t, map[string]any{"p0": ir.RDFType}, res.Parameters.Map())

	require.Len(t, res.Plans, 1)
	assert.Equal(t, PredicateUnion, res.Plans[0].Strategy)
	assert.False(t, res.Plans[0].Constrained)
	assert.Len(t, res.Plans[0].Branches, 3)
}

func TestCompile_FilterConstrainsPredicateEnumeration(t *testing.T) {
	c := newTestCompiler(t)
	filter := queryir.Or(
		queryir.Eq(queryir.Var("p"), queryir.Const(ir.NewURI("http://ex/a"))),
		queryir.Eq(queryir.Var("p"), queryir.Const(ir.NewURI("http://ex/b"))),
	)

	res, err := c.CompileWithFilter(bgp("?s ?p ?o"), filter)
	require.NoError(t, err)

	assertGolden(t, "constrained_predicate", res)
	assert.NotContains(t, res.Query, "keys(", "constrained form must not enumerate keys")

	var lists []string
	for _, k := range res.Parameters.Keys() {
		v, _ := res.Parameters.Get(k)
		if _, ok := v.([]any); ok {
			lists = append(lists, k)
		}
	}
	require.Equal(t, []string{"c_p"}, lists, "exactly one list parameter")
	cands, _ := res.Parameters.Get("c_p")
	assert.Equal(t, []any{"http://ex/a", "http://ex/b"}, cands)

	require.Len(t, res.Plans, 1)
	assert.True(t, res.Plans[0].Constrained)
	assert.False(t, res.Plans[0].Has(BranchLabel), "rdf:type is not a candidate")
}

func TestCompile_ConstraintIncludingTypeKeepsLabelBranch(t *testing.T) {
	c := newTestCompiler(t)
	filter := queryir.In(queryir.Var("p"), ir.NewURI(ir.RDFType), ir.NewURI(exName))

	res, err := c.CompileWithFilter(bgp("?s ?p ?o"), filter)
	require.NoError(t, err)

	assert.True(t, res.Plans[0].Has(BranchLabel))
	assert.Contains(t, res.Query, "labels(s)")
	assert.Contains(t, res.Query, "[__k IN $c_p WHERE s[__k] IS NOT NULL]")
}

func TestCompile_NeverInlinesConcreteValues(t *testing.T) {
	tests := []struct {
		name     string
		patterns []ir.TriplePattern
		values   []any
	}{
		{
			name:     "edge and property",
			patterns: bgp(`?s <http://ex/knows> ?o`, `?o <http://ex/name> "Bob"`),
			values:   []any{exKnows, exName, "Bob"},
		},
		{
			name:     "concrete subject and object",
			patterns: bgp(`<http://ex/alice> <http://ex/knows> <http://ex/bob>`),
			values:   []any{"http://ex/alice", exKnows, "http://ex/bob"},
		},
		{
			name:     "class label",
			patterns: bgp(`?s a <http://ex/Person>`),
			values:   []any{exPerson},
		},
		{
			name:     "typed literal",
			patterns: bgp(`?s <http://ex/age> 42`),
			values:   []any{"http://ex/age", int64(42)},
		},
		{
			name:     "variable predicate with literal object",
			patterns: bgp(`?s ?p "Carol"`),
			values:   []any{"Carol"},
		},
	}

	c := newTestCompiler(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := c.Compile(tc.patterns)
			require.NoError(t, err)

			bound := res.Parameters.Map()
			for _, v := range tc.values {
				if s, ok := v.(string); ok {
					assert.NotContains(t, res.Query, s)
				}
				assert.Contains(t, valuesOf(bound), v)
			}
		})
	}
}

func valuesOf(m map[string]any) []any {
	out := make([]any, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func TestCompile_EdgeThenProperty(t *testing.T) {
	c := newTestCompiler(t)

	res, err := c.Compile(bgp(`?s <http://ex/knows> ?o`, `?o <http://ex/name> "Bob"`))
	require.NoError(t, err)

	want := strings.Join([]string{
		"MATCH (s:Resource)-[__r0]->(o:Resource) WHERE type(__r0) = $p0",
		"MATCH (o) WHERE o[$p1] = $p2",
		"RETURN s.uri AS s, o.uri AS o",
	}, "\n")
	assert.Equal(t, want, res.Query)
	assert.Equal(t, []string{"p0", "p1", "p2"}, res.Parameters.Keys())
	assert.Equal(t, EdgeMatch, res.Plans[0].Strategy)
	assert.Equal(t, PropertyMatch, res.Plans[1].Strategy)
}

func TestCompile_ReusedNodeIsReferencedNotRedeclared(t *testing.T) {
	c := newTestCompiler(t)

	res, err := c.Compile(bgp(`?a <http://ex/knows> ?b`, `?b <http://ex/knows> ?a`))
	require.NoError(t, err)

	want := strings.Join([]string{
		"MATCH (a:Resource)-[__r0]->(b:Resource) WHERE type(__r0) = $p0",
		"MATCH (b)-[__r1]->(a) WHERE type(__r1) = $p0",
		"RETURN a.uri AS a, b.uri AS b",
	}, "\n")
	assert.Equal(t, want, res.Query)
	assert.Equal(t, 1, res.Parameters.Len(), "equal terms share a parameter")
}

func TestCompile_TypeTriples(t *testing.T) {
	c := newTestCompiler(t)

	res, err := c.Compile(bgp(`?s a <http://ex/Person>`))
	require.NoError(t, err)
	assert.Equal(t, "MATCH (s:Resource) WHERE $p0 IN labels(s)\nRETURN s.uri AS s", res.Query)

	res, err = c.Compile(bgp(`?s a ?c`))
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"MATCH (s:Resource)",
		"UNWIND [__l IN labels(s) WHERE __l <> 'Resource'] AS c",
		"RETURN s.uri AS s, c AS c",
	}, "\n"), res.Query)

	res, err = c.Compile(bgp(`?s a ?c`, `?c <http://ex/label> "Person"`))
	require.NoError(t, err)
	assert.Contains(t, res.Query, "MATCH (s:Resource), (c:Resource) WHERE c.uri IN labels(s)")
}

func TestCompile_BoundValueVariableJoinsThroughHelper(t *testing.T) {
	c := newTestCompiler(t)

	res, err := c.Compile(bgp(`?a <http://ex/knows> ?o`, `?b <http://ex/likes> ?o`))
	require.NoError(t, err)

	assert.Contains(t, res.Query, "RETURN __t1.uri AS __v0")
	assert.Contains(t, res.Query, "RETURN b[$p1] AS __v0")
	assert.Contains(t, res.Query, "WITH * WHERE __v0 = o")
	assert.Equal(t, []string{"a", "o", "b"}, res.Columns)
}

func TestCompile_VariablePredicateShapes(t *testing.T) {
	c := newTestCompiler(t)

	t.Run("literal object enumerates keys only", func(t *testing.T) {
		res, err := c.Compile(bgp(`?s ?p "Carol"`))
		require.NoError(t, err)
		assert.Equal(t, []Branch{BranchProperty}, res.Plans[0].Branches)
		assert.Contains(t, res.Query, "UNWIND [__k IN keys(s) WHERE __k <> 'uri' AND s[__k] = $p0] AS __k0")
		assert.NotContains(t, res.Query, "UNION ALL")
	})

	t.Run("uri object unions edge and label", func(t *testing.T) {
		res, err := c.Compile(bgp(`?s ?p <http://ex/Person>`))
		require.NoError(t, err)
		assert.Equal(t, []Branch{BranchEdge, BranchLabel}, res.Plans[0].Branches)
		assert.Contains(t, res.Query, "MATCH (s)-[__r0]->(__t0:Resource {uri: $p0})")
		assert.Contains(t, res.Query, "MATCH (s) WHERE $p0 IN labels(s)")
	})

	t.Run("node object binds the node in both branches", func(t *testing.T) {
		res, err := c.Compile(bgp(`?s ?p ?o`, `?o <http://ex/name> "Bob"`))
		require.NoError(t, err)
		assert.Equal(t, []Branch{BranchEdge, BranchLabel}, res.Plans[0].Branches)
		assert.Contains(t, res.Query, "RETURN type(__r0) AS p, o AS o")
		assert.Contains(t, res.Query, "MATCH (o:Resource) WHERE o.uri IN labels(s)")
		assert.Contains(t, res.Query, "MATCH (o) WHERE o[$p1] = $p2")
	})

	t.Run("predicate bound earlier joins", func(t *testing.T) {
		res, err := c.Compile(bgp(`?x <http://ex/uses> ?p`, `?s ?p ?o`))
		require.NoError(t, err)
		assert.Contains(t, res.Query, "WITH * WHERE __v0 = p")
	})
}

func TestCompile_Optional(t *testing.T) {
	c := newTestCompiler(t)

	t.Run("ambiguous block keeps the required row", func(t *testing.T) {
		res, err := c.CompileWithOptional(
			bgp(`?s a <http://ex/Person>`),
			bgp(`?s <http://ex/email> ?e`),
			nil,
		)
		require.NoError(t, err)

		assertGolden(t, "optional_ambiguous", res)
		assert.True(t, res.Plans[1].Optional)
	})

	t.Run("single edge becomes OPTIONAL MATCH", func(t *testing.T) {
		res, err := c.CompileWithOptional(
			bgp(`?s a <http://ex/Person>`),
			bgp(`?f <http://ex/knows> ?s`),
			nil,
		)
		require.NoError(t, err)

		assert.Equal(t, strings.Join([]string{
			"MATCH (s:Resource) WHERE $p0 IN labels(s)",
			"OPTIONAL MATCH (f:Resource)-[__r0]->(s) WHERE type(__r0) = $p1",
			"RETURN s.uri AS s, f.uri AS f",
		}, "\n"), res.Query)
	})

	t.Run("filter applies before the optional block", func(t *testing.T) {
		res, err := c.CompileWithOptional(
			bgp(`?s <http://ex/age> ?age`),
			bgp(`?s <http://ex/email> ?e`),
			queryir.Compare(queryir.OpGe, queryir.Var("age"), queryir.Const(ir.NewIntLiteral(18))),
		)
		require.NoError(t, err)

		filterAt := strings.Index(res.Query, "WITH * WHERE age >= $f0_1")
		optionalAt := strings.Index(res.Query, "collect([e])")
		require.NotEqual(t, -1, filterAt)
		require.NotEqual(t, -1, optionalAt)
		assert.Less(t, filterAt, optionalAt)
	})

	t.Run("filter on optional-only variable is refused", func(t *testing.T) {
		_, err := c.CompileWithOptional(
			bgp(`?s a <http://ex/Person>`),
			bgp(`?s <http://ex/email> ?e`),
			queryir.Call("bound", queryir.Var("e")),
		)
		code, ok := CodeOf(err)
		require.True(t, ok)
		assert.Equal(t, ErrCodeUnboundVariable, code)
	})

	t.Run("two variable predicates are refused", func(t *testing.T) {
		_, err := c.CompileWithOptional(
			bgp(`?s a <http://ex/Person>`),
			bgp(`?s ?p ?o`, `?o ?q ?z`),
			nil,
		)
		assert.ErrorIs(t, err, ErrCannotCompile)
		assert.NotErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("empty optional set is invalid", func(t *testing.T) {
		_, err := c.CompileWithOptional(bgp(`?s a <http://ex/Person>`), nil, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestCompileUnion_AlignsColumns(t *testing.T) {
	c := newTestCompiler(t)

	res, err := c.CompileUnion(bgp(`?s <http://ex/name> ?n`), bgp(`?s <http://ex/label> ?l`))
	require.NoError(t, err)

	assertGolden(t, "union_align", res)
	assert.Equal(t, []string{"s", "n", "l"}, res.Columns)
	assert.Equal(t, []string{"p0", "p1"}, res.Parameters.Keys())
}

// SPARQL UNION keeps duplicates: overlapping sides must produce every row
// from both, so the parts are joined with UNION ALL and never deduplicated.
func TestCompileUnion_PreservesDuplicates(t *testing.T) {
	c := newTestCompiler(t)

	res, err := c.CompileUnion(bgp(`?s a <http://ex/Person>`), bgp(`?s a <http://ex/Person>`))
	require.NoError(t, err)

	parts := strings.Split(res.Query, "\nUNION ALL\n")
	require.Len(t, parts, 2)
	assert.Equal(t, parts[0], parts[1], "identical sides render identically")
	assert.NotContains(t, res.Query, "DISTINCT")
	assert.NotContains(t, strings.ReplaceAll(res.Query, "UNION ALL", ""), "UNION")
}

func TestCompileWithAggregation(t *testing.T) {
	c := newTestCompiler(t)

	res, err := c.CompileWithAggregation(
		bgp(`?s <http://ex/knows> ?f`),
		nil,
		[]string{"s"},
		[]queryir.Aggregator{{Func: queryir.AggCount, Var: "f", Distinct: true, Alias: "n"}},
	)
	require.NoError(t, err)

	lines := strings.Split(res.Query, "\n")
	assert.Equal(t, "RETURN s.uri AS s, count(DISTINCT f) AS n", lines[len(lines)-1])
	assert.Equal(t, []string{"s", "n"}, res.Columns)
	assert.Equal(t, "n", res.VariableMapping["n"])

	_, err = c.CompileWithAggregation(bgp(`?s <http://ex/knows> ?f`), nil, nil, nil)
	assert.ErrorIs(t, err, ErrCannotTranslateAggregation)
}

func TestCompile_EmptyInputIsInvalidEverywhere(t *testing.T) {
	c := newTestCompiler(t)
	some := bgp(`?s ?p ?o`)
	count := []queryir.Aggregator{{Func: queryir.AggCount, Alias: "n"}}

	calls := map[string]func() error{
		"Compile nil":     func() error { _, err := c.Compile(nil); return err },
		"Compile empty":   func() error { _, err := c.Compile([]ir.TriplePattern{}); return err },
		"WithFilter":      func() error { _, err := c.CompileWithFilter(nil, queryir.Call("bound", queryir.Var("s"))); return err },
		"WithOptional":    func() error { _, err := c.CompileWithOptional(nil, some, nil); return err },
		"Union left":      func() error { _, err := c.CompileUnion(nil, some); return err },
		"Union right":     func() error { _, err := c.CompileUnion(some, []ir.TriplePattern{}); return err },
		"WithAggregation": func() error { _, err := c.CompileWithAggregation(nil, nil, nil, count); return err },
		"incomplete triple": func() error {
			_, err := c.Compile([]ir.TriplePattern{{Subject: ir.NewVariable("s")}})
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.ErrorIs(t, err, ErrCannotCompile)
			assert.True(t, IsInvalidInput(err))
		})
	}
}

func TestCompile_Refusals(t *testing.T) {
	tests := []struct {
		name     string
		patterns []ir.TriplePattern
		filter   queryir.Expr
		code     CompileErrorCode
	}{
		{"literal subject", bgp(`"x" <http://ex/p> ?o`), nil, ErrCodeUnsupportedShape},
		{"literal predicate", bgp(`?s "p" ?o`), nil, ErrCodeUnsupportedShape},
		{"literal class", bgp(`?s a "Person"`), nil, ErrCodeUnsupportedShape},
		{"subject reused as predicate", bgp(`?s ?p ?o`, `?p <http://ex/label> "x"`), nil, ErrCodeUnsupportedShape},
		{"predicate reused as object", bgp(`?s ?p ?p`), nil, ErrCodeUnsupportedShape},
		{"filter on unknown variable", bgp(`?s ?p ?o`), queryir.Call("bound", queryir.Var("zzz")), ErrCodeUnboundVariable},
		{"unknown filter function", bgp(`?s ?p ?o`), queryir.Call("http://ex/fn", queryir.Var("o")), ErrCodeUnsupportedExpression},
		{"literal compared with node", bgp(`?s a <http://ex/Person>`), queryir.Eq(queryir.Var("s"), queryir.Const(ir.NewLiteral("http://ex/a"))), ErrCodeUnsupportedExpression},
		{"sanitized name clash", bgp(`?s <http://ex/p> ?match`, `?s <http://ex/q> ?v_match`), nil, ErrCodeUnsupportedShape},
	}

	c := newTestCompiler(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.CompileWithFilter(tc.patterns, tc.filter)
			require.Error(t, err)
			assert.True(t, IsCannotCompile(err))
			code, ok := CodeOf(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestCompile_NodeComparedWithIRI(t *testing.T) {
	c := newTestCompiler(t)
	res, err := c.CompileWithFilter(
		bgp(`?s a <http://ex/Person>`),
		queryir.Eq(queryir.Var("s"), queryir.Const(ir.NewURI("http://ex/a"))),
	)
	require.NoError(t, err)
	assert.Contains(t, res.Query, "WITH * WHERE s.uri = $f0_1")
	v, ok := res.Parameters.Get("f0_1")
	require.True(t, ok)
	assert.Equal(t, "http://ex/a", v)
}

func TestCompile_ReservedVariableNamesAreSanitized(t *testing.T) {
	c := newTestCompiler(t)

	res, err := c.Compile(bgp(`?match <http://ex/knows> ?_x`, `?_x <http://ex/name> "a"`))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"match": "v_match", "_x": "v__x"}, res.VariableMapping)
	assert.Contains(t, res.Query, "RETURN v_match.uri AS v_match, v__x.uri AS v__x")
}

func TestCompile_CustomSchema(t *testing.T) {
	s := schema.Schema{ResourceLabel: "Entity", IdentityProperty: "iri", TypePredicate: ir.RDFType}
	c := newTestCompiler(t, WithSchema(s))

	res, err := c.Compile(bgp(`?s ?p ?o`))
	require.NoError(t, err)

	assert.Contains(t, res.Query, "MATCH (s:Entity)")
	assert.Contains(t, res.Query, "__k <> 'iri'")
	assert.Contains(t, res.Query, "__l <> 'Entity'")
	assert.Contains(t, res.Query, "RETURN s.iri AS s")
	assert.NotContains(t, res.Query, "Resource")
}

func TestCompile_CustomTypePredicate(t *testing.T) {
	s := schema.Default()
	s.TypePredicate = "http://ex/isA"
	c := newTestCompiler(t, WithSchema(s))

	res, err := c.Compile(bgp(`?s <http://ex/isA> <http://ex/Person>`))
	require.NoError(t, err)
	assert.Contains(t, res.Query, "$p0 IN labels(s)")
	require.Len(t, res.Plans, 1)
	assert.Equal(t, LabelMatch, res.Plans[0].Strategy)

	res, err = c.Compile(bgp(`?s a <http://ex/Person>`))
	require.NoError(t, err)
	require.Len(t, res.Plans, 1)
	assert.NotEqual(t, LabelMatch, res.Plans[0].Strategy)
}

func TestNew_RejectsInvalidSchema(t *testing.T) {
	_, err := New(WithSchema(schema.Schema{ResourceLabel: "bad label", IdentityProperty: "uri", TypePredicate: ir.RDFType}))
	assert.Error(t, err)
}

func TestCompile_ConcurrentCallsAreIndependent(t *testing.T) {
	c := newTestCompiler(t)
	patterns := bgp(`?s ?p ?o`, `?o <http://ex/name> ?n`)

	want, err := c.Compile(patterns)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Result, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Compile(patterns)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, want.Query, r.Query)
		assert.Equal(t, want.Parameters.Map(), r.Parameters.Map())
	}
}

func TestCompile_NoVariables(t *testing.T) {
	c := newTestCompiler(t)

	res, err := c.Compile(bgp(`<http://ex/alice> <http://ex/knows> <http://ex/bob>`))
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"MATCH (__n0:Resource {uri: $p0})-[__r0]->(__n1:Resource {uri: $p2}) WHERE type(__r0) = $p1",
		"RETURN true AS __matched",
	}, "\n"), res.Query)
	assert.Empty(t, res.Columns)
}
