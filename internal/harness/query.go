package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/graphpush/internal/ir"
	"github.com/roach88/graphpush/internal/pushdown"
	"github.com/roach88/graphpush/internal/queryir"
)

// Query is the YAML form of a pattern query, shared by scenarios and the
// CLI's query files:
//
//	patterns:
//	  - "?s <http://ex/knows> ?o"
//	filter:
//	  or:
//	    - {op: "=", args: [{var: p}, {const: "<http://ex/a>"}]}
//	    - {in: {expr: {var: p}, values: ["<http://ex/b>"]}}
//	optional:
//	  - "?s <http://ex/email> ?e"
//	group_by: [s]
//	aggregates:
//	  - {func: COUNT, var: o, distinct: true, as: n}
type Query struct {
	Patterns   []string        `yaml:"patterns"`
	Filter     *FilterNode     `yaml:"filter,omitempty"`
	Optional   []string        `yaml:"optional,omitempty"`
	Union      []string        `yaml:"union,omitempty"`
	GroupBy    []string        `yaml:"group_by,omitempty"`
	Aggregates []AggregateSpec `yaml:"aggregates,omitempty"`
}

// FilterNode is one node of a YAML filter tree. Exactly one form is set:
// var, const, op (a comparison over two args), and, or, not, in, or call
// (a function over args).
type FilterNode struct {
	Var   string       `yaml:"var,omitempty"`
	Const string       `yaml:"const,omitempty"`
	Op    string       `yaml:"op,omitempty"`
	And   []FilterNode `yaml:"and,omitempty"`
	Or    []FilterNode `yaml:"or,omitempty"`
	Not   *FilterNode  `yaml:"not,omitempty"`
	In    *InNode      `yaml:"in,omitempty"`
	Call  string       `yaml:"call,omitempty"`
	Args  []FilterNode `yaml:"args,omitempty"`
}

// InNode is the YAML form of expr [NOT] IN (values...).
type InNode struct {
	Expr    FilterNode `yaml:"expr"`
	Values  []string   `yaml:"values"`
	Negated bool       `yaml:"negated,omitempty"`
}

// AggregateSpec is the YAML form of one aggregate column.
type AggregateSpec struct {
	Func     string `yaml:"func"`
	Var      string `yaml:"var,omitempty"`
	Distinct bool   `yaml:"distinct,omitempty"`
	As       string `yaml:"as"`
}

// LoadQuery reads a query file, rejecting unknown fields.
func LoadQuery(path string) (*Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	var q Query
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&q); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &q, nil
}

// Request converts q to a pushdown request. Pattern lines use the surface
// syntax of ir.ParseTriple.
func (q *Query) Request() (pushdown.Request, error) {
	var req pushdown.Request
	var err error

	if req.Patterns, err = parsePatterns("patterns", q.Patterns); err != nil {
		return req, err
	}
	if req.Optional, err = parsePatterns("optional", q.Optional); err != nil {
		return req, err
	}
	if q.Union != nil {
		if req.Union, err = parsePatterns("union", q.Union); err != nil {
			return req, err
		}
		if req.Union == nil {
			req.Union = []ir.TriplePattern{}
		}
	}
	if q.Filter != nil {
		if req.Filter, err = q.Filter.Expr(); err != nil {
			return req, fmt.Errorf("filter: %w", err)
		}
	}
	req.GroupBy = append([]string(nil), q.GroupBy...)
	for i, a := range q.Aggregates {
		if a.Func == "" {
			return req, fmt.Errorf("aggregates[%d]: func is required", i)
		}
		req.Aggregates = append(req.Aggregates, queryir.Aggregator{
			Func:     queryir.AggregateFunc(strings.ToUpper(a.Func)),
			Var:      strings.TrimPrefix(a.Var, "?"),
			Distinct: a.Distinct,
			Alias:    strings.TrimPrefix(a.As, "?"),
		})
	}
	return req, nil
}

func parsePatterns(field string, lines []string) ([]ir.TriplePattern, error) {
	var out []ir.TriplePattern
	for i, line := range lines {
		tp, err := ir.ParseTriple(line)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		out = append(out, tp)
	}
	return out, nil
}

// Expr converts the node to a filter expression.
func (n FilterNode) Expr() (queryir.Expr, error) {
	forms := 0
	for _, set := range []bool{n.Var != "", n.Const != "", n.Op != "", n.And != nil, n.Or != nil, n.Not != nil, n.In != nil, n.Call != ""} {
		if set {
			forms++
		}
	}
	if forms != 1 {
		return nil, fmt.Errorf("filter node must have exactly one form, has %d", forms)
	}

	switch {
	case n.Var != "":
		return queryir.Var(strings.TrimPrefix(n.Var, "?")), nil
	case n.Const != "":
		t, err := ir.ParseTerm(n.Const)
		if err != nil {
			return nil, err
		}
		if _, ok := ir.IsVariable(t); ok {
			return nil, fmt.Errorf("const %q is a variable", n.Const)
		}
		return queryir.Const(t), nil
	case n.Op != "":
		if len(n.Args) != 2 {
			return nil, fmt.Errorf("op %q takes 2 args, got %d", n.Op, len(n.Args))
		}
		args, err := exprs(n.Args)
		if err != nil {
			return nil, err
		}
		return queryir.Compare(queryir.CompareOp(n.Op), args[0], args[1]), nil
	case n.And != nil:
		args, err := exprs(n.And)
		if err != nil {
			return nil, err
		}
		return queryir.And(args...), nil
	case n.Or != nil:
		args, err := exprs(n.Or)
		if err != nil {
			return nil, err
		}
		return queryir.Or(args...), nil
	case n.Not != nil:
		arg, err := n.Not.Expr()
		if err != nil {
			return nil, err
		}
		return queryir.Not(arg), nil
	case n.In != nil:
		e, err := n.In.Expr.Expr()
		if err != nil {
			return nil, err
		}
		values := make([]ir.Term, len(n.In.Values))
		for i, v := range n.In.Values {
			if values[i], err = ir.ParseTerm(v); err != nil {
				return nil, fmt.Errorf("in.values[%d]: %w", i, err)
			}
		}
		return queryir.InList{Expr: e, Values: values, Negated: n.In.Negated}, nil
	default:
		args, err := exprs(n.Args)
		if err != nil {
			return nil, err
		}
		return queryir.Call(n.Call, args...), nil
	}
}

func exprs(nodes []FilterNode) ([]queryir.Expr, error) {
	out := make([]queryir.Expr, len(nodes))
	for i, n := range nodes {
		e, err := n.Expr()
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}
