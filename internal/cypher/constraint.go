package cypher

import (
	"github.com/roach88/graphpush/internal/ir"
	"github.com/roach88/graphpush/internal/queryir"
)

// FilterConstraint maps a variable to the finite set of terms a filter
// restricts it to. An absent entry means unconstrained.
type FilterConstraint map[string]ir.TermSet

// Candidates returns the candidate set for name when it is non-empty.
func (fc FilterConstraint) Candidates(name string) (ir.TermSet, bool) {
	s, ok := fc[name]
	if !ok || len(s) == 0 {
		return nil, false
	}
	return s, true
}

// ExtractConstraints derives the candidate sets a filter implies.
//
// Recognized shapes are ?v = const (either side), ?v IN (...), OR over
// shapes constraining the same variable (candidates unioned) and AND
// (independent variables kept, shared variables intersected). Anything else,
// including NOT, constrains nothing. A nil filter yields an empty map.
func ExtractConstraints(expr queryir.Expr) FilterConstraint {
	if expr == nil {
		return FilterConstraint{}
	}
	fc, err := queryir.Visit[FilterConstraint](expr, constraintExtractor{})
	if err != nil {
		return FilterConstraint{}
	}
	return fc
}

type constraintExtractor struct{}

func (x constraintExtractor) Comparison(e queryir.Comparison) (FilterConstraint, error) {
	if e.Op != queryir.OpEq {
		return FilterConstraint{}, nil
	}
	if v, ok := e.Left.(queryir.VarRef); ok {
		if c, ok := e.Right.(queryir.ConstRef); ok && ir.IsConcrete(c.Value) {
			return FilterConstraint{v.Name: ir.NewTermSet(c.Value)}, nil
		}
	}
	if v, ok := e.Right.(queryir.VarRef); ok {
		if c, ok := e.Left.(queryir.ConstRef); ok && ir.IsConcrete(c.Value) {
			return FilterConstraint{v.Name: ir.NewTermSet(c.Value)}, nil
		}
	}
	return FilterConstraint{}, nil
}

func (x constraintExtractor) Logical(e queryir.Logical) (FilterConstraint, error) {
	switch e.Op {
	case queryir.OpAnd:
		out := FilterConstraint{}
		for _, arg := range e.Args {
			sub := ExtractConstraints(arg)
			for name, set := range sub {
				if have, ok := out[name]; ok {
					out[name] = have.Intersect(set)
				} else {
					out[name] = set
				}
			}
		}
		return out, nil
	case queryir.OpOr:
		if len(e.Args) == 0 {
			return FilterConstraint{}, nil
		}
		out := ExtractConstraints(e.Args[0])
		for _, arg := range e.Args[1:] {
			sub := ExtractConstraints(arg)
			for name, set := range out {
				other, ok := sub[name]
				if !ok {
					// one disjunct leaves name free, so the whole OR does
					delete(out, name)
					continue
				}
				out[name] = set.Union(other)
			}
		}
		return out, nil
	default:
		return FilterConstraint{}, nil
	}
}

func (x constraintExtractor) InList(e queryir.InList) (FilterConstraint, error) {
	v, ok := e.Expr.(queryir.VarRef)
	if !ok || e.Negated || len(e.Values) == 0 {
		return FilterConstraint{}, nil
	}
	for _, t := range e.Values {
		if !ir.IsConcrete(t) {
			return FilterConstraint{}, nil
		}
	}
	return FilterConstraint{v.Name: ir.NewTermSet(e.Values...)}, nil
}

func (x constraintExtractor) FunctionCall(queryir.FunctionCall) (FilterConstraint, error) {
	return FilterConstraint{}, nil
}

func (x constraintExtractor) VarRef(queryir.VarRef) (FilterConstraint, error) {
	return FilterConstraint{}, nil
}

func (x constraintExtractor) ConstRef(queryir.ConstRef) (FilterConstraint, error) {
	return FilterConstraint{}, nil
}
