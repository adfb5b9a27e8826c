package cypher

import (
	"fmt"
	"strings"

	"github.com/roach88/graphpush/internal/ir"
)

// RenderStrategy is how one triple pattern becomes native clauses.
type RenderStrategy int

const (
	// EdgeMatch matches a typed relationship between two resource nodes.
	EdgeMatch RenderStrategy = iota + 1
	// PropertyMatch compares a node property with a literal.
	PropertyMatch
	// LabelMatch tests or enumerates the class labels of a node (rdf:type).
	LabelMatch
	// AmbiguousUnion unions an edge branch and a property branch for an
	// object variable that may be a resource or a literal.
	AmbiguousUnion
	// PredicateUnion unions edge, property and label branches for a
	// variable predicate.
	PredicateUnion
)

func (s RenderStrategy) String() string {
	switch s {
	case EdgeMatch:
		return "EdgeMatch"
	case PropertyMatch:
		return "PropertyMatch"
	case LabelMatch:
		return "LabelMatch"
	case AmbiguousUnion:
		return "AmbiguousUnion"
	case PredicateUnion:
		return "PredicateUnion"
	default:
		return fmt.Sprintf("RenderStrategy(%d)", int(s))
	}
}

// Branch is one arm of a union strategy.
type Branch int

const (
	BranchEdge Branch = iota + 1
	BranchProperty
	BranchLabel
)

func (b Branch) String() string {
	switch b {
	case BranchEdge:
		return "edge"
	case BranchProperty:
		return "property"
	case BranchLabel:
		return "label"
	default:
		return fmt.Sprintf("Branch(%d)", int(b))
	}
}

// Plan records the strategy chosen for one triple.
type Plan struct {
	Triple   ir.TriplePattern
	Strategy RenderStrategy

	// Branches lists the union arms, in emission order. Empty for the
	// single-clause strategies.
	Branches []Branch

	// Constrained is set when a filter narrowed the predicate variable to
	// a candidate list.
	Constrained bool

	// Optional is set for triples inside an optional block.
	Optional bool
}

// Has reports whether the plan emits branch br.
func (p Plan) Has(br Branch) bool {
	for _, b := range p.Branches {
		if b == br {
			return true
		}
	}
	return false
}

func (p Plan) String() string {
	var sb strings.Builder
	sb.WriteString(p.Triple.String())
	sb.WriteString(" => ")
	sb.WriteString(p.Strategy.String())
	if len(p.Branches) > 0 {
		names := make([]string, len(p.Branches))
		for i, b := range p.Branches {
			names[i] = b.String()
		}
		sb.WriteString("[" + strings.Join(names, "|") + "]")
	}
	if p.Constrained {
		sb.WriteString(" constrained")
	}
	if p.Optional {
		sb.WriteString(" optional")
	}
	return sb.String()
}

func without(branches []Branch, drop Branch) []Branch {
	out := branches[:0:0]
	for _, b := range branches {
		if b != drop {
			out = append(out, b)
		}
	}
	return out
}
