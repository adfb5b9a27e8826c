package pushdown

import (
	"fmt"

	"github.com/roach88/graphpush/internal/ir"
	"github.com/roach88/graphpush/internal/queryir"
	"github.com/roach88/graphpush/internal/schema"
)

// Mode selects the compile entry point a Request goes through.
type Mode int

const (
	ModeBasic Mode = iota + 1
	ModeOptional
	ModeUnion
	ModeAggregate
)

func (m Mode) String() string {
	switch m {
	case ModeBasic:
		return "basic"
	case ModeOptional:
		return "optional"
	case ModeUnion:
		return "union"
	case ModeAggregate:
		return "aggregate"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Request is one algebra-normalized pattern query.
//
// Patterns is the required group (the left side for a union). At most one
// of Optional, Union and Aggregates may be set; Filter applies to every mode
// except union.
type Request struct {
	Patterns   []ir.TriplePattern
	Filter     queryir.Expr
	Optional   []ir.TriplePattern
	Union      []ir.TriplePattern
	GroupBy    []string
	Aggregates []queryir.Aggregator
}

// Mode reports which compile entry point r needs, or an error when r
// combines modifiers no single entry point accepts.
func (r Request) Mode() (Mode, error) {
	set := 0
	mode := ModeBasic
	if len(r.Optional) > 0 {
		set++
		mode = ModeOptional
	}
	if r.Union != nil {
		set++
		mode = ModeUnion
	}
	if len(r.Aggregates) > 0 {
		set++
		mode = ModeAggregate
	}
	if set > 1 {
		return 0, fmt.Errorf("request combines optional, union and aggregation")
	}
	if mode == ModeUnion && r.Filter != nil {
		return 0, fmt.Errorf("filter over a union")
	}
	if len(r.GroupBy) > 0 && mode != ModeAggregate {
		return 0, fmt.Errorf("group by without aggregates")
	}
	return mode, nil
}

// Key returns the canonical cache key of r compiled against s. Requests that
// differ only in ways the compiler ignores share a key.
func (r Request) Key(s schema.Schema) (string, error) {
	req := map[string]any{
		"patterns": ir.EncodePatterns(r.Patterns),
		"schema": map[string]any{
			"label":    s.ResourceLabel,
			"identity": s.IdentityProperty,
			"type":     s.TypePredicate,
		},
	}
	if r.Filter != nil {
		req["filter"] = queryir.Format(r.Filter)
	}
	if len(r.Optional) > 0 {
		req["optional"] = ir.EncodePatterns(r.Optional)
	}
	if r.Union != nil {
		req["union"] = ir.EncodePatterns(r.Union)
	}
	if len(r.GroupBy) > 0 {
		req["group_by"] = append([]string(nil), r.GroupBy...)
	}
	if len(r.Aggregates) > 0 {
		aggs := make([]any, len(r.Aggregates))
		for i, a := range r.Aggregates {
			aggs[i] = a.String()
		}
		req["aggregates"] = aggs
	}
	return ir.PatternSetKey(req)
}
