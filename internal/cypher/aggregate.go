package cypher

import (
	"fmt"
	"strings"

	"github.com/roach88/graphpush/internal/queryir"
)

// AggregationResult is a grouped projection.
type AggregationResult struct {
	// ReturnClause is the complete RETURN clause: grouping columns first,
	// then one aliased aggregate per aggregator.
	ReturnClause string

	// GroupByVars lists the grouping variables in declaration order.
	GroupByVars []string

	// Items are the projection items ReturnClause joins.
	Items []string
}

var aggregateFuncs = map[queryir.AggregateFunc]string{
	queryir.AggCount: "count",
	queryir.AggSum:   "sum",
	queryir.AggAvg:   "avg",
	queryir.AggMin:   "min",
	queryir.AggMax:   "max",
}

// TranslateAggregation builds the grouped RETURN for aggs.
//
// accessors maps variables to their native expressions. Grouping variables
// are projected first, in order; the native engine groups implicitly by
// every non-aggregate column.
//
// It fails with ErrCannotTranslateAggregation when aggs is empty, when a
// variable is unknown, for COUNT(DISTINCT *) and for a wildcard on anything
// but COUNT.
func TranslateAggregation(aggs []queryir.Aggregator, groupVars []string, accessors map[string]string) (*AggregationResult, error) {
	if len(aggs) == 0 {
		return nil, &AggregationError{Reason: "no aggregate functions"}
	}

	items := make([]string, 0, len(groupVars)+len(aggs))
	seen := map[string]bool{}
	for _, g := range groupVars {
		acc, ok := accessors[g]
		if !ok {
			return nil, &AggregationError{Reason: fmt.Sprintf("group variable ?%s is not bound", g)}
		}
		col := identifier(g)
		if seen[col] {
			return nil, &AggregationError{Reason: fmt.Sprintf("duplicate output column %s", col)}
		}
		seen[col] = true
		items = append(items, acc+" AS "+col)
	}

	for _, a := range aggs {
		fn, ok := aggregateFuncs[a.Func]
		if !ok {
			return nil, &AggregationError{Reason: fmt.Sprintf("unsupported aggregate %q", a.Func)}
		}
		if a.Alias == "" {
			return nil, &AggregationError{Reason: fmt.Sprintf("%s has no output variable", a.Func)}
		}

		var arg string
		switch {
		case a.Var == "" && a.Func != queryir.AggCount:
			return nil, &AggregationError{Reason: fmt.Sprintf("%s(*) is not defined", a.Func)}
		case a.Var == "" && a.Distinct:
			return nil, &AggregationError{Reason: "COUNT(DISTINCT *) is not supported"}
		case a.Var == "":
			arg = "*"
		default:
			acc, ok := accessors[a.Var]
			if !ok {
				return nil, &AggregationError{Reason: fmt.Sprintf("aggregate variable ?%s is not bound", a.Var)}
			}
			arg = acc
			if a.Distinct {
				arg = "DISTINCT " + arg
			}
		}

		col := identifier(a.Alias)
		if seen[col] {
			return nil, &AggregationError{Reason: fmt.Sprintf("duplicate output column %s", col)}
		}
		seen[col] = true
		items = append(items, fmt.Sprintf("%s(%s) AS %s", fn, arg, col))
	}

	return &AggregationResult{
		ReturnClause: "RETURN " + strings.Join(items, ", "),
		GroupByVars:  append([]string{}, groupVars...),
		Items:        items,
	}, nil
}
