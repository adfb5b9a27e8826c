package harness

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the compiled query to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Query    string // Compiled query for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Query != "" {
		fmt.Fprintf(&buf, "\nQuery:\n")
		for _, line := range strings.Split(e.Query, "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against a compiled result and
// returns the failure messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertQueryContains:
		return assertQueryContains(result, a)
	case AssertQueryNotContains:
		return assertQueryNotContains(result, a)
	case AssertParamEquals:
		return assertParamEquals(result, a)
	case AssertParamCount:
		return assertParamCount(result, a)
	case AssertColumns:
		return assertColumns(result, a)
	case AssertStrategy:
		return assertStrategy(result, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func assertQueryContains(result *Result, a Assertion) error {
	if strings.Contains(result.Query, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertQueryContains,
		Expected: fmt.Sprintf("query containing %q", a.Text),
		Actual:   "not found",
		Query:    result.Query,
	}
}

func assertQueryNotContains(result *Result, a Assertion) error {
	if !strings.Contains(result.Query, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertQueryNotContains,
		Expected: fmt.Sprintf("query without %q", a.Text),
		Actual:   "found",
		Query:    result.Query,
	}
}

// assertParamEquals compares JSON encodings so YAML ints match int64
// bindings and YAML sequences match list bindings.
func assertParamEquals(result *Result, a Assertion) error {
	actual, ok := result.Params.Get(a.Name)
	if !ok {
		return &AssertionError{
			Type:     AssertParamEquals,
			Expected: fmt.Sprintf("parameter %s bound", a.Name),
			Actual:   fmt.Sprintf("unbound (have %v)", result.Params.Keys()),
			Query:    result.Query,
		}
	}

	want, err := json.Marshal(a.Value)
	if err != nil {
		return fmt.Errorf("encode expected value: %w", err)
	}
	got, err := json.Marshal(actual)
	if err != nil {
		return fmt.Errorf("encode parameter %s: %w", a.Name, err)
	}
	if string(want) != string(got) {
		return &AssertionError{
			Type:     AssertParamEquals,
			Expected: fmt.Sprintf("%s = %s", a.Name, want),
			Actual:   fmt.Sprintf("%s = %s", a.Name, got),
			Query:    result.Query,
		}
	}
	return nil
}

func assertParamCount(result *Result, a Assertion) error {
	if n := result.Params.Len(); n != a.Count {
		return &AssertionError{
			Type:     AssertParamCount,
			Expected: fmt.Sprintf("%d parameters", a.Count),
			Actual:   fmt.Sprintf("%d parameters %v", n, result.Params.Keys()),
			Query:    result.Query,
		}
	}
	return nil
}

func assertColumns(result *Result, a Assertion) error {
	if slices.Equal(result.Columns, a.Columns) {
		return nil
	}
	return &AssertionError{
		Type:     AssertColumns,
		Expected: fmt.Sprintf("columns %v", a.Columns),
		Actual:   fmt.Sprintf("columns %v", result.Columns),
		Query:    result.Query,
	}
}

func assertStrategy(result *Result, a Assertion) error {
	if a.Triple >= len(result.Plans) {
		return &AssertionError{
			Type:     AssertStrategy,
			Expected: fmt.Sprintf("triple %d rendered with %s", a.Triple, a.Strategy),
			Actual:   fmt.Sprintf("only %d triples planned", len(result.Plans)),
			Query:    result.Query,
		}
	}
	if got := result.Plans[a.Triple].Strategy.String(); got != a.Strategy {
		return &AssertionError{
			Type:     AssertStrategy,
			Expected: fmt.Sprintf("triple %d rendered with %s", a.Triple, a.Strategy),
			Actual:   got,
			Query:    result.Query,
		}
	}
	return nil
}
