package harness

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as the text stored in golden files:
//
//	-- query --
//	MATCH ...
//	-- params --
//	{"p0": "..."}
//	-- columns --
//	s, o
//
// Refusals render as a single "-- refused --" section holding the code
// (or the outcome name when there is no code). Params are printed with
// sorted keys so snapshots do not depend on allocation order.
func Snapshot(result *Result) ([]byte, error) {
	var buf strings.Builder

	if result.Outcome != OutcomeCompiled {
		label := result.Code
		if label == "" {
			label = result.Outcome
		}
		fmt.Fprintf(&buf, "-- refused --\n%s\n", label)
		return []byte(buf.String()), nil
	}

	params, err := json.MarshalIndent(result.Params.Map(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}

	fmt.Fprintf(&buf, "-- query --\n%s\n", result.Query)
	fmt.Fprintf(&buf, "-- params --\n%s\n", params)
	fmt.Fprintf(&buf, "-- columns --\n%s\n", strings.Join(result.Columns, ", "))
	return []byte(buf.String()), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snap, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snap)
	return nil
}
