package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a compiler conformance scenario: one query, the outcome
// expected from compiling it, and assertions over the emitted query.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is an optional path to a CUE schema file. Relative paths are
	// resolved against the scenario file's directory by
	// LoadScenarioWithBasePath.
	Schema string `yaml:"schema,omitempty"`

	// Query is the pattern query to compile.
	Query Query `yaml:"query"`

	// Expect is the expected compile outcome.
	Expect Expectation `yaml:"expect"`

	// Assertions validate the compiled query. Only evaluated when the
	// query compiles.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Golden enables golden comparison of the compile snapshot.
	Golden bool `yaml:"golden,omitempty"`
}

// Expectation is the expected outcome of compiling a scenario's query.
type Expectation struct {
	// Outcome is one of the Outcome* constants.
	Outcome string `yaml:"outcome"`

	// Code is the expected refusal code (for cannot_compile).
	Code string `yaml:"code,omitempty"`
}

// Outcome constants.
const (
	OutcomeCompiled      = "compiled"
	OutcomeCannotCompile = "cannot_compile"
	OutcomeInvalidInput  = "invalid_input"
	OutcomeNoAggregation = "cannot_aggregate"
)

// Assertion validates one property of a compiled query.
type Assertion struct {
	// Type specifies the assertion type:
	// - "query_contains": Text appears in the query
	// - "query_not_contains": Text does not appear in the query
	// - "param_equals": Parameter Name is bound to Value
	// - "param_count": Exactly Count parameters are bound
	// - "columns": Output columns equal Columns, in order
	// - "strategy": Triple number Triple was rendered with Strategy
	Type string `yaml:"type"`

	Text     string   `yaml:"text,omitempty"`
	Name     string   `yaml:"name,omitempty"`
	Value    any      `yaml:"value,omitempty"`
	Count    int      `yaml:"count,omitempty"`
	Columns  []string `yaml:"columns,omitempty"`
	Triple   int      `yaml:"triple,omitempty"`
	Strategy string   `yaml:"strategy,omitempty"`
}

// Assertion type constants.
const (
	AssertQueryContains    = "query_contains"
	AssertQueryNotContains = "query_not_contains"
	AssertParamEquals      = "param_equals"
	AssertParamCount       = "param_count"
	AssertColumns          = "columns"
	AssertStrategy         = "strategy"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the schema path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarioDir loads every *.yaml scenario in dir, in file name order,
// resolving schema paths against dir.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenarioWithBasePath(p, dir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema != "" {
		if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
			return fmt.Errorf("schema file not found: %s", s.Schema)
		}
	}

	switch s.Expect.Outcome {
	case OutcomeCompiled, OutcomeInvalidInput, OutcomeNoAggregation:
		if s.Expect.Code != "" {
			return fmt.Errorf("expect.code is only valid for %s", OutcomeCannotCompile)
		}
	case OutcomeCannotCompile:
	case "":
		return fmt.Errorf("expect.outcome is required")
	default:
		return fmt.Errorf("expect: unknown outcome %q", s.Expect.Outcome)
	}

	if s.Expect.Outcome != OutcomeCompiled && len(s.Assertions) > 0 {
		return fmt.Errorf("assertions require outcome %s", OutcomeCompiled)
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertQueryContains, AssertQueryNotContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertParamEquals:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for param_equals", index)
		}
	case AssertParamCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for param_count", index)
		}
	case AssertColumns:
		if a.Columns == nil {
			return fmt.Errorf("assertions[%d]: columns is required for columns", index)
		}
	case AssertStrategy:
		if a.Strategy == "" {
			return fmt.Errorf("assertions[%d]: strategy is required for strategy", index)
		}
		if a.Triple < 0 {
			return fmt.Errorf("assertions[%d]: triple must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
