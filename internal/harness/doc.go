// Package harness runs compiler conformance scenarios.
//
// A scenario names one pattern query, the outcome expected from compiling
// it, and assertions over the emitted query. Scenarios compile through a
// pushdown.Engine with a fresh in-memory cache, so the path exercised is
// the one production requests take.
//
// # Scenario Format
//
//	name: optional_email
//	description: "Optional email keeps people without one"
//	schema: schemas/entity.cue   # optional, relative to the scenario file
//	query:
//	  patterns:
//	    - "?s a <http://ex/Person>"
//	  optional:
//	    - "?s <http://ex/email> ?e"
//	expect:
//	  outcome: compiled          # compiled | cannot_compile | invalid_input | cannot_aggregate
//	  code: ""                   # refusal code, cannot_compile only
//	assertions:
//	  - type: strategy
//	    triple: 1
//	    strategy: AmbiguousUnion
//	  - type: param_equals
//	    name: p0
//	    value: http://ex/Person
//	golden: true
//
// # Assertion Types
//
//   - query_contains / query_not_contains: substring of the query text
//   - param_equals: a parameter's bound value
//   - param_count: number of bound parameters
//   - columns: output columns, in order
//   - strategy: the render strategy chosen for one triple
//
// Golden snapshots (query, sorted params, columns or the refusal code)
// live in testdata/golden and are compared with goldie.
package harness
