// Package queryir provides the already-parsed, algebra-normalized query
// modifiers the pattern compiler consumes: boolean filter expressions and
// aggregation specs.
//
// ARCHITECTURE:
//
// The query engine's pattern extractor hands graphpush a pattern set plus
// optional modifiers. queryir is the contract for those modifiers:
//
//	[query engine] → [pattern set + queryir.Expr + []Aggregator] → [cypher compiler]
//
// No query text is parsed here; expressions arrive as trees.
//
// SEALED INTERFACES:
//
// Expr is a sealed interface using the marker method pattern. Only types in
// this package implement it:
//
//	Comparison    left <op> right          (=, !=, <, <=, >, >=)
//	Logical       AND / OR / NOT
//	InList        expr IN (term, ...)
//	FunctionCall  fn(args...)              (builtins and GeoSPARQL functions)
//	VarRef        ?name
//	ConstRef      <uri> or "literal"
//
// Backends never type-switch on Expr directly. They implement Visitor and
// call Visit, so adding an expression kind adds a Visitor method and every
// backend stops compiling until it handles the new kind.
//
// Example:
//
//	filter := queryir.Or(
//	    queryir.Eq(queryir.Var("p"), queryir.Const(ir.NewURI("http://ex/a"))),
//	    queryir.Eq(queryir.Var("p"), queryir.Const(ir.NewURI("http://ex/b"))),
//	)
//
// DEPTH:
//
// Translation is recursive. Validate reports trees deeper than MaxDepth so a
// caller can refuse pathological input before compiling.
package queryir
