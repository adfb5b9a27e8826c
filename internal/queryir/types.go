package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/graphpush/internal/ir"
)

// Expr represents a boolean or value expression in a filter tree.
//
// This is a sealed interface - only types in this package implement it.
// Consumers dispatch through Visit rather than type switches.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// CompareOp is a comparison operator.
type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// Valid reports whether op is one of the six comparison operators.
func (op CompareOp) Valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

// LogicalOp is a boolean connective.
type LogicalOp string

const (
	OpAnd LogicalOp = "AND"
	OpOr  LogicalOp = "OR"
	OpNot LogicalOp = "NOT"
)

// Comparison represents <left> <op> <right>.
//
// Example:
//
//	Comparison{Op: OpGt, Left: VarRef{Name: "age"}, Right: ConstRef{Value: ir.NewIntLiteral(18)}}
type Comparison struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

func (Comparison) exprNode() {}

// Logical represents AND / OR over one or more operands, or NOT over exactly one.
type Logical struct {
	Op   LogicalOp
	Args []Expr
}

func (Logical) exprNode() {}

// InList represents <expr> IN (v1, v2, ...), or NOT IN when Negated.
// Values must be concrete terms (URIs or literals).
type InList struct {
	Expr    Expr
	Values  []ir.Term
	Negated bool
}

func (InList) exprNode() {}

// FunctionCall represents a call to a builtin (by lower-case name, e.g.
// "bound") or an extension function (by URI, e.g. geof:sfWithin).
type FunctionCall struct {
	Function string
	Args     []Expr
}

func (FunctionCall) exprNode() {}

// VarRef references a pattern variable by name (without '?').
type VarRef struct {
	Name string
}

func (VarRef) exprNode() {}

// ConstRef is a concrete URI or literal operand.
type ConstRef struct {
	Value ir.Term
}

func (ConstRef) exprNode() {}

// Var creates a VarRef.
func Var(name string) VarRef {
	return VarRef{Name: strings.TrimLeft(name, "?$")}
}

// Const creates a ConstRef.
func Const(t ir.Term) ConstRef {
	return ConstRef{Value: t}
}

// Compare creates a Comparison.
func Compare(op CompareOp, left, right Expr) Comparison {
	return Comparison{Op: op, Left: left, Right: right}
}

// Eq creates an equality Comparison.
func Eq(left, right Expr) Comparison {
	return Comparison{Op: OpEq, Left: left, Right: right}
}

// And creates a conjunction.
func And(args ...Expr) Logical {
	return Logical{Op: OpAnd, Args: args}
}

// Or creates a disjunction.
func Or(args ...Expr) Logical {
	return Logical{Op: OpOr, Args: args}
}

// Not creates a negation.
func Not(arg Expr) Logical {
	return Logical{Op: OpNot, Args: []Expr{arg}}
}

// In creates a membership test.
func In(e Expr, values ...ir.Term) InList {
	return InList{Expr: e, Values: values}
}

// Call creates a FunctionCall.
func Call(function string, args ...Expr) FunctionCall {
	return FunctionCall{Function: function, Args: args}
}

// Visitor handles each expression kind. Implementations are exhaustive by
// construction: a new Expr kind adds a method here.
type Visitor[T any] interface {
	Comparison(e Comparison) (T, error)
	Logical(e Logical) (T, error)
	InList(e InList) (T, error)
	FunctionCall(e FunctionCall) (T, error)
	VarRef(e VarRef) (T, error)
	ConstRef(e ConstRef) (T, error)
}

// Visit dispatches e to the matching Visitor method.
// A nil expression is an error.
func Visit[T any](e Expr, v Visitor[T]) (T, error) {
	switch n := e.(type) {
	case Comparison:
		return v.Comparison(n)
	case Logical:
		return v.Logical(n)
	case InList:
		return v.InList(n)
	case FunctionCall:
		return v.FunctionCall(n)
	case VarRef:
		return v.VarRef(n)
	case ConstRef:
		return v.ConstRef(n)
	default:
		var zero T
		if e == nil {
			return zero, fmt.Errorf("nil expression")
		}
		return zero, fmt.Errorf("unknown expression type: %T", e)
	}
}

// Format renders e in SPARQL-like syntax. It is used for diagnostics and
// for cache keys, so the output is deterministic.
func Format(e Expr) string {
	s, err := Visit[string](e, formatter{})
	if err != nil {
		return "<invalid: " + err.Error() + ">"
	}
	return s
}

type formatter struct{}

func (f formatter) Comparison(e Comparison) (string, error) {
	return "(" + Format(e.Left) + " " + string(e.Op) + " " + Format(e.Right) + ")", nil
}

func (f formatter) Logical(e Logical) (string, error) {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = Format(a)
	}
	if e.Op == OpNot {
		return "!" + strings.Join(parts, ""), nil
	}
	sep := " && "
	if e.Op == OpOr {
		sep = " || "
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (f formatter) InList(e InList) (string, error) {
	vals := make([]string, len(e.Values))
	for i, v := range e.Values {
		vals[i] = termString(v)
	}
	op := " IN "
	if e.Negated {
		op = " NOT IN "
	}
	return "(" + Format(e.Expr) + op + "(" + strings.Join(vals, ", ") + "))", nil
}

func (f formatter) FunctionCall(e FunctionCall) (string, error) {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = Format(a)
	}
	return e.Function + "(" + strings.Join(args, ", ") + ")", nil
}

func (f formatter) VarRef(e VarRef) (string, error) {
	return "?" + e.Name, nil
}

func (f formatter) ConstRef(e ConstRef) (string, error) {
	return termString(e.Value), nil
}

func termString(t ir.Term) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// AggregateFunc names an aggregate function.
type AggregateFunc string

const (
	AggCount AggregateFunc = "COUNT"
	AggSum   AggregateFunc = "SUM"
	AggAvg   AggregateFunc = "AVG"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
)

// Aggregator is one aggregate column: Func applied to Var (empty Var means
// the wildcard, valid only for COUNT), aliased to the output variable Alias.
//
// Example (COUNT(DISTINCT ?friend) AS ?n):
//
//	Aggregator{Func: AggCount, Var: "friend", Distinct: true, Alias: "n"}
type Aggregator struct {
	Func     AggregateFunc
	Var      string
	Distinct bool
	Alias    string
}

// String renders the aggregator in SPARQL syntax.
func (a Aggregator) String() string {
	arg := "*"
	if a.Var != "" {
		arg = "?" + a.Var
	}
	if a.Distinct {
		arg = "DISTINCT " + arg
	}
	return fmt.Sprintf("(%s(%s) AS ?%s)", a.Func, arg, a.Alias)
}
