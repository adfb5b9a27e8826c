package cypher

import (
	"fmt"
	"strings"

	"github.com/roach88/graphpush/internal/geo"
	"github.com/roach88/graphpush/internal/ir"
	"github.com/roach88/graphpush/internal/queryir"
)

// FilterParamPrefix names the root of the filter parameter tree. A node at
// child path i.j is bound as f0_i_j.
const FilterParamPrefix = "f0"

// TranslateFilter lowers a filter expression to a native boolean expression.
//
// accessors maps each bound variable to the native expression holding its
// value (a node's identity property or a value column). Constants become
// parameters named by their position in the tree, and an IN list becomes a
// single list parameter. Parameters are staged and merged into params only
// when the whole tree translates.
//
// Referencing a variable absent from accessors fails with
// ErrCodeUnboundVariable; a node with no native form fails with
// ErrCodeUnsupportedExpression.
//
// Every accessor is treated as a value. The compiler uses translateFilter,
// which also knows the node variables: a node's accessor is its IRI string,
// so comparing it with a literal is refused rather than matched by text.
func TranslateFilter(expr queryir.Expr, accessors map[string]string, params *ir.Params) (string, error) {
	return translateFilter(expr, accessors, nil, params)
}

func translateFilter(expr queryir.Expr, accessors map[string]string, nodes map[string]bool, params *ir.Params) (string, error) {
	if expr == nil {
		return "", newCompileError(ErrCodeUnsupportedExpression, "nil filter expression")
	}
	if res := queryir.Validate(expr); !res.Valid {
		return "", newCompileError(ErrCodeUnsupportedExpression, "%v", res.Err())
	}

	t := filterTranslator{path: FilterParamPrefix, accessors: accessors, nodes: nodes, params: ir.NewParams()}
	out, err := queryir.Visit[string](expr, t)
	if err != nil {
		return "", err
	}
	params.Merge(t.params)
	return out, nil
}

// filterTranslator renders one node of the tree. path is the node's
// parameter name.
type filterTranslator struct {
	path      string
	accessors map[string]string
	nodes     map[string]bool
	params    *ir.Params
}

func (t filterTranslator) child(i int) filterTranslator {
	t.path = fmt.Sprintf("%s_%d", t.path, i)
	return t
}

func (t filterTranslator) sub(i int, e queryir.Expr) (string, error) {
	return queryir.Visit[string](e, t.child(i))
}

var comparisonOps = map[queryir.CompareOp]string{
	queryir.OpEq: "=",
	queryir.OpNe: "<>",
	queryir.OpLt: "<",
	queryir.OpLe: "<=",
	queryir.OpGt: ">",
	queryir.OpGe: ">=",
}

func (t filterTranslator) Comparison(e queryir.Comparison) (string, error) {
	op, ok := comparisonOps[e.Op]
	if !ok {
		return "", newCompileError(ErrCodeUnsupportedExpression, "comparison operator %q", e.Op)
	}
	if t.literalAgainstNode(e.Left, e.Right) || t.literalAgainstNode(e.Right, e.Left) {
		return "", newCompileError(ErrCodeUnsupportedExpression, "literal compared with node variable in %s", queryir.Format(e))
	}
	left, err := t.sub(0, e.Left)
	if err != nil {
		return "", err
	}
	right, err := t.sub(1, e.Right)
	if err != nil {
		return "", err
	}
	return left + " " + op + " " + right, nil
}

func (t filterTranslator) Logical(e queryir.Logical) (string, error) {
	parts := make([]string, len(e.Args))
	for i, arg := range e.Args {
		s, err := t.sub(i, arg)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}

	switch e.Op {
	case queryir.OpAnd:
		return "(" + strings.Join(parts, " AND ") + ")", nil
	case queryir.OpOr:
		return "(" + strings.Join(parts, " OR ") + ")", nil
	case queryir.OpNot:
		if len(parts) != 1 {
			return "", newCompileError(ErrCodeUnsupportedExpression, "NOT takes one operand, got %d", len(parts))
		}
		return "NOT (" + parts[0] + ")", nil
	default:
		return "", newCompileError(ErrCodeUnsupportedExpression, "logical operator %q", e.Op)
	}
}

func (t filterTranslator) InList(e queryir.InList) (string, error) {
	for _, v := range e.Values {
		if t.literalAgainstNode(e.Expr, queryir.Const(v)) {
			return "", newCompileError(ErrCodeUnsupportedExpression, "literal in IN list of node variable in %s", queryir.Format(e))
		}
	}
	left, err := t.sub(0, e.Expr)
	if err != nil {
		return "", err
	}
	values := make([]any, len(e.Values))
	for i, v := range e.Values {
		pv, err := ir.ParamValue(v)
		if err != nil {
			return "", newCompileError(ErrCodeUnsupportedExpression, "IN value: %v", err)
		}
		values[i] = pv
	}
	t.params.Set(t.path, values)

	out := left + " IN $" + t.path
	if e.Negated {
		out = "NOT (" + out + ")"
	}
	return out, nil
}

func (t filterTranslator) FunctionCall(e queryir.FunctionCall) (string, error) {
	if geo.IsFunction(e.Function) {
		out, ok := geo.TranslateFunction(e, t.path, t.params)
		if !ok {
			return "", newCompileError(ErrCodeUnsupportedExpression, "geometry call %s", queryir.Format(e))
		}
		return out, nil
	}

	name := strings.ToLower(e.Function)
	switch name {
	case "bound":
		if len(e.Args) != 1 {
			return "", t.arity(e, 1)
		}
		v, ok := e.Args[0].(queryir.VarRef)
		if !ok {
			return "", newCompileError(ErrCodeUnsupportedExpression, "bound() takes a variable")
		}
		acc, err := t.VarRef(v)
		if err != nil {
			return "", err
		}
		return acc + " IS NOT NULL", nil
	case "str":
		if len(e.Args) != 1 {
			return "", t.arity(e, 1)
		}
		arg, err := t.sub(0, e.Args[0])
		if err != nil {
			return "", err
		}
		return "toString(" + arg + ")", nil
	case "contains", "strstarts", "strends":
		if len(e.Args) != 2 {
			return "", t.arity(e, 2)
		}
		left, err := t.sub(0, e.Args[0])
		if err != nil {
			return "", err
		}
		right, err := t.sub(1, e.Args[1])
		if err != nil {
			return "", err
		}
		op := map[string]string{"contains": "CONTAINS", "strstarts": "STARTS WITH", "strends": "ENDS WITH"}[name]
		return left + " " + op + " " + right, nil
	case "regex":
		return t.regex(e)
	default:
		return "", newCompileError(ErrCodeUnsupportedExpression, "function %s", e.Function)
	}
}

// regex lowers REGEX(text, pattern[, flags]). The native operator matches
// the whole string, so the pattern is wrapped to search anywhere.
func (t filterTranslator) regex(e queryir.FunctionCall) (string, error) {
	if len(e.Args) != 2 && len(e.Args) != 3 {
		return "", t.arity(e, 2)
	}
	pattern, ok := constLexical(e.Args[1])
	if !ok {
		return "", newCompileError(ErrCodeUnsupportedExpression, "regex pattern must be a literal")
	}
	flags := ""
	if len(e.Args) == 3 {
		f, ok := constLexical(e.Args[2])
		if !ok || strings.Trim(f, "ismx") != "" {
			return "", newCompileError(ErrCodeUnsupportedExpression, "regex flags must be a literal over [ismx]")
		}
		flags = f
	}

	text, err := t.sub(0, e.Args[0])
	if err != nil {
		return "", err
	}
	name := t.child(1).path
	t.params.Set(name, "(?s"+flags+").*(?:"+pattern+").*")
	return text + " =~ $" + name, nil
}

func constLexical(e queryir.Expr) (string, bool) {
	c, ok := e.(queryir.ConstRef)
	if !ok {
		return "", false
	}
	lit, ok := c.Value.(ir.Literal)
	if !ok {
		return "", false
	}
	return lit.Lexical, true
}

func (t filterTranslator) arity(e queryir.FunctionCall, want int) error {
	return newCompileError(ErrCodeUnsupportedExpression, "%s takes %d arguments, got %d", e.Function, want, len(e.Args))
}

func (t filterTranslator) VarRef(e queryir.VarRef) (string, error) {
	acc, ok := t.resolve(e.Name)
	if !ok {
		return "", newCompileError(ErrCodeUnboundVariable, "filter references ?%s, which no pattern binds", e.Name)
	}
	return acc, nil
}

func (t filterTranslator) ConstRef(e queryir.ConstRef) (string, error) {
	v, err := ir.ParamValue(e.Value)
	if err != nil {
		return "", newCompileError(ErrCodeUnsupportedExpression, "constant: %v", err)
	}
	t.params.Set(t.path, v)
	return "$" + t.path, nil
}

// literalAgainstNode reports whether v is a node variable and c a literal.
// A node never equals a literal, but its IRI string could.
func (t filterTranslator) literalAgainstNode(v, c queryir.Expr) bool {
	ref, ok := v.(queryir.VarRef)
	if !ok || !t.nodes[ref.Name] {
		return false
	}
	cr, ok := c.(queryir.ConstRef)
	if !ok {
		return false
	}
	_, isLit := cr.Value.(ir.Literal)
	return isLit
}

func (t filterTranslator) resolve(name string) (string, bool) {
	acc, ok := t.accessors[name]
	return acc, ok
}
