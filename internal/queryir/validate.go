package queryir

import (
	"fmt"
	"sort"

	"github.com/roach88/graphpush/internal/ir"
)

// MaxDepth bounds filter-tree nesting. Translation recurses once per level.
const MaxDepth = 64

// ValidationResult contains the shape analysis of a filter expression.
type ValidationResult struct {
	// Valid is true when the tree is well formed and within MaxDepth.
	Valid bool

	// Depth is the maximum nesting depth (a lone VarRef has depth 1).
	Depth int

	// Variables lists the distinct variable names referenced, sorted.
	Variables []string

	// Problems lists every structural defect found. Empty when Valid.
	Problems []string
}

// Err returns the problems as a single error, or nil when Valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid filter expression: %v", r.Problems)
}

// Validate checks a filter expression's structure:
//  1. No nil operands
//  2. NOT has exactly one operand; AND/OR at least one
//  3. Comparison operators are one of the six supported
//  4. IN lists are non-empty and hold only concrete terms
//  5. Nesting depth does not exceed MaxDepth
//
// Validate is a pure function with no side effects.
func Validate(e Expr) ValidationResult {
	v := &validator{vars: map[string]bool{}}
	depth := v.walk(e, 1)

	vars := make([]string, 0, len(v.vars))
	for name := range v.vars {
		vars = append(vars, name)
	}
	sort.Strings(vars)

	if depth > MaxDepth {
		v.addProblem("expression depth %d exceeds maximum %d", depth, MaxDepth)
	}

	return ValidationResult{
		Valid:     len(v.problems) == 0,
		Depth:     depth,
		Variables: vars,
		Problems:  v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
	vars     map[string]bool
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

// walk returns the depth of e. Traversal stops descending past MaxDepth+1
// so pathological trees cost bounded work.
func (v *validator) walk(e Expr, level int) int {
	if level > MaxDepth+1 {
		return level
	}

	switch n := e.(type) {
	case nil:
		v.addProblem("nil operand at depth %d", level)
		return level
	case Comparison:
		if !n.Op.Valid() {
			v.addProblem("unsupported comparison operator %q", n.Op)
		}
		return max(v.walk(n.Left, level+1), v.walk(n.Right, level+1))
	case Logical:
		switch n.Op {
		case OpNot:
			if len(n.Args) != 1 {
				v.addProblem("NOT takes exactly one operand, got %d", len(n.Args))
			}
		case OpAnd, OpOr:
			if len(n.Args) == 0 {
				v.addProblem("%s without operands", n.Op)
			}
		default:
			v.addProblem("unsupported logical operator %q", n.Op)
		}
		depth := level
		for _, a := range n.Args {
			depth = max(depth, v.walk(a, level+1))
		}
		return depth
	case InList:
		if len(n.Values) == 0 {
			v.addProblem("IN list is empty")
		}
		for i, t := range n.Values {
			if !ir.IsConcrete(t) {
				v.addProblem("IN list value %d is not a URI or literal", i)
			}
		}
		return v.walk(n.Expr, level+1)
	case FunctionCall:
		if n.Function == "" {
			v.addProblem("function call without a name")
		}
		depth := level
		for _, a := range n.Args {
			depth = max(depth, v.walk(a, level+1))
		}
		return depth
	case VarRef:
		if n.Name == "" {
			v.addProblem("variable reference without a name")
		} else {
			v.vars[n.Name] = true
		}
		return level
	case ConstRef:
		if !ir.IsConcrete(n.Value) {
			v.addProblem("constant operand is not a URI or literal")
		}
		return level
	default:
		v.addProblem("unknown expression type: %T", e)
		return level
	}
}
