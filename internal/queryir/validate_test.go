package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/graphpush/internal/ir"
)

func TestValidate_WellFormed(t *testing.T) {
	expr := And(
		Eq(Var("p"), Const(ir.NewURI("http://ex/a"))),
		Compare(OpGt, Var("age"), Const(ir.NewIntLiteral(18))),
	)

	result := Validate(expr)

	assert.True(t, result.Valid, result.Problems)
	assert.Equal(t, 3, result.Depth)
	assert.Equal(t, []string{"age", "p"}, result.Variables)
	assert.NoError(t, result.Err())
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
	}{
		{"nil", nil},
		{"nil comparison operand", Eq(Var("a"), nil)},
		{"bad operator", Compare("~", Var("a"), Var("b"))},
		{"not arity", Logical{Op: OpNot, Args: []Expr{Var("a"), Var("b")}}},
		{"empty and", And()},
		{"unknown logical", Logical{Op: "XOR", Args: []Expr{Var("a")}}},
		{"empty in list", In(Var("a"))},
		{"variable in list", In(Var("a"), ir.NewVariable("b"))},
		{"unnamed call", Call("", Var("a"))},
		{"unnamed var", VarRef{}},
		{"variable constant", Const(ir.NewVariable("x"))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Validate(tc.expr)
			assert.False(t, result.Valid)
			assert.NotEmpty(t, result.Problems)
			assert.Error(t, result.Err())
		})
	}
}

func TestValidate_DepthBound(t *testing.T) {
	var expr Expr = Var("x")
	for i := 0; i < MaxDepth+10; i++ {
		expr = Not(expr)
	}

	result := Validate(expr)

	assert.False(t, result.Valid)
	assert.Greater(t, result.Depth, MaxDepth)
}

func TestValidate_DepthAtLimit(t *testing.T) {
	var expr Expr = Var("x")
	for i := 1; i < MaxDepth; i++ {
		expr = Not(expr)
	}

	result := Validate(expr)

	assert.True(t, result.Valid, result.Problems)
	assert.Equal(t, MaxDepth, result.Depth)
}
