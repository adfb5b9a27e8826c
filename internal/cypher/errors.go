package cypher

import (
	"errors"
	"fmt"
)

// ErrCannotCompile matches every refusal to compile. Callers treat it as
// "evaluate this query generically instead"; it is expected and frequent.
var ErrCannotCompile = errors.New("cannot compile")

// ErrInvalidInput matches refusals caused by nil or empty pattern sets.
// Such errors also match ErrCannotCompile.
var ErrInvalidInput = errors.New("invalid input")

// ErrCannotTranslateAggregation matches aggregation requests with nothing
// to aggregate or with unresolvable operands.
var ErrCannotTranslateAggregation = errors.New("cannot translate aggregation")

// CompileErrorCode categorizes compile refusals.
type CompileErrorCode string

const (
	// ErrCodeInvalidInput indicates a nil or empty pattern set.
	ErrCodeInvalidInput CompileErrorCode = "INVALID_INPUT"

	// ErrCodeUnsupportedShape indicates a pattern combination outside the
	// branch-union strategy.
	ErrCodeUnsupportedShape CompileErrorCode = "UNSUPPORTED_SHAPE"

	// ErrCodeUnboundVariable indicates a filter or aggregate referencing a
	// variable no triple binds.
	ErrCodeUnboundVariable CompileErrorCode = "UNBOUND_VARIABLE"

	// ErrCodeUnsupportedExpression indicates a filter node with no native
	// translation.
	ErrCodeUnsupportedExpression CompileErrorCode = "UNSUPPORTED_EXPRESSION"
)

// CompileError is the typed CannotCompile condition. Reason is meant for
// humans; Code is stable.
type CompileError struct {
	Code   CompileErrorCode
	Reason string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("cannot compile: %s: %s", e.Code, e.Reason)
}

// Is matches ErrCannotCompile for every code and ErrInvalidInput for
// ErrCodeInvalidInput.
func (e *CompileError) Is(target error) bool {
	switch target {
	case ErrCannotCompile:
		return true
	case ErrInvalidInput:
		return e.Code == ErrCodeInvalidInput
	default:
		return false
	}
}

func newCompileError(code CompileErrorCode, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// IsCannotCompile reports whether err is a compile refusal.
func IsCannotCompile(err error) bool {
	return errors.Is(err, ErrCannotCompile)
}

// IsInvalidInput reports whether err was caused by an empty pattern set.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// CodeOf returns the code of a CompileError anywhere in err's chain.
func CodeOf(err error) (CompileErrorCode, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return "", false
}

// AggregationError reports an aggregation the translator cannot express.
type AggregationError struct {
	Reason string
}

func (e *AggregationError) Error() string {
	return "cannot translate aggregation: " + e.Reason
}

// Is matches ErrCannotTranslateAggregation.
func (e *AggregationError) Is(target error) bool {
	return target == ErrCannotTranslateAggregation
}
