// Package analyzer classifies the variables of a triple-pattern set by the
// structural role they play, without executing anything.
//
// Roles are decided in a single pass over the whole set:
//   - Node: appears as a subject anywhere (sticky, wins over object use)
//   - Predicate: appears in a predicate position and never as a subject
//   - Ambiguous: appears only in object positions, so its binding could be a
//     relationship target or a literal property
package analyzer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/graphpush/internal/ir"
)

// ErrEmptyPatternSet is returned for nil or empty input.
var ErrEmptyPatternSet = errors.New("pattern set is nil or empty")

// Role is the structural role of a variable.
type Role int

const (
	// RoleNode marks a variable bound to a resource node.
	RoleNode Role = iota + 1
	// RolePredicate marks a variable bound to a predicate.
	RolePredicate
	// RoleAmbiguous marks an object-only variable.
	RoleAmbiguous
)

func (r Role) String() string {
	switch r {
	case RoleNode:
		return "node"
	case RolePredicate:
		return "predicate"
	case RoleAmbiguous:
		return "ambiguous"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Analysis is the role map of one pattern set. It is immutable.
type Analysis struct {
	roles     map[string]Role
	node      []string
	predicate []string
	ambiguous []string
	all       []string
	conflicts []string
}

// Analyze classifies every variable of patterns.
func Analyze(patterns []ir.TriplePattern) (*Analysis, error) {
	if len(patterns) == 0 {
		return nil, ErrEmptyPatternSet
	}

	subjects := map[string]bool{}
	predicates := map[string]bool{}
	objects := map[string]bool{}

	for i, tp := range patterns {
		if err := tp.Validate(); err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		if v, ok := ir.IsVariable(tp.Subject); ok {
			subjects[v.Name] = true
		}
		if v, ok := ir.IsVariable(tp.Predicate); ok {
			predicates[v.Name] = true
		}
		if v, ok := ir.IsVariable(tp.Object); ok {
			objects[v.Name] = true
		}
	}

	a := &Analysis{roles: map[string]Role{}}
	for name := range subjects {
		a.roles[name] = RoleNode
		if predicates[name] {
			a.conflicts = append(a.conflicts, name)
		}
	}
	for name := range predicates {
		if _, ok := a.roles[name]; !ok {
			a.roles[name] = RolePredicate
		}
	}
	for name := range objects {
		if _, ok := a.roles[name]; !ok {
			a.roles[name] = RoleAmbiguous
		}
	}

	for name, role := range a.roles {
		a.all = append(a.all, name)
		switch role {
		case RoleNode:
			a.node = append(a.node, name)
		case RolePredicate:
			a.predicate = append(a.predicate, name)
		case RoleAmbiguous:
			a.ambiguous = append(a.ambiguous, name)
		}
	}
	for _, s := range [][]string{a.all, a.node, a.predicate, a.ambiguous, a.conflicts} {
		sort.Strings(s)
	}

	return a, nil
}

// Role returns the role of a variable and whether it occurs in the set.
func (a *Analysis) Role(name string) (Role, bool) {
	r, ok := a.roles[name]
	return r, ok
}

// Is reports whether name has role r.
func (a *Analysis) Is(name string, r Role) bool {
	got, ok := a.roles[name]
	return ok && got == r
}

// NodeVars returns the Node-role variables, sorted.
func (a *Analysis) NodeVars() []string { return append([]string(nil), a.node...) }

// PredicateVars returns the Predicate-role variables, sorted.
func (a *Analysis) PredicateVars() []string { return append([]string(nil), a.predicate...) }

// AmbiguousVars returns the Ambiguous-role variables, sorted.
func (a *Analysis) AmbiguousVars() []string { return append([]string(nil), a.ambiguous...) }

// AllVars returns every distinct variable name, sorted.
func (a *Analysis) AllVars() []string { return append([]string(nil), a.all...) }

// Conflicts returns variables used both as a subject and as a predicate.
// Well-formed input has none; the compiler refuses sets that do.
func (a *Analysis) Conflicts() []string { return append([]string(nil), a.conflicts...) }

// CanPushdown is the cheap guard callers run before compiling. It is false
// only for nil or empty input: ambiguity is handled by branch unions.
func CanPushdown(patterns []ir.TriplePattern) bool {
	return len(patterns) > 0
}
