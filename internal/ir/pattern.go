package ir

import (
	"fmt"
	"sort"
	"strings"
)

// TriplePattern is a subject/predicate/object tuple; each slot is a Term.
type TriplePattern struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// NewTriple creates a TriplePattern.
func NewTriple(s, p, o Term) TriplePattern {
	return TriplePattern{Subject: s, Predicate: p, Object: o}
}

// String renders the pattern as "s p o".
func (t TriplePattern) String() string {
	return fmt.Sprintf("%s %s %s", termString(t.Subject), termString(t.Predicate), termString(t.Object))
}

// Variables returns the distinct variable names of the pattern in
// subject, predicate, object order.
func (t TriplePattern) Variables() []string {
	var names []string
	seen := make(map[string]bool, 3)
	for _, term := range []Term{t.Subject, t.Predicate, t.Object} {
		if v, ok := term.(Variable); ok && !seen[v.Name] {
			seen[v.Name] = true
			names = append(names, v.Name)
		}
	}
	return names
}

// Validate checks that every slot holds a term.
func (t TriplePattern) Validate() error {
	if t.Subject == nil || t.Predicate == nil || t.Object == nil {
		return fmt.Errorf("triple pattern %s has an empty slot", t)
	}
	return nil
}

// PatternVariables returns the sorted distinct variable names of a pattern set.
func PatternVariables(patterns []TriplePattern) []string {
	seen := make(map[string]bool)
	for _, tp := range patterns {
		for _, name := range tp.Variables() {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func termString(t Term) string {
	if t == nil {
		return "_"
	}
	return t.String()
}

// TermSet is a set of terms with deterministic iteration via Sorted.
type TermSet map[Term]struct{}

// NewTermSet creates a TermSet holding terms.
func NewTermSet(terms ...Term) TermSet {
	s := make(TermSet, len(terms))
	for _, t := range terms {
		s[t] = struct{}{}
	}
	return s
}

// Contains reports membership.
func (s TermSet) Contains(t Term) bool {
	_, ok := s[t]
	return ok
}

// Union returns a new set with the members of both sets.
func (s TermSet) Union(other TermSet) TermSet {
	out := make(TermSet, len(s)+len(other))
	for t := range s {
		out[t] = struct{}{}
	}
	for t := range other {
		out[t] = struct{}{}
	}
	return out
}

// Intersect returns a new set with the members common to both sets.
func (s TermSet) Intersect(other TermSet) TermSet {
	out := make(TermSet)
	for t := range s {
		if other.Contains(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

// Sorted returns the members ordered by their surface syntax.
func (s TermSet) Sorted() []Term {
	terms := make([]Term, 0, len(s))
	for t := range s {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		return terms[i].String() < terms[j].String()
	})
	return terms
}

// ParseTriple parses "subject predicate object" in the ParseTerm surface
// syntax. A trailing " ." is allowed.
func ParseTriple(line string) (TriplePattern, error) {
	fields, err := splitTerms(strings.TrimSuffix(strings.TrimSpace(line), " ."))
	if err != nil {
		return TriplePattern{}, err
	}
	if len(fields) != 3 {
		return TriplePattern{}, fmt.Errorf("triple %q has %d terms, want 3", line, len(fields))
	}
	var terms [3]Term
	for i, f := range fields {
		t, err := ParseTerm(f)
		if err != nil {
			return TriplePattern{}, fmt.Errorf("triple %q: %w", line, err)
		}
		terms[i] = t
	}
	return NewTriple(terms[0], terms[1], terms[2]), nil
}

// MustParseTriple is like ParseTriple but panics on error.
func MustParseTriple(line string) TriplePattern {
	tp, err := ParseTriple(line)
	if err != nil {
		panic(err)
	}
	return tp
}

// splitTerms splits on whitespace outside quoted literals and <...>.
func splitTerms(s string) ([]string, error) {
	var fields []string
	start := -1
	inURI, inLit := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inLit:
			if c == '\\' {
				i++
			} else if c == '"' {
				inLit = false
			}
		case inURI:
			if c == '>' {
				inURI = false
			}
		case c == ' ' || c == '\t':
			if start >= 0 {
				fields = append(fields, s[start:i])
				start = -1
			}
			continue
		case c == '"':
			inLit = true
		case c == '<':
			inURI = true
		}
		if start < 0 {
			start = i
		}
	}
	if inLit || inURI {
		return nil, fmt.Errorf("unterminated term in %q", s)
	}
	if start >= 0 {
		fields = append(fields, s[start:])
	}
	return fields, nil
}
