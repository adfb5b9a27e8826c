package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Well-known vocabulary URIs.
const (
	RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

	XSDString  = "http://www.w3.org/2001/XMLSchema#string"
	XSDBoolean = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"
	XSDLong    = "http://www.w3.org/2001/XMLSchema#long"
	XSDInt     = "http://www.w3.org/2001/XMLSchema#int"
	XSDShort   = "http://www.w3.org/2001/XMLSchema#short"
	XSDDecimal = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDDouble  = "http://www.w3.org/2001/XMLSchema#double"
	XSDFloat   = "http://www.w3.org/2001/XMLSchema#float"

	GeoWKTLiteral = "http://www.opengis.net/ont/geosparql#wktLiteral"
)

// Term is a sealed interface for the three kinds of triple-pattern slot:
// Variable, URI and Literal.
//
// Terms are value types. Two terms are equal iff they are == equal, which
// makes them usable as map keys.
type Term interface {
	term() // Marker method - seals interface to this package

	// String renders the term in SPARQL-like surface syntax (?v, <uri>, "lit").
	String() string
}

// Variable is a named pattern variable (without the leading '?').
type Variable struct {
	Name string
}

func (Variable) term() {}

func (v Variable) String() string { return "?" + v.Name }

// URI is an absolute resource identifier.
type URI struct {
	Value string
}

func (URI) term() {}

func (u URI) String() string { return "<" + u.Value + ">" }

// Literal is an RDF literal: a lexical form plus an optional datatype URI
// or language tag. An empty Datatype means a plain string literal.
type Literal struct {
	Lexical  string
	Datatype string
	Lang     string
}

func (Literal) term() {}

func (l Literal) String() string {
	s := strconv.Quote(l.Lexical)
	switch {
	case l.Lang != "":
		return s + "@" + l.Lang
	case l.Datatype != "" && l.Datatype != XSDString:
		return s + "^^<" + l.Datatype + ">"
	default:
		return s
	}
}

// NativeValue converts the literal to the Go value a query parameter carries.
//
// Integer datatypes become int64, decimal and floating datatypes become
// float64, xsd:boolean becomes bool. Everything else (including a lexical
// form that does not parse under its datatype) stays a string.
func (l Literal) NativeValue() any {
	switch l.Datatype {
	case XSDInteger, XSDLong, XSDInt, XSDShort:
		if n, err := strconv.ParseInt(strings.TrimSpace(l.Lexical), 10, 64); err == nil {
			return n
		}
	case XSDDecimal, XSDDouble, XSDFloat:
		if f, err := strconv.ParseFloat(strings.TrimSpace(l.Lexical), 64); err == nil {
			return f
		}
	case XSDBoolean:
		if b, err := strconv.ParseBool(strings.TrimSpace(l.Lexical)); err == nil {
			return b
		}
	}
	return l.Lexical
}

// NewVariable creates a Variable, stripping a leading '?' or '$'.
func NewVariable(name string) Variable {
	return Variable{Name: strings.TrimLeft(name, "?$")}
}

// NewURI creates a URI term.
func NewURI(value string) URI {
	return URI{Value: value}
}

// NewLiteral creates a plain string literal.
func NewLiteral(lexical string) Literal {
	return Literal{Lexical: lexical}
}

// NewTypedLiteral creates a literal with a datatype URI.
func NewTypedLiteral(lexical, datatype string) Literal {
	return Literal{Lexical: lexical, Datatype: datatype}
}

// NewIntLiteral creates an xsd:integer literal.
func NewIntLiteral(n int64) Literal {
	return Literal{Lexical: strconv.FormatInt(n, 10), Datatype: XSDInteger}
}

// NewWKTLiteral creates a geo:wktLiteral.
func NewWKTLiteral(wkt string) Literal {
	return Literal{Lexical: wkt, Datatype: GeoWKTLiteral}
}

// IsVariable reports whether t is a Variable and returns it.
func IsVariable(t Term) (Variable, bool) {
	v, ok := t.(Variable)
	return v, ok
}

// IsConcrete reports whether t is a URI or a Literal.
func IsConcrete(t Term) bool {
	switch t.(type) {
	case URI, Literal:
		return true
	default:
		return false
	}
}

// ParamValue returns the value a concrete term is bound to as a query
// parameter: the URI string for URIs and NativeValue for literals.
// Variables and nil have no parameter value.
func ParamValue(t Term) (any, error) {
	switch v := t.(type) {
	case URI:
		return v.Value, nil
	case Literal:
		return v.NativeValue(), nil
	case Variable:
		return nil, fmt.Errorf("variable %s has no parameter value", v)
	default:
		return nil, fmt.Errorf("unsupported term type: %T", t)
	}
}

// ParseTerm parses the surface syntax used by query files and tests:
//
//	?name  $name           variable
//	<http://...>           URI
//	"text"  "text"@en      plain / language-tagged literal
//	"5"^^<datatype>        typed literal
//	a                      rdf:type
//	42  3.5  true  false   xsd:integer / xsd:decimal / xsd:boolean
//
// Anything else is an error.
func ParseTerm(s string) (Term, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, fmt.Errorf("empty term")
	case s == "a":
		return URI{Value: RDFType}, nil
	case s[0] == '?' || s[0] == '$':
		if len(s) == 1 {
			return nil, fmt.Errorf("variable without a name: %q", s)
		}
		return Variable{Name: s[1:]}, nil
	case s[0] == '<':
		if !strings.HasSuffix(s, ">") || len(s) < 3 {
			return nil, fmt.Errorf("unterminated URI: %q", s)
		}
		return URI{Value: s[1 : len(s)-1]}, nil
	case s[0] == '"':
		return parseQuotedLiteral(s)
	case s == "true" || s == "false":
		return Literal{Lexical: s, Datatype: XSDBoolean}, nil
	}

	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Literal{Lexical: s, Datatype: XSDInteger}, nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return Literal{Lexical: s, Datatype: XSDDecimal}, nil
	}
	return nil, fmt.Errorf("unrecognised term: %q", s)
}

// parseQuotedLiteral parses "lex", "lex"@lang and "lex"^^<dt>.
func parseQuotedLiteral(s string) (Term, error) {
	end := closingQuote(s)
	if end < 0 {
		return nil, fmt.Errorf("unterminated literal: %q", s)
	}
	lexical, err := strconv.Unquote(s[:end+1])
	if err != nil {
		return nil, fmt.Errorf("invalid literal %q: %w", s, err)
	}

	rest := s[end+1:]
	switch {
	case rest == "":
		return Literal{Lexical: lexical}, nil
	case strings.HasPrefix(rest, "@") && len(rest) > 1:
		return Literal{Lexical: lexical, Lang: rest[1:]}, nil
	case strings.HasPrefix(rest, "^^<") && strings.HasSuffix(rest, ">"):
		return Literal{Lexical: lexical, Datatype: rest[3 : len(rest)-1]}, nil
	default:
		return nil, fmt.Errorf("invalid literal suffix %q in %q", rest, s)
	}
}

// closingQuote returns the index of the quote terminating the string that
// starts at s[0], honouring backslash escapes.
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

// MustParseTerm is like ParseTerm but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseTerm(s string) Term {
	t, err := ParseTerm(s)
	if err != nil {
		panic(err)
	}
	return t
}
