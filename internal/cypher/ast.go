package cypher

import (
	"strings"
)

// Clause is one clause of the native query AST.
//
// This is a sealed interface - only types in this package implement it.
// Queries are assembled as clause lists and serialized once by Serialize, so
// parameter placement and column alignment are decided before any text is
// written.
type Clause interface {
	clause() // Marker method - seals interface to this package
}

// Match is MATCH or OPTIONAL MATCH over comma-separated patterns.
type Match struct {
	Optional bool
	Patterns []string
	Where    []string
}

func (Match) clause() {}

// Unwind is UNWIND <list> AS <alias>.
type Unwind struct {
	List string
	As   string
}

func (Unwind) clause() {}

// With is WITH <items> [WHERE <conditions>].
type With struct {
	Items []string
	Where []string
}

func (With) clause() {}

// Call is a correlated subquery whose parts are joined by UNION ALL. Each
// part starts with its importing WITH and ends with a Return projecting the
// same column names.
type Call struct {
	Parts []Part
}

func (Call) clause() {}

// Return is the final projection of a part.
type Return struct {
	Items []string
}

func (Return) clause() {}

// Part is a clause sequence ending in a Return.
type Part struct {
	Clauses []Clause
}

// Query is one or more parts joined by UNION ALL.
type Query struct {
	Parts []Part
}

// Serialize renders q as native query text, one clause per line with
// subquery bodies indented.
func Serialize(q Query) string {
	var sb strings.Builder
	writeParts(&sb, q.Parts, 0)
	return strings.TrimSuffix(sb.String(), "\n")
}

func writeParts(sb *strings.Builder, parts []Part, depth int) {
	for i, p := range parts {
		if i > 0 {
			writeLine(sb, depth, "UNION ALL")
		}
		for _, c := range p.Clauses {
			writeClause(sb, c, depth)
		}
	}
}

func writeClause(sb *strings.Builder, c Clause, depth int) {
	switch cl := c.(type) {
	case Match:
		kw := "MATCH "
		if cl.Optional {
			kw = "OPTIONAL MATCH "
		}
		writeLine(sb, depth, kw+strings.Join(cl.Patterns, ", ")+where(cl.Where))
	case Unwind:
		writeLine(sb, depth, "UNWIND "+cl.List+" AS "+cl.As)
	case With:
		writeLine(sb, depth, "WITH "+strings.Join(cl.Items, ", ")+where(cl.Where))
	case Call:
		writeLine(sb, depth, "CALL {")
		writeParts(sb, cl.Parts, depth+1)
		writeLine(sb, depth, "}")
	case Return:
		writeLine(sb, depth, "RETURN "+strings.Join(cl.Items, ", "))
	}
}

func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func writeLine(sb *strings.Builder, depth int, s string) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(s)
	sb.WriteByte('\n')
}
