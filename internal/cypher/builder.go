package cypher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/graphpush/internal/analyzer"
	"github.com/roach88/graphpush/internal/ir"
	"github.com/roach88/graphpush/internal/queryir"
	"github.com/roach88/graphpush/internal/schema"
)

// binding records how a variable is held once matched: as a resource node
// (its value is the node's identity property) or as a plain value column.
type binding int

const (
	bindNode binding = iota + 1
	bindValue
)

// scope tracks which variables the clauses emitted so far have bound.
type scope struct {
	kinds map[string]binding
	order []string
}

func newScope() *scope {
	return &scope{kinds: map[string]binding{}}
}

func (s *scope) bind(name string, k binding) {
	if _, ok := s.kinds[name]; !ok {
		s.order = append(s.order, name)
	}
	s.kinds[name] = k
}

func (s *scope) kind(name string) (binding, bool) {
	k, ok := s.kinds[name]
	return k, ok
}

func (s *scope) clone() *scope {
	out := &scope{kinds: make(map[string]binding, len(s.kinds)), order: append([]string(nil), s.order...)}
	for k, v := range s.kinds {
		out.kinds[k] = v
	}
	return out
}

// builder is the per-call working state. It is never shared between calls.
type builder struct {
	schema schema.Schema
	params *ir.Params

	// names gives equal terms one shared parameter.
	names map[ir.Term]string
	// next numbers internal identifiers per prefix.
	next map[string]int
	// idents detects two variables sanitizing to one identifier.
	idents map[string]string

	cons     FilterConstraint
	plans    []Plan
	optional bool
}

func newBuilder(s schema.Schema) *builder {
	return &builder{
		schema: s,
		params: ir.NewParams(),
		names:  map[ir.Term]string{},
		next:   map[string]int{},
		idents: map[string]string{},
		cons:   FilterConstraint{},
	}
}

// param returns the placeholder bound to a concrete term.
func (b *builder) param(t ir.Term) (string, error) {
	if name, ok := b.names[t]; ok {
		return "$" + name, nil
	}
	v, err := ir.ParamValue(t)
	if err != nil {
		return "", newCompileError(ErrCodeUnsupportedShape, "%v", err)
	}
	name := fmt.Sprintf("p%d", len(b.names))
	b.names[t] = name
	b.params.Set(name, v)
	return "$" + name, nil
}

// fresh returns a new internal identifier, e.g. __r0.
func (b *builder) fresh(prefix string) string {
	n := b.next[prefix]
	b.next[prefix] = n + 1
	return fmt.Sprintf("__%s%d", prefix, n)
}

func (b *builder) accessor(sc *scope, name string) (string, bool) {
	k, ok := sc.kind(name)
	if !ok {
		return "", false
	}
	if k == bindNode {
		return identifier(name) + "." + b.schema.IdentityProperty, true
	}
	return identifier(name), true
}

func (b *builder) accessors(sc *scope) map[string]string {
	out := make(map[string]string, len(sc.order))
	for _, name := range sc.order {
		out[name], _ = b.accessor(sc, name)
	}
	return out
}

func (b *builder) nodeVars(sc *scope) map[string]bool {
	out := make(map[string]bool)
	for name, k := range sc.kinds {
		if k == bindNode {
			out[name] = true
		}
	}
	return out
}

// project returns the RETURN clause for vars; unbound ones are null.
func (b *builder) project(sc *scope, vars []string) Return {
	if len(vars) == 0 {
		return Return{Items: []string{"true AS __matched"}}
	}
	items := make([]string, len(vars))
	for i, v := range vars {
		acc, ok := b.accessor(sc, v)
		if !ok {
			acc = "null"
		}
		items[i] = acc + " AS " + identifier(v)
	}
	return Return{Items: items}
}

func (b *builder) single(required, optional []ir.TriplePattern, filter queryir.Expr) (Query, []string, error) {
	sc := newScope()
	clauses, err := b.body(sc, required, optional, filter)
	if err != nil {
		return Query{}, nil, err
	}
	cols := append([]string(nil), sc.order...)
	clauses = append(clauses, b.project(sc, cols))
	return Query{Parts: []Part{{Clauses: clauses}}}, cols, nil
}

func (b *builder) union(left, right []ir.TriplePattern) (Query, []string, error) {
	if len(left) == 0 || len(right) == 0 {
		return Query{}, nil, newCompileError(ErrCodeInvalidInput, "union side is empty")
	}

	ls := newScope()
	lc, err := b.body(ls, left, nil, nil)
	if err != nil {
		return Query{}, nil, fmt.Errorf("left side: %w", err)
	}
	rs := newScope()
	rc, err := b.body(rs, right, nil, nil)
	if err != nil {
		return Query{}, nil, fmt.Errorf("right side: %w", err)
	}

	cols := append([]string(nil), ls.order...)
	for _, v := range rs.order {
		if _, ok := ls.kind(v); !ok {
			cols = append(cols, v)
		}
	}

	return Query{Parts: []Part{
		{Clauses: append(lc, b.project(ls, cols))},
		{Clauses: append(rc, b.project(rs, cols))},
	}}, cols, nil
}

func (b *builder) aggregate(patterns []ir.TriplePattern, filter queryir.Expr, groupVars []string, aggs []queryir.Aggregator) (Query, []string, error) {
	sc := newScope()
	clauses, err := b.body(sc, patterns, nil, filter)
	if err != nil {
		return Query{}, nil, err
	}

	res, err := TranslateAggregation(aggs, groupVars, b.accessors(sc))
	if err != nil {
		return Query{}, nil, err
	}

	cols := append([]string(nil), res.GroupByVars...)
	for _, a := range aggs {
		cols = append(cols, a.Alias)
	}
	clauses = append(clauses, Return{Items: res.Items})
	return Query{Parts: []Part{{Clauses: clauses}}}, cols, nil
}

// body renders the required group, the filter stage and the optional block.
func (b *builder) body(sc *scope, required, optional []ir.TriplePattern, filter queryir.Expr) ([]Clause, error) {
	if len(required) == 0 {
		return nil, newCompileError(ErrCodeInvalidInput, "pattern set is empty")
	}
	if filter != nil {
		b.cons = ExtractConstraints(filter)
	}

	clauses, err := b.group(sc, required)
	if err != nil {
		return nil, err
	}

	if filter != nil {
		cond, err := translateFilter(filter, b.accessors(sc), b.nodeVars(sc), b.params)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, With{Items: []string{"*"}, Where: []string{cond}})
	}

	if len(optional) > 0 {
		opt, err := b.optionalBlock(sc, optional)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, opt...)
	}
	return clauses, nil
}

// group renders a conjunctive pattern set triple by triple, in order.
func (b *builder) group(sc *scope, patterns []ir.TriplePattern) ([]Clause, error) {
	an, err := analyzer.Analyze(patterns)
	if err != nil {
		return nil, newCompileError(ErrCodeInvalidInput, "%v", err)
	}
	if conflicts := an.Conflicts(); len(conflicts) > 0 {
		return nil, newCompileError(ErrCodeUnsupportedShape, "?%s is used both as a subject and as a predicate", conflicts[0])
	}
	for _, v := range an.AllVars() {
		id := identifier(v)
		if other, ok := b.idents[id]; ok && other != v {
			return nil, newCompileError(ErrCodeUnsupportedShape, "?%s and ?%s share the column name %s", other, v, id)
		}
		b.idents[id] = v
	}

	var out []Clause
	for _, tp := range patterns {
		cl, err := b.triple(sc, an, tp)
		if err != nil {
			return nil, err
		}
		out = append(out, cl...)
	}
	return out, nil
}

// optionalBlock renders a left-joined group. A single triple that renders as
// one MATCH becomes OPTIONAL MATCH. Anything else is wrapped in a subquery
// that collects the block's rows and unwinds a lone null row when there are
// none, so the incoming row always survives.
func (b *builder) optionalBlock(sc *scope, patterns []ir.TriplePattern) ([]Clause, error) {
	varPreds := 0
	for _, tp := range patterns {
		if _, ok := ir.IsVariable(tp.Predicate); ok {
			varPreds++
		}
	}
	if varPreds > 1 {
		return nil, newCompileError(ErrCodeUnsupportedShape, "optional block has %d variable-predicate triples", varPreds)
	}

	b.optional = true
	defer func() { b.optional = false }()

	inner := sc.clone()
	body, err := b.group(inner, patterns)
	if err != nil {
		return nil, err
	}

	if len(patterns) == 1 && len(body) == 1 {
		if m, ok := body[0].(Match); ok {
			m.Optional = true
			*sc = *inner
			return []Clause{m}, nil
		}
	}

	added := inner.order[len(sc.order):]
	if len(added) == 0 {
		// every variable is already bound: the block cannot change a row
		return nil, nil
	}

	var imports []string
	for _, v := range ir.PatternVariables(patterns) {
		if _, ok := sc.kind(v); ok {
			imports = append(imports, identifier(v))
		}
	}

	rows, row := b.fresh("rows"), b.fresh("row")
	vals := make([]string, len(added))
	rets := make([]string, len(added))
	for i, v := range added {
		vals[i] = identifier(v)
		rets[i] = fmt.Sprintf("%s[%d] AS %s", row, i, identifier(v))
	}

	var cl []Clause
	if len(imports) > 0 {
		cl = append(cl, With{Items: imports})
	}
	cl = append(cl, body...)
	cl = append(cl,
		With{Items: []string{"collect([" + strings.Join(vals, ", ") + "]) AS " + rows}},
		Unwind{List: fmt.Sprintf("CASE WHEN size(%s) = 0 THEN [null] ELSE %s END", rows, rows), As: row},
		Return{Items: rets},
	)

	for _, v := range added {
		sc.bind(v, inner.kinds[v])
	}
	return []Clause{Call{Parts: []Part{{Clauses: cl}}}}, nil
}

// isNode reports whether t denotes a resource node at this point.
func (b *builder) isNode(sc *scope, an *analyzer.Analysis, t ir.Term) bool {
	switch v := t.(type) {
	case ir.URI:
		return true
	case ir.Variable:
		if k, ok := sc.kind(v.Name); ok {
			return k == bindNode
		}
		return an.Is(v.Name, analyzer.RoleNode)
	default:
		return false
	}
}

// classify picks the render strategy for tp.
func (b *builder) classify(sc *scope, an *analyzer.Analysis, tp ir.TriplePattern) (Plan, error) {
	plan := Plan{Triple: tp, Optional: b.optional}

	if _, ok := tp.Subject.(ir.Literal); ok {
		return plan, newCompileError(ErrCodeUnsupportedShape, "literal subject in %s", tp)
	}
	_, objLiteral := tp.Object.(ir.Literal)

	switch p := tp.Predicate.(type) {
	case ir.URI:
		switch {
		case b.schema.IsTypePredicate(p):
			if objLiteral {
				return plan, newCompileError(ErrCodeUnsupportedShape, "class of %s is a literal", tp)
			}
			plan.Strategy = LabelMatch
		case objLiteral:
			plan.Strategy = PropertyMatch
		case b.isNode(sc, an, tp.Object):
			plan.Strategy = EdgeMatch
		default:
			plan.Strategy = AmbiguousUnion
			plan.Branches = []Branch{BranchEdge, BranchProperty}
		}
	case ir.Variable:
		if o, ok := tp.Object.(ir.Variable); ok && o.Name == p.Name {
			return plan, newCompileError(ErrCodeUnsupportedShape, "?%s is both predicate and object of %s", p.Name, tp)
		}
		plan.Strategy = PredicateUnion
		switch {
		case objLiteral:
			plan.Branches = []Branch{BranchProperty}
		case b.isNode(sc, an, tp.Object):
			plan.Branches = []Branch{BranchEdge, BranchLabel}
		default:
			plan.Branches = []Branch{BranchEdge, BranchProperty, BranchLabel}
		}
		if cands, ok := b.predicateCandidates(p.Name); ok {
			plan.Constrained = true
			if !cands.Contains(ir.NewURI(b.schema.TypePredicate)) && len(plan.Branches) > 1 {
				plan.Branches = without(plan.Branches, BranchLabel)
			}
		}
	default:
		return plan, newCompileError(ErrCodeUnsupportedShape, "predicate of %s is not a URI or variable", tp)
	}
	return plan, nil
}

// predicateCandidates returns the URI candidates a filter allows for a
// predicate variable.
func (b *builder) predicateCandidates(name string) (ir.TermSet, bool) {
	set, ok := b.cons.Candidates(name)
	if !ok {
		return nil, false
	}
	uris := ir.NewTermSet()
	for t := range set {
		if _, ok := t.(ir.URI); ok {
			uris[t] = struct{}{}
		}
	}
	return uris, len(uris) > 0
}

// candidateParam binds the candidate list of a predicate variable as one
// list parameter, c_<name>.
func (b *builder) candidateParam(name string) string {
	key := "c_" + identifier(name)
	if !b.params.Has(key) {
		set, _ := b.predicateCandidates(name)
		sorted := set.Sorted()
		vals := make([]any, len(sorted))
		for i, t := range sorted {
			vals[i] = t.(ir.URI).Value
		}
		b.params.Set(key, vals)
	}
	return "$" + key
}

func (b *builder) triple(sc *scope, an *analyzer.Analysis, tp ir.TriplePattern) ([]Clause, error) {
	plan, err := b.classify(sc, an, tp)
	if err != nil {
		return nil, err
	}
	b.plans = append(b.plans, plan)

	switch plan.Strategy {
	case EdgeMatch:
		return b.renderEdge(sc, tp)
	case PropertyMatch:
		return b.renderProperty(sc, tp)
	case LabelMatch:
		return b.renderLabel(sc, an, tp)
	case AmbiguousUnion:
		return b.renderAmbiguous(sc, tp)
	case PredicateUnion:
		return b.renderPredicateUnion(sc, an, tp, plan)
	default:
		return nil, newCompileError(ErrCodeUnsupportedShape, "no strategy for %s", tp)
	}
}

// nodeRef returns the node pattern for t and the identifier naming the node,
// binding t when it is a variable seen for the first time.
func (b *builder) nodeRef(sc *scope, t ir.Term) (string, string, error) {
	label := b.schema.ResourceLabel
	switch v := t.(type) {
	case ir.URI:
		p, err := b.param(v)
		if err != nil {
			return "", "", err
		}
		n := b.fresh("n")
		return fmt.Sprintf("(%s:%s {%s: %s})", n, label, b.schema.IdentityProperty, p), n, nil
	case ir.Variable:
		id := identifier(v.Name)
		kind, ok := sc.kind(v.Name)
		switch {
		case !ok:
			sc.bind(v.Name, bindNode)
			return fmt.Sprintf("(%s:%s)", id, label), id, nil
		case kind == bindNode:
			return "(" + id + ")", id, nil
		default:
			// bound as a value earlier: look the resource up by identity
			n := b.fresh("n")
			return fmt.Sprintf("(%s:%s {%s: %s})", n, label, b.schema.IdentityProperty, id), n, nil
		}
	default:
		return "", "", newCompileError(ErrCodeUnsupportedShape, "%s cannot denote a resource", t)
	}
}

// ensureNode binds t as a node, returning the MATCH needed (if any).
func (b *builder) ensureNode(sc *scope, t ir.Term) ([]Clause, string, error) {
	pattern, id, err := b.nodeRef(sc, t)
	if err != nil {
		return nil, "", err
	}
	if pattern == "("+id+")" {
		return nil, id, nil
	}
	return []Clause{Match{Patterns: []string{pattern}}}, id, nil
}

// column returns the output column a union projects for a variable: the
// variable itself when unbound, or a helper plus the join condition
// against the existing binding.
func (b *builder) column(sc *scope, name string) (string, string) {
	acc, bound := b.accessor(sc, name)
	if !bound {
		return identifier(name), ""
	}
	h := b.fresh("v")
	return h, h + " = " + acc
}

func joinClauses(conds ...string) []Clause {
	var where []string
	for _, c := range conds {
		if c != "" {
			where = append(where, c)
		}
	}
	if len(where) == 0 {
		return nil
	}
	return []Clause{With{Items: []string{"*"}, Where: where}}
}

// renderEdge: MATCH (s)-[r]->(o) WHERE type(r) = $p
func (b *builder) renderEdge(sc *scope, tp ir.TriplePattern) ([]Clause, error) {
	ps, _, err := b.nodeRef(sc, tp.Subject)
	if err != nil {
		return nil, err
	}
	pred, err := b.param(tp.Predicate)
	if err != nil {
		return nil, err
	}
	po, _, err := b.nodeRef(sc, tp.Object)
	if err != nil {
		return nil, err
	}
	r := b.fresh("r")
	return []Clause{Match{
		Patterns: []string{ps + "-[" + r + "]->" + po},
		Where:    []string{fmt.Sprintf("type(%s) = %s", r, pred)},
	}}, nil
}

// renderProperty: MATCH (s) WHERE s[$p] = $v
func (b *builder) renderProperty(sc *scope, tp ir.TriplePattern) ([]Clause, error) {
	ps, s, err := b.nodeRef(sc, tp.Subject)
	if err != nil {
		return nil, err
	}
	pred, err := b.param(tp.Predicate)
	if err != nil {
		return nil, err
	}
	val, err := b.param(tp.Object)
	if err != nil {
		return nil, err
	}
	return []Clause{Match{
		Patterns: []string{ps},
		Where:    []string{fmt.Sprintf("%s[%s] = %s", s, pred, val)},
	}}, nil
}

// renderLabel handles rdf:type: a label test for a known class, or a label
// enumeration for an unbound value variable.
func (b *builder) renderLabel(sc *scope, an *analyzer.Analysis, tp ir.TriplePattern) ([]Clause, error) {
	ps, s, err := b.nodeRef(sc, tp.Subject)
	if err != nil {
		return nil, err
	}
	labels := "labels(" + s + ")"

	switch o := tp.Object.(type) {
	case ir.URI:
		cls, err := b.param(o)
		if err != nil {
			return nil, err
		}
		return []Clause{Match{Patterns: []string{ps}, Where: []string{cls + " IN " + labels}}}, nil
	case ir.Variable:
		id := identifier(o.Name)
		kind, bound := sc.kind(o.Name)
		switch {
		case bound && kind == bindNode:
			return []Clause{Match{Patterns: []string{ps}, Where: []string{id + "." + b.schema.IdentityProperty + " IN " + labels}}}, nil
		case bound:
			return []Clause{Match{Patterns: []string{ps}, Where: []string{id + " IN " + labels}}}, nil
		case an.Is(o.Name, analyzer.RoleNode):
			po, ov, err := b.nodeRef(sc, o)
			if err != nil {
				return nil, err
			}
			return []Clause{Match{Patterns: []string{ps, po}, Where: []string{ov + "." + b.schema.IdentityProperty + " IN " + labels}}}, nil
		default:
			var out []Clause
			if ps != "("+s+")" {
				out = append(out, Match{Patterns: []string{ps}})
			}
			sc.bind(o.Name, bindValue)
			return append(out, Unwind{List: b.labelList(s), As: id}), nil
		}
	default:
		return nil, newCompileError(ErrCodeUnsupportedShape, "class of %s is a literal", tp)
	}
}

// labelList enumerates a node's class labels, excluding the resource label.
func (b *builder) labelList(node string) string {
	return fmt.Sprintf("[__l IN labels(%s) WHERE __l <> '%s']", node, b.schema.ResourceLabel)
}

// renderAmbiguous unions the edge and property readings of ?s <p> ?o:
//
//	CALL {
//	  WITH s MATCH (s)-[r]->(t:Resource) WHERE type(r) = $p RETURN t.uri AS o
//	  UNION ALL
//	  WITH s MATCH (s) WHERE s[$p] IS NOT NULL RETURN s[$p] AS o
//	}
func (b *builder) renderAmbiguous(sc *scope, tp ir.TriplePattern) ([]Clause, error) {
	pre, s, err := b.ensureNode(sc, tp.Subject)
	if err != nil {
		return nil, err
	}
	pred, err := b.param(tp.Predicate)
	if err != nil {
		return nil, err
	}
	o := tp.Object.(ir.Variable)
	col, join := b.column(sc, o.Name)

	r, t := b.fresh("r"), b.fresh("t")
	edge := Part{Clauses: []Clause{
		With{Items: []string{s}},
		Match{
			Patterns: []string{fmt.Sprintf("(%s)-[%s]->(%s:%s)", s, r, t, b.schema.ResourceLabel)},
			Where:    []string{fmt.Sprintf("type(%s) = %s", r, pred)},
		},
		Return{Items: []string{t + "." + b.schema.IdentityProperty + " AS " + col}},
	}}
	value := fmt.Sprintf("%s[%s]", s, pred)
	prop := Part{Clauses: []Clause{
		With{Items: []string{s}},
		Match{Patterns: []string{"(" + s + ")"}, Where: []string{value + " IS NOT NULL"}},
		Return{Items: []string{value + " AS " + col}},
	}}

	if join == "" {
		sc.bind(o.Name, bindValue)
	}
	out := append(pre, Call{Parts: []Part{edge, prop}})
	return append(out, joinClauses(join)...), nil
}

// objectForm describes the object of a variable-predicate triple.
type objectForm struct {
	param   string // concrete object placeholder
	literal bool
	uri     bool
	node    string // node identifier when the object is a node variable
	newNode bool   // node variable first bound by this triple
	col     string // value column when the object is a value variable
}

func (b *builder) objectFormOf(sc *scope, an *analyzer.Analysis, t ir.Term) (objectForm, string, error) {
	switch o := t.(type) {
	case ir.Literal:
		p, err := b.param(o)
		return objectForm{param: p, literal: true}, "", err
	case ir.URI:
		p, err := b.param(o)
		return objectForm{param: p, uri: true}, "", err
	case ir.Variable:
		if b.isNode(sc, an, o) {
			_, bound := sc.kind(o.Name)
			return objectForm{node: identifier(o.Name), newNode: !bound}, "", nil
		}
		col, join := b.column(sc, o.Name)
		return objectForm{col: col}, join, nil
	default:
		return objectForm{}, "", newCompileError(ErrCodeUnsupportedShape, "unsupported object %v", t)
	}
}

// renderPredicateUnion unions the edge, property and label readings of a
// triple whose predicate is a variable. A filter that pins the predicate to
// candidates replaces key enumeration with iteration over $c_<p>.
func (b *builder) renderPredicateUnion(sc *scope, an *analyzer.Analysis, tp ir.TriplePattern, plan Plan) ([]Clause, error) {
	pre, s, err := b.ensureNode(sc, tp.Subject)
	if err != nil {
		return nil, err
	}
	pv := tp.Predicate.(ir.Variable)
	pcol, pjoin := b.column(sc, pv.Name)
	obj, ojoin, err := b.objectFormOf(sc, an, tp.Object)
	if err != nil {
		return nil, err
	}

	cand := ""
	if plan.Constrained {
		cand = b.candidateParam(pv.Name)
	}

	imports := []string{s}
	if obj.node != "" && !obj.newNode && obj.node != s {
		imports = append(imports, obj.node)
	}

	label, id := b.schema.ResourceLabel, b.schema.IdentityProperty
	var parts []Part
	for _, br := range plan.Branches {
		cl := []Clause{With{Items: imports}}
		switch br {
		case BranchEdge:
			r := b.fresh("r")
			ret := []string{fmt.Sprintf("type(%s) AS %s", r, pcol)}
			var target string
			switch {
			case obj.uri:
				target = fmt.Sprintf("(%s:%s {%s: %s})", b.fresh("t"), label, id, obj.param)
			case obj.node != "" && obj.newNode:
				target = fmt.Sprintf("(%s:%s)", obj.node, label)
				ret = append(ret, obj.node+" AS "+obj.node)
			case obj.node != "":
				target = "(" + obj.node + ")"
			default:
				t := b.fresh("t")
				target = fmt.Sprintf("(%s:%s)", t, label)
				ret = append(ret, t+"."+id+" AS "+obj.col)
			}
			var where []string
			if cand != "" {
				where = []string{fmt.Sprintf("type(%s) IN %s", r, cand)}
			}
			cl = append(cl,
				Match{Patterns: []string{fmt.Sprintf("(%s)-[%s]->%s", s, r, target)}, Where: where},
				Return{Items: ret})
		case BranchProperty:
			k := b.fresh("k")
			src := fmt.Sprintf("keys(%s)", s)
			keep := []string{fmt.Sprintf("__k <> '%s'", id)}
			if cand != "" {
				src = cand
				keep = []string{fmt.Sprintf("%s[__k] IS NOT NULL", s)}
			}
			ret := []string{k + " AS " + pcol}
			if obj.literal {
				keep = []string{keep[0], fmt.Sprintf("%s[__k] = %s", s, obj.param)}
				if cand != "" {
					keep = keep[1:]
				}
			} else {
				ret = append(ret, fmt.Sprintf("%s[%s] AS %s", s, k, obj.col))
			}
			cl = append(cl,
				Unwind{List: fmt.Sprintf("[__k IN %s WHERE %s]", src, strings.Join(keep, " AND ")), As: k},
				Return{Items: ret})
		case BranchLabel:
			rdfType, err := b.param(ir.NewURI(b.schema.TypePredicate))
			if err != nil {
				return nil, err
			}
			labels := "labels(" + s + ")"
			ret := []string{rdfType + " AS " + pcol}
			switch {
			case obj.uri:
				cl = append(cl, Match{Patterns: []string{"(" + s + ")"}, Where: []string{obj.param + " IN " + labels}})
			case obj.node != "" && obj.newNode:
				cl = append(cl, Match{Patterns: []string{fmt.Sprintf("(%s:%s)", obj.node, label)}, Where: []string{obj.node + "." + id + " IN " + labels}})
				ret = append(ret, obj.node+" AS "+obj.node)
			case obj.node != "":
				cl = append(cl, Match{Patterns: []string{"(" + s + ")"}, Where: []string{obj.node + "." + id + " IN " + labels}})
			default:
				l := b.fresh("l")
				cl = append(cl, Unwind{List: b.labelList(s), As: l})
				ret = append(ret, l+" AS "+obj.col)
			}
			cl = append(cl, Return{Items: ret})
		}
		parts = append(parts, Part{Clauses: cl})
	}

	if pjoin == "" {
		sc.bind(pv.Name, bindValue)
	}
	if o, ok := tp.Object.(ir.Variable); ok {
		switch {
		case obj.newNode:
			sc.bind(o.Name, bindNode)
		case obj.col != "" && ojoin == "":
			sc.bind(o.Name, bindValue)
		}
	}

	out := append(pre, Call{Parts: parts})
	return append(out, joinClauses(pjoin, ojoin)...), nil
}

var (
	identPattern  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	identReplacer = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

var reservedWords = map[string]bool{
	"all": true, "and": true, "as": true, "asc": true, "by": true, "call": true,
	"case": true, "contains": true, "count": true, "create": true, "delete": true,
	"desc": true, "distinct": true, "else": true, "end": true, "ends": true,
	"exists": true, "false": true, "in": true, "is": true, "limit": true,
	"match": true, "merge": true, "not": true, "null": true, "on": true,
	"optional": true, "or": true, "order": true, "remove": true, "return": true,
	"set": true, "skip": true, "starts": true, "then": true, "true": true,
	"union": true, "unwind": true, "when": true, "where": true, "with": true,
	"xor": true, "yield": true,
}

// identifier maps a pattern variable name to the native identifier and
// output column naming it. Plain names pass through; anything else (and
// reserved words) is sanitized under a v_ prefix, which keeps every
// variable clear of the __ prefix used internally.
func identifier(name string) string {
	if identPattern.MatchString(name) && !reservedWords[strings.ToLower(name)] {
		return name
	}
	return "v_" + identReplacer.ReplaceAllString(name, "_")
}
