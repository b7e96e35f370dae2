package query

// Node is a single vertex in a filter expression tree. Nodes are immutable
// once built; And and Or return fresh nodes and never modify their inputs.
type Node interface {
	sealed()
}

// Term is an atomic filter condition on one field path.
type Term struct {
	Path  string
	Op    Operator
	Value any
}

func (Term) sealed() {}

// NewTerm builds an atomic condition. Operator validity is not checked here;
// unknown operators surface as ErrInvalidQueryShape during serialization.
func NewTerm(path string, op Operator, value any) Term {
	return Term{Path: path, Op: op, Value: value}
}

// conjunction is an AND over its children, disjunction an OR. Both are kept
// unexported so trees can only be built through the combinators.
type conjunction struct {
	children []Node
}

func (conjunction) sealed() {}

type disjunction struct {
	children []Node
}

func (disjunction) sealed() {}

// And combines nodes into a conjunction, splicing in the children of any
// argument that is itself a conjunction so immediately redundant nesting of
// the same kind never occurs. It does not distribute across disjunctions;
// that happens in Normalize.
func And(nodes ...Node) Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if c, ok := n.(conjunction); ok {
			out = append(out, c.children...)
		} else {
			out = append(out, n)
		}
	}
	return conjunction{children: out}
}

// Or combines nodes into a disjunction, flattening nested disjunctions the
// same way And flattens conjunctions.
func Or(nodes ...Node) Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if d, ok := n.(disjunction); ok {
			out = append(out, d.children...)
		} else {
			out = append(out, n)
		}
	}
	return disjunction{children: out}
}

// Normalize rewrites an arbitrary expression tree into strict DNF: a
// disjunction whose children are conjunctions containing only Terms. The
// rewrite works bottom-up and is idempotent.
//
// Clause order is deterministic: disjunction children keep their construction
// order, and the distributive AND-merge enumerates the left operand's
// clauses in the outer loop so `(A OR B) AND C` yields `AC, BC`.
func Normalize(n Node) Node {
	switch v := n.(type) {
	case Term:
		return disjunction{children: []Node{conjunction{children: []Node{v}}}}
	case disjunction:
		var out []Node
		for _, child := range v.children {
			out = append(out, Normalize(child).(disjunction).children...)
		}
		return disjunction{children: out}
	case conjunction:
		if len(v.children) == 0 {
			// An empty conjunction means "no filter": one clause
			// with no terms.
			return disjunction{children: []Node{conjunction{}}}
		}
		acc := Normalize(v.children[0]).(disjunction)
		for _, child := range v.children[1:] {
			acc = andMerge(acc, Normalize(child).(disjunction))
		}
		return acc
	default:
		// No other Node implementations exist; a nil Node is the only
		// way to reach this.
		return disjunction{children: []Node{conjunction{}}}
	}
}

// andMerge applies the distributive law to two normalized disjunctions,
// producing the cross product of their clauses.
func andMerge(d1, d2 disjunction) disjunction {
	out := make([]Node, 0, len(d1.children)*len(d2.children))
	for _, c1 := range d1.children {
		left := clauseTerms(c1)
		for _, c2 := range d2.children {
			right := clauseTerms(c2)
			merged := make([]Node, 0, len(left)+len(right))
			merged = append(merged, left...)
			merged = append(merged, right...)
			out = append(out, conjunction{children: merged})
		}
	}
	return disjunction{children: out}
}

// clauseTerms returns the terms of a normalized disjunction child, which may
// be a bare Term or a conjunction of Terms.
func clauseTerms(n Node) []Node {
	if c, ok := n.(conjunction); ok {
		return c.children
	}
	return []Node{n}
}
