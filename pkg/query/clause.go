package query

import (
	"errors"
	"fmt"
)

// Operator identifies the comparison applied by a Term.
type Operator string

const (
	Eq          Operator = "eq"
	Ne          Operator = "neq"
	Gt          Operator = "gt"
	Lt          Operator = "lt"
	Lte         Operator = "lte"
	Gte         Operator = "gte"
	Prefix      Operator = "prefix"
	Range       Operator = "range"
	Contains    Operator = "contains"
	NotContains Operator = "not_contains"
)

// wireTokens maps operators to their wire suffix. Equality has no suffix:
// the clause key is the bare field path.
var wireTokens = map[Operator]string{
	Eq:          "",
	Ne:          "ne",
	Gt:          "gt",
	Lt:          "lt",
	Lte:         "lte",
	Gte:         "gte",
	Prefix:      "pfx",
	Range:       "range",
	Contains:    "contains",
	NotContains: "not_contains",
}

// ErrInvalidQueryShape reports a structurally malformed node reaching the
// serializer. This is a programming error, not a recoverable condition.
var ErrInvalidQueryShape = errors.New("query: invalid query shape")

// Clause is one AND-group of encoded terms within the wire query array.
type Clause map[string]any

// WireKey returns the clause key for the term: the bare path for equality,
// otherwise "<path>?<token>".
func (t Term) WireKey() (string, error) {
	token, ok := wireTokens[t.Op]
	if !ok {
		return "", fmt.Errorf("%w: unknown operator %q", ErrInvalidQueryShape, t.Op)
	}
	if token == "" {
		return t.Path, nil
	}
	return t.Path + "?" + token, nil
}

// Serialize encodes a normalized query into the wire clause array. Each
// top-level disjunction child becomes one clause; within a clause, a later
// term with the same encoded key overwrites an earlier one (clause keys are
// unique on the wire, an accepted edge case). Any nested connective is
// rejected with ErrInvalidQueryShape.
func Serialize(n Node) ([]Clause, error) {
	d, ok := n.(disjunction)
	if !ok {
		return nil, fmt.Errorf("%w: top-level node is not a disjunction", ErrInvalidQueryShape)
	}
	clauses := make([]Clause, 0, len(d.children))
	for _, child := range d.children {
		clause := make(Clause)
		for _, t := range clauseTerms(child) {
			term, ok := t.(Term)
			if !ok {
				return nil, fmt.Errorf("%w: connective nested inside a clause", ErrInvalidQueryShape)
			}
			key, err := term.WireKey()
			if err != nil {
				return nil, err
			}
			clause[key] = term.Value
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

// Marshal normalizes n and serializes the result. This is the entry point
// used by the client when sending a query.
func Marshal(n Node) ([]Clause, error) {
	if n == nil {
		return nil, nil
	}
	return Serialize(Normalize(n))
}
