// Package query implements the filter algebra accepted by the Base query
// endpoint. Callers compose immutable expression trees from Terms via And/Or,
// normalize them into disjunctive normal form, and serialize the result into
// the wire grammar: an ordered array of clause objects whose keys are
// "<path>" for equality or "<path>?<op>" for every other operator. Array
// elements are OR-ed by the store, keys within one clause are AND-ed.
package query
