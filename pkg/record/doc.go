// Package record models a stored item's local state. A Snapshot is an
// immutable point-in-time view of a record's fields; Reconcile replays a
// confirmed update instruction set against a Snapshot to compute the
// post-update state, since the store acknowledges the instructions rather
// than the resulting field values.
package record
