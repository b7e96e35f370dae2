// Package base provides the client for a Base, a document-style key/value
// store accessed over HTTP. A Client is bound to a project; Base handles
// expose the per-record-set operations: batch put, get, insert, partial
// update, delete and filtered queries with cursor pagination.
//
// The store acknowledges updates by echoing the applied instruction set, not
// the resulting field values; pair Update with record.Reconcile to compute
// the post-update state locally.
package base
