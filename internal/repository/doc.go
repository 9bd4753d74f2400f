// Package repository defines what a lionrepo repository offers and the
// errors its operations report.
//
// A repository is a named graph of nodes split into partitions. Every write
// produces a new VersionToken. Writes are all-or-nothing: an operation that
// fails leaves the repository untouched.
//
// # Errors
//
// Operational failures are sentinel errors (ErrUnknownNode,
// ErrNotPartition, ...) wrapped with context; match them with errors.Is.
// NodeError carries the offending id and its role in the request.
//
// # Implementations
//
// The memory subpackage keeps the whole graph in process memory.
package repository
