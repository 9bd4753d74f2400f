// Package service hosts the repositories of one lionrepo process.
//
// Server maps repository names to repository.Repository instances and
// forwards every bulk, delta and inspection operation to the named one.
// Operations that change a repository publish events on an EventBus; the
// hub package streams them to clients.
//
// # Locking
//
// The server map has its own lock, taken only to create, delete or look up
// a repository. Each repository serializes its own writes, so operations on
// different repositories never wait for each other.
package service
