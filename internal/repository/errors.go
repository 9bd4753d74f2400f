package repository

import (
	"errors"
	"fmt"
)

var (
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrRepositoryExists   = errors.New("repository already exists")
	ErrHistoryUnsupported = errors.New("in-memory repositories do not support history")
	ErrUnknownNode        = errors.New("unknown node")
	ErrNotPartition       = errors.New("not a partition")
	ErrPartitionExists    = errors.New("partition already exists")
	ErrIDCollision        = errors.New("id already used by a non-partition node")
	ErrInvalidArgument    = errors.New("invalid argument")
)

// Node roles named by NodeError.
const (
	RoleChild      = "child"
	RoleAnnotation = "annotation"
	RoleParent     = "parent"
	RoleRoot       = "root"
	RolePartition  = "partition"
	RoleNode       = "node"
)

// NodeError ties a failure to a node id and the role the id played in the
// request, for example the child of some container.
type NodeError struct {
	ID   string
	Role string
	// Container is the node that referenced ID, if any.
	Container string
	Err       error
}

func (e *NodeError) Error() string {
	if e.Container != "" {
		return fmt.Sprintf("%s %s of %s: %v", e.Role, e.ID, e.Container, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Role, e.ID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
