package memory

import (
	"fmt"
	"slices"
	"strings"

	"lionrepo/internal/domain"
	"lionrepo/internal/repository"
)

// Graph is the read view Diff needs of the stored state.
type Graph interface {
	Node(id string) (*domain.Node, bool)
	IsPartition(id string) bool
}

// Detach removes Child from the containments and annotations of Container.
type Detach struct {
	Container string
	Child     string
}

// Reparent points a stored node that is not part of the request at its new
// container.
type Reparent struct {
	ID     string
	Parent string
}

// Plan is the set of changes a store request turns into. Applying it in
// field order (Detach, Upserts, Reparent, Deletes) yields the new state.
type Plan struct {
	Detach   []Detach
	Upserts  []*domain.Node
	Reparent []Reparent
	Deletes  []string
}

// Diff compares incoming nodes with the stored graph and decides what to
// write and what to delete. Only containment and annotation membership is
// compared; property changes are carried by the upserts.
//
// An id dropped from one container and listed by another in the same
// request is a move and survives. Dropped ids that are not moved are
// deleted together with their descendants, except descendants listed
// somewhere in the request.
//
// Diff fails without producing a plan when an id is malformed or repeated,
// when a root is not a registered partition, when a partition would get a
// container, when a child, annotation or parent id is neither in the
// request nor stored, or when the request keeps a node whose container it
// deletes.
func Diff(g Graph, incoming []*domain.Node) (*Plan, error) {
	byID := make(map[string]*domain.Node, len(incoming))
	for _, n := range incoming {
		if !domain.IsValidID(n.ID) {
			return nil, &repository.NodeError{ID: n.ID, Role: repository.RoleNode, Err: repository.ErrInvalidArgument}
		}
		if _, dup := byID[n.ID]; dup {
			return nil, fmt.Errorf("%w: node %s appears more than once", repository.ErrInvalidArgument, n.ID)
		}
		byID[n.ID] = n
	}
	lookup := func(id string) (*domain.Node, bool) {
		if n, ok := byID[id]; ok {
			return n, true
		}
		return g.Node(id)
	}

	if err := checkRequest(g, incoming, lookup); err != nil {
		return nil, err
	}

	plan := &Plan{Upserts: make([]*domain.Node, 0, len(incoming))}
	added := make(map[string]string)
	removed := newOrderedSet()

	for _, n := range incoming {
		plan.Upserts = append(plan.Upserts, n.Clone())

		old, ok := g.Node(n.ID)
		if !ok {
			for _, id := range n.Children() {
				added[id] = n.ID
			}
			for _, id := range n.Annotations() {
				added[id] = n.ID
			}
			continue
		}
		if !old.IsRoot() && old.ParentID != n.ParentID {
			if _, inRequest := byID[old.ParentID]; !inRequest {
				plan.Detach = append(plan.Detach, Detach{Container: old.ParentID, Child: n.ID})
			}
		}
		diffMembers(n.ID, old.Children(), n.Children(), added, removed)
		diffMembers(n.ID, old.Annotations(), n.Annotations(), added, removed)
	}

	deleted := make(map[string]struct{})
	for _, id := range removed.items {
		if _, moved := added[id]; moved {
			continue
		}
		collectSubtree(id, lookup, added, deleted, plan)
	}
	if err := checkOrphans(incoming, added, deleted); err != nil {
		return nil, err
	}

	for id, parent := range added {
		if _, inRequest := byID[id]; inRequest {
			continue
		}
		if stored, ok := g.Node(id); ok && stored.ParentID != parent {
			plan.Reparent = append(plan.Reparent, Reparent{ID: id, Parent: parent})
		}
	}
	slices.SortFunc(plan.Reparent, func(a, b Reparent) int { return strings.Compare(a.ID, b.ID) })
	return plan, nil
}

func checkRequest(g Graph, incoming []*domain.Node, lookup func(string) (*domain.Node, bool)) error {
	for _, n := range incoming {
		if n.IsRoot() && !g.IsPartition(n.ID) {
			return &repository.NodeError{ID: n.ID, Role: repository.RoleRoot, Err: repository.ErrNotPartition}
		}
	}
	for _, n := range incoming {
		if !n.IsRoot() && g.IsPartition(n.ID) {
			return &repository.NodeError{ID: n.ID, Role: repository.RolePartition, Container: n.ParentID, Err: repository.ErrInvalidArgument}
		}
		for _, id := range slices.Concat(n.Children(), n.Annotations()) {
			if g.IsPartition(id) {
				return &repository.NodeError{ID: id, Role: repository.RolePartition, Container: n.ID, Err: repository.ErrInvalidArgument}
			}
		}
	}
	for _, n := range incoming {
		for _, id := range n.Children() {
			if _, ok := lookup(id); !ok {
				return &repository.NodeError{ID: id, Role: repository.RoleChild, Container: n.ID, Err: repository.ErrUnknownNode}
			}
		}
		for _, id := range n.Annotations() {
			if _, ok := lookup(id); !ok {
				return &repository.NodeError{ID: id, Role: repository.RoleAnnotation, Container: n.ID, Err: repository.ErrUnknownNode}
			}
		}
		if !n.IsRoot() {
			if _, ok := lookup(n.ParentID); !ok {
				return &repository.NodeError{ID: n.ParentID, Role: repository.RoleParent, Container: n.ID, Err: repository.ErrUnknownNode}
			}
		}
	}
	return nil
}

// checkOrphans rejects a plan that deletes the container of a node the
// request keeps.
func checkOrphans(incoming []*domain.Node, added map[string]string, deleted map[string]struct{}) error {
	for _, n := range incoming {
		if _, gone := deleted[n.ParentID]; gone && !n.IsRoot() {
			if _, ok := deleted[n.ID]; !ok {
				return &repository.NodeError{ID: n.ParentID, Role: repository.RoleParent, Container: n.ID, Err: repository.ErrInvalidArgument}
			}
		}
	}
	for id, container := range added {
		if _, gone := deleted[container]; gone {
			return &repository.NodeError{ID: container, Role: repository.RoleParent, Container: id, Err: repository.ErrInvalidArgument}
		}
	}
	return nil
}

func diffMembers(container string, before, after []string, added map[string]string, removed *orderedSet) {
	previous := make(map[string]struct{}, len(before))
	for _, id := range before {
		previous[id] = struct{}{}
	}
	current := make(map[string]struct{}, len(after))
	for _, id := range after {
		current[id] = struct{}{}
		if _, ok := previous[id]; !ok {
			added[id] = container
		}
	}
	for _, id := range before {
		if _, ok := current[id]; !ok {
			removed.add(id)
		}
	}
}

// collectSubtree appends id and its descendants to plan.Deletes, stopping at
// nodes that the request attaches somewhere.
func collectSubtree(id string, lookup func(string) (*domain.Node, bool), keep map[string]string, seen map[string]struct{}, plan *Plan) {
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		n, ok := lookup(cur)
		if !ok {
			continue
		}
		plan.Deletes = append(plan.Deletes, cur)
		members := append(n.Children(), n.Annotations()...)
		for i := len(members) - 1; i >= 0; i-- {
			if _, attached := keep[members[i]]; !attached {
				stack = append(stack, members[i])
			}
		}
	}
}

type orderedSet struct {
	items []string
	index map[string]struct{}
}

func newOrderedSet() *orderedSet {
	return &orderedSet{index: make(map[string]struct{})}
}

func (s *orderedSet) add(id string) {
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = struct{}{}
	s.items = append(s.items, id)
}
