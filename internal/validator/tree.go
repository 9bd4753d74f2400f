package validator

import (
	"strings"

	"lionrepo/internal/domain"
)

// NodeTreeValidator checks the nodes of one rooted tree, annotations
// included.
type NodeTreeValidator struct {
	// IsPartition decides whether a classifier may be used by a root.
	// When nil every classifier is accepted.
	IsPartition func(*domain.MetaPointer) bool
}

// PartitionSet adapts a set of classifiers to NodeTreeValidator.IsPartition.
func PartitionSet(classifiers map[*domain.MetaPointer]struct{}) func(*domain.MetaPointer) bool {
	return func(mp *domain.MetaPointer) bool {
		_, ok := classifiers[mp]
		return ok
	}
}

// Validate checks the tree made of nodes.
func (v NodeTreeValidator) Validate(nodes []*domain.Node) (*Result, error) {
	if nodes == nil {
		return nil, ErrNilInput
	}
	result := NewResult()
	seen := make(map[string]int, len(nodes))
	var roots []*domain.Node

	for _, n := range nodes {
		switch {
		case n.ID == "":
			result.AddError("ID null found", "")
		case !domain.IsValidID(n.ID):
			result.AddError("Invalid ID", n.ID)
		}
		seen[n.ID]++
		if seen[n.ID] == 2 {
			result.AddError("Duplicate ID found: "+n.ID, n.ID)
		}
		if n.IsRoot() {
			roots = append(roots, n)
		}
	}

	if len(roots) != 1 {
		ids := make([]string, len(roots))
		for i, r := range roots {
			ids[i] = r.ID
		}
		result.AddError("Expected exactly one root, found: ["+strings.Join(ids, ", ")+"]", "")
		return result, nil
	}
	if v.IsPartition != nil && !v.IsPartition(roots[0].Classifier) {
		result.AddError("A root node should be an instance of a Partition concept", roots[0].ID)
	}
	checkReachable(nodes, roots[0], result)
	return result, nil
}

func checkReachable(nodes []*domain.Node, root *domain.Node, result *Result) {
	byID := make(map[string]*domain.Node, len(nodes))
	for _, n := range nodes {
		if _, ok := byID[n.ID]; !ok {
			byID[n.ID] = n
		}
	}
	reached := map[string]bool{root.ID: true}
	stack := []*domain.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		next := append(n.Children(), n.Annotations()...)
		for _, id := range next {
			child, ok := byID[id]
			if !ok || reached[id] {
				continue
			}
			reached[id] = true
			stack = append(stack, child)
		}
	}
	for _, n := range nodes {
		if !reached[n.ID] {
			result.AddError("Node is not reachable from the root", n.ID)
		}
	}
}

// ValidateChunk checks a chunk holding a single tree.
func (v NodeTreeValidator) ValidateChunk(chunk *domain.Chunk) (*Result, error) {
	if chunk == nil {
		return nil, ErrNilInput
	}
	nodes := chunk.Nodes()
	if nodes == nil {
		nodes = []*domain.Node{}
	}
	return v.Validate(nodes)
}
