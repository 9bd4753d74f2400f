package validator

import (
	"sort"
	"strings"

	"lionrepo/internal/domain"
)

// PartitionChunkValidator checks a chunk that must hold exactly one whole
// partition: everything ChunkValidator checks, plus every child and
// annotation must be present and there must be a single root.
type PartitionChunkValidator struct {
	ChunkValidator
}

// Validate checks chunk.
func (v PartitionChunkValidator) Validate(chunk *domain.Chunk) (*Result, error) {
	result, err := v.ChunkValidator.Validate(chunk)
	if err != nil {
		return nil, err
	}

	missing := make(map[string]struct{})
	for _, n := range chunk.Nodes() {
		for _, id := range n.Children() {
			if !chunk.Has(id) {
				missing[id] = struct{}{}
				result.AddError("Missing node: "+id, n.ID)
			}
		}
		for _, id := range n.Annotations() {
			if !chunk.Has(id) {
				missing[id] = struct{}{}
				result.AddError("Missing node: "+id, n.ID)
			}
		}
	}
	if len(missing) > 0 {
		ids := make([]string, 0, len(missing))
		for id := range missing {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		result.AddError("Some nodes should be contained, but are not present: "+strings.Join(ids, ", "), "")
	}

	roots := chunk.Roots()
	if len(roots) != 1 {
		ids := make([]string, len(roots))
		for i, r := range roots {
			ids[i] = r.ID
		}
		result.AddError("Expected exactly one root, found: ["+strings.Join(ids, ", ")+"]", "")
	}
	return result, nil
}
