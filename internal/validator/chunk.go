package validator

import (
	"fmt"
	"slices"
	"strings"

	"lionrepo/internal/domain"
)

// ChunkValidator checks a flat chunk that may hold only part of a tree.
// Ids must be valid and unique, the declared languages must match the ones
// in use, and containment must agree with parent ids wherever both ends are
// in the chunk.
type ChunkValidator struct{}

// Validate checks chunk.
func (v ChunkValidator) Validate(chunk *domain.Chunk) (*Result, error) {
	if chunk == nil {
		return nil, ErrNilInput
	}
	result := NewResult()
	nodesByID := checkIDs(chunk, result)
	checkLanguages(chunk, result)
	checkContainment(chunk, nodesByID, result)
	return result, nil
}

func checkIDs(chunk *domain.Chunk, result *Result) map[string]*domain.Node {
	nodesByID := make(map[string]*domain.Node, chunk.Len())
	for _, n := range chunk.Nodes() {
		if !domain.IsValidID(n.ID) {
			result.AddError("Invalid node id: "+n.ID, "")
		}
		if _, dup := nodesByID[n.ID]; dup {
			result.AddError("Duplicate node id: "+n.ID, "")
			continue
		}
		nodesByID[n.ID] = n
	}
	return nodesByID
}

func checkLanguages(chunk *domain.Chunk, result *Result) {
	used := make(map[*domain.LanguageVersion]struct{})
	for _, lv := range chunk.UsedLanguages() {
		used[lv] = struct{}{}
	}
	declared := make(map[*domain.LanguageVersion]struct{})
	for _, lv := range chunk.Languages() {
		declared[lv] = struct{}{}
	}

	var missing, extra []*domain.LanguageVersion
	for lv := range used {
		if _, ok := declared[lv]; !ok {
			missing = append(missing, lv)
		}
	}
	for lv := range declared {
		if _, ok := used[lv]; !ok {
			extra = append(extra, lv)
		}
	}
	if len(missing) > 0 {
		result.AddError("Used languages are not declared: "+formatLanguages(missing), "")
	}
	if len(extra) > 0 {
		result.AddError("Declared languages are not used: "+formatLanguages(extra), "")
	}
}

func formatLanguages(lvs []*domain.LanguageVersion) string {
	slices.SortFunc(lvs, (*domain.LanguageVersion).Compare)
	parts := make([]string, len(lvs))
	for i, lv := range lvs {
		parts[i] = lv.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func checkContainment(chunk *domain.Chunk, nodesByID map[string]*domain.Node, result *Result) {
	contained := make(map[string]struct{})
	claim := func(id string) {
		if _, ok := contained[id]; ok {
			result.AddError(id+" is listed in multiple places", "")
			return
		}
		contained[id] = struct{}{}
	}

	for _, n := range chunk.Nodes() {
		for _, childID := range n.Children() {
			claim(childID)
			if child, ok := nodesByID[childID]; ok && child.ParentID != n.ID {
				result.AddError(fmt.Sprintf("%s is listed as child of %s but it has as parent %s",
					childID, n.ID, parentName(child)), childID)
			}
		}
		for _, annID := range n.Annotations() {
			claim(annID)
			if ann, ok := nodesByID[annID]; ok && ann.ParentID != n.ID {
				result.AddError(fmt.Sprintf("%s is listed as an annotation of %s but it has as parent %s",
					annID, n.ID, parentName(ann)), annID)
			}
		}
		if n.IsRoot() {
			continue
		}
		if parent, ok := nodesByID[n.ParentID]; ok &&
			!parent.Contains(n.ID) && !slices.Contains(parent.Annotations(), n.ID) {
			result.AddError(fmt.Sprintf("%s lists as parent %s but such parent does not contain it",
				n.ID, n.ParentID), n.ID)
		}
	}
}

func parentName(n *domain.Node) string {
	if n.IsRoot() {
		return "null"
	}
	return n.ParentID
}
