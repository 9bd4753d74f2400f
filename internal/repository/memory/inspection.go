package memory

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"lionrepo/internal/domain"
	"lionrepo/internal/repository"
	"lionrepo/internal/validator"
)

// NodesByClassifier groups stored nodes by classifier. Each group reports
// its full size and at most limit ids; NoLimit lists them all.
func (r *Repository) NodesByClassifier(limit int) map[repository.ClassifierKey]repository.Group {
	r.mu.RLock()
	defer r.mu.RUnlock()

	merged := make(map[repository.ClassifierKey][]*roaring.Bitmap)
	for mp, bm := range r.arena.byClassifier {
		key := repository.ClassifierKey{Language: mp.Language(), Classifier: mp.Key()}
		merged[key] = append(merged[key], bm)
	}
	out := make(map[repository.ClassifierKey]repository.Group, len(merged))
	for key, bms := range merged {
		out[key] = r.group(roaring.FastOr(bms...), limit)
	}
	return out
}

// NodesByLanguage groups stored nodes by the language key of their
// classifier.
func (r *Repository) NodesByLanguage(limit int) map[string]repository.Group {
	r.mu.RLock()
	defer r.mu.RUnlock()

	merged := make(map[string][]*roaring.Bitmap)
	for mp, bm := range r.arena.byClassifier {
		merged[mp.Language()] = append(merged[mp.Language()], bm)
	}
	out := make(map[string]repository.Group, len(merged))
	for _, language := range sortedKeys(merged) {
		out[language] = r.group(roaring.FastOr(merged[language]...), limit)
	}
	return out
}

func (r *Repository) group(bm *roaring.Bitmap, limit int) repository.Group {
	ids := r.arena.ids(bm, limit)
	sort.Strings(ids)
	return repository.Group{IDs: ids, Size: int(bm.GetCardinality())}
}

// CheckConsistency validates the stored graph as one chunk and checks that
// the registered partitions are exactly its roots.
func (r *Repository) CheckConsistency() (*validator.Result, error) {
	r.mu.RLock()
	snapshot := r.snapshotLocked()
	partitions := append([]string(nil), r.partitions...)
	r.mu.RUnlock()

	result, err := validator.ChunkValidator{}.Validate(snapshot)
	if err != nil {
		return nil, err
	}
	registered := make(map[string]struct{}, len(partitions))
	for _, p := range partitions {
		registered[p] = struct{}{}
		n, ok := snapshot.NodeByID(p)
		result.AddErrorIf(!ok, fmt.Sprintf("Partition %s is not stored", p), p)
		result.AddErrorIf(ok && !n.IsRoot(), fmt.Sprintf("Partition %s has parent %s", p, n.ParentID), p)
	}
	for _, root := range snapshot.Roots() {
		if _, ok := registered[root.ID]; !ok {
			result.AddError(fmt.Sprintf("Root %s is not a registered partition", root.ID), root.ID)
		}
	}
	checkParents(snapshot, result)
	return result, nil
}

// checkParents reports nodes whose parent is not stored.
func checkParents(snapshot *domain.Chunk, result *validator.Result) {
	for _, n := range snapshot.Nodes() {
		if !n.IsRoot() && !snapshot.Has(n.ParentID) {
			result.AddError(fmt.Sprintf("Parent %s of %s is not stored", n.ParentID, n.ID), n.ID)
		}
	}
}
