package memory

import (
	"github.com/RoaringBitmap/roaring/v2"

	"lionrepo/internal/domain"
)

// handle is the arena slot of a node. String ids only exist at the edges;
// indexes work on handles.
type handle uint32

// arena stores nodes in a slice addressed by handle, reusing freed slots,
// and indexes handles by classifier.
type arena struct {
	slots        []*domain.Node
	handles      map[string]handle
	free         []handle
	byClassifier map[*domain.MetaPointer]*roaring.Bitmap
}

func newArena() *arena {
	return &arena{
		handles:      make(map[string]handle),
		byClassifier: make(map[*domain.MetaPointer]*roaring.Bitmap),
	}
}

func (a *arena) len() int {
	return len(a.handles)
}

func (a *arena) get(id string) (*domain.Node, bool) {
	h, ok := a.handles[id]
	if !ok {
		return nil, false
	}
	return a.slots[h], true
}

func (a *arena) has(id string) bool {
	_, ok := a.handles[id]
	return ok
}

// put inserts n or replaces the node with the same id.
func (a *arena) put(n *domain.Node) {
	if h, ok := a.handles[n.ID]; ok {
		old := a.slots[h]
		if old.Classifier != n.Classifier {
			a.unindex(old.Classifier, h)
			a.index(n.Classifier, h)
		}
		a.slots[h] = n
		return
	}

	var h handle
	if last := len(a.free) - 1; last >= 0 {
		h = a.free[last]
		a.free = a.free[:last]
		a.slots[h] = n
	} else {
		h = handle(len(a.slots))
		a.slots = append(a.slots, n)
	}
	a.handles[n.ID] = h
	a.index(n.Classifier, h)
}

func (a *arena) remove(id string) (*domain.Node, bool) {
	h, ok := a.handles[id]
	if !ok {
		return nil, false
	}
	n := a.slots[h]
	a.unindex(n.Classifier, h)
	a.slots[h] = nil
	a.free = append(a.free, h)
	delete(a.handles, id)
	return n, true
}

func (a *arena) index(mp *domain.MetaPointer, h handle) {
	bm, ok := a.byClassifier[mp]
	if !ok {
		bm = roaring.New()
		a.byClassifier[mp] = bm
	}
	bm.Add(uint32(h))
}

func (a *arena) unindex(mp *domain.MetaPointer, h handle) {
	bm, ok := a.byClassifier[mp]
	if !ok {
		return
	}
	bm.Remove(uint32(h))
	if bm.IsEmpty() {
		delete(a.byClassifier, mp)
	}
}

// each calls fn for every stored node in slot order.
func (a *arena) each(fn func(*domain.Node)) {
	for _, n := range a.slots {
		if n != nil {
			fn(n)
		}
	}
}

// ids resolves up to limit handles of bm to node ids; limit < 0 means all.
func (a *arena) ids(bm *roaring.Bitmap, limit int) []string {
	out := make([]string, 0)
	it := bm.Iterator()
	for it.HasNext() {
		if limit >= 0 && len(out) >= limit {
			break
		}
		out = append(out, a.slots[it.Next()].ID)
	}
	return out
}
