// Package memory implements repository.Repository in process memory.
//
// Nodes live in an arena addressed by uint32 handles; string ids are only
// used at the API boundary. Each repository is guarded by one RWMutex held
// for the whole of every operation, so readers see either the state before
// a write or the state after it.
package memory

import (
	"fmt"
	"sort"
	"sync"

	"lionrepo/internal/domain"
	"lionrepo/internal/repository"
)

// Repository is an in-memory repository.Repository.
type Repository struct {
	mu         sync.RWMutex
	config     repository.Configuration
	partitions []string
	arena      *arena
	version    repository.VersionToken
	ids        repository.IDGenerator
}

var _ repository.Repository = (*Repository)(nil)

// maxIDRetries bounds the unusable candidates IDs accepts beyond one per
// stored node.
const maxIDRetries = 64

// Option configures a Repository.
type Option func(*Repository)

// WithIDGenerator replaces the default sequential id generator.
func WithIDGenerator(g repository.IDGenerator) Option {
	return func(r *Repository) {
		r.ids = g
	}
}

// New creates an empty repository. History is not supported.
func New(config repository.Configuration, opts ...Option) (*Repository, error) {
	if config.History == repository.HistoryEnabled {
		return nil, fmt.Errorf("create repository %s: %w", config.Name, repository.ErrHistoryUnsupported)
	}
	r := &Repository{
		config: config,
		arena:  newArena(),
		ids:    repository.NewSequentialIDs(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Configuration returns the configuration the repository was created with.
func (r *Repository) Configuration() repository.Configuration {
	return r.config
}

// Version returns the token of the latest mutation.
func (r *Repository) Version() repository.VersionToken {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Len returns the number of stored nodes.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.arena.len()
}

// ListPartitions returns the partition ids in creation order.
func (r *Repository) ListPartitions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.partitions))
	copy(out, r.partitions)
	return out
}

// graphView adapts the repository state, plus partitions about to be
// registered, to Graph. Callers hold the lock.
type graphView struct {
	r       *Repository
	pending map[string]struct{}
}

func (g graphView) Node(id string) (*domain.Node, bool) {
	return g.r.arena.get(id)
}

func (g graphView) IsPartition(id string) bool {
	if _, ok := g.pending[id]; ok {
		return true
	}
	return g.r.isPartition(id)
}

func (r *Repository) isPartition(id string) bool {
	for _, p := range r.partitions {
		if p == id {
			return true
		}
	}
	return false
}

// CreatePartitions registers every root in nodes as a new partition and
// stores all of nodes.
func (r *Repository) CreatePartitions(nodes []*domain.Node) (*repository.Mutation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make(map[string]struct{})
	var created []string
	for _, n := range nodes {
		if !n.IsRoot() {
			continue
		}
		switch {
		case r.isPartition(n.ID):
			return nil, &repository.NodeError{ID: n.ID, Role: repository.RolePartition, Err: repository.ErrPartitionExists}
		case r.arena.has(n.ID):
			return nil, &repository.NodeError{ID: n.ID, Role: repository.RolePartition, Err: repository.ErrIDCollision}
		}
		if _, dup := pending[n.ID]; dup {
			return nil, fmt.Errorf("%w: partition %s appears more than once", repository.ErrInvalidArgument, n.ID)
		}
		pending[n.ID] = struct{}{}
		created = append(created, n.ID)
	}

	plan, err := Diff(graphView{r: r, pending: pending}, nodes)
	if err != nil {
		return nil, err
	}
	r.partitions = append(r.partitions, created...)
	r.apply(plan)
	r.version++
	return &repository.Mutation{Version: r.version, CreatedPartitions: created, Deleted: plan.Deletes}, nil
}

// DeletePartitions removes each partition with its whole subtree. Every id
// must be a registered partition; otherwise nothing is removed.
func (r *Repository) DeletePartitions(ids []string) (*repository.Mutation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if !r.arena.has(id) {
			return nil, &repository.NodeError{ID: id, Role: repository.RolePartition, Err: repository.ErrUnknownNode}
		}
		if !r.isPartition(id) {
			return nil, &repository.NodeError{ID: id, Role: repository.RolePartition, Err: repository.ErrNotPartition}
		}
	}

	var deleted []string
	seen := make(map[string]struct{})
	for _, id := range ids {
		deleted = append(deleted, r.removeSubtree(id, seen)...)
	}
	remove := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		remove[id] = struct{}{}
	}
	kept := r.partitions[:0]
	for _, p := range r.partitions {
		if _, ok := remove[p]; !ok {
			kept = append(kept, p)
		}
	}
	r.partitions = kept
	r.version++
	return &repository.Mutation{Version: r.version, DeletedPartitions: append([]string(nil), ids...), Deleted: deleted}, nil
}

// removeSubtree hard-deletes id and everything below it.
func (r *Repository) removeSubtree(id string, seen map[string]struct{}) []string {
	var removed []string
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		n, ok := r.arena.remove(cur)
		if !ok {
			continue
		}
		removed = append(removed, cur)
		stack = append(stack, n.Children()...)
		stack = append(stack, n.Annotations()...)
	}
	return removed
}

// Store writes nodes, deleting whatever they no longer contain.
func (r *Repository) Store(nodes []*domain.Node) (*repository.Mutation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	plan, err := Diff(graphView{r: r}, nodes)
	if err != nil {
		return nil, err
	}
	r.apply(plan)
	r.version++
	return &repository.Mutation{Version: r.version, Deleted: plan.Deletes}, nil
}

func (r *Repository) apply(plan *Plan) {
	for _, d := range plan.Detach {
		if container, ok := r.arena.get(d.Container); ok {
			container.RemoveChild(d.Child)
			container.RemoveAnnotation(d.Child)
		}
	}
	for _, n := range plan.Upserts {
		r.arena.put(n)
	}
	for _, rp := range plan.Reparent {
		if n, ok := r.arena.get(rp.ID); ok {
			n.ParentID = rp.Parent
		}
	}
	for _, id := range plan.Deletes {
		r.arena.remove(id)
	}
}

// Retrieve returns copies of the nodes under ids, walking children and
// annotations depth levels down. Depth 0 returns the requested nodes only.
func (r *Repository) Retrieve(ids []string, depth int) (*domain.Chunk, error) {
	if depth < 0 {
		return nil, fmt.Errorf("%w: negative depth %d", repository.ErrInvalidArgument, depth)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range ids {
		if !r.arena.has(id) {
			return nil, &repository.NodeError{ID: id, Role: repository.RoleRoot, Err: repository.ErrUnknownNode}
		}
	}

	chunk := domain.NewChunk(r.config.LionWebVersion)
	explored := make(map[string]int)
	var walk func(id string, depth int, container string) error
	walk = func(id string, depth int, container string) error {
		if d, ok := explored[id]; ok && d >= depth {
			return nil
		}
		n, ok := r.arena.get(id)
		if !ok {
			return &repository.NodeError{ID: id, Role: repository.RoleChild, Container: container, Err: repository.ErrUnknownNode}
		}
		if _, ok := explored[id]; !ok {
			chunk.AddNode(n.Clone())
		}
		explored[id] = depth
		if depth == 0 {
			return nil
		}
		for _, child := range n.Children() {
			if err := walk(child, depth-1, id); err != nil {
				return err
			}
		}
		for _, ann := range n.Annotations() {
			if err := walk(ann, depth-1, id); err != nil {
				return err
			}
		}
		return nil
	}
	for _, id := range ids {
		if err := walk(id, depth, ""); err != nil {
			return nil, err
		}
	}
	chunk.PopulateUsedLanguages()
	return chunk, nil
}

// IDs returns count fresh ids that are not used by any stored node. A
// generator that keeps proposing unusable candidates fails the call once it
// has been refused more often than there are stored nodes.
func (r *Repository) IDs(count int) ([]string, error) {
	if count < 0 || count > repository.MaxIDCount {
		return nil, fmt.Errorf("%w: id count %d outside 0..%d", repository.ErrInvalidArgument, count, repository.MaxIDCount)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, count)
	rejected, budget := 0, r.arena.len()+maxIDRetries
	for len(out) < count {
		candidate := r.ids.Next()
		if !domain.IsValidID(candidate) || r.arena.has(candidate) {
			if rejected++; rejected > budget {
				return nil, fmt.Errorf("%w: id generator keeps proposing unusable ids, last %q", repository.ErrIDCollision, candidate)
			}
			continue
		}
		out = append(out, candidate)
	}
	return out, nil
}

// SetProperty changes one property of a stored node.
func (r *Repository) SetProperty(nodeID string, property *domain.MetaPointer, value *string) (*repository.PropertyChange, error) {
	if property == nil {
		return nil, fmt.Errorf("%w: nil property", repository.ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.arena.get(nodeID)
	if !ok {
		return nil, &repository.NodeError{ID: nodeID, Role: repository.RoleNode, Err: repository.ErrUnknownNode}
	}
	change := &repository.PropertyChange{NodeID: nodeID, Property: property, NewValue: value}
	if old, ok := n.PropertyValue(property); ok {
		change.OldValue = old.ValueRef()
	}
	n.SetProperty(property, value)
	r.version++
	change.Version = r.version
	return change, nil
}

// Snapshot returns copies of every stored node, partitions first.
func (r *Repository) Snapshot() *domain.Chunk {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Repository) snapshotLocked() *domain.Chunk {
	chunk := domain.NewChunk(r.config.LionWebVersion)
	for _, p := range r.partitions {
		if n, ok := r.arena.get(p); ok {
			chunk.AddNode(n.Clone())
		}
	}
	r.arena.each(func(n *domain.Node) {
		if !chunk.Has(n.ID) {
			chunk.AddNode(n.Clone())
		}
	})
	chunk.PopulateUsedLanguages()
	return chunk
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
