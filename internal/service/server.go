package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"lionrepo/internal/domain"
	"lionrepo/internal/logging"
	"lionrepo/internal/repository"
	"lionrepo/internal/repository/memory"
	"lionrepo/internal/validator"
)

// Factory creates the repository backing a configuration.
type Factory func(repository.Configuration) (repository.Repository, error)

// consistencyChecker is implemented by repositories that can check their
// whole graph themselves.
type consistencyChecker interface {
	CheckConsistency() (*validator.Result, error)
}

// Server owns the named repositories of one process.
type Server struct {
	mu      sync.RWMutex
	repos   map[string]repository.Repository
	factory Factory
	bus     *EventBus
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger; nil discards.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logging.OrDiscard(logger)
	}
}

// WithEventBus publishes change events on bus.
func WithEventBus(bus *EventBus) Option {
	return func(s *Server) {
		s.bus = bus
	}
}

// WithFactory replaces how repositories are created.
func WithFactory(f Factory) Option {
	return func(s *Server) {
		s.factory = f
	}
}

// MemoryFactory creates in-memory repositories, each with its own id
// generator from newIDs. A nil newIDs keeps the default generator.
func MemoryFactory(newIDs func() repository.IDGenerator) Factory {
	return func(cfg repository.Configuration) (repository.Repository, error) {
		var opts []memory.Option
		if newIDs != nil {
			opts = append(opts, memory.WithIDGenerator(newIDs()))
		}
		return memory.New(cfg, opts...)
	}
}

// NewServer creates a server without repositories.
func NewServer(opts ...Option) *Server {
	s := &Server{
		repos:   make(map[string]repository.Repository),
		factory: MemoryFactory(nil),
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events returns the bus the server publishes on, or nil.
func (s *Server) Events() *EventBus {
	return s.bus
}

// CreateRepository registers a new, empty repository.
func (s *Server) CreateRepository(ctx context.Context, cfg repository.Configuration) error {
	if cfg.Name == "" {
		return fmt.Errorf("%w: empty repository name", repository.ErrInvalidArgument)
	}
	if cfg.History == repository.HistoryEnabled {
		return fmt.Errorf("create repository %s: %w", cfg.Name, repository.ErrHistoryUnsupported)
	}

	s.mu.Lock()
	if _, ok := s.repos[cfg.Name]; ok {
		s.mu.Unlock()
		return fmt.Errorf("create repository %s: %w", cfg.Name, repository.ErrRepositoryExists)
	}
	repo, err := s.factory(cfg)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.repos[cfg.Name] = repo
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "repository created", "repository", cfg.Name, "lionweb_version", cfg.LionWebVersion)
	s.bus.Publish(Event{Type: EventRepositoryCreated, Repository: cfg.Name, Payload: cfg})
	return nil
}

// DeleteRepository drops a repository and all of its nodes.
func (s *Server) DeleteRepository(ctx context.Context, name string) error {
	s.mu.Lock()
	if _, ok := s.repos[name]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete repository %s: %w", name, repository.ErrRepositoryNotFound)
	}
	delete(s.repos, name)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "repository deleted", "repository", name)
	s.bus.Publish(Event{Type: EventRepositoryDeleted, Repository: name})
	return nil
}

// ListRepositories returns every configuration, sorted by name.
func (s *Server) ListRepositories(ctx context.Context) []repository.Configuration {
	s.mu.RLock()
	out := make([]repository.Configuration, 0, len(s.repos))
	for _, repo := range s.repos {
		out = append(out, repo.Configuration())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Repository looks up a repository by name.
func (s *Server) Repository(name string) (repository.Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	repo, ok := s.repos[name]
	if !ok {
		return nil, fmt.Errorf("repository %s: %w", name, repository.ErrRepositoryNotFound)
	}
	return repo, nil
}

// ListPartitions returns the partition ids of a repository with its
// current version.
func (s *Server) ListPartitions(ctx context.Context, name string) ([]string, repository.VersionToken, error) {
	repo, err := s.Repository(name)
	if err != nil {
		return nil, 0, err
	}
	return repo.ListPartitions(), repo.Version(), nil
}

// CreatePartitions registers the roots among nodes as partitions and stores
// every node.
func (s *Server) CreatePartitions(ctx context.Context, name string, nodes []*domain.Node) (*repository.Mutation, error) {
	repo, err := s.Repository(name)
	if err != nil {
		return nil, err
	}
	m, err := repo.CreatePartitions(nodes)
	if err != nil {
		return nil, fmt.Errorf("create partitions in %s: %w", name, err)
	}
	s.logger.DebugContext(ctx, "partitions created", "repository", name, "partitions", m.CreatedPartitions, "version", m.Version)
	for _, id := range m.CreatedPartitions {
		s.bus.Publish(Event{Type: EventPartitionAdded, Repository: name, Payload: map[string]any{"partition": id}})
	}
	s.published(name, m)
	return m, nil
}

// DeletePartitions removes partitions and everything they contain.
func (s *Server) DeletePartitions(ctx context.Context, name string, ids []string) (*repository.Mutation, error) {
	repo, err := s.Repository(name)
	if err != nil {
		return nil, err
	}
	m, err := repo.DeletePartitions(ids)
	if err != nil {
		return nil, fmt.Errorf("delete partitions in %s: %w", name, err)
	}
	s.logger.DebugContext(ctx, "partitions deleted", "repository", name, "partitions", ids, "nodes", len(m.Deleted), "version", m.Version)
	for _, id := range m.DeletedPartitions {
		s.bus.Publish(Event{Type: EventPartitionRemoved, Repository: name, Payload: map[string]any{"partition": id}})
	}
	s.published(name, m)
	return m, nil
}

// Store writes nodes into a repository.
func (s *Server) Store(ctx context.Context, name string, nodes []*domain.Node) (*repository.Mutation, error) {
	repo, err := s.Repository(name)
	if err != nil {
		return nil, err
	}
	m, err := repo.Store(nodes)
	if err != nil {
		return nil, fmt.Errorf("store in %s: %w", name, err)
	}
	s.logger.DebugContext(ctx, "nodes stored", "repository", name, "nodes", len(nodes), "deleted", len(m.Deleted), "version", m.Version)
	s.published(name, m)
	return m, nil
}

func (s *Server) published(name string, m *repository.Mutation) {
	if len(m.Deleted) > 0 {
		s.bus.Publish(Event{Type: EventNodesDeleted, Repository: name, Payload: map[string]any{"ids": m.Deleted}})
	}
	s.bus.Publish(Event{Type: EventVersionBumped, Repository: name, Payload: map[string]any{"version": m.Version.String()}})
}

// Retrieve returns the subtrees under ids down to depth.
func (s *Server) Retrieve(ctx context.Context, name string, ids []string, depth int) (*domain.Chunk, repository.VersionToken, error) {
	repo, err := s.Repository(name)
	if err != nil {
		return nil, 0, err
	}
	chunk, err := repo.Retrieve(ids, depth)
	if err != nil {
		return nil, 0, fmt.Errorf("retrieve from %s: %w", name, err)
	}
	return chunk, repo.Version(), nil
}

// IDs reserves count ids that are free in the repository.
func (s *Server) IDs(ctx context.Context, name string, count int) ([]string, error) {
	repo, err := s.Repository(name)
	if err != nil {
		return nil, err
	}
	ids, err := repo.IDs(count)
	if err != nil {
		return nil, fmt.Errorf("ids from %s: %w", name, err)
	}
	return ids, nil
}

// ChangeProperty sets one property of a stored node.
func (s *Server) ChangeProperty(ctx context.Context, name, nodeID string, property *domain.MetaPointer, value *string) (*repository.PropertyChange, error) {
	repo, err := s.Repository(name)
	if err != nil {
		return nil, err
	}
	change, err := repo.SetProperty(nodeID, property, value)
	if err != nil {
		return nil, fmt.Errorf("change property in %s: %w", name, err)
	}
	s.logger.DebugContext(ctx, "property changed", "repository", name, "node", nodeID, "property", property.String(), "version", change.Version)
	s.bus.Publish(Event{Type: EventPropertyChanged, Repository: name, Payload: map[string]any{
		"node":     nodeID,
		"property": property.String(),
		"old":      change.OldValue,
		"new":      change.NewValue,
	}})
	s.bus.Publish(Event{Type: EventVersionBumped, Repository: name, Payload: map[string]any{"version": change.Version.String()}})
	return change, nil
}

// NodesByClassifier groups the nodes of a repository by classifier.
func (s *Server) NodesByClassifier(ctx context.Context, name string, limit int) (map[repository.ClassifierKey]repository.Group, error) {
	repo, err := s.Repository(name)
	if err != nil {
		return nil, err
	}
	return repo.NodesByClassifier(limit), nil
}

// NodesByLanguage groups the nodes of a repository by language key.
func (s *Server) NodesByLanguage(ctx context.Context, name string, limit int) (map[string]repository.Group, error) {
	repo, err := s.Repository(name)
	if err != nil {
		return nil, err
	}
	return repo.NodesByLanguage(limit), nil
}

// CheckConsistency validates the whole graph of a repository.
func (s *Server) CheckConsistency(ctx context.Context, name string) (*validator.Result, error) {
	repo, err := s.Repository(name)
	if err != nil {
		return nil, err
	}
	var result *validator.Result
	if checker, ok := repo.(consistencyChecker); ok {
		result, err = checker.CheckConsistency()
	} else {
		result, err = validator.ChunkValidator{}.Validate(repo.Snapshot())
	}
	if err != nil {
		return nil, err
	}
	if !result.IsSuccessful() {
		s.logger.WarnContext(ctx, "repository is inconsistent", "repository", name, "issues", result.Len())
	}
	return result, nil
}
