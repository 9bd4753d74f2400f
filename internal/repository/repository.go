package repository

import (
	"strconv"

	"lionrepo/internal/domain"
)

// HistorySupport tells whether a repository keeps past versions.
type HistorySupport bool

const (
	HistoryDisabled HistorySupport = false
	HistoryEnabled  HistorySupport = true
)

// Configuration describes a repository.
type Configuration struct {
	Name           string         `json:"name"`
	LionWebVersion string         `json:"lionWebVersion"`
	History        HistorySupport `json:"history"`
}

// VersionToken marks the state of a repository after a mutation. Tokens of
// one repository grow monotonically.
type VersionToken int64

func (v VersionToken) String() string {
	return "v-" + strconv.FormatInt(int64(v), 10)
}

// ClassifierKey identifies a classifier by language key and element key.
type ClassifierKey struct {
	Language   string `json:"language"`
	Classifier string `json:"classifier"`
}

// Group is an inspection bucket: Size counts every member, IDs holds at
// most the requested number of them.
type Group struct {
	IDs  []string `json:"ids"`
	Size int      `json:"size"`
}

// NoLimit requests every member id in inspection groups.
const NoLimit = -1

// Unlimited as a retrieve depth walks whole subtrees.
const Unlimited = int(^uint32(0) >> 1)

// Mutation summarizes the effect of a write.
type Mutation struct {
	Version           VersionToken
	CreatedPartitions []string
	DeletedPartitions []string
	// Deleted lists every node removed, partitions included.
	Deleted []string
}

// PropertyChange is the effect of setting one property.
type PropertyChange struct {
	Version  VersionToken
	NodeID   string
	Property *domain.MetaPointer
	OldValue *string
	NewValue *string
}

// Repository is one named graph of partitions. Implementations serialize
// writes and let reads observe only whole mutations.
type Repository interface {
	Configuration() Configuration
	Version() VersionToken

	ListPartitions() []string
	CreatePartitions(nodes []*domain.Node) (*Mutation, error)
	DeletePartitions(ids []string) (*Mutation, error)
	Store(nodes []*domain.Node) (*Mutation, error)
	Retrieve(ids []string, depth int) (*domain.Chunk, error)
	IDs(count int) ([]string, error)
	SetProperty(nodeID string, property *domain.MetaPointer, value *string) (*PropertyChange, error)

	NodesByClassifier(limit int) map[ClassifierKey]Group
	NodesByLanguage(limit int) map[string]Group
	// Snapshot returns a chunk with a copy of every stored node.
	Snapshot() *domain.Chunk
}
