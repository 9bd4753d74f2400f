package repository

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"lionrepo/internal/domain"
)

// MaxIDCount caps how many ids a single request may reserve.
const MaxIDCount = 100_000

// IDGenerator proposes candidate node ids. Callers skip candidates already
// in use, so generators only need to avoid repeating themselves.
type IDGenerator interface {
	Next() string
}

// SequentialIDs yields prefix-1, prefix-2, ...
type SequentialIDs struct {
	Prefix string
	next   uint64
}

// NewSequentialIDs creates a generator; an empty prefix becomes "id".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "id"
	}
	return &SequentialIDs{Prefix: prefix}
}

func (g *SequentialIDs) Next() string {
	g.next++
	return g.Prefix + "-" + strconv.FormatUint(g.next, 10)
}

// UUIDs yields random UUIDv4 strings, which satisfy the id grammar.
type UUIDs struct{}

func (UUIDs) Next() string {
	return uuid.NewString()
}

// NewIDGenerator builds a generator by strategy name: sequential or uuid.
// A sequential prefix must itself be a valid id.
func NewIDGenerator(strategy, prefix string) (IDGenerator, error) {
	switch strings.ToLower(strategy) {
	case "", "sequential":
		if prefix != "" && !domain.IsValidID(prefix) {
			return nil, fmt.Errorf("%w: id prefix %q is not a valid id", ErrInvalidArgument, prefix)
		}
		return NewSequentialIDs(prefix), nil
	case "uuid":
		return UUIDs{}, nil
	}
	return nil, fmt.Errorf("%w: unknown id strategy %q", ErrInvalidArgument, strategy)
}
