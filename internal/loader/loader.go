// Package loader fills repositories from chunk files on disk.
//
// A seed file is a chunk in any format the codec package reads, picked by
// file extension. Loading makes the repository match the file: roots that
// are not partitions yet are created empty first, every node of the file is
// then stored, and partitions missing from the file are deleted.
package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/dustin/go-humanize"

	"lionrepo/internal/codec"
	"lionrepo/internal/domain"
	"lionrepo/internal/logging"
	"lionrepo/internal/service"
	"lionrepo/internal/validator"
)

// Report describes one load.
type Report struct {
	Path       string
	Repository string
	Bytes      uint64
	Nodes      int
	Created    []string
	Removed    []string
	Deleted    int
	Version    string
}

func (r *Report) String() string {
	return fmt.Sprintf("%s -> %s: %s nodes from %s, %d partitions created, %d removed, %d nodes deleted, %s",
		r.Path, r.Repository, humanize.Comma(int64(r.Nodes)), humanize.Bytes(r.Bytes),
		len(r.Created), len(r.Removed), r.Deleted, r.Version)
}

// Loader loads seed files into the repositories of a server.
type Loader struct {
	svc      *service.Server
	interner *domain.Interner
	logger   *slog.Logger
}

// New creates a loader. A nil interner selects domain.DefaultInterner.
func New(svc *service.Server, interner *domain.Interner, logger *slog.Logger) *Loader {
	return &Loader{svc: svc, interner: interner, logger: logging.OrDiscard(logger)}
}

// ReadFile decodes the chunk stored at path and returns it with the number
// of bytes read.
func ReadFile(path string, in *domain.Interner) (*domain.Chunk, uint64, error) {
	c, err := codec.ForPath(path, in)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open seed: %w", err)
	}
	defer f.Close()

	counter := &countingReader{r: f}
	chunk, err := c.Decode(counter)
	if err != nil {
		return nil, counter.n, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return chunk, counter.n, nil
}

// Load reads path and makes repository match it.
func (l *Loader) Load(ctx context.Context, repository, path string) (*Report, error) {
	chunk, size, err := ReadFile(path, l.interner)
	if err != nil {
		return nil, err
	}
	result, err := validator.ChunkValidator{}.Validate(chunk)
	if err != nil {
		return nil, err
	}
	if !result.IsSuccessful() {
		return nil, fmt.Errorf("invalid seed %s: %w", path, result.Err())
	}

	report, err := l.apply(ctx, repository, chunk)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	report.Path = path
	report.Bytes = size
	l.logger.InfoContext(ctx, "seed loaded",
		"path", path,
		"repository", repository,
		"size", humanize.Bytes(size),
		"nodes", report.Nodes,
		"created", len(report.Created),
		"removed", len(report.Removed),
		"version", report.Version,
	)
	return report, nil
}

func (l *Loader) apply(ctx context.Context, repository string, chunk *domain.Chunk) (*Report, error) {
	existing, _, err := l.svc.ListPartitions(ctx, repository)
	if err != nil {
		return nil, err
	}
	report := &Report{Repository: repository, Nodes: chunk.Len()}

	var fresh []*domain.Node
	inFile := make(map[string]struct{})
	for _, root := range chunk.Roots() {
		inFile[root.ID] = struct{}{}
		if slices.Contains(existing, root.ID) {
			continue
		}
		empty := root.Clone()
		empty.ClearContainments()
		empty.SetAnnotations(nil)
		fresh = append(fresh, empty)
	}

	var stale []string
	for _, id := range existing {
		if _, ok := inFile[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		m, err := l.svc.DeletePartitions(ctx, repository, stale)
		if err != nil {
			return nil, err
		}
		report.Removed = m.DeletedPartitions
		report.Deleted += len(m.Deleted)
		report.Version = m.Version.String()
	}
	if len(fresh) > 0 {
		m, err := l.svc.CreatePartitions(ctx, repository, fresh)
		if err != nil {
			return nil, err
		}
		report.Created = m.CreatedPartitions
		report.Version = m.Version.String()
	}
	if chunk.Len() > 0 {
		m, err := l.svc.Store(ctx, repository, chunk.Nodes())
		if err != nil {
			return nil, err
		}
		report.Deleted += len(m.Deleted)
		report.Version = m.Version.String()
	}
	return report, nil
}

type countingReader struct {
	r io.Reader
	n uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += uint64(n)
	return n, err
}
