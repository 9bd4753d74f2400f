package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lionrepo/internal/codec"
	"lionrepo/internal/domain"
	"lionrepo/internal/logging/loggingtest"
	"lionrepo/internal/repository"
	"lionrepo/internal/service"
)

var (
	board   = domain.NewMetaPointer("kanban", "1", "Board")
	card    = domain.NewMetaPointer("kanban", "1", "Card")
	cards   = domain.NewMetaPointer("kanban", "1", "cards")
	comment = domain.NewMetaPointer("kanban", "1", "Comment")
)

func writeSeed(t *testing.T, name string, chunk *domain.Chunk) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	c, err := codec.ForPath(path, nil)
	require.NoError(t, err)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, c.Encode(chunk, f))
	require.NoError(t, f.Close())
	return path
}

func boards(ids ...string) *domain.Chunk {
	b := domain.NewTreeBuilder()
	for _, id := range ids {
		root := b.Root(id, board)
		root.Child(cards, id+"-todo", card)
		root.Annotate(id+"-note", comment)
	}
	return b.Chunk("2023.1")
}

func newLoader(t *testing.T) (*Loader, *service.Server) {
	t.Helper()
	svc := service.NewServer()
	require.NoError(t, svc.CreateRepository(context.Background(), repository.Configuration{Name: "kanban", LionWebVersion: "2023.1"}))
	return New(svc, nil, loggingtest.New(t)), svc
}

func TestLoadSeedFormats(t *testing.T) {
	for _, name := range []string{"seed.json", "seed.yaml", "seed.json.zst"} {
		t.Run(name, func(t *testing.T) {
			l, svc := newLoader(t)
			path := writeSeed(t, name, boards("b1", "b2"))

			report, err := l.Load(context.Background(), "kanban", path)
			require.NoError(t, err)
			assert.Equal(t, []string{"b1", "b2"}, report.Created)
			assert.Equal(t, 6, report.Nodes)
			assert.NotZero(t, report.Bytes)
			assert.Contains(t, report.String(), "kanban")

			chunk, _, err := svc.Retrieve(context.Background(), "kanban", []string{"b1", "b2"}, repository.Unlimited)
			require.NoError(t, err)
			assert.True(t, boards("b1", "b2").Equal(chunk))
		})
	}
}

func TestReloadRemovesStalePartitions(t *testing.T) {
	ctx := context.Background()
	l, svc := newLoader(t)

	_, err := l.Load(ctx, "kanban", writeSeed(t, "first.json", boards("b1", "b2")))
	require.NoError(t, err)

	report, err := l.Load(ctx, "kanban", writeSeed(t, "second.json", boards("b2", "b3")))
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, report.Removed)
	assert.Equal(t, []string{"b3"}, report.Created)
	assert.Equal(t, 3, report.Deleted)

	ids, _, err := svc.ListPartitions(ctx, "kanban")
	require.NoError(t, err)
	assert.Equal(t, []string{"b2", "b3"}, ids)
}

func TestLoadRejectsInvalidSeeds(t *testing.T) {
	l, svc := newLoader(t)

	broken := boards("b1")
	n, _ := broken.NodeByID("b1-todo")
	n.ParentID = "elsewhere"
	_, err := l.Load(context.Background(), "kanban", writeSeed(t, "broken.json", broken))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid seed")

	ids, _, err := svc.ListPartitions(context.Background(), "kanban")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLoadErrors(t *testing.T) {
	l, _ := newLoader(t)
	ctx := context.Background()

	_, err := l.Load(ctx, "kanban", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = l.Load(ctx, "kanban", filepath.Join(t.TempDir(), "seed.txt"))
	assert.Error(t, err)

	_, err = l.Load(ctx, "nowhere", writeSeed(t, "seed.json", boards("b1")))
	assert.ErrorIs(t, err, repository.ErrRepositoryNotFound)
}
