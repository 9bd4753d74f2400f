package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lionrepo/internal/domain"
	"lionrepo/internal/repository"
)

var (
	testPartition = domain.NewMetaPointer("test-lang", "1", "Partition")
	testConcept   = domain.NewMetaPointer("test-lang", "1", "Concept")
	testNote      = domain.NewMetaPointer("notes", "2", "Note")
	testChildren  = domain.NewMetaPointer("test-lang", "1", "children")
	testName      = domain.NewMetaPointer("test-lang", "1", "name")
)

type fakeGraph struct {
	nodes      map[string]*domain.Node
	partitions map[string]bool
}

func newFakeGraph(nodes ...*domain.Node) *fakeGraph {
	g := &fakeGraph{nodes: make(map[string]*domain.Node), partitions: make(map[string]bool)}
	for _, n := range nodes {
		g.nodes[n.ID] = n
		if n.IsRoot() {
			g.partitions[n.ID] = true
		}
	}
	return g
}

func (g *fakeGraph) Node(id string) (*domain.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *fakeGraph) IsPartition(id string) bool { return g.partitions[id] }

func node(id, parent string, children ...string) *domain.Node {
	classifier := testConcept
	if parent == "" {
		classifier = testPartition
	}
	n := domain.NewNode(id, classifier, parent)
	for _, c := range children {
		n.AddChild(testChildren, c)
	}
	return n
}

func TestDiffDropsRemovedSubtrees(t *testing.T) {
	g := newFakeGraph(
		node("p", "", "a", "b"),
		node("a", "p", "a1"),
		node("a1", "a"),
		node("b", "p"),
	)

	plan, err := Diff(g, []*domain.Node{node("p", "", "b", "c"), node("c", "p")})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a1"}, plan.Deletes)
	assert.Len(t, plan.Upserts, 2)
	assert.Empty(t, plan.Reparent)
	assert.Empty(t, plan.Detach)
}

func TestDiffKeepsMovedNodes(t *testing.T) {
	g := newFakeGraph(
		node("p", "", "a", "b"),
		node("a", "p", "x"),
		node("x", "a"),
		node("b", "p"),
	)

	t.Run("moved node not in request is reparented", func(t *testing.T) {
		plan, err := Diff(g, []*domain.Node{node("a", "p"), node("b", "p", "x")})
		require.NoError(t, err)
		assert.Empty(t, plan.Deletes)
		assert.Equal(t, []Reparent{{ID: "x", Parent: "b"}}, plan.Reparent)
	})

	t.Run("moved node in request detaches from old container", func(t *testing.T) {
		plan, err := Diff(g, []*domain.Node{node("b", "p", "x"), node("x", "b")})
		require.NoError(t, err)
		assert.Empty(t, plan.Deletes)
		assert.Equal(t, []Detach{{Container: "a", Child: "x"}}, plan.Detach)
	})

	t.Run("move into a brand-new node", func(t *testing.T) {
		plan, err := Diff(g, []*domain.Node{node("a", "p", "n"), node("n", "a", "x")})
		require.NoError(t, err)
		assert.Empty(t, plan.Deletes)
		assert.Equal(t, []Reparent{{ID: "x", Parent: "n"}}, plan.Reparent)
	})
}

func TestDiffRejects(t *testing.T) {
	g := newFakeGraph(node("p", "", "a"), node("a", "p"), node("q", ""))

	tests := []struct {
		name     string
		incoming []*domain.Node
		role     string
		err      error
	}{
		{"root that is not a partition", []*domain.Node{node("q", "")}, repository.RoleRoot, repository.ErrNotPartition},
		{"unknown child", []*domain.Node{node("a", "p", "ghost")}, repository.RoleChild, repository.ErrUnknownNode},
		{"unknown parent", []*domain.Node{node("z", "ghost")}, repository.RoleParent, repository.ErrUnknownNode},
		{"malformed id", []*domain.Node{node("a b", "p")}, repository.RoleNode, repository.ErrInvalidArgument},
		{"partition listed as child", []*domain.Node{node("q", "", "p"), node("p", "q")}, repository.RolePartition, repository.ErrInvalidArgument},
		{"partition given a parent", []*domain.Node{node("p", "q")}, repository.RolePartition, repository.ErrInvalidArgument},
		{"child of a deleted container", []*domain.Node{node("p", ""), node("a", "p", "x"), node("x", "a")}, repository.RoleParent, repository.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Diff(g, tt.incoming)
			require.Error(t, err)
			assert.Nil(t, plan)
			assert.ErrorIs(t, err, tt.err)

			var nodeErr *repository.NodeError
			require.ErrorAs(t, err, &nodeErr)
			assert.Equal(t, tt.role, nodeErr.Role)
		})
	}

	t.Run("duplicate ids", func(t *testing.T) {
		_, err := Diff(g, []*domain.Node{node("a", "p"), node("a", "p")})
		assert.ErrorIs(t, err, repository.ErrInvalidArgument)
	})
}

func TestDiffUnknownAnnotation(t *testing.T) {
	g := newFakeGraph(node("p", ""))
	p := node("p", "")
	p.AddAnnotation("ghost")

	_, err := Diff(g, []*domain.Node{p})
	var nodeErr *repository.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, repository.RoleAnnotation, nodeErr.Role)
	assert.Equal(t, "p", nodeErr.Container)
}

func TestDiffDoesNotMutateInput(t *testing.T) {
	g := newFakeGraph(node("p", "", "a"), node("a", "p"))
	in := node("p", "")

	plan, err := Diff(g, []*domain.Node{in})
	require.NoError(t, err)
	require.Len(t, plan.Upserts, 1)
	assert.NotSame(t, in, plan.Upserts[0])
	assert.True(t, in.Equal(plan.Upserts[0]))
}
