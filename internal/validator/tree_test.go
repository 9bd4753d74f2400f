package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lionrepo/internal/domain"
)

func TestNodeTreeValidator(t *testing.T) {
	partition := domain.NewMetaPointer("test-lang", "1.0", "Partition")
	onlyPartitions := NodeTreeValidator{IsPartition: PartitionSet(map[*domain.MetaPointer]struct{}{partition: {}})}

	tests := []struct {
		name     string
		nodes    func() []*domain.Node
		success  bool
		messages []string
	}{
		{
			name: "single partition root",
			nodes: func() []*domain.Node {
				return []*domain.Node{domain.NewNode("abc", partition, "")}
			},
			success: true,
		},
		{
			name: "empty id",
			nodes: func() []*domain.Node {
				return []*domain.Node{domain.NewNode("", partition, "")}
			},
			messages: []string{"ID null found"},
		},
		{
			name: "invalid id",
			nodes: func() []*domain.Node {
				return []*domain.Node{domain.NewNode("@@@", partition, "")}
			},
			messages: []string{"Invalid ID"},
		},
		{
			name: "root is not a partition",
			nodes: func() []*domain.Node {
				return []*domain.Node{domain.NewNode("N1", testConcept, "")}
			},
			messages: []string{"A root node should be an instance of a Partition concept"},
		},
		{
			name: "duplicate reached through annotation",
			nodes: func() []*domain.Node {
				root := domain.NewNode("root", partition, "")
				root.AddChild(testContainment, "dup")
				root.AddAnnotation("ann")
				ann := domain.NewNode("ann", testConcept, "root")
				ann.AddChild(testContainment, "dup")
				return []*domain.Node{root, domain.NewNode("dup", testConcept, "root"), ann, domain.NewNode("dup", testConcept, "ann")}
			},
			messages: []string{"Duplicate ID found: dup"},
		},
		{
			name: "two roots",
			nodes: func() []*domain.Node {
				return []*domain.Node{domain.NewNode("a", partition, ""), domain.NewNode("b", partition, "")}
			},
			messages: []string{"Expected exactly one root, found: [a, b]"},
		},
		{
			name: "disconnected node",
			nodes: func() []*domain.Node {
				return []*domain.Node{domain.NewNode("a", partition, ""), domain.NewNode("b", testConcept, "x")}
			},
			messages: []string{"Node is not reachable from the root"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := onlyPartitions.Validate(tt.nodes())
			require.NoError(t, err)
			assert.Equal(t, tt.success, result.IsSuccessful(), result.String())
			for _, msg := range tt.messages {
				assert.True(t, result.HasMessage(msg), "missing %q in %s", msg, result)
			}
		})
	}
}

func TestNodeTreeValidatorAcceptsAnyRootWithoutPredicate(t *testing.T) {
	result, err := NodeTreeValidator{}.Validate([]*domain.Node{domain.NewNode("N1", testConcept, "")})
	require.NoError(t, err)
	assert.True(t, result.IsSuccessful())

	_, err = NodeTreeValidator{}.Validate(nil)
	assert.ErrorIs(t, err, ErrNilInput)
}

func TestResultSetSemantics(t *testing.T) {
	r := NewResult()
	r.AddError("boom", "a")
	r.AddError("boom", "a")
	r.AddWarning("careful", "")
	assert.Equal(t, 2, r.Len())
	assert.False(t, r.IsSuccessful())
	assert.ErrorContains(t, r.Err(), "boom")

	ok := NewResult().AddWarning("only a warning", "")
	assert.True(t, ok.IsSuccessful())
	assert.NoError(t, ok.Err())
}
