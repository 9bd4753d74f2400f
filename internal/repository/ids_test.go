package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lionrepo/internal/domain"
)

func TestNewIDGenerator(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		prefix   string
		first    string
		wantErr  bool
	}{
		{"default", "", "", "id-1", false},
		{"sequential prefix", "sequential", "node", "node-1", false},
		{"prefix with dot", "sequential", "my.prefix", "", true},
		{"prefix with space", "Sequential", "a b", "", true},
		{"unknown strategy", "random", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := NewIDGenerator(tt.strategy, tt.prefix)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.first, gen.Next())
		})
	}

	gen, err := NewIDGenerator("uuid", "ignored.prefix")
	require.NoError(t, err)
	assert.True(t, domain.IsValidID(gen.Next()))
}
