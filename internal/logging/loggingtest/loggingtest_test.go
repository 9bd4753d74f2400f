package loggingtest

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogsAtDebug(t *testing.T) {
	logger := New(t)
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))
	logger.Debug("visible with -v", "key", "value")
}
