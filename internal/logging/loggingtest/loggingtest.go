// Package loggingtest provides loggers for tests.
package loggingtest

import (
	"log/slog"
	"strings"
	"testing"
)

// New returns a debug logger that writes through t.Log, so output only
// shows for failing tests or with -v.
func New(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(writer{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type writer struct {
	t testing.TB
}

func (w writer) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
