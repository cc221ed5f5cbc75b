package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Observed is a logger that records entries for assertions in tests.
type Observed struct {
	Logger *zap.Logger
	logs   *observer.ObservedLogs
}

// NewObserved creates a debug-level logger backed by an in-memory observer.
func NewObserved() *Observed {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Observed{Logger: zap.New(core), logs: logs}
}

// All returns all logged entries.
func (o *Observed) All() []observer.LoggedEntry {
	return o.logs.All()
}

// AssertLogged verifies a log at level containing msgContains was written.
func (o *Observed) AssertLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	for _, entry := range o.logs.All() {
		if entry.Level == level && strings.Contains(entry.Message, msgContains) {
			return
		}
	}
	tb.Errorf("expected log at %v containing %q, logs: %+v", level, msgContains, o.logs.All())
}
