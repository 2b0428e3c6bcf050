// Package log adapts the core's five-severity Logger contract onto clog,
// the structured logger used throughout the codebase.
package log

import (
	"context"

	"github.com/chainguard-dev/clog"
)

// Logger is the external collaborator spec'd for the core: five
// severities, no return value, must never panic. The orchestrator and
// the build driver obtain one with FromContext; pkg/config, pkg/db and
// pkg/tsicfg log through clog.FromContext directly instead.
type Logger interface {
	Developer(msg string, kv ...any)
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warning(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// clogAdapter implements Logger on top of a *clog.Logger.
type clogAdapter struct {
	l *clog.Logger
}

// Adapt wraps a clog.Logger so it satisfies Logger. Developer-level
// messages are emitted at clog's Debug level with a level="developer" attribute,
// since clog has no separate sixth level below debug.
func Adapt(l *clog.Logger) Logger {
	return &clogAdapter{l: l}
}

// FromContext returns a Logger backed by whatever clog.Logger is
// attached to ctx (or clog's default if none is).
func FromContext(ctx context.Context) Logger {
	return Adapt(clog.FromContext(ctx))
}

func (a *clogAdapter) Developer(msg string, kv ...any) {
	a.l.With("level", "developer").Debug(msg, kv...)
}

func (a *clogAdapter) Debug(msg string, kv ...any) {
	a.l.Debug(msg, kv...)
}

func (a *clogAdapter) Info(msg string, kv ...any) {
	a.l.Info(msg, kv...)
}

func (a *clogAdapter) Warning(msg string, kv ...any) {
	a.l.Warn(msg, kv...)
}

func (a *clogAdapter) Error(msg string, kv ...any) {
	a.l.Error(msg, kv...)
}

// Nop returns a Logger that discards everything. Useful as a default
// for components constructed without an explicit Logger.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Developer(string, ...any) {}
func (nopLogger) Debug(string, ...any)     {}
func (nopLogger) Info(string, ...any)      {}
func (nopLogger) Warning(string, ...any)   {}
func (nopLogger) Error(string, ...any)     {}
