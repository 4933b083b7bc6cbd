// Package vmlog is a minimal diagnostic logger used only by cmd/adtvm.
// The VM core (linker, heap, vm) never imports this: it reports failures
// as returned errors, never by logging, matching wazero's own restraint
// of keeping its core library free of a logging dependency.
package vmlog

import (
	"io"
	"log"
)

// Logger writes verbose diagnostics, gated by an enabled flag so -v can
// toggle it without callers branching on it themselves.
type Logger struct {
	enabled bool
	l       *log.Logger
}

// New returns a Logger writing to w when enabled is true, and discarding
// everything otherwise.
func New(w io.Writer, enabled bool) *Logger {
	return &Logger{enabled: enabled, l: log.New(w, "", 0)}
}

// Printf logs a diagnostic line when the logger is enabled.
func (l *Logger) Printf(format string, args ...interface{}) {
	if l == nil || !l.enabled {
		return
	}
	l.l.Printf(format, args...)
}
