package uthread

import (
	"fmt"
	"os"
)

// Logger is the minimal diagnostic sink the scheduler reports through.
// Scheduling decisions are not part of the library's public contract,
// so this stays a one-method interface rather than a structured
// logging dependency.
type Logger interface {
	Debugf(format string, args ...any)
}

// noopLogger discards everything; it is the default until SetLogger is called.
type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}

// stderrLogger is a trivial Logger for callers that just want to see
// the scheduler's decisions while debugging.
type stderrLogger struct{}

// StderrLogger returns a Logger that writes prefixed lines to os.Stderr.
func StderrLogger() Logger { return stderrLogger{} }

func (stderrLogger) Debugf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "uthread: "+format+"\n", args...)
}
