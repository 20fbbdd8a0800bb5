package contract

import (
	"fmt"
	"os"
)

// LogWarn prints a non-fatal diagnostic to stderr. Used when an analyzer
// degrades to partial under the run deadline or a durable cache write fails.
func LogWarn(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "warn: "+msg+"\n", args...)
}

// LogFatal prints a fatal diagnostic to stderr. Callers in internal/cli are
// responsible for translating this into a process exit code; the core
// itself never calls os.Exit.
func LogFatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
}
