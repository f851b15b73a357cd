package output

import (
	"fmt"
	"io"
)

// Warn writes a warning line, typically to stderr.
func Warn(w io.Writer, msg string) {
	_, _ = fmt.Fprintln(w, "WARNING: "+msg)
}

// Warnf writes a formatted warning line.
func Warnf(w io.Writer, format string, args ...any) {
	Warn(w, fmt.Sprintf(format, args...))
}

// Step writes a progress line for a workflow step.
func Step(w io.Writer, name string) {
	_, _ = fmt.Fprintln(w, "-> "+name)
}
