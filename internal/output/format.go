// Package output renders command results and errors for the onboard CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format is how a command result is rendered.
type Format string

// Output formats. Auto picks text on a terminal and JSON otherwise.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// Formatter renders results in one format to one writer.
type Formatter struct {
	format Format
	w      io.Writer
}

// NewFormatter returns a formatter writing format to w.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{format: format, w: w}
}

// Format returns the output format.
func (f *Formatter) Format() Format {
	return f.format
}

// IsJSON reports whether results are rendered as JSON.
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// To returns a formatter with the same format writing to w.
func (f *Formatter) To(w io.Writer) *Formatter {
	if f == nil {
		return NewFormatter(FormatText, w)
	}
	return NewFormatter(f.format, w)
}

// Emit writes v as JSON, or hands the writer to text for humans. A nil text
// renderer always falls back to JSON.
func (f *Formatter) Emit(v any, text func(w io.Writer) error) error {
	if text != nil && f.format != FormatJSON {
		return text(f.w)
	}
	return WriteJSON(f.w, v)
}

// Printf writes free-form text regardless of format.
func (f *Formatter) Printf(format string, args ...any) error {
	_, err := fmt.Fprintf(f.w, format, args...)
	return err
}

// WriteJSON encodes v as two-space indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Resolve turns a configured format name into a concrete format for w.
// Unknown names count as auto.
func Resolve(setting string, w io.Writer) Format {
	switch strings.ToLower(strings.TrimSpace(setting)) {
	case string(FormatJSON):
		return FormatJSON
	case string(FormatText):
		return FormatText
	}
	if isTerminal(w) {
		return FormatText
	}
	return FormatJSON
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // Fd fits in int on supported platforms
}
