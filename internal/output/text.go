package output

import (
	"fmt"
	"io"
	"strings"
)

// TextWriter writes plain strings, each ending in exactly one newline.
type TextWriter struct {
	w io.Writer
}

// NewTextWriter creates a text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

// Write accepts a string or a fmt.Stringer.
func (w *TextWriter) Write(v any) error {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case fmt.Stringer:
		s = t.String()
	default:
		return fmt.Errorf("text output cannot render %T", v)
	}
	_, err := io.WriteString(w.w, strings.TrimRight(s, "\n")+"\n")
	return err
}

// Close is a no-op.
func (w *TextWriter) Close() error {
	return nil
}
