package output

import (
	"encoding/json"
	"io"
)

// JSONWriter writes one JSON document per value. Compact output is JSONL.
// HTML characters are not escaped so prices and product text stay readable.
type JSONWriter struct {
	enc *json.Encoder
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", indent)
	}
	return &JSONWriter{enc: enc}
}

// Write encodes v followed by a newline.
func (w *JSONWriter) Write(v any) error {
	return w.enc.Encode(v)
}

// Close is a no-op; every Write is unbuffered.
func (w *JSONWriter) Close() error {
	return nil
}
