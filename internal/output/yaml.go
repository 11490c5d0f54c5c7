package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes a YAML stream, one document per value.
type YAMLWriter struct {
	enc *yaml.Encoder
}

// NewYAMLWriter creates a YAML writer. indent below 2 defaults to 2.
func NewYAMLWriter(w io.Writer, indent int) *YAMLWriter {
	if indent < 2 {
		indent = 2
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(indent)
	return &YAMLWriter{enc: enc}
}

// Write encodes v as the next document.
func (w *YAMLWriter) Write(v any) error {
	return w.enc.Encode(v)
}

// Close terminates the stream.
func (w *YAMLWriter) Close() error {
	return w.enc.Close()
}
