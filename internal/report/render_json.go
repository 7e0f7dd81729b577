package report

import (
	"encoding/json"
	"io"

	"github.com/veridianlabs/hipaascope/internal/models"
)

// JSONRenderer writes a view as machine-readable JSON.
type JSONRenderer struct {
	writer io.Writer
	pretty bool
}

// NewJSONRenderer creates a JSON renderer.
func NewJSONRenderer(writer io.Writer, pretty bool) *JSONRenderer {
	return &JSONRenderer{writer: writer, pretty: pretty}
}

// Render writes the view.
func (r *JSONRenderer) Render(view models.ReportView) error {
	var data []byte
	var err error

	if r.pretty {
		data, err = json.MarshalIndent(view, "", "  ")
	} else {
		data, err = json.Marshal(view)
	}
	if err != nil {
		return err
	}

	if _, err = r.writer.Write(data); err != nil {
		return err
	}

	// Trailing newline for terminal output
	_, err = r.writer.Write([]byte("\n"))
	return err
}
