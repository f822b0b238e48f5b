package format

import (
	"encoding/json"
	"fmt"
	"io"
)

const (
	JSON = "json"
	Text = "text"
)

// Write writes output in the requested format.
//
// Supported formats:
// - json (default): v wrapped as {"data": v}
// - text: outlines, tables and one-line summaries for the types this package knows;
//   anything else falls back to indented JSON
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", JSON:
		return WriteJSON(w, map[string]any{"data": v}, pretty)
	case Text:
		return WriteText(w, v)
	default:
		return fmt.Errorf("unknown format: %s (expected json or text)", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}
