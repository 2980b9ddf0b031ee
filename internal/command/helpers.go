package command

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
)

// renderMarkdown renders body_md for terminal display the way the
// dashboard renders assistant output, falling back to the raw text if
// no renderer could be constructed for the current terminal.
func renderMarkdown(body string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return body
	}
	out, err := r.Render(body)
	if err != nil {
		return body
	}
	return strings.TrimRight(out, "\n")
}

// splitCommaList splits a comma-separated flag value into trimmed,
// non-empty parts.
func splitCommaList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// emitJSON writes v to w as a single JSON line.
func emitJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	return enc.Encode(v)
}
