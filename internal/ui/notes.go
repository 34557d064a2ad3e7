package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// RenderNotes renders release notes (GitHub markdown) for the terminal.
// With color disabled the plain "notty" style is used. Rendering errors
// fall back to the raw text.
func RenderNotes(notes string, width int, color bool) string {
	if strings.TrimSpace(notes) == "" {
		return ""
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if color {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return notes
	}
	out, err := r.Render(notes)
	if err != nil {
		return notes
	}
	return strings.Trim(out, "\n")
}
