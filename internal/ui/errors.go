package ui

import (
	"fmt"
	"io"
	"strings"
)

// ErrorMessage represents a structured, actionable error to present to users.
type ErrorMessage struct {
	Problem string   // one-line problem statement
	Causes  []string // possible causes
	Actions []string // actionable steps to resolve
	Hints   []string // optional hints (e.g., commands to try)
}

// Format renders the error using the color theme. It does not include ANSI
// codes when colors are disabled (NO_COLOR or dumb terminal).
func (e ErrorMessage) Format(c *ColorConfig) string {
	var b strings.Builder
	b.WriteString(c.Error("✗ "))
	b.WriteString(c.Header("Error"))
	b.WriteString("\n")
	if e.Problem != "" {
		fmt.Fprintf(&b, "  %s: %s\n", c.Label("Problem"), e.Problem)
	}
	list := func(title, bullet string, items []string, style func(string) string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "  %s:\n", c.Label(title))
		for _, it := range items {
			fmt.Fprintf(&b, "   %s %s\n", bullet, style(it))
		}
	}
	plain := func(s string) string { return s }
	list("Possible causes", "•", e.Causes, plain)
	list("Try", "→", e.Actions, plain)
	list("Hints", "·", e.Hints, c.Description)
	return b.String()
}

// PrintError writes the structured error to w using the current theme.
func PrintError(w io.Writer, e ErrorMessage) {
	fmt.Fprintln(w, e.Format(NewColorConfigFromGlobal()))
}
