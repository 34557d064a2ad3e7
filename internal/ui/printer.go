package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Printer centralizes output formatting for commands.
// - Respects --output (text|json|yaml)
// - Uses ColorConfig for styling when printing text
// - Provides helpers for common message types
type Printer struct {
	format string
	out    io.Writer
	Colors *ColorConfig
}

// NewPrinter returns a Printer writing to stdout.
func NewPrinter(format string) Printer {
	return Printer{format: format, out: os.Stdout, Colors: NewColorConfig()}
}

// WithWriter returns a copy of p that writes to w.
func (p Printer) WithWriter(w io.Writer) Printer {
	p.out = w
	return p
}

// Format returns the output format ("text" when unset).
func (p Printer) Format() string {
	if p.format == "" {
		return "text"
	}
	return p.format
}

// Writer is the destination of all output.
func (p Printer) Writer() io.Writer { return p.out }

// Textf prints formatted text (always text path).
func (p Printer) Textf(format string, a ...any) { fmt.Fprintf(p.out, format, a...) }

// JSON pretty-prints a JSON value.
func (p Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML prints v as a YAML document.
func (p Printer) YAML(v any) error {
	enc := yaml.NewEncoder(p.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Structured prints v as JSON or YAML according to the output format.
// It reports false for text output so the caller renders its own view.
func (p Printer) Structured(v any) (bool, error) {
	switch p.Format() {
	case "json":
		return true, p.JSON(v)
	case "yaml":
		return true, p.YAML(v)
	default:
		return false, nil
	}
}

func (p Printer) line(icon, fallback, msg string) {
	if !p.Colors.EmojiEnabled {
		icon = fallback
	}
	fmt.Fprintf(p.out, "%s %s\n", icon, msg)
}

// Success prints a success line with themed prefix.
func (p Printer) Success(msg string) {
	p.line(p.Colors.Success("✓"), p.Colors.Success("[OK]"), msg)
}

// Info prints an informational line.
func (p Printer) Info(msg string) {
	p.line(p.Colors.Info("ℹ"), p.Colors.Info("[INFO]"), msg)
}

// Warn prints a warning line.
func (p Printer) Warn(msg string) {
	p.line(p.Colors.Warning("!"), p.Colors.Warning("[WARN]"), msg)
}

// Error prints an error line.
func (p Printer) Error(msg string) {
	p.line(p.Colors.Error("✗"), p.Colors.Error("[ERR]"), msg)
}

// Header prints a section header.
func (p Printer) Header(title string) {
	fmt.Fprintln(p.out, p.Colors.Header(" "+title+" "))
}

// Section prints a section header with separator
func (p Printer) Section(title string) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.Colors.SubHeader(title))
	fmt.Fprintln(p.out, p.Colors.Separator(40))
}

// KeyValueLine prints a key-value pair; colorType is one of
// green, yellow, blue, dim or "" for the default.
func (p Printer) KeyValueLine(key, value, colorType string) {
	var colored string
	switch colorType {
	case "blue":
		colored = p.Colors.Info(value)
	case "yellow":
		colored = p.Colors.Warning(value)
	case "green":
		colored = p.Colors.Success(value)
	case "dim":
		colored = p.Colors.Description(value)
	default:
		colored = p.Colors.Value(value)
	}
	fmt.Fprintf(p.out, "%s %s\n", p.Colors.Label(key+":"), colored)
}
