package ui

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

var terminalInitialized bool

// InitTerminal must run before the first lipgloss or bubbletea render.
// termenv queries the background color via OSC 11 and the reply can leak
// into stdout; presetting COLORFGBG skips the query.
func InitTerminal() {
	if terminalInitialized {
		return
	}
	terminalInitialized = true

	if os.Getenv("COLORFGBG") == "" {
		_ = os.Setenv("COLORFGBG", "0;15")
	}
	if IsTTY(os.Stdout) {
		fmt.Fprint(os.Stdout, "\033[?1004l") // disable focus reporting
	}
}

// ResetTerminalAfterTUI restores modes a bubbletea program may have left
// enabled. Call it after the splash exits.
func ResetTerminalAfterTUI() {
	if !IsTTY(os.Stdout) {
		return
	}
	fmt.Fprint(os.Stdout, "\033[?1004l") // focus reporting
	fmt.Fprint(os.Stdout, "\033[?1003l") // all mouse tracking
	fmt.Fprint(os.Stdout, "\033[?1000l") // X10 mouse tracking
	fmt.Fprint(os.Stdout, "\033[?1006l") // SGR mouse mode
	fmt.Fprint(os.Stdout, "\033[?25h")   // show cursor
	fmt.Fprint(os.Stdout, "\r")
}

// IsTTY reports whether f is an interactive terminal.
func IsTTY(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of f, or fallback when it is not a
// terminal.
func TerminalWidth(f *os.File, fallback int) int {
	if !IsTTY(f) {
		return fallback
	}
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		return w
	}
	return fallback
}
