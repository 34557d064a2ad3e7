package main

import "github.com/purple86a/appupdate/internal/ui"

func main() {
	// Must run before lipgloss or bubbletea touch the terminal.
	ui.InitTerminal()

	Execute()
}
