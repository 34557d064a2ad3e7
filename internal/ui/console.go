package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/purple86a/appupdate/internal/orchestrator"
)

// ConsoleOptions configures a Console presenter.
type ConsoleOptions struct {
	Printer Printer
	// In supplies answers to the update prompt. Defaults to stdin.
	In io.Reader
	// AssumeYes installs without asking.
	AssumeYes bool
	// NonInteractive skips available updates instead of asking.
	NonInteractive bool
	// NotesWidth wraps release notes; 0 uses the terminal width.
	NotesWidth int
}

// Console presents an update session as terminal text. All callbacks run
// on the orchestrator's loop goroutine, so the prompt blocks the session
// until answered.
type Console struct {
	p              Printer
	in             *bufio.Reader
	assumeYes      bool
	nonInteractive bool
	notesWidth     int
	bar            *ProgressBar
}

var _ orchestrator.Presenter = (*Console)(nil)

// NewConsole returns a console presenter.
func NewConsole(opts ConsoleOptions) *Console {
	if opts.Printer.out == nil {
		opts.Printer = NewPrinterFromGlobal("text")
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	width := opts.NotesWidth
	if width <= 0 {
		width = TerminalWidth(os.Stdout, 80) - 4
	}
	return &Console{
		p:              opts.Printer,
		in:             bufio.NewReader(opts.In),
		assumeYes:      opts.AssumeYes,
		nonInteractive: opts.NonInteractive,
		notesWidth:     width,
	}
}

func (c *Console) OnCheckStarted() { c.p.Info("Checking for updates...") }

func (c *Console) OnNoUpdate() { c.p.Success("You're up to date!") }

func (c *Console) OnCheckFailed(err error) {
	c.p.Warn("Unable to check for updates")
	c.p.KeyValueLine("  Reason", err.Error(), "dim")
}

func (c *Console) OnUpdateAvailable(version, notes string) orchestrator.Decision {
	c.p.Header("Update available: v" + strings.TrimPrefix(version, "v"))
	if rendered := RenderNotes(notes, c.notesWidth, c.p.Colors.Enabled); rendered != "" {
		c.p.Section("Release notes")
		c.p.Textf("%s\n\n", rendered)
	}

	switch {
	case c.assumeYes:
		return orchestrator.DecisionUpdate
	case c.nonInteractive:
		c.p.Info("Skipping update (non-interactive)")
		return orchestrator.DecisionSkip
	}

	c.p.Textf("%s ", c.p.Colors.Prompt("Update now? [y/N]:"))
	answer, err := c.in.ReadString('\n')
	if err != nil && answer == "" {
		c.p.Textf("\n")
		return orchestrator.DecisionSkip
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return orchestrator.DecisionUpdate
	default:
		return orchestrator.DecisionSkip
	}
}

func (c *Console) OnDownloadProgress(downloaded, total int64) {
	if c.bar == nil {
		c.bar = NewProgressBar(c.p.Writer(), total)
		c.bar.colors = c.p.Colors
	}
	c.bar.SetTotal(total)
	c.bar.Update(downloaded)
}

func (c *Console) finishBar() {
	if c.bar != nil {
		c.bar.Finish()
		c.bar = nil
	}
}

func (c *Console) OnDownloadFailed(err error) {
	c.finishBar()
	c.p.Error(fmt.Sprintf("Download failed: %v", err))
}

func (c *Console) OnInstalling() {
	c.finishBar()
	c.p.Info("Installing update. The application will close and restart.")
}

func (c *Console) OnInstallFailed(err error) {
	c.p.Error(fmt.Sprintf("Could not start the installer: %v", err))
}

func (c *Console) OnFinished() {
	c.finishBar()
}
