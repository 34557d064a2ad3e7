// Package splash is the full-screen update splash shown before the main
// application starts. The bubbletea model only renders orchestrator
// callbacks and turns key presses into decisions; it never drives the
// update itself.
package splash

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/purple86a/appupdate/internal/orchestrator"
	"github.com/purple86a/appupdate/internal/ui"
	"github.com/purple86a/appupdate/internal/update"
)

// failureHold is how long a failed update stays on screen after the
// session finishes, unless a key dismisses it first.
const failureHold = 8 * time.Second

type stage int

const (
	stageChecking stage = iota
	stageUpToDate
	stageCheckFailed
	stageOffer
	stageDownloading
	stageDownloadFailed
	stageInstalling
	stageInstallFailed
)

// Messages posted by Presenter.
type (
	checkStartedMsg    struct{}
	noUpdateMsg        struct{}
	checkFailedMsg     struct{ err error }
	updateAvailableMsg struct{ version, notes string }
	progressMsg        struct{ downloaded, total int64 }
	downloadFailedMsg  struct{ err error }
	installingMsg      struct{}
	installFailedMsg   struct{ err error }
	finishedMsg        struct{}
	dismissMsg         struct{}
)

type keyMap struct {
	Update key.Binding
	Skip   key.Binding
	Scroll key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Update, k.Skip, k.Scroll, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func newKeyMap() keyMap {
	return keyMap{
		Update: key.NewBinding(key.WithKeys("u", "enter"), key.WithHelp("u", "update now")),
		Skip:   key.NewBinding(key.WithKeys("s", "esc"), key.WithHelp("s", "skip")),
		Scroll: key.NewBinding(key.WithKeys("up", "down", "pgup", "pgdown"), key.WithHelp("↑/↓", "scroll notes")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

var (
	accent      = lipgloss.Color("205")
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(1, 3)
	buttonStyle = lipgloss.NewStyle().Padding(0, 2).Bold(true).
			Foreground(lipgloss.Color("230")).Background(accent)
	disabledButtonStyle = lipgloss.NewStyle().Padding(0, 2).
				Foreground(lipgloss.Color("245")).Background(lipgloss.Color("237"))
)

// Model is the splash screen.
type Model struct {
	appName string
	current string
	decide  func(orchestrator.Decision)
	onQuit  func()

	stage    stage
	version  string
	err      error
	decided  bool
	closing  bool // finished, failure still on screen
	done     bool
	hold     time.Duration
	received int64
	total    int64

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model
	notes    viewport.Model
	width    int
}

// NewModel returns the splash model. decide receives the user's choice;
// onQuit is called on ctrl+c.
func NewModel(appName, currentVersion string, decide func(orchestrator.Decision), onQuit func()) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	if decide == nil {
		decide = func(orchestrator.Decision) {}
	}
	if onQuit == nil {
		onQuit = func() {}
	}
	return &Model{
		appName:  appName,
		current:  currentVersion,
		decide:   decide,
		onQuit:   onQuit,
		keys:     newKeyMap(),
		help:     help.New(),
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		notes:    viewport.New(56, 8),
		width:    64,
		hold:     failureHold,
	}
}

func (m *Model) Init() tea.Cmd {
	m.spinner.Style = lipgloss.NewStyle().Foreground(accent)
	return m.spinner.Tick
}

// canSkip reports whether the Skip button is enabled. It is disabled once
// a download has been requested.
func (m *Model) canSkip() bool { return m.stage == stageOffer && !m.decided }

func (m *Model) canUpdate() bool { return m.stage == stageOffer && !m.decided }

func (m *Model) failed() bool {
	return m.stage == stageDownloadFailed || m.stage == stageInstallFailed
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		w := min(msg.Width-8, 72)
		if w > 20 {
			m.notes.Width = w
			m.progress.Width = min(w, 50)
		}
		return m, nil

	case checkStartedMsg:
		m.stage = stageChecking
	case noUpdateMsg:
		m.stage = stageUpToDate
	case checkFailedMsg:
		m.stage, m.err = stageCheckFailed, msg.err
	case updateAvailableMsg:
		m.stage, m.version, m.decided, m.err = stageOffer, msg.version, false, nil
		body := ui.RenderNotes(msg.notes, m.notes.Width-2, true)
		if body == "" {
			body = msg.notes
		}
		m.notes.SetContent(body)
		m.notes.GotoTop()
	case progressMsg:
		m.stage = stageDownloading
		m.received, m.total = msg.downloaded, msg.total
	case downloadFailedMsg:
		m.stage, m.err = stageDownloadFailed, msg.err
	case installingMsg:
		m.stage = stageInstalling
	case installFailedMsg:
		m.stage, m.err = stageInstallFailed, msg.err
	case finishedMsg:
		if m.failed() && !m.closing {
			m.closing = true
			return m, tea.Tick(m.hold, func(time.Time) tea.Msg { return dismissMsg{} })
		}
		m.done = true
		return m, tea.Quit
	case dismissMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.closing && !key.Matches(msg, m.keys.Quit) {
		m.done = true
		return m, tea.Quit
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.done = true
		m.onQuit()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Update):
		if m.canUpdate() {
			m.decided = true
			m.decide(orchestrator.DecisionUpdate)
		}
	case key.Matches(msg, m.keys.Skip):
		if m.canSkip() {
			m.decided = true
			m.decide(orchestrator.DecisionSkip)
		}
	case key.Matches(msg, m.keys.Scroll):
		var cmd tea.Cmd
		m.notes, cmd = m.notes.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.appName))
	if m.current != "" {
		b.WriteString(dimStyle.Render("  v" + strings.TrimPrefix(m.current, "v")))
	}
	b.WriteString("\n\n")

	switch m.stage {
	case stageChecking:
		b.WriteString(m.spinner.View() + " Checking for updates...")
	case stageUpToDate:
		b.WriteString(okStyle.Render("You're up to date!"))
	case stageCheckFailed:
		b.WriteString(errStyle.Render("Unable to check for updates"))
	case stageOffer, stageDownloading, stageDownloadFailed, stageInstalling, stageInstallFailed:
		b.WriteString(m.offerView())
	}

	b.WriteString("\n\n")
	if m.closing {
		b.WriteString(dimStyle.Render("Press any key to continue"))
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return boxStyle.Render(b.String())
}

func (m *Model) offerView() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render("Update available: v"+strings.TrimPrefix(m.version, "v")))
	b.WriteString(dimStyle.Render("Release notes") + "\n")
	b.WriteString(m.notes.View() + "\n\n")

	switch m.stage {
	case stageDownloading:
		pct := 0.0
		if m.total > 0 {
			pct = float64(m.received) / float64(m.total)
		}
		b.WriteString(m.progress.ViewAs(min(pct, 1)) + "\n")
		b.WriteString(dimStyle.Render(ui.FormatTransfer(m.received, m.total)) + "\n")
	case stageDownloadFailed:
		title := "Download failed"
		if errors.Is(m.err, update.ErrAssetNotFound) {
			title = "Update available but could not be installed automatically"
		}
		b.WriteString(errStyle.Render(title) + " " + dimStyle.Render(errText(m.err)) + "\n")
	case stageInstalling:
		b.WriteString(m.spinner.View() + " Installing update...\n")
	case stageInstallFailed:
		b.WriteString(errStyle.Render("Could not start the installer") + " " + dimStyle.Render(errText(m.err)) + "\n")
	}

	update, skip := disabledButtonStyle, disabledButtonStyle
	if m.canUpdate() {
		update = buttonStyle
	}
	if m.canSkip() {
		skip = buttonStyle
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, update.Render("Update Now"), "  ", skip.Render("Skip")))
	return b.String()
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
