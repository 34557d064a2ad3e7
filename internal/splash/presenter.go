package splash

import (
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/purple86a/appupdate/internal/orchestrator"
)

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Options configures a Splash.
type Options struct {
	AppName        string
	CurrentVersion string
	// Decide forwards the user's choice, normally to Orchestrator.Decide.
	Decide func(orchestrator.Decision)
	// OnQuit runs when the user presses ctrl+c.
	OnQuit func()
	In     io.Reader
	Out    io.Writer
}

// Splash runs the splash program and adapts orchestrator callbacks into
// program messages. Callbacks never block on user input; the decision for
// an available update arrives later through Options.Decide.
type Splash struct {
	model   *Model
	program *tea.Program
	send    Sender
	done    chan struct{}
	runErr  error
	once    sync.Once
}

var _ orchestrator.Presenter = (*Splash)(nil)

// New builds the splash program without starting it.
func New(opts Options) *Splash {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	m := NewModel(opts.AppName, opts.CurrentVersion, opts.Decide, opts.OnQuit)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithInput(opts.In),
		tea.WithOutput(opts.Out),
	)
	return &Splash{model: m, program: p, send: p, done: make(chan struct{})}
}

// Start runs the program on a new goroutine.
func (s *Splash) Start() {
	go func() {
		defer close(s.done)
		_, s.runErr = s.program.Run()
	}()
}

// Close quits the program and waits for it to restore the terminal.
// It is safe to call more than once.
func (s *Splash) Close() error {
	s.once.Do(func() { s.program.Quit() })
	<-s.done
	return s.runErr
}

// Wait blocks until the program exits.
func (s *Splash) Wait() error {
	<-s.done
	return s.runErr
}

func (s *Splash) OnCheckStarted() { s.send.Send(checkStartedMsg{}) }
func (s *Splash) OnNoUpdate() { s.send.Send(noUpdateMsg{}) }
func (s *Splash) OnCheckFailed(err error) { s.send.Send(checkFailedMsg{err: err}) }

func (s *Splash) OnUpdateAvailable(version, notes string) orchestrator.Decision {
	s.send.Send(updateAvailableMsg{version: version, notes: notes})
	return orchestrator.DecisionDefer
}

func (s *Splash) OnDownloadProgress(downloaded, total int64) {
	s.send.Send(progressMsg{downloaded: downloaded, total: total})
}

func (s *Splash) OnDownloadFailed(err error) { s.send.Send(downloadFailedMsg{err: err}) }
func (s *Splash) OnInstalling() { s.send.Send(installingMsg{}) }
func (s *Splash) OnInstallFailed(err error) { s.send.Send(installFailedMsg{err: err}) }
func (s *Splash) OnFinished() { s.send.Send(finishedMsg{}) }
