package splash

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/purple86a/appupdate/internal/orchestrator"
	"github.com/purple86a/appupdate/internal/update"
)

type recorder struct {
	decisions []orchestrator.Decision
	quits     int
}

func newTestModel() (*Model, *recorder) {
	r := &recorder{}
	m := NewModel("MyApp", "1.1.12",
		func(d orchestrator.Decision) { r.decisions = append(r.decisions, d) },
		func() { r.quits++ })
	m.Init()
	return m, r
}

func send(m *Model, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, msg := range msgs {
		_, cmd = m.Update(msg)
	}
	return cmd
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_StatusScreens(t *testing.T) {
	tests := []struct {
		name string
		msgs []tea.Msg
		want string
	}{
		{"checking", []tea.Msg{checkStartedMsg{}}, "Checking for updates..."},
		{"up to date", []tea.Msg{checkStartedMsg{}, noUpdateMsg{}}, "You're up to date!"},
		{"check failed", []tea.Msg{checkStartedMsg{}, checkFailedMsg{err: errors.New("offline")}}, "Unable to check for updates"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestModel()
			send(m, tt.msgs...)
			view := m.View()
			if !strings.Contains(view, tt.want) {
				t.Errorf("View() missing %q:\n%s", tt.want, view)
			}
			if !strings.Contains(view, "MyApp") || !strings.Contains(view, "v1.1.12") {
				t.Errorf("View() missing title:\n%s", view)
			}
		})
	}
}

func TestModel_UpdateNowOnlyOnce(t *testing.T) {
	m, r := newTestModel()
	send(m, updateAvailableMsg{version: "1.1.13", notes: "Bug fixes"})

	view := m.View()
	for _, want := range []string{"Update available: v1.1.13", "Bug fixes", "Update Now", "Skip"} {
		if !strings.Contains(view, want) {
			t.Errorf("offer view missing %q:\n%s", want, view)
		}
	}

	send(m, keyPress("u"), keyPress("u"), tea.KeyMsg{Type: tea.KeyEnter})
	if len(r.decisions) != 1 || r.decisions[0] != orchestrator.DecisionUpdate {
		t.Fatalf("decisions = %v, want one update", r.decisions)
	}

	// Skip is disabled once the download was requested.
	send(m, keyPress("s"))
	if len(r.decisions) != 1 {
		t.Errorf("skip accepted after update: %v", r.decisions)
	}
}

func TestModel_SkipDisabledDuringDownload(t *testing.T) {
	m, r := newTestModel()
	send(m, updateAvailableMsg{version: "1.1.13"}, progressMsg{downloaded: 5 * 1024 * 1024, total: 10 * 1024 * 1024})

	send(m, keyPress("s"), keyPress("u"))
	if len(r.decisions) != 0 {
		t.Errorf("decisions during download = %v, want none", r.decisions)
	}
	if view := m.View(); !strings.Contains(view, "5.0 MB / 10.0 MB (50%)") {
		t.Errorf("download label missing:\n%s", view)
	}
}

func TestModel_Skip(t *testing.T) {
	m, r := newTestModel()
	send(m, updateAvailableMsg{version: "1.1.13"}, keyPress("s"))
	if len(r.decisions) != 1 || r.decisions[0] != orchestrator.DecisionSkip {
		t.Errorf("decisions = %v, want skip", r.decisions)
	}
}

func TestModel_RetryOfferReenablesButtons(t *testing.T) {
	m, r := newTestModel()
	send(m,
		updateAvailableMsg{version: "1.1.13"}, keyPress("u"),
		downloadFailedMsg{err: errors.New("connection reset")},
	)
	if view := m.View(); !strings.Contains(view, "Download failed") || !strings.Contains(view, "connection reset") {
		t.Errorf("failure not shown:\n%s", view)
	}
	send(m, updateAvailableMsg{version: "1.1.13"}, keyPress("u"))
	if len(r.decisions) != 2 {
		t.Errorf("decisions = %v, want two updates", r.decisions)
	}
}

func TestModel_InstallStages(t *testing.T) {
	m, _ := newTestModel()
	send(m, updateAvailableMsg{version: "1.1.13"}, installingMsg{})
	if !strings.Contains(m.View(), "Installing update...") {
		t.Errorf("installing not shown:\n%s", m.View())
	}
	send(m, installFailedMsg{err: errors.New("spawn failed")})
	if !strings.Contains(m.View(), "Could not start the installer") {
		t.Errorf("install failure not shown:\n%s", m.View())
	}
}

func TestModel_FinishedQuits(t *testing.T) {
	m, _ := newTestModel()
	cmd := send(m, finishedMsg{})
	if cmd == nil {
		t.Fatal("finished returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("finished did not quit")
	}
	if m.View() != "" {
		t.Error("view not cleared after finish")
	}
}

func TestModel_FailureStaysVisibleAfterFinish(t *testing.T) {
	m, _ := newTestModel()
	m.hold = time.Millisecond
	cmd := send(m,
		updateAvailableMsg{version: "1.1.13"}, keyPress("u"),
		downloadFailedMsg{err: &update.AssetNotFoundError{Tag: "v1.1.13", Extension: ".msi"}},
		finishedMsg{},
	)

	view := m.View()
	for _, want := range []string{"could not be installed automatically", "has no .msi installer", "Press any key to continue"} {
		if !strings.Contains(view, want) {
			t.Errorf("view after finish missing %q:\n%s", want, view)
		}
	}
	if cmd == nil {
		t.Fatal("finish after failure returned no command")
	}
	msg := cmd()
	if _, ok := msg.(dismissMsg); !ok {
		t.Fatalf("hold timer produced %#v, want dismissMsg", msg)
	}
	if _, ok := send(m, msg)().(tea.QuitMsg); !ok {
		t.Error("dismiss did not quit")
	}
	if m.View() != "" {
		t.Error("view not cleared after dismiss")
	}
}

func TestModel_KeyDismissesFailure(t *testing.T) {
	m, r := newTestModel()
	send(m, updateAvailableMsg{version: "1.1.13"}, keyPress("u"), installingMsg{},
		installFailedMsg{err: errors.New("spawn failed")}, finishedMsg{})
	if !strings.Contains(m.View(), "spawn failed") {
		t.Fatalf("install failure not held:\n%s", m.View())
	}

	cmd := send(m, keyPress("x"))
	if cmd == nil {
		t.Fatal("key press returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("key press did not quit")
	}
	if len(r.decisions) != 1 || r.quits != 0 {
		t.Errorf("decisions = %v quits = %d, want one update and no cancel", r.decisions, r.quits)
	}
}

func TestModel_CtrlC(t *testing.T) {
	m, r := newTestModel()
	send(m, checkStartedMsg{}, tea.KeyMsg{Type: tea.KeyCtrlC})
	if r.quits != 1 {
		t.Errorf("quits = %d, want 1", r.quits)
	}
	if len(r.decisions) != 0 {
		t.Error("ctrl+c made a decision")
	}
}

type fakeSender struct{ msgs []tea.Msg }

func (f *fakeSender) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func TestSplash_ForwardsCallbacks(t *testing.T) {
	fs := &fakeSender{}
	s := &Splash{send: fs, done: make(chan struct{})}

	s.OnCheckStarted()
	if d := s.OnUpdateAvailable("1.1.13", "notes"); d != orchestrator.DecisionDefer {
		t.Errorf("OnUpdateAvailable() = %s, want defer", d)
	}
	s.OnDownloadProgress(1, 2)
	s.OnInstalling()
	s.OnFinished()

	if len(fs.msgs) != 5 {
		t.Fatalf("sent %d messages, want 5", len(fs.msgs))
	}
	if got, ok := fs.msgs[2].(progressMsg); !ok || got.downloaded != 1 || got.total != 2 {
		t.Errorf("progress msg = %#v", fs.msgs[2])
	}
	if _, ok := fs.msgs[4].(finishedMsg); !ok {
		t.Errorf("last msg = %#v, want finishedMsg", fs.msgs[4])
	}
}
