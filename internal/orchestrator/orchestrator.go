// Package orchestrator runs one check → download → install cycle as a state
// machine. A single event-loop goroutine (the caller of Run) owns all
// session state and invokes the Presenter; the registry check and the
// download run on worker goroutines that only post messages back.
package orchestrator

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/purple86a/appupdate/internal/diaglog"
	"github.com/purple86a/appupdate/internal/update"
)

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("update session already running")

const (
	defaultUpToDateDelay    = time.Second
	defaultCheckFailedDelay = 1500 * time.Millisecond
)

// Options configures an Orchestrator.
type Options struct {
	// ArtifactPath is where the installer is downloaded to.
	ArtifactPath string
	// Extension is the installer suffix, reported when a release lacks one.
	Extension string
	// UpToDateDelay and CheckFailedDelay keep the status visible before
	// finishing. Negative means no delay; zero selects the default.
	UpToDateDelay    time.Duration
	CheckFailedDelay time.Duration
	// OfferRetry returns to UpdateAvailable after a failed download
	// instead of finishing.
	OfferRetry bool
	Logger     *log.Logger
	Diag       *diaglog.Log
}

// Deps are the collaborators driven by the orchestrator.
type Deps struct {
	Checker    Checker
	Downloader Downloader
	Installer  Installer
	Presenter  Presenter
}

// Session is the state of one update cycle.
type Session struct {
	Phase        Phase
	Release      *update.ReleaseInfo
	ArtifactPath string
	Err          error // last error reported to the presenter
}

type message interface{}

type checkDone struct {
	info *update.ReleaseInfo
	err  error
}

type progressMsg struct {
	downloaded, total int64
}

type downloadDone struct {
	path string
	err  error
}

// Orchestrator is the update state machine.
type Orchestrator struct {
	deps Deps
	opts Options
	log  *log.Logger
	diag *diaglog.Log

	msgs      chan message
	decisions chan Decision
	done      chan struct{}
	running   atomic.Bool
	phase     atomic.Int32

	// Owned by the Run goroutine.
	session  Session
	timer    <-chan time.Time
	finished bool
}

// New returns an orchestrator in the Idle phase.
func New(deps Deps, opts Options) *Orchestrator {
	if opts.UpToDateDelay == 0 {
		opts.UpToDateDelay = defaultUpToDateDelay
	}
	if opts.CheckFailedDelay == 0 {
		opts.CheckFailedDelay = defaultCheckFailedDelay
	}
	if deps.Presenter == nil {
		deps.Presenter = NopPresenter{Decision: DecisionSkip}
	}
	o := &Orchestrator{
		deps:      deps,
		opts:      opts,
		log:       opts.Logger,
		diag:      opts.Diag,
		msgs:      make(chan message, 64),
		decisions: make(chan Decision, 1),
		done:      make(chan struct{}),
	}
	if o.log == nil {
		o.log = log.New(io.Discard)
	}
	if o.diag == nil {
		o.diag = diaglog.Discard()
	}
	return o
}

// Phase returns the current phase. Safe from any goroutine.
func (o *Orchestrator) Phase() Phase { return Phase(o.phase.Load()) }

// Session returns a copy of the session. Only meaningful after Run returns.
func (o *Orchestrator) Session() Session { return o.session }

// Decide delivers a deferred decision from any goroutine. Decisions that
// do not apply to the current phase are ignored, so repeated "update now"
// triggers never start a second download. Decide never blocks.
func (o *Orchestrator) Decide(d Decision) {
	select {
	case <-o.done:
		return
	default:
	}
	select {
	case o.decisions <- d:
	default:
		o.log.Debug("decision dropped, one already pending", "decision", d)
	}
}

// Run drives the cycle until Finished or Terminated. It returns nil in
// both cases; in production Terminated never returns because the installer
// handoff exits the process. If ctx is cancelled the session finishes and
// ctx.Err() is returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(o.done)

	o.setPhase(Idle)
	o.startCheck(ctx)

	for !o.session.Phase.Terminal() {
		select {
		case <-ctx.Done():
			o.log.Warn("update session interrupted", "phase", o.session.Phase, "err", ctx.Err())
			o.finish()
			return ctx.Err()
		case m := <-o.msgs:
			o.handle(ctx, m)
		case d := <-o.decisions:
			o.decide(ctx, d)
		case <-o.timer:
			o.timer = nil
			o.finish()
		}
	}
	return nil
}

func (o *Orchestrator) handle(ctx context.Context, m message) {
	switch m := m.(type) {
	case checkDone:
		o.checkDone(ctx, m)
	case progressMsg:
		if o.session.Phase == Downloading {
			o.deps.Presenter.OnDownloadProgress(m.downloaded, m.total)
		}
	case downloadDone:
		o.downloadDone(ctx, m)
	}
}

func (o *Orchestrator) startCheck(ctx context.Context) {
	o.setPhase(Checking)
	o.diag.Info("Update check started")
	o.deps.Presenter.OnCheckStarted()
	go func() {
		info, err := o.deps.Checker.FetchLatestRelease(ctx)
		o.post(checkDone{info: info, err: err})
	}()
}

func (o *Orchestrator) checkDone(ctx context.Context, m checkDone) {
	switch {
	case m.err != nil:
		o.setPhase(CheckFailed)
		o.session.Err = m.err
		o.diag.Warn("Update check failed", "err", m.err)
		o.deps.Presenter.OnCheckFailed(m.err)
		o.timer = after(o.opts.CheckFailedDelay)
	case m.info == nil || !m.info.Available:
		o.setPhase(UpToDate)
		o.session.Release = m.info
		o.deps.Presenter.OnNoUpdate()
		o.timer = after(o.opts.UpToDateDelay)
	default:
		o.session.Release = m.info
		o.diag.Info("Update available", "version", m.info.Version, "asset", m.info.AssetName)
		o.offer(ctx)
	}
}

// offer enters UpdateAvailable and asks the presenter for a decision.
func (o *Orchestrator) offer(ctx context.Context) {
	o.setPhase(UpdateAvailable)
	// A decision queued during an earlier offer must not answer this one.
	select {
	case d := <-o.decisions:
		o.log.Debug("discarding stale decision", "decision", d)
	default:
	}
	info := o.session.Release
	if d := o.deps.Presenter.OnUpdateAvailable(info.Version, info.Notes); d != DecisionDefer {
		o.decide(ctx, d)
	}
}

func (o *Orchestrator) decide(ctx context.Context, d Decision) {
	phase := o.session.Phase
	switch {
	case d == DecisionSkip && (phase == UpdateAvailable || phase == UpToDate || phase == CheckFailed):
		o.log.Info("update skipped", "phase", phase)
		o.timer = nil
		o.finish()
	case d == DecisionUpdate && phase == UpdateAvailable:
		o.startDownload(ctx)
	default:
		o.log.Debug("ignoring decision", "decision", d, "phase", phase)
	}
}

func (o *Orchestrator) startDownload(ctx context.Context) {
	info := o.session.Release
	if !info.HasAsset() {
		err := &update.AssetNotFoundError{Tag: info.Tag, Extension: o.opts.Extension}
		o.session.Err = err
		o.diag.Warn("No installable asset", "tag", info.Tag)
		o.deps.Presenter.OnDownloadFailed(err)
		o.finish()
		return
	}

	o.setPhase(Downloading)
	o.diag.Info("Download started", "url", info.AssetURL, "dest", o.opts.ArtifactPath)
	url, dest := info.AssetURL, o.opts.ArtifactPath
	go func() {
		path, err := o.deps.Downloader.Download(ctx, url, dest, func(downloaded, total int64) {
			o.post(progressMsg{downloaded: downloaded, total: total})
		})
		o.post(downloadDone{path: path, err: err})
	}()
}

func (o *Orchestrator) downloadDone(ctx context.Context, m downloadDone) {
	if m.err != nil {
		o.setPhase(DownloadFailed)
		o.session.Err = m.err
		o.diag.Warn("Download failed", "err", m.err)
		o.deps.Presenter.OnDownloadFailed(m.err)
		if o.opts.OfferRetry {
			o.offer(ctx)
			return
		}
		o.finish()
		return
	}

	o.setPhase(Downloaded)
	o.session.ArtifactPath = m.path
	o.diag.Info("Download complete", "path", m.path)

	o.setPhase(Installing)
	o.deps.Presenter.OnInstalling()
	if _, err := o.deps.Installer.Launch(m.path); err != nil {
		o.session.Err = err
		o.deps.Presenter.OnInstallFailed(err)
		o.finish()
		return
	}
	o.setPhase(Terminated)
	o.deps.Installer.Exit()
}

func (o *Orchestrator) finish() {
	if o.finished {
		return
	}
	o.finished = true
	o.setPhase(Finished)
	o.deps.Presenter.OnFinished()
}

func (o *Orchestrator) setPhase(p Phase) {
	if prev := o.session.Phase; prev != p || p == Idle {
		o.log.Debug("phase", "from", prev, "to", p)
	}
	o.session.Phase = p
	o.phase.Store(int32(p))
}

// post hands a worker result to the event loop, or drops it once Run
// has returned.
func (o *Orchestrator) post(m message) {
	select {
	case o.msgs <- m:
	case <-o.done:
	}
}

// after returns a channel that fires after d; d < 0 fires immediately.
func after(d time.Duration) <-chan time.Time {
	if d < 0 {
		d = 0
	}
	return time.After(d)
}
