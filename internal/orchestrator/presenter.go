package orchestrator

import (
	"context"

	"github.com/purple86a/appupdate/internal/update"
)

// Presenter is the presentation layer. The orchestrator calls every method
// on its own event-loop goroutine and never polls the presenter.
type Presenter interface {
	OnCheckStarted()
	OnNoUpdate()
	OnCheckFailed(err error)
	// OnUpdateAvailable returns DecisionUpdate or DecisionSkip, or
	// DecisionDefer to answer later via Orchestrator.Decide.
	OnUpdateAvailable(version, notes string) Decision
	// OnDownloadProgress receives strictly increasing downloaded counts.
	// total is 0 when unknown.
	OnDownloadProgress(downloaded, total int64)
	OnDownloadFailed(err error)
	OnInstalling()
	OnInstallFailed(err error)
	// OnFinished is called exactly once when no update will be applied.
	OnFinished()
}

// Checker queries the release registry.
type Checker interface {
	FetchLatestRelease(ctx context.Context) (*update.ReleaseInfo, error)
}

// Downloader fetches an artifact to a local path.
type Downloader interface {
	Download(ctx context.Context, url, dest string, onProgress update.ProgressFunc) (string, error)
}

// Installer performs the two-phase install handoff.
type Installer interface {
	Launch(installer string) (string, error)
	Exit()
}

// NopPresenter answers every update with its Decision and ignores all
// other callbacks. It suits unattended runs.
type NopPresenter struct {
	Decision Decision
}

func (NopPresenter) OnCheckStarted() {}
func (NopPresenter) OnNoUpdate() {}
func (NopPresenter) OnCheckFailed(error) {}
func (p NopPresenter) OnUpdateAvailable(string, string) Decision { return p.Decision }
func (NopPresenter) OnDownloadProgress(int64, int64) {}
func (NopPresenter) OnDownloadFailed(error) {}
func (NopPresenter) OnInstalling() {}
func (NopPresenter) OnInstallFailed(error) {}
func (NopPresenter) OnFinished() {}
