package orchestrator

// Phase is the orchestrator's current state. Exactly one phase is active
// at a time.
type Phase int32

const (
	Idle Phase = iota
	Checking
	UpToDate
	CheckFailed
	UpdateAvailable
	Downloading
	DownloadFailed
	Downloaded
	Installing
	// Terminated means the installer was launched and the process exit
	// was requested. Nothing follows it.
	Terminated
	// Finished means no update is being applied; control passes to the
	// main application.
	Finished
)

var phaseNames = [...]string{
	Idle:            "idle",
	Checking:        "checking",
	UpToDate:        "up-to-date",
	CheckFailed:     "check-failed",
	UpdateAvailable: "update-available",
	Downloading:     "downloading",
	DownloadFailed:  "download-failed",
	Downloaded:      "downloaded",
	Installing:      "installing",
	Terminated:      "terminated",
	Finished:        "finished",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether no further transition can happen.
func (p Phase) Terminal() bool { return p == Terminated || p == Finished }

// Decision is the presentation layer's answer to an available update.
type Decision int

const (
	// DecisionDefer means the answer will arrive later through Orchestrator.Decide.
	DecisionDefer Decision = iota
	DecisionUpdate
	DecisionSkip
)

func (d Decision) String() string {
	switch d {
	case DecisionUpdate:
		return "update"
	case DecisionSkip:
		return "skip"
	default:
		return "defer"
	}
}
