package main

import (
	"errors"

	"github.com/purple86a/appupdate/internal/exitcodes"
	"github.com/purple86a/appupdate/internal/handoff"
	"github.com/purple86a/appupdate/internal/ui"
	"github.com/purple86a/appupdate/internal/update"
)

// classify maps an update-session error to an exit-coded error.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, update.ErrNotFound):
		return exitcodes.NetworkErr("no published release found", err)
	case errors.Is(err, update.ErrNetwork):
		return exitcodes.NetworkErr("unable to check for updates", err)
	case errors.Is(err, update.ErrAssetNotFound):
		return exitcodes.DownloadErr("release has no installer for this platform", err)
	case errors.Is(err, update.ErrDownload):
		return exitcodes.DownloadErr("update download failed", err)
	case errors.Is(err, handoff.ErrInstall):
		return exitcodes.InstallErr("could not start the installer", err)
	default:
		return exitcodes.WrapError(exitcodes.GeneralError, "update failed", err)
	}
}

// explain builds the structured message printed for a failed session.
func explain(err error, extension string) ui.ErrorMessage {
	switch {
	case errors.Is(err, update.ErrNotFound):
		return ui.ErrorMessage{
			Problem: "The release registry has no published release for this repository",
			Causes:  []string{"Wrong owner or repo", "Only draft or pre-release builds exist"},
			Actions: []string{"Check --owner/--repo or the endpoint in your config"},
		}
	case errors.Is(err, update.ErrNetwork):
		return ui.ErrorMessage{
			Problem: "Unable to check for updates",
			Causes:  []string{"No network connection", "Registry rate limit reached", "Registry unavailable"},
			Actions: []string{"Retry later", "Set APPUPDATE_TOKEN to lift rate limits"},
		}
	case errors.Is(err, update.ErrAssetNotFound):
		return ui.ErrorMessage{
			Problem: "The latest release has no installer for this platform",
			Actions: []string{"Ask the publisher to attach a " + extension + " asset"},
		}
	case errors.Is(err, update.ErrDownload):
		return ui.ErrorMessage{
			Problem: "The installer download did not complete",
			Causes:  []string{"Connection dropped", "Disk full or scratch dir not writable"},
			Actions: []string{"Run the update again; the partial file is overwritten"},
		}
	case errors.Is(err, handoff.ErrInstall):
		return ui.ErrorMessage{
			Problem: "The installer could not be started",
			Actions: []string{"Inspect the diagnostic log"},
			Hints:   []string{"appupdate logs"},
		}
	default:
		return ui.ErrorMessage{Problem: err.Error()}
	}
}
