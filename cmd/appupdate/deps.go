package main

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/purple86a/appupdate/internal/config"
	"github.com/purple86a/appupdate/internal/diaglog"
	"github.com/purple86a/appupdate/internal/handoff"
	"github.com/purple86a/appupdate/internal/update"
)

// env holds the process-level collaborators commands touch, so tests can
// run a full session without spawning or exiting.
type env struct {
	In    io.Reader
	Out   io.Writer
	Err   io.Writer
	Spawn handoff.SpawnFunc // nil selects the detached spawner
	Exit  func(int)         // nil selects os.Exit
}

func defaultEnv() env {
	return env{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// newLogger returns the stderr component logger; --debug lowers the level.
func newLogger(w io.Writer, prefix string) *log.Logger {
	level := log.WarnLevel
	if flagDebug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{Prefix: prefix, Level: level})
}

func platformFor(cfg config.Config) handoff.Platform {
	p := handoff.Current()
	if cfg.InstallerExt != "" {
		p.Extension = cfg.InstallerExt
	}
	return p
}

func endpointFor(cfg config.Config) string {
	if cfg.Endpoint != "" {
		return cfg.Endpoint
	}
	return update.LatestReleaseURL(cfg.RegistryURL, cfg.Owner, cfg.Repo)
}

func newClient(cfg config.Config, logger *log.Logger) *update.Client {
	return update.NewClient(endpointFor(cfg), cfg.CurrentVersion, platformFor(cfg).Extension,
		update.WithCheckTimeout(cfg.CheckTimeout),
		update.WithToken(cfg.Token),
		update.WithConstraint(cfg.Constraint),
		update.WithUserAgent("appupdate/"+Version),
		update.WithClientLogger(logger),
	)
}

func newDownloader(cfg config.Config, logger *log.Logger) *update.Downloader {
	return update.NewDownloader(
		update.WithConnectTimeout(cfg.DownloadTimeout),
		update.WithDownloadLogger(logger),
	)
}

func artifactPath(cfg config.Config) string {
	return update.ScratchPath(cfg.ScratchDir, cfg.Repo, platformFor(cfg).Extension)
}

// openDiag opens the diagnostic log, falling back to a discarding log when
// the scratch dir is not writable.
func openDiag(cfg config.Config, logger *log.Logger) *diaglog.Log {
	d, err := diaglog.Open(diaglog.Path(cfg.ScratchDir))
	if err != nil {
		logger.Warn("diagnostic log unavailable", "err", err)
		return diaglog.Discard()
	}
	return d
}
