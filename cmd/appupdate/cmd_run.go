package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/purple86a/appupdate/internal/config"
	"github.com/purple86a/appupdate/internal/exitcodes"
	"github.com/purple86a/appupdate/internal/handoff"
	"github.com/purple86a/appupdate/internal/orchestrator"
	"github.com/purple86a/appupdate/internal/splash"
	"github.com/purple86a/appupdate/internal/ui"
)

const splashStartDelay = 500 * time.Millisecond

type runOpts struct {
	splash bool
	strict bool
}

func init() {
	var opts runOpts
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check, download and install an update",
		Long: "Run one update cycle: check the registry, offer a newer release, download its\n" +
			"installer and hand off to it. The process exits when the installer starts;\n" +
			"otherwise the command returns so the application can continue.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runUpdate(ctx, cfg, opts, defaultEnv())
		},
	}
	cmd.Flags().BoolVar(&opts.splash, "splash", false, "Show the full-screen splash instead of console output")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit non-zero when the check, download or install fails")
	rootCmd.AddCommand(cmd)
}

// exitingInstaller runs before() ahead of the process exit so a TUI can
// restore the terminal first.
type exitingInstaller struct {
	orchestrator.Installer
	before func()
}

func (e exitingInstaller) Exit() {
	if e.before != nil {
		e.before()
	}
	e.Installer.Exit()
}

// runUpdate wires one orchestrated session from cfg.
func runUpdate(ctx context.Context, cfg config.Config, opts runOpts, e env) error {
	logger := newLogger(e.Err, "update")
	diag := openDiag(cfg, logger)
	defer func() { _ = diag.Close() }()

	platform := platformFor(cfg)
	installer := handoff.New(handoff.Options{
		Platform:   platform,
		ScratchDir: cfg.ScratchDir,
		Delay:      cfg.LaunchDelay,
		Diag:       diag,
		Logger:     logger,
		Spawn:      e.Spawn,
		Exit:       e.Exit,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deps := orchestrator.Deps{
		Checker:    newClient(cfg, logger),
		Downloader: newDownloader(cfg, logger),
		Installer:  installer,
	}
	orchOpts := orchestrator.Options{
		ArtifactPath: artifactPath(cfg),
		Extension:    platform.Extension,
		OfferRetry:   cfg.OfferRetry,
		Logger:       logger,
		Diag:         diag,
	}

	var orch *orchestrator.Orchestrator
	var sp *splash.Splash
	if opts.splash {
		sp = splash.New(splash.Options{
			AppName:        cfg.AppName,
			CurrentVersion: cfg.CurrentVersion,
			Decide:         func(d orchestrator.Decision) { orch.Decide(d) },
			OnQuit:         cancel,
			In:             e.In,
			Out:            e.Out,
		})
		deps.Presenter = sp
		deps.Installer = exitingInstaller{Installer: installer, before: func() {
			_ = sp.Close()
			ui.ResetTerminalAfterTUI()
		}}
	} else {
		// Console lines stay on screen; only the splash holds status views.
		orchOpts.UpToDateDelay = -1
		orchOpts.CheckFailedDelay = -1
		g := ui.GetGlobal()
		deps.Presenter = ui.NewConsole(ui.ConsoleOptions{
			Printer:        ui.NewPrinterFromGlobal("text").WithWriter(e.Out),
			In:             e.In,
			AssumeYes:      g.Yes,
			NonInteractive: g.NonInteractive,
		})
	}

	orch = orchestrator.New(deps, orchOpts)
	if sp != nil {
		sp.Start()
		// Let the splash draw before the check starts.
		select {
		case <-time.After(splashStartDelay):
		case <-ctx.Done():
		}
	}
	runErr := orch.Run(ctx)
	if sp != nil {
		_ = sp.Wait()
		ui.ResetTerminalAfterTUI()
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	sessErr := orch.Session().Err
	if sessErr == nil || !opts.strict {
		return nil
	}
	ui.PrintError(e.Err, explain(sessErr, platform.Extension))
	return exitcodes.Silent(exitcodes.CodeForError(classify(sessErr)))
}
