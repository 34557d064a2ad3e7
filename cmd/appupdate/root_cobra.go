package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/purple86a/appupdate/internal/config"
	"github.com/purple86a/appupdate/internal/exitcodes"
	"github.com/purple86a/appupdate/internal/ui"
)

// Version information - set via -ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "appupdate",
	Short:         "Self-update client",
	Long:          "Check for a newer release, download its installer and hand off to it.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.InitGlobal(ui.Config{
			NoColor:        flagNoColor,
			NoEmoji:        flagNoEmoji,
			Yes:            flagYes,
			NonInteractive: flagNonInteractive,
			Debug:          flagDebug,
		})
		// lipgloss and glamour read NO_COLOR directly.
		if flagNoColor {
			_ = os.Setenv("NO_COLOR", "1")
		}
	},
}

var (
	flagConfig         string
	flagOutput         string
	flagDebug          bool
	flagNoColor        bool
	flagNoEmoji        bool
	flagYes            bool
	flagNonInteractive bool

	flagOwner          string
	flagRepo           string
	flagEndpoint       string
	flagCurrentVersion string
	flagScratchDir     string
	flagConstraint     string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default "+config.DefaultPath()+")")
	pf.StringVarP(&flagOutput, "output", "o", "text", "Output format: json|yaml|text")
	pf.BoolVarP(&flagDebug, "debug", "d", false, "Debug output: extra diagnostic logs")
	pf.BoolVar(&flagNoColor, "no-color", false, "Disable ANSI colors")
	pf.BoolVar(&flagNoEmoji, "no-emoji", false, "Disable emoji output")
	pf.BoolVarP(&flagYes, "yes", "y", false, "Install available updates without asking")
	pf.BoolVar(&flagNonInteractive, "non-interactive", false, "Skip available updates instead of prompting")

	pf.StringVar(&flagOwner, "owner", "", "Release repository owner (overrides config)")
	pf.StringVar(&flagRepo, "repo", "", "Release repository name (overrides config)")
	pf.StringVar(&flagEndpoint, "endpoint", "", "Full latest-release URL (overrides owner/repo)")
	pf.StringVar(&flagCurrentVersion, "current-version", "", "Version to compare against (default: this build)")
	pf.StringVar(&flagScratchDir, "scratch-dir", "", "Directory for the installer, launcher and diagnostic log")
	pf.StringVar(&flagConstraint, "constraint", "", "Only offer releases matching this semver constraint")
}

// Execute runs the root command and exits with the code carried by the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(exitcodes.CodeForError(err))
	}
}

// loadCfg reads defaults, the config file and APPUPDATE_* env via
// internal/config, then applies overrides from persistent flags.
func loadCfg() (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{File: flagConfig})
	if err != nil {
		return config.Config{}, exitcodes.ConfigErr("failed to load config", err)
	}
	if flagOwner != "" {
		cfg.Owner = flagOwner
	}
	if flagRepo != "" {
		cfg.Repo = flagRepo
	}
	if flagEndpoint != "" {
		cfg.Endpoint = flagEndpoint
	}
	if flagCurrentVersion != "" {
		cfg.CurrentVersion = flagCurrentVersion
	}
	if flagScratchDir != "" {
		cfg.ScratchDir = flagScratchDir
	}
	if flagConstraint != "" {
		cfg.Constraint = flagConstraint
	}
	if cfg.CurrentVersion == "" {
		cfg.CurrentVersion = Version
	}
	if err := validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// validate checks cfg, tolerating the unversioned "dev" build.
func validate(cfg config.Config) error {
	check := cfg
	if check.CurrentVersion == "dev" {
		check.CurrentVersion = ""
	}
	if err := check.Validate(); err != nil {
		return exitcodes.ConfigErr("invalid config", err)
	}
	switch flagOutput {
	case "", "text", "json", "yaml":
	default:
		return exitcodes.InvalidArgsErrorf("unknown output format %q (want text, json or yaml)", flagOutput)
	}
	return nil
}
