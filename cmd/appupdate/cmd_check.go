package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/purple86a/appupdate/internal/config"
	"github.com/purple86a/appupdate/internal/exitcodes"
	"github.com/purple86a/appupdate/internal/orchestrator"
	"github.com/purple86a/appupdate/internal/ui"
)

// checkResult is the machine-readable outcome of `appupdate check`.
type checkResult struct {
	Current    string `json:"current" yaml:"current"`
	Latest     string `json:"latest" yaml:"latest"`
	Tag        string `json:"tag" yaml:"tag"`
	Available  bool   `json:"update_available" yaml:"update_available"`
	Asset      string `json:"asset,omitempty" yaml:"asset,omitempty"`
	AssetURL   string `json:"asset_url,omitempty" yaml:"asset_url,omitempty"`
	AssetSize  int64  `json:"asset_size,omitempty" yaml:"asset_size,omitempty"`
	ReleaseURL string `json:"release_url,omitempty" yaml:"release_url,omitempty"`
	Notes      string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

func init() {
	var exitCode bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether a newer release is available",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			p := ui.NewPrinterFromGlobal(flagOutput).WithWriter(cmd.OutOrStdout())
			return runCheck(cmd.Context(), cfg, p, exitCode, newClient(cfg, newLogger(cmd.ErrOrStderr(), "check")))
		},
	}
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, fmt.Sprintf("Exit with %d when an update is available", exitcodes.UpdateAvailable))
	rootCmd.AddCommand(cmd)
}

func runCheck(ctx context.Context, cfg config.Config, p ui.Printer, exitCode bool, checker orchestrator.Checker) error {
	if ctx == nil {
		ctx = context.Background()
	}
	info, err := checker.FetchLatestRelease(ctx)
	if err != nil {
		return classify(err)
	}

	res := checkResult{
		Current:    info.Current,
		Latest:     info.Version,
		Tag:        info.Tag,
		Available:  info.Available,
		Asset:      info.AssetName,
		AssetURL:   info.AssetURL,
		AssetSize:  info.AssetSize,
		ReleaseURL: info.HTMLURL,
		Notes:      info.Notes,
	}
	if ok, err := p.Structured(res); ok {
		if err != nil {
			return err
		}
	} else {
		printCheckText(cfg, p, res)
	}

	if exitCode && res.Available {
		return exitcodes.Silent(exitcodes.UpdateAvailable)
	}
	return nil
}

func printCheckText(cfg config.Config, p ui.Printer, res checkResult) {
	c := p.Colors
	status := c.StatusIcon("current") + " up to date"
	if res.Available {
		status = c.StatusIcon("available") + " update available"
	}
	asset := res.Asset
	if asset == "" {
		asset = "(no " + platformFor(cfg).Extension + " asset)"
	} else if res.AssetSize > 0 {
		asset += " (" + ui.FormatBytes(res.AssetSize) + ")"
	}
	p.Textf("%s", ui.Table(c,
		[]string{"Current", "Latest", "Status", "Installer"},
		[][]string{{res.Current, res.Latest, status, asset}},
		nil))
	if res.Available && res.ReleaseURL != "" {
		p.KeyValueLine("Release", res.ReleaseURL, "dim")
	}
}
