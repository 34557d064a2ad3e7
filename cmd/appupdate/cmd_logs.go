package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/purple86a/appupdate/internal/diaglog"
	"github.com/purple86a/appupdate/internal/ui"
)

func init() {
	var follow bool
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the update diagnostic log",
		Long:  "Print the diagnostic log written by update sessions and their installer launcher.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			path := diaglog.Path(cfg.ScratchDir)
			out := cmd.OutOrStdout()
			if !follow {
				return ui.PrintLogTail(path, lines, out)
			}
			if err := ui.PrintLogTail(path, lines, out); err != nil {
				ui.NewPrinterFromGlobal("text").WithWriter(cmd.ErrOrStderr()).Info("Waiting for " + path)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return ui.FollowLog(ctx, path, true, out)
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing lines as they are appended")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show (0 for all)")
	rootCmd.AddCommand(cmd)
}
