package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/purple86a/appupdate/internal/exitcodes"
	"github.com/purple86a/appupdate/internal/ui"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ui.NewPrinterFromGlobal(flagOutput).WithWriter(cmd.OutOrStdout())
		ok, err := p.Structured(map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_date": BuildDate,
		})
		if !ok {
			p.Textf("appupdate %s (%s) built %s\n", Version, Commit, BuildDate)
		}
		return err
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return exitcodes.NewError(exitcodes.InvalidArgs, "unknown shell: "+args[0])
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}
