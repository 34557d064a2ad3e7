package main

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"

	"github.com/purple86a/appupdate/internal/config"
	"github.com/purple86a/appupdate/internal/diaglog"
	"github.com/purple86a/appupdate/internal/handoff"
	"github.com/purple86a/appupdate/internal/ui"
)

// locations reports where the updater reads and writes.
type locations struct {
	Executable   string `json:"executable" yaml:"executable"`
	Installed    bool   `json:"installed" yaml:"installed"`
	InstallDir   string `json:"install_dir" yaml:"install_dir"`
	InstalledExe string `json:"installed_exe" yaml:"installed_exe"`
	ConfigFile   string `json:"config_file" yaml:"config_file"`
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
	Artifact     string `json:"artifact" yaml:"artifact"`
	Launcher     string `json:"launcher" yaml:"launcher"`
	DiagLog      string `json:"diagnostic_log" yaml:"diagnostic_log"`
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "where",
		Short: "Show install, scratch and log locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			p := ui.NewPrinterFromGlobal(flagOutput).WithWriter(cmd.OutOrStdout())
			return printWhere(p, whereFor(cfg, currentExecutable()))
		},
	})
}

// currentExecutable asks gopsutil for this process's image path, which
// resolves symlinks the way the installer sees them.
func currentExecutable() string {
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if exe, err := proc.Exe(); err == nil && exe != "" {
			return exe
		}
	}
	exe, _ := os.Executable()
	return exe
}

func whereFor(cfg config.Config, exe string) locations {
	cfgFile := flagConfig
	if cfgFile == "" {
		cfgFile = config.DefaultPath()
	}
	platform := platformFor(cfg)
	return locations{
		Executable:   exe,
		Installed:    cfg.IsInstalled(exe),
		InstallDir:   cfg.InstallDir,
		InstalledExe: cfg.InstalledExePath(),
		ConfigFile:   cfgFile,
		Endpoint:     endpointFor(cfg),
		Artifact:     artifactPath(cfg),
		Launcher:     handoff.New(handoff.Options{Platform: platform, ScratchDir: cfg.ScratchDir}).ScriptPath(),
		DiagLog:      diaglog.Path(cfg.ScratchDir),
	}
}

func printWhere(p ui.Printer, loc locations) error {
	if ok, err := p.Structured(loc); ok {
		return err
	}
	installed := p.Colors.StatusIcon("installed") + " installed copy"
	if !loc.Installed {
		installed = p.Colors.StatusIcon("pending") + " not the installed copy (development build?)"
	}
	p.KeyValueLine("Executable", loc.Executable, "")
	p.KeyValueLine("Status", installed, "")
	p.KeyValueLine("Install dir", loc.InstallDir, "")
	p.KeyValueLine("Config file", loc.ConfigFile, "dim")
	p.KeyValueLine("Registry", loc.Endpoint, "blue")
	p.Section("Scratch files")
	p.KeyValueLine("Installer", loc.Artifact, "")
	p.KeyValueLine("Launcher", loc.Launcher, "")
	p.KeyValueLine("Diagnostic log", loc.DiagLog, "")
	return nil
}
