package handoff

import (
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"mvdan.cc/sh/v3/syntax"
)

// Platform describes how one operating system's native installer is
// invoked unattended and how the launcher script is written and run.
type Platform struct {
	GOOS       string
	Extension  string // installer asset suffix, e.g. ".msi"
	ScriptName string // launcher script file name in the scratch dir
}

// PlatformFor returns the installer conventions for goos.
func PlatformFor(goos string) Platform {
	switch goos {
	case "windows":
		return Platform{GOOS: goos, Extension: ".msi", ScriptName: "run_update.bat"}
	case "darwin":
		return Platform{GOOS: goos, Extension: ".pkg", ScriptName: "run_update.sh"}
	default:
		return Platform{GOOS: goos, Extension: ".deb", ScriptName: "run_update.sh"}
	}
}

// Current returns the platform this binary runs on.
func Current() Platform { return PlatformFor(runtime.GOOS) }

// CommandLine returns the unattended install command for installer:
// quiet UI and no automatic reboot.
func (p Platform) CommandLine(installer string) (string, error) {
	switch p.GOOS {
	case "windows":
		if strings.ContainsRune(installer, '"') {
			return "", fmt.Errorf("installer path contains a quote: %q", installer)
		}
		// /passive shows progress without prompts; /norestart suppresses the reboot.
		return fmt.Sprintf(`msiexec /i "%s" /passive /norestart`, installer), nil
	case "darwin":
		return posixJoin("/usr/sbin/installer", "-pkg", installer, "-target", "CurrentUserHomeDirectory")
	default:
		return posixJoin("pkexec", "dpkg", "-i", installer)
	}
}

// Script renders the launcher script. It waits for delay so the current
// process can exit and release its files, runs the installer command, and
// appends milestone lines to logPath when logPath is set.
func (p Platform) Script(installer, logPath string, delay time.Duration) (string, error) {
	cmd, err := p.CommandLine(installer)
	if err != nil {
		return "", err
	}
	secs := int(math.Ceil(delay.Seconds()))
	if secs < 1 {
		secs = 1
	}

	var b strings.Builder
	if p.GOOS == "windows" {
		if strings.ContainsRune(logPath, '"') {
			return "", fmt.Errorf("log path contains a quote: %q", logPath)
		}
		b.WriteString("@echo off\r\n")
		if logPath != "" {
			fmt.Fprintf(&b, "echo Starting install >> \"%s\"\r\n", logPath)
		}
		fmt.Fprintf(&b, "timeout /t %d /nobreak > nul\r\n", secs)
		b.WriteString(cmd + "\r\n")
		if logPath != "" {
			fmt.Fprintf(&b, "echo Install started >> \"%s\"\r\n", logPath)
		}
		return b.String(), nil
	}

	b.WriteString("#!/bin/sh\n")
	var quotedLog string
	if logPath != "" {
		if quotedLog, err = syntax.Quote(logPath, syntax.LangPOSIX); err != nil {
			return "", fmt.Errorf("quote log path: %w", err)
		}
		fmt.Fprintf(&b, "echo 'Starting install' >> %s\n", quotedLog)
	}
	fmt.Fprintf(&b, "sleep %d\n", secs)
	b.WriteString(cmd + "\n")
	if logPath != "" {
		fmt.Fprintf(&b, "echo \"Install started (exit $?)\" >> %s\n", quotedLog)
	}
	return b.String(), nil
}

// Interpreter returns the argv that runs script.
func (p Platform) Interpreter(script string) []string {
	if p.GOOS == "windows" {
		return []string{"cmd", "/c", script}
	}
	return []string{"/bin/sh", script}
}

func posixJoin(args ...string) (string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		q, err := syntax.Quote(a, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("quote %q: %w", a, err)
		}
		out[i] = q
	}
	return strings.Join(out, " "), nil
}
