// Package handoff starts the platform installer in an independent process
// and terminates the current one so the installer can replace its files.
//
// The handoff is two separate steps. Launch (phase 1) writes a launcher
// script and spawns it detached; it is fully testable through an injected
// spawn function. Exit (phase 2) ends this process and is a process-boundary
// action that tests replace rather than exercise.
package handoff

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/purple86a/appupdate/internal/diaglog"
	"github.com/purple86a/appupdate/internal/exitcodes"
)

// DefaultDelay is how long the launcher waits before running the installer.
const DefaultDelay = 2 * time.Second

// ErrInstall is matched by *InstallError.
var ErrInstall = errors.New("install handoff failed")

// InstallError reports that the installer could not be launched. The
// current process keeps running on the old version.
type InstallError struct {
	Installer string
	Script    string
	Err       error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("launch installer %s: %v", e.Installer, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

func (e *InstallError) Is(target error) bool { return target == ErrInstall }

// SpawnFunc starts argv as a process that outlives the caller.
type SpawnFunc func(argv []string) (pid int, err error)

// Options configures a Handoff. Zero values select defaults.
type Options struct {
	Platform   Platform
	ScratchDir string
	Delay      time.Duration
	Diag       *diaglog.Log
	Logger     *log.Logger
	Spawn      SpawnFunc
	Exit       func(code int)
}

// Handoff performs the install handoff.
type Handoff struct {
	platform   Platform
	scratchDir string
	delay      time.Duration
	diag       *diaglog.Log
	log        *log.Logger
	spawn      SpawnFunc
	exit       func(int)
}

// New returns a Handoff for opts.
func New(opts Options) *Handoff {
	h := &Handoff{
		platform:   opts.Platform,
		scratchDir: opts.ScratchDir,
		delay:      opts.Delay,
		diag:       opts.Diag,
		log:        opts.Logger,
		spawn:      opts.Spawn,
		exit:       opts.Exit,
	}
	if h.platform.GOOS == "" {
		h.platform = Current()
	}
	if h.scratchDir == "" {
		h.scratchDir = os.TempDir()
	}
	if h.delay <= 0 {
		h.delay = DefaultDelay
	}
	if h.diag == nil {
		h.diag = diaglog.Discard()
	}
	if h.log == nil {
		h.log = log.New(io.Discard)
	}
	if h.spawn == nil {
		h.spawn = spawnDetached
	}
	if h.exit == nil {
		h.exit = exitcodes.Exit
	}
	return h
}

// ScriptPath is where Launch writes the launcher script.
func (h *Handoff) ScriptPath() string {
	return filepath.Join(h.scratchDir, h.platform.ScriptName)
}

// Launch is phase 1: it records diagnostics, writes the launcher script and
// spawns it detached. It returns the script path. Any failure is an
// *InstallError and leaves the current process untouched.
func (h *Handoff) Launch(installer string) (string, error) {
	script := h.ScriptPath()
	fail := func(err error) (string, error) {
		h.diag.Error("Install handoff failed", "err", err)
		h.log.Error("install handoff failed", "installer", installer, "err", err)
		return "", &InstallError{Installer: installer, Script: script, Err: err}
	}

	h.writeHeader(installer)

	info, err := os.Stat(installer)
	if err != nil {
		return fail(fmt.Errorf("installer not accessible: %w", err))
	}
	if info.IsDir() {
		return fail(fmt.Errorf("installer path is a directory"))
	}

	body, err := h.platform.Script(installer, h.diag.Path(), h.delay)
	if err != nil {
		return fail(err)
	}
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		return fail(fmt.Errorf("write launcher script: %w", err))
	}

	argv := h.platform.Interpreter(script)
	pid, err := h.spawn(argv)
	if err != nil {
		return fail(fmt.Errorf("spawn launcher: %w", err))
	}
	h.diag.Info("Launcher spawned", "script", script, "pid", pid)
	h.log.Info("installer launcher started", "script", script, "pid", pid)
	return script, nil
}

// Exit is phase 2: it terminates the current process with a success status
// so the installer can overwrite the running executable. It does not return
// in production.
func (h *Handoff) Exit() {
	h.diag.Info("Exiting for install", "pid", os.Getpid())
	_ = h.diag.Close()
	h.exit(exitcodes.Success)
}

func (h *Handoff) writeHeader(installer string) {
	pid := os.Getpid()
	_, statErr := os.Stat(installer)
	h.diag.Info("=== Update handoff ===", "platform", h.platform.GOOS)
	h.diag.Info("installer", "path", installer, "exists", statErr == nil)
	h.diag.Info("current process", "pid", pid, "exe", executablePath(pid))
	if cmd, err := h.platform.CommandLine(installer); err == nil {
		h.diag.Info("install command", "cmd", cmd)
	}
	if sum, err := Digest(installer); err == nil {
		h.diag.Info("artifact digest", "xxh64", sum)
	}
}

// executablePath asks the process table for pid's executable, falling back
// to os.Executable.
func executablePath(pid int) string {
	if p, err := process.NewProcess(int32(pid)); err == nil {
		if exe, err := p.Exe(); err == nil && exe != "" {
			return exe
		}
	}
	exe, err := os.Executable()
	if err != nil {
		return "unknown"
	}
	return exe
}

// Digest returns the xxh64 of the file at path as 16 hex digits. It is
// recorded for post-mortem comparison only; nothing verifies it.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
