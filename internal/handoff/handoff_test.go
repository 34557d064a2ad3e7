package handoff

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/purple86a/appupdate/internal/diaglog"
)

func TestCommandLine(t *testing.T) {
	tests := []struct {
		goos      string
		installer string
		want      string
		wantErr   bool
	}{
		{goos: "windows", installer: `C:\Temp\update_app.msi`, want: `msiexec /i "C:\Temp\update_app.msi" /passive /norestart`},
		{goos: "windows", installer: `C:\Temp\bad".msi`, wantErr: true},
		{goos: "darwin", installer: "/tmp/update_app.pkg", want: "/usr/sbin/installer -pkg /tmp/update_app.pkg -target CurrentUserHomeDirectory"},
		{goos: "linux", installer: "/tmp/update_app.deb", want: "pkexec dpkg -i /tmp/update_app.deb"},
		{goos: "linux", installer: "/tmp/my dir/update_app.deb", want: "pkexec dpkg -i '/tmp/my dir/update_app.deb'"},
	}
	for _, tt := range tests {
		t.Run(tt.goos+" "+tt.installer, func(t *testing.T) {
			got, err := PlatformFor(tt.goos).CommandLine(tt.installer)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CommandLine() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CommandLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlatformFor(t *testing.T) {
	tests := []struct {
		goos, ext, script string
	}{
		{"windows", ".msi", "run_update.bat"},
		{"darwin", ".pkg", "run_update.sh"},
		{"linux", ".deb", "run_update.sh"},
		{"freebsd", ".deb", "run_update.sh"},
	}
	for _, tt := range tests {
		p := PlatformFor(tt.goos)
		if p.Extension != tt.ext || p.ScriptName != tt.script {
			t.Errorf("PlatformFor(%q) = %+v", tt.goos, p)
		}
	}
}

func TestScript_Windows(t *testing.T) {
	got, err := PlatformFor("windows").Script(`C:\Temp\update_app.msi`, `C:\Temp\update_debug.txt`, 2*time.Second)
	if err != nil {
		t.Fatalf("Script() error = %v", err)
	}
	want := "@echo off\r\n" +
		"echo Starting install >> \"C:\\Temp\\update_debug.txt\"\r\n" +
		"timeout /t 2 /nobreak > nul\r\n" +
		"msiexec /i \"C:\\Temp\\update_app.msi\" /passive /norestart\r\n" +
		"echo Install started >> \"C:\\Temp\\update_debug.txt\"\r\n"
	if got != want {
		t.Errorf("Script() =\n%s\nwant\n%s", got, want)
	}
}

func TestScript_POSIX(t *testing.T) {
	got, err := PlatformFor("linux").Script("/tmp/update_app.deb", "/tmp/update_debug.txt", 2500*time.Millisecond)
	if err != nil {
		t.Fatalf("Script() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(got), "\n")
	want := []string{
		"#!/bin/sh",
		"echo 'Starting install' >> /tmp/update_debug.txt",
		"sleep 3",
		"pkexec dpkg -i /tmp/update_app.deb",
		`echo "Install started (exit $?)" >> /tmp/update_debug.txt`,
	}
	if len(lines) != len(want) {
		t.Fatalf("Script() has %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestScript_NoLogAndMinimumDelay(t *testing.T) {
	got, err := PlatformFor("darwin").Script("/tmp/a.pkg", "", 0)
	if err != nil {
		t.Fatalf("Script() error = %v", err)
	}
	if strings.Contains(got, "echo") {
		t.Errorf("script without log path still logs:\n%s", got)
	}
	if !strings.Contains(got, "sleep 1\n") {
		t.Errorf("script does not wait at least a second:\n%s", got)
	}
}

func TestInterpreter(t *testing.T) {
	if got := PlatformFor("windows").Interpreter("run.bat"); strings.Join(got, " ") != "cmd /c run.bat" {
		t.Errorf("windows Interpreter() = %v", got)
	}
	if got := PlatformFor("linux").Interpreter("/tmp/run.sh"); strings.Join(got, " ") != "/bin/sh /tmp/run.sh" {
		t.Errorf("linux Interpreter() = %v", got)
	}
}

func writeInstaller(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "update_app.deb")
	if err := os.WriteFile(path, []byte("installer payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLaunch_WritesScriptAndSpawns(t *testing.T) {
	dir := t.TempDir()
	installer := writeInstaller(t, dir)
	diag, err := diaglog.Open(diaglog.Path(dir))
	if err != nil {
		t.Fatal(err)
	}
	defer diag.Close()

	var spawned []string
	h := New(Options{
		Platform:   PlatformFor("linux"),
		ScratchDir: dir,
		Diag:       diag,
		Spawn: func(argv []string) (int, error) {
			spawned = argv
			return 4242, nil
		},
		Exit: func(int) { t.Fatal("Launch must not exit") },
	})

	script, err := h.Launch(installer)
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if script != filepath.Join(dir, "run_update.sh") {
		t.Errorf("script path = %q", script)
	}
	if strings.Join(spawned, " ") != "/bin/sh "+script {
		t.Errorf("spawned %v", spawned)
	}
	body, err := os.ReadFile(script)
	if err != nil {
		t.Fatalf("read script: %v", err)
	}
	if !strings.Contains(string(body), "pkexec dpkg -i "+installer) {
		t.Errorf("script does not run installer:\n%s", body)
	}
	if !strings.Contains(string(body), "sleep 2") {
		t.Errorf("script does not wait the default delay:\n%s", body)
	}

	logData, err := os.ReadFile(diag.Path())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"path=" + installer, "exists=true", "pid=", "xxh64=", "Launcher spawned"} {
		if !strings.Contains(string(logData), want) {
			t.Errorf("diagnostic log missing %q:\n%s", want, logData)
		}
	}
}

func TestLaunch_SpawnFailure(t *testing.T) {
	dir := t.TempDir()
	installer := writeInstaller(t, dir)
	exited := false
	h := New(Options{
		Platform:   PlatformFor("linux"),
		ScratchDir: dir,
		Spawn: func([]string) (int, error) {
			return 0, errors.New("fork/exec: permission denied")
		},
		Exit: func(int) { exited = true },
	})

	_, err := h.Launch(installer)
	if !errors.Is(err, ErrInstall) {
		t.Fatalf("Launch() error = %v, want ErrInstall", err)
	}
	var ie *InstallError
	if !errors.As(err, &ie) || ie.Installer != installer {
		t.Errorf("error = %#v", err)
	}
	if exited {
		t.Error("spawn failure terminated the process")
	}
}

func TestLaunch_MissingInstaller(t *testing.T) {
	dir := t.TempDir()
	called := false
	h := New(Options{
		Platform:   PlatformFor("windows"),
		ScratchDir: dir,
		Spawn: func([]string) (int, error) {
			called = true
			return 1, nil
		},
	})
	if _, err := h.Launch(filepath.Join(dir, "nope.msi")); !errors.Is(err, ErrInstall) {
		t.Errorf("Launch() error = %v, want ErrInstall", err)
	}
	if called {
		t.Error("launcher spawned for missing installer")
	}
}

func TestExit_UsesSuccessCode(t *testing.T) {
	code := -1
	h := New(Options{ScratchDir: t.TempDir(), Exit: func(c int) { code = c }})
	h.Exit()
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
}

func TestDigest(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	_ = os.WriteFile(a, []byte("same"), 0o644)
	_ = os.WriteFile(b, []byte("same"), 0o644)
	da, err := Digest(a)
	if err != nil {
		t.Fatalf("Digest() error = %v", err)
	}
	db, _ := Digest(b)
	if da != db || len(da) != 16 {
		t.Errorf("Digest() = %q, %q", da, db)
	}
	if _, err := Digest(filepath.Join(dir, "missing")); err == nil {
		t.Error("Digest() of missing file succeeded")
	}
}
