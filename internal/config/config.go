package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/purple86a/appupdate/internal/version"
)

// Keys as they appear in the YAML file. Environment variables use the
// APPUPDATE_ prefix with dashes replaced by underscores.
const (
	KeyAppName         = "app-name"
	KeyOwner           = "owner"
	KeyRepo            = "repo"
	KeyRegistryURL     = "registry-url"
	KeyEndpoint        = "endpoint"
	KeyToken           = "token"
	KeyCurrentVersion  = "current-version"
	KeyInstallDir      = "install-dir"
	KeyScratchDir      = "scratch-dir"
	KeyInstallerExt    = "installer-ext"
	KeyConstraint      = "constraint"
	KeyCheckTimeout    = "check-timeout"
	KeyDownloadTimeout = "download-timeout"
	KeyLaunchDelay     = "launch-delay"
	KeyOfferRetry      = "offer-retry"
)

const (
	envPrefix = "APPUPDATE"

	DefaultAppName     = "MyApp"
	DefaultOwner       = "purple86a"
	DefaultRepo        = "tkinter-app-auto-update"
	DefaultRegistryURL = "https://api.github.com"
)

// Config holds the updater settings. It is built once by the CLI and
// injected into every component; nothing else reads the environment.
type Config struct {
	AppName        string
	Owner          string
	Repo           string
	RegistryURL    string
	Endpoint       string // full latest-release URL; overrides RegistryURL/Owner/Repo
	Token          string // optional bearer token for the registry
	CurrentVersion string
	InstallDir     string
	ScratchDir     string
	InstallerExt   string // "" selects the platform default
	Constraint     string // optional semver constraint on offered releases

	CheckTimeout    time.Duration
	DownloadTimeout time.Duration // connect/response-header timeout for downloads
	LaunchDelay     time.Duration
	OfferRetry      bool
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		AppName:         DefaultAppName,
		Owner:           DefaultOwner,
		Repo:            DefaultRepo,
		RegistryURL:     DefaultRegistryURL,
		InstallDir:      defaultInstallDir(DefaultAppName),
		ScratchDir:      os.TempDir(),
		CheckTimeout:    10 * time.Second,
		DownloadTimeout: 30 * time.Second,
		LaunchDelay:     2 * time.Second,
	}
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// File is an explicit config file. Empty means DefaultPath(); a missing
	// default file is not an error, a missing explicit one is.
	File string
	// Env overrides os.LookupEnv, for tests.
	Env func(string) (string, bool)
}

// DefaultPath returns <UserConfigDir>/appupdate/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "appupdate", "config.yaml")
}

// Load layers defaults < config file < APPUPDATE_* environment. Flags are
// applied afterwards by the caller.
func Load(opts LoadOptions) (Config, error) {
	def := Defaults()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, def)

	path := opts.File
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := mergeConfigFile(v, path, explicit); err != nil {
		return Config{}, err
	}
	applyEnv(v, opts.Env)

	cfg := Config{
		AppName:         v.GetString(KeyAppName),
		Owner:           v.GetString(KeyOwner),
		Repo:            v.GetString(KeyRepo),
		RegistryURL:     v.GetString(KeyRegistryURL),
		Endpoint:        v.GetString(KeyEndpoint),
		Token:           v.GetString(KeyToken),
		CurrentVersion:  v.GetString(KeyCurrentVersion),
		InstallDir:      v.GetString(KeyInstallDir),
		ScratchDir:      v.GetString(KeyScratchDir),
		InstallerExt:    v.GetString(KeyInstallerExt),
		Constraint:      v.GetString(KeyConstraint),
		CheckTimeout:    v.GetDuration(KeyCheckTimeout),
		DownloadTimeout: v.GetDuration(KeyDownloadTimeout),
		LaunchDelay:     v.GetDuration(KeyLaunchDelay),
		OfferRetry:      v.GetBool(KeyOfferRetry),
	}
	// An overridden app name moves the default install dir with it.
	if !v.IsSet(KeyInstallDir) && cfg.AppName != def.AppName {
		cfg.InstallDir = defaultInstallDir(cfg.AppName)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, def Config) {
	v.SetDefault(KeyAppName, def.AppName)
	v.SetDefault(KeyOwner, def.Owner)
	v.SetDefault(KeyRepo, def.Repo)
	v.SetDefault(KeyRegistryURL, def.RegistryURL)
	v.SetDefault(KeyEndpoint, "")
	v.SetDefault(KeyToken, "")
	v.SetDefault(KeyCurrentVersion, "")
	v.SetDefault(KeyInstallDir, def.InstallDir)
	v.SetDefault(KeyScratchDir, def.ScratchDir)
	v.SetDefault(KeyInstallerExt, "")
	v.SetDefault(KeyConstraint, "")
	v.SetDefault(KeyCheckTimeout, def.CheckTimeout)
	v.SetDefault(KeyDownloadTimeout, def.DownloadTimeout)
	v.SetDefault(KeyLaunchDelay, def.LaunchDelay)
	v.SetDefault(KeyOfferRetry, def.OfferRetry)
}

var allKeys = []string{
	KeyAppName, KeyOwner, KeyRepo, KeyRegistryURL, KeyEndpoint, KeyToken,
	KeyCurrentVersion, KeyInstallDir, KeyScratchDir, KeyInstallerExt,
	KeyConstraint, KeyCheckTimeout, KeyDownloadTimeout, KeyLaunchDelay,
	KeyOfferRetry,
}

// EnvName returns the environment variable for key, e.g. APPUPDATE_OWNER.
func EnvName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

func applyEnv(v *viper.Viper, lookup func(string) (string, bool)) {
	if lookup == nil {
		v.SetEnvPrefix(envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		v.AutomaticEnv()
		return
	}
	for _, key := range allKeys {
		if val, ok := lookup(EnvName(key)); ok {
			v.Set(key, val)
		}
	}
}

func mergeConfigFile(v *viper.Viper, path string, required bool) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Validate reports the first setting that would make an update cycle
// impossible.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		if strings.TrimSpace(c.Owner) == "" || strings.TrimSpace(c.Repo) == "" {
			return fmt.Errorf("owner and repo are required when no endpoint is set")
		}
		if c.RegistryURL == "" {
			return fmt.Errorf("registry-url is required when no endpoint is set")
		}
	}
	if c.CurrentVersion != "" {
		if _, err := version.Parse(c.CurrentVersion); err != nil {
			return fmt.Errorf("current-version: %w", err)
		}
	}
	if c.Constraint != "" {
		if err := version.ValidateConstraint(c.Constraint); err != nil {
			return fmt.Errorf("constraint: %w", err)
		}
	}
	if c.InstallerExt != "" && !strings.HasPrefix(c.InstallerExt, ".") {
		return fmt.Errorf("installer-ext %q must start with a dot", c.InstallerExt)
	}
	if c.CheckTimeout < 0 || c.DownloadTimeout < 0 || c.LaunchDelay < 0 {
		return fmt.Errorf("timeouts and delays must not be negative")
	}
	return nil
}

// InstalledExePath is the executable the installer places in InstallDir.
func (c Config) InstalledExePath() string {
	name := c.AppName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(c.InstallDir, name)
}

// IsInstalled reports whether exe is the installed copy of the app rather
// than a development build run from elsewhere.
func (c Config) IsInstalled(exe string) bool {
	if exe == "" {
		return false
	}
	want, err := filepath.Abs(c.InstalledExePath())
	if err != nil {
		return false
	}
	got, err := filepath.Abs(exe)
	if err != nil {
		return false
	}
	if runtime.GOOS == "windows" {
		return strings.EqualFold(want, got)
	}
	return want == got
}

// defaultInstallDir is %LOCALAPPDATA%/<app>, falling back to the home dir.
func defaultInstallDir(app string) string {
	base := os.Getenv("LOCALAPPDATA")
	if base == "" {
		base, _ = os.UserHomeDir()
	}
	return filepath.Join(base, app)
}
