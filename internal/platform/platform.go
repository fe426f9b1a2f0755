// Package platform resolves host-specific choices once at startup instead of
// scattering GOOS branches through the logic. The capability record covers
// per-user directories, wrapper preference, and fatal-error presentation.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const appDirName = "elizadesk"

// Capabilities is the one-shot capability record selected for this host.
type Capabilities struct {
	// DataDir holds the diagnostic log and the captured server log.
	// Empty when no home directory could be resolved; file sinks then
	// silently degrade.
	DataDir string

	// ConfigDir holds config.toml.
	ConfigDir string

	// PreferWrapper reports whether the package-runner wrapper (bunx) is
	// the conventional way to invoke the server tool on this host.
	PreferWrapper bool

	// NotifyFatal presents an unrecoverable startup failure to the user.
	NotifyFatal func(title, message string)
}

// Detect resolves the capability record for the current host.
func Detect() Capabilities {
	return detect(runtime.GOOS, os.Getenv)
}

func detect(goos string, getenv func(string) string) Capabilities {
	caps := Capabilities{NotifyFatal: stderrBanner}

	switch goos {
	case "windows":
		caps.PreferWrapper = true
		if appData := strings.TrimSpace(getenv("APPDATA")); appData != "" {
			caps.DataDir = filepath.Join(appData, appDirName)
			caps.ConfigDir = caps.DataDir
		}
	case "darwin":
		if home, err := homeDir(getenv); err == nil {
			caps.DataDir = filepath.Join(home, "Library", "Application Support", appDirName)
			caps.ConfigDir = caps.DataDir
		}
	default:
		home, err := homeDir(getenv)
		if dataHome := strings.TrimSpace(getenv("XDG_DATA_HOME")); dataHome != "" {
			caps.DataDir = filepath.Join(dataHome, appDirName)
		} else if err == nil {
			caps.DataDir = filepath.Join(home, ".local", "share", appDirName)
		}
		if cfgHome := strings.TrimSpace(getenv("XDG_CONFIG_HOME")); cfgHome != "" {
			caps.ConfigDir = filepath.Join(cfgHome, appDirName)
		} else if err == nil {
			caps.ConfigDir = filepath.Join(home, ".config", appDirName)
		}
	}
	return caps
}

// HomeDir resolves the user's home directory from the environment, falling
// back to os.UserHomeDir. Environment variables are evaluated on each call
// rather than trusting a cached value, which can be stale in tests that
// mutate the process environment.
func HomeDir() (string, error) {
	return homeDir(os.Getenv)
}

func homeDir(getenv func(string) string) (string, error) {
	home := strings.TrimSpace(getenv("HOME"))
	if home == "" {
		drive := strings.TrimSpace(getenv("HOMEDRIVE"))
		path := strings.TrimSpace(getenv("HOMEPATH"))
		if drive != "" && path != "" {
			home = filepath.Join(drive, path)
		} else {
			home = strings.TrimSpace(getenv("USERPROFILE"))
		}
	}
	if home != "" {
		return filepath.Clean(home), nil
	}

	resolved, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(resolved) == "" {
		if err == nil {
			err = fmt.Errorf("home directory not found")
		}
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Clean(resolved), nil
}

// stderrBanner is the default fatal-error presentation: a hard-to-miss block
// on stderr. There is no windowing toolkit in scope to host a dialog, so
// every platform gets the banner.
func stderrBanner(title, message string) {
	line := strings.Repeat("=", 64)
	fmt.Fprintf(os.Stderr, "\n%s\n%s\n\n%s\n%s\n", line, title, message, line)
}

// LogPath returns the diagnostic log path, or "" when no data dir resolved.
func (c Capabilities) LogPath() string {
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, appDirName+".log")
}

// ServerLogPath returns where the supervised server's output is captured,
// or "" when no data dir resolved.
func (c Capabilities) ServerLogPath() string {
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, "server.log")
}

// ConfigPath returns the config.toml path, or "" when no config dir resolved.
func (c Capabilities) ConfigPath() string {
	if c.ConfigDir == "" {
		return ""
	}
	return filepath.Join(c.ConfigDir, "config.toml")
}
