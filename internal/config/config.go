// Package config loads the supervisor's configuration: which companion
// project to look for, which tool serves it, and which loopback port the
// server is expected on. Everything has a default; the TOML file only
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config describes the supervised server and how to find its project.
type Config struct {
	// Project is the companion project's canonical name, as declared in
	// its manifest.
	Project string `toml:"project"`

	// Org is the directory the project conventionally nests under
	// (<org>/<project>).
	Org string `toml:"org"`

	// Tool is the server CLI executable name.
	Tool string `toml:"tool"`

	// Wrapper is the package-runner used to invoke Tool without a global
	// install, on hosts where that is the conventional mechanism.
	Wrapper string `toml:"wrapper"`

	// Port is the loopback port the server listens on.
	Port int `toml:"port"`

	// ProjectPathEnv names the environment variable holding an explicit
	// project directory override.
	ProjectPathEnv string `toml:"project_path_env"`

	// DevModeEnv names the environment variable that forces development
	// mode.
	DevModeEnv string `toml:"dev_mode_env"`

	// FallbackPaths are last-resort absolute project locations, checked
	// after every discovery heuristic fails.
	FallbackPaths []string `toml:"fallback_paths"`
}

// Default returns the built-in configuration for the stock install.
func Default() Config {
	return Config{
		Project:        "trading-brain",
		Org:            "eliza",
		Tool:           "elizaos",
		Wrapper:        "bunx",
		Port:           3000,
		ProjectPathEnv: "ELIZA_PROJECT_PATH",
		DevModeEnv:     "ELIZA_DESKTOP_DEV",
	}
}

// ParseError represents a TOML decode failure.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads the config file at path over the defaults. A missing file (or
// empty path) yields the defaults; a malformed file is an error the caller
// surfaces, since silently ignoring a user's config is worse than failing.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ParseError{Path: path, Err: err}
	}
	return cfg, nil
}

// Addr returns the loopback endpoint the readiness prober targets.
func (c Config) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

// ChildEnv is the fixed environment block set on the spawned server: force
// local-server mode and suppress update checks, telemetry prompts, and
// color/emoji output. Not user-configurable at runtime.
func (c Config) ChildEnv() []string {
	return []string{
		"ELIZA_USE_LOCAL_SERVER=true",
		"CI=true",
		"NO_UPDATE_CHECK=1",
		"ELIZA_TEST_MODE=true",
		"ELIZA_CLI_TEST_MODE=true",
		"ELIZA_SKIP_LOCAL_CLI_DELEGATION=true",
		"npm_config_update_notifier=false",
		"NO_COLOR=true",
	}
}
