package main

import (
	"context"
	"fmt"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/user/elizadesk/internal/config"
	"github.com/user/elizadesk/internal/logger"
	"github.com/user/elizadesk/internal/platform"
	"github.com/user/elizadesk/internal/probe"
	"github.com/user/elizadesk/internal/project"
	"github.com/user/elizadesk/internal/shell"
	"github.com/user/elizadesk/internal/supervisor"
	"github.com/user/elizadesk/internal/toolchain"
)

var version = "dev" // injected via ldflags at build time

// Globals holds state shared across commands: the host capability record and
// the lazily-loaded config.
type Globals struct {
	Caps platform.Capabilities

	ConfigPath string

	once sync.Once
	cfg  config.Config
	err  error
}

// Cfg loads the config on first use. A malformed config file is fatal to the
// command: silently ignoring a user's overrides would be worse.
func (g *Globals) Cfg() (config.Config, error) {
	g.once.Do(func() {
		path := g.ConfigPath
		if path == "" {
			path = g.Caps.ConfigPath()
		}
		g.cfg, g.err = config.Load(path)
	})
	return g.cfg, g.err
}

// ─── Top-level CLI struct ────────────────────────────────────────────────────

type CLI struct {
	Config string `help:"Path to config.toml (default: per-user config dir)." type:"path"`

	Run     RunCmd     `cmd:"" group:"serve"   help:"Start the supervised server and run until interrupted."`
	Status  StatusCmd  `cmd:"" group:"observe" help:"Report whether the server is reachable."`
	Locate  LocateCmd  `cmd:"" group:"observe" help:"Print the discovered project directory."`
	Doctor  DoctorCmd  `cmd:"" group:"observe" help:"Diagnose discovery, resolution, and reachability."`
	Greet   GreetCmd   `cmd:"" group:"misc"    help:"Print a greeting."`
	Version VersionCmd `cmd:"" group:"misc"    help:"Print version and platform info."`
}

// ─── run ─────────────────────────────────────────────────────────────────────

type RunCmd struct {
	Port int `default:"0" help:"Override the server port (default: from config)."`
}

// Run is the shell's start path. Errors here mean the host application
// cannot come up at all, the one fatal class, so they get the user-facing
// fatal presentation on top of the usual CLI error.
func (c *RunCmd) Run(g *Globals) (err error) {
	defer func() {
		if err != nil {
			g.Caps.NotifyFatal("elizadesk failed to start", err.Error())
		}
	}()

	cfg, err := g.Cfg()
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Port = c.Port
	}

	sup := supervisor.New(cfg, g.Caps, version == "dev")
	sh := &shell.Shell{Sup: sup, Caps: g.Caps}

	// SIGINT/SIGTERM stand in for the host framework's close-request
	// event; the deferred Shutdown is the final-exit event. Both paths
	// hit the same idempotent routine.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer sup.Shutdown()

	return sh.Run(ctx)
}

// ─── status ──────────────────────────────────────────────────────────────────

type StatusCmd struct{}

func (c *StatusCmd) Run(g *Globals) error {
	cfg, err := g.Cfg()
	if err != nil {
		return err
	}
	p := probe.New(cfg.Addr())
	if p.IsReachable() {
		fmt.Printf("server reachable at %s\n", cfg.Addr())
		return nil
	}
	fmt.Printf("no server listening at %s\n", cfg.Addr())
	return nil
}

// ─── locate ──────────────────────────────────────────────────────────────────

type LocateCmd struct{}

func (c *LocateCmd) Run(g *Globals) error {
	cfg, err := g.Cfg()
	if err != nil {
		return err
	}
	loc := newLocator(cfg)
	dir, ok := loc.Locate()
	if !ok {
		return fmt.Errorf("project %q not found in any candidate location", cfg.Project)
	}
	fmt.Println(dir)
	return nil
}

// ─── doctor ──────────────────────────────────────────────────────────────────

type DoctorCmd struct{}

func (c *DoctorCmd) Run(g *Globals) error {
	cfg, err := g.Cfg()
	if err != nil {
		return err
	}

	fmt.Printf("data dir:    %s\n", orNone(g.Caps.DataDir))
	fmt.Printf("config file: %s\n", orNone(g.Caps.ConfigPath()))
	fmt.Printf("log file:    %s\n", orNone(g.Caps.LogPath()))

	if dir, ok := newLocator(cfg).Locate(); ok {
		fmt.Printf("project:     %s\n", dir)
	} else {
		fmt.Printf("project:     not found (set %s to override)\n", cfg.ProjectPathEnv)
	}

	inv := toolchain.Resolve(g.Caps.PreferWrapper, cfg.Wrapper, cfg.Tool)
	fmt.Printf("invocation:  %s %v\n", inv.Name, inv.Args)

	if probe.New(cfg.Addr()).IsReachable() {
		fmt.Printf("server:      reachable at %s\n", cfg.Addr())
	} else {
		fmt.Printf("server:      not listening at %s\n", cfg.Addr())
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func newLocator(cfg config.Config) *project.Locator {
	return &project.Locator{
		Project:   cfg.Project,
		Org:       cfg.Org,
		EnvVar:    cfg.ProjectPathEnv,
		Manifest:  "package.json",
		Fallbacks: cfg.FallbackPaths,
	}
}

// ─── greet ───────────────────────────────────────────────────────────────────

type GreetCmd struct {
	Name string `arg:"" optional:"" default:"world" help:"Who to greet."`
}

func (c *GreetCmd) Run() error {
	fmt.Println(shell.Greet(c.Name))
	return nil
}

// ─── version ─────────────────────────────────────────────────────────────────

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("elizadesk %s %s/%s\n", version, runtime.GOOS, runtime.GOARCH)
	return nil
}

// ─── main ────────────────────────────────────────────────────────────────────

func main() {
	caps := platform.Detect()
	logger.Init(caps.LogPath())

	var cli CLI
	globals := &Globals{Caps: caps}

	ctx := kong.Parse(&cli,
		kong.Name("elizadesk"),
		kong.Description("elizadesk: desktop shell supervisor for the local agent server\n\nFinds the companion project, starts its server, and guarantees the server dies with the shell.\n\nUSAGE:  elizadesk <command> [arguments]"),
		kong.UsageOnError(),
		kong.Bind(globals),
		kong.ExplicitGroups([]kong.Group{
			{Key: "serve", Title: "── SERVE ─────────────────────────────────────────────────────────────────────────"},
			{Key: "observe", Title: "── DIAGNOSTICS ───────────────────────────────────────────────────────────────────"},
			{Key: "misc", Title: "── MISC ──────────────────────────────────────────────────────────────────────────"},
		}),
	)
	globals.ConfigPath = cli.Config

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
