// Package supervisor owns the one supervised server process: spawning it
// with the resolved command, working directory, and environment; tracking
// its handle; and terminating it when the shell exits. Every failure here is
// logged and absorbed; a broken server must never take the shell down.
package supervisor

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/user/elizadesk/internal/config"
	"github.com/user/elizadesk/internal/platform"
	"github.com/user/elizadesk/internal/probe"
	"github.com/user/elizadesk/internal/project"
	"github.com/user/elizadesk/internal/toolchain"
)

// Supervisor states.
const (
	StateIdle     = "idle"     // no child tracked
	StateStarting = "starting" // spawn issued
	StateRunning  = "running"  // handle stored, readiness check in flight
	StateExternal = "external" // server reachable but not started by us
	StateStopped  = "stopped"  // terminated or never started
)

// readyAttempts is the readiness-wait budget after a spawn.
const readyAttempts = 10

// Supervisor manages at most one server child process. The handle is shared
// between the startup path (writer), the background readiness wait (logs
// only), and the shutdown handler (writer); mu guards it and the state.
type Supervisor struct {
	mu    sync.Mutex
	proc  *os.Process
	state string

	cfg      config.Config
	prober   *probe.Prober
	devBuild bool

	serverLogPath string

	// Seams for tests; New wires the real implementations.
	locate  func() (string, bool)
	resolve func() toolchain.Invocation
}

// New constructs a supervisor for the configured server. devBuild marks a
// development build of the shell itself (version "dev"), which selects the
// server's dev mode just like the env flag.
func New(cfg config.Config, caps platform.Capabilities, devBuild bool) *Supervisor {
	locator := &project.Locator{
		Project:   cfg.Project,
		Org:       cfg.Org,
		EnvVar:    cfg.ProjectPathEnv,
		Manifest:  "package.json",
		Fallbacks: cfg.FallbackPaths,
	}
	return &Supervisor{
		state:         StateIdle,
		cfg:           cfg,
		prober:        probe.New(cfg.Addr()),
		devBuild:      devBuild,
		serverLogPath: caps.ServerLogPath(),
		locate:        locator.Locate,
		resolve: func() toolchain.Invocation {
			return toolchain.Resolve(caps.PreferWrapper, cfg.Wrapper, cfg.Tool)
		},
	}
}

// EnsureStarted makes sure a server is (or will be) listening. If one is
// already reachable the supervisor takes no ownership and spawns nothing.
// Otherwise it locates the project directory, resolves the invocation, and
// spawns the child. Spawn failure is returned for the caller to log; it is
// never fatal to the shell. The readiness wait runs on its own goroutine and
// only logs its outcome.
func (s *Supervisor) EnsureStarted() error {
	if s.prober.IsReachable() {
		slog.Info("server already running", slog.String("addr", s.prober.Addr))
		s.setState(StateExternal)
		return nil
	}

	s.mu.Lock()
	if s.proc != nil {
		// A child is already tracked; never spawn a second server.
		s.mu.Unlock()
		return nil
	}
	s.state = StateStarting
	s.mu.Unlock()

	dir, found := s.locate()
	if !found {
		exe, _ := os.Executable()
		cwd, _ := os.Getwd()
		slog.Warn("starting server without a working directory",
			slog.String("exe", exe), slog.String("cwd", cwd))
	}

	inv := s.resolve()
	mode := "start"
	if s.devMode() {
		mode = "dev"
	}
	args := append(append([]string(nil), inv.Args...), "--no-emoji", mode)
	slog.Info("starting server",
		slog.String("command", inv.Name),
		slog.String("mode", mode),
		slog.String("dir", dir))

	cmd := exec.Command(inv.Name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(os.Environ(), s.cfg.ChildEnv()...)

	logFile := s.openServerLog()
	if logFile != nil {
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
		}
		s.setState(StateIdle)
		slog.Error("server start failed", slog.String("command", inv.Name), slog.Any("error", err))
		return fmt.Errorf("starting %s: %w", inv.Name, err)
	}
	if logFile != nil {
		// Child holds its own descriptor now.
		logFile.Close()
	}

	s.mu.Lock()
	s.proc = cmd.Process
	s.state = StateRunning
	s.mu.Unlock()
	slog.Info("server process started", slog.Int("pid", cmd.Process.Pid))

	// The readiness wait only logs its outcome. It has no cancellation and
	// may still be running at process exit.
	go func() {
		if s.prober.WaitUntilReady(readyAttempts) {
			slog.Info("server is ready", slog.String("addr", s.prober.Addr))
		} else {
			slog.Warn("server may not be ready yet", slog.String("addr", s.prober.Addr))
		}
	}()

	// Reap the child so a crash before shutdown doesn't leave a zombie.
	go func() {
		err := cmd.Wait()
		slog.Info("server process exited", slog.Int("pid", cmd.Process.Pid), slog.Any("error", err))
	}()

	return nil
}

// Shutdown terminates the tracked child, if any, and clears the handle.
// Idempotent: the close-request path and the final-exit path both call it,
// and the second call finds no handle and is a no-op.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc != nil {
		slog.Info("shutting down server", slog.Int("pid", s.proc.Pid))
		if err := s.proc.Kill(); err != nil {
			slog.Error("server kill failed", slog.Int("pid", s.proc.Pid), slog.Any("error", err))
		} else {
			slog.Info("server shut down")
		}
	}
	s.proc = nil
	s.state = StateStopped
}

// State returns the current lifecycle state.
func (s *Supervisor) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pid returns the tracked child's PID, or 0 when none is tracked.
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return 0
	}
	return s.proc.Pid
}

func (s *Supervisor) setState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// devMode selects the server's run mode: the env flag forces dev, and a dev
// build of the shell defaults to it.
func (s *Supervisor) devMode() bool {
	return os.Getenv(s.cfg.DevModeEnv) != "" || s.devBuild
}

// openServerLog opens the capture file for the child's stdout/stderr.
// Returns nil (child inherits nothing) when the path is unset or the open
// fails; capturing output is best-effort diagnostics, not a start condition.
func (s *Supervisor) openServerLog() *os.File {
	if s.serverLogPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.serverLogPath), 0755); err != nil {
		return nil
	}
	f, err := os.OpenFile(s.serverLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		slog.Warn("cannot open server log", slog.String("path", s.serverLogPath), slog.Any("error", err))
		return nil
	}
	return f
}
