// Package shell is the integration point with the hosting desktop
// framework: it drives the supervisor from the host's lifecycle events and
// carries the top-level error boundary. The GUI itself lives outside this
// module; here the host's close-request arrives as context cancellation.
package shell

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/elizadesk/internal/platform"
	"github.com/user/elizadesk/internal/supervisor"
)

// Shell ties the supervisor to the host application's lifecycle.
type Shell struct {
	Sup  *supervisor.Supervisor
	Caps platform.Capabilities
}

// Run starts the server on entry and shuts it down when ctx is cancelled
// (the host's window-close request). The final-exit path calls
// Supervisor.Shutdown again; both converge on the same idempotent routine.
func (sh *Shell) Run(ctx context.Context) error {
	return sh.guard(func() error {
		slog.Info("shell starting")
		if err := sh.Sup.EnsureStarted(); err != nil {
			// Non-fatal: the shell keeps running without a server.
			slog.Error("continuing without server", slog.Any("error", err))
		}
		<-ctx.Done()
		slog.Info("close requested")
		sh.Sup.Shutdown()
		return nil
	})
}

// guard is the top-level error boundary: an unrecoverable fault is logged
// and presented before it propagates and terminates the process.
func (sh *Shell) guard(fn func() error) error {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("panic: %v", r)
			slog.Error(msg)
			if sh.Caps.NotifyFatal != nil {
				sh.Caps.NotifyFatal("elizadesk crashed", msg)
			}
			panic(r)
		}
	}()
	return fn()
}

// Greet is the host's one trivial UI-facing command.
func Greet(name string) string {
	return fmt.Sprintf("Hello, %s! You've been greeted from the shell!", name)
}
