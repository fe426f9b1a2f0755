// Package toolchain picks the executable that invokes the server tool on
// this host. Resolution is a trial invocation: the point is to find a name
// the OS can start, not to validate the tool's behavior.
package toolchain

import (
	"errors"
	"log/slog"
	"os/exec"
)

// Invocation is an executable name plus the argument prefix that makes it
// run the server tool.
type Invocation struct {
	Name string
	Args []string
}

// tryCommand runs a trial invocation to completion. Package variable so
// tests can substitute outcomes without real executables.
var tryCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// couldStart reports whether the OS managed to start the process. A non-zero
// exit still counts: the executable exists, which is all resolution needs.
func couldStart(err error) bool {
	if err == nil {
		return true
	}
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// Resolve determines how to invoke tool. When preferWrapper is set (hosts
// where the package-runner is the conventional install mechanism), the
// wrapper form is tried first; otherwise resolution goes straight to the
// direct form. If neither trial starts, the direct form is returned anyway;
// the eventual spawn will fail visibly and be logged there.
func Resolve(preferWrapper bool, wrapper, tool string) Invocation {
	if preferWrapper {
		wrapped := Invocation{Name: wrapper, Args: []string{"--bun", tool}}
		err := tryCommand(wrapped.Name, append(wrapped.Args, "--version")...)
		if couldStart(err) {
			slog.Info("resolved tool via wrapper", slog.String("wrapper", wrapper))
			return wrapped
		}
		slog.Warn("wrapper not available", slog.String("wrapper", wrapper), slog.Any("error", err))
	}

	direct := Invocation{Name: tool}
	err := tryCommand(tool, "--version")
	if couldStart(err) {
		slog.Info("resolved tool directly", slog.String("tool", tool))
		return direct
	}
	slog.Warn("tool not found on PATH; install it with: bun i -g @elizaos/cli",
		slog.String("tool", tool), slog.Any("error", err))
	return direct
}
