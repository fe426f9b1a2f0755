// Package project locates the companion project's working directory on the
// host filesystem. The search is an ordered set of heuristics (explicit
// override, conventional home layouts, ancestor walks, hardcoded fallbacks),
// each candidate re-validated against the project manifest, so the search
// accepts false negatives but never a false positive.
package project

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/user/elizadesk/internal/platform"
)

// Walk depth bounds for the ancestor strategies.
const (
	exeWalkDepth = 15
	cwdWalkDepth = 10
)

// Test seams (overridden in tests; production code never touches these).
var (
	executablePath = os.Executable
	workingDir     = os.Getwd
)

// Locator finds a directory whose manifest declares Project.
type Locator struct {
	// Project is the canonical name the manifest must declare.
	Project string

	// Org is the directory the project nests under in conventional
	// layouts (<org>/<Project>).
	Org string

	// EnvVar names the explicit-override environment variable.
	EnvVar string

	// Manifest is the descriptor filename checked in each candidate,
	// normally package.json.
	Manifest string

	// Fallbacks are last-resort absolute paths.
	Fallbacks []string
}

// Locate runs the strategies in strict priority order and returns the first
// candidate that passes Valid, canonicalized. The second return is false when
// every strategy failed; callers log and degrade, they do not abort.
func (l *Locator) Locate() (string, bool) {
	type strategy struct {
		name string
		run  func() (string, bool)
	}
	strategies := []strategy{
		{"env override", l.fromEnv},
		{"home layout", l.fromHome},
		{"executable ancestor walk", l.fromExeWalk},
		{"cwd ancestor walk", l.fromCwdWalk},
		{"fallback path", l.fromFallbacks},
	}
	for _, s := range strategies {
		if dir, ok := s.run(); ok {
			slog.Info("project located", slog.String("dir", dir), slog.String("strategy", s.name))
			return dir, true
		}
	}
	slog.Warn("project directory not found in any location", slog.String("project", l.Project))
	return "", false
}

// fromEnv checks the explicit override variable.
func (l *Locator) fromEnv() (string, bool) {
	path := os.Getenv(l.EnvVar)
	if path == "" {
		return "", false
	}
	slog.Debug("checking override", slog.String("var", l.EnvVar), slog.String("path", path))
	return l.check(path)
}

// fromHome checks the finite list of conventional developer layouts under
// the home directory.
func (l *Locator) fromHome() (string, bool) {
	home, err := platform.HomeDir()
	if err != nil {
		slog.Debug("no home directory", slog.Any("error", err))
		return "", false
	}
	candidates := []string{
		filepath.Join(home, l.Org, l.Project),
		filepath.Join(home, "Documents", l.Org, l.Project),
		filepath.Join(home, "Desktop", l.Org, l.Project),
		filepath.Join(home, "Projects", l.Org, l.Project),
		filepath.Join(home, l.Project),
	}
	for _, c := range candidates {
		if dir, ok := l.check(c); ok {
			return dir, true
		}
	}
	return "", false
}

// fromExeWalk walks up from the running executable's directory. Installed
// layouts often place the shell binary several levels below a checkout that
// contains the project, either nested (<org>/<Project>) or as a sibling.
func (l *Locator) fromExeWalk() (string, bool) {
	exe, err := executablePath()
	if err != nil {
		return "", false
	}
	cur := filepath.Dir(exe)
	for i := 0; i < exeWalkDepth; i++ {
		if dir, ok := l.check(filepath.Join(cur, l.Org, l.Project)); ok {
			return dir, true
		}
		if dir, ok := l.check(filepath.Join(cur, l.Project)); ok {
			return dir, true
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return "", false
}

// fromCwdWalk walks up from the current working directory, nested form only.
func (l *Locator) fromCwdWalk() (string, bool) {
	cwd, err := workingDir()
	if err != nil {
		return "", false
	}
	cur := cwd
	for i := 0; i < cwdWalkDepth; i++ {
		if dir, ok := l.check(filepath.Join(cur, l.Org, l.Project)); ok {
			return dir, true
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return "", false
}

func (l *Locator) fromFallbacks() (string, bool) {
	for _, p := range l.Fallbacks {
		if dir, ok := l.check(p); ok {
			return dir, true
		}
	}
	return "", false
}

// check canonicalizes one candidate and applies the validity predicate.
// Candidates that do not exist fail canonicalization and are skipped.
func (l *Locator) check(path string) (string, bool) {
	canonical, ok := canonicalize(path)
	if !ok {
		return "", false
	}
	if !l.Valid(canonical) {
		return "", false
	}
	return canonical, true
}

// Valid reports whether dir is the companion project: it exists, is a
// directory, contains the manifest, and the manifest declares the expected
// name. The name check prefers the manifest's "name" field; if that does not
// match it falls back to a raw substring scan of the manifest, which is
// looser but keeps oddly-formatted manifests discoverable.
// Deterministic and side-effect free for a fixed directory snapshot.
func (l *Locator) Valid(dir string) bool {
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return false
	}
	data, err := os.ReadFile(filepath.Join(dir, l.Manifest))
	if err != nil {
		return false
	}
	if gjson.GetBytes(data, "name").String() == l.Project {
		return true
	}
	return bytes.Contains(data, []byte(l.Project))
}

// canonicalize returns the absolute, symlink-resolved form of path.
func canonicalize(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", false
	}
	return resolved, true
}
