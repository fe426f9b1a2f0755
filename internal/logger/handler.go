package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"
)

// fanoutHandler forwards every record to all child handlers. Write errors
// from individual sinks are dropped; a broken sink must not silence the rest.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, c := range h.handlers {
		if c.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, c := range h.handlers {
		if c.Enabled(ctx, r.Level) {
			c.Handle(ctx, r.Clone()) //nolint:errcheck
		}
	}
	return nil
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, c := range h.handlers {
		out[i] = c.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: out}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, c := range h.handlers {
		out[i] = c.WithGroup(name)
	}
	return &fanoutHandler{handlers: out}
}

// lineHandler is the shared base for the console and file sinks. It renders
// records as single lines via a format func and serializes writes.
type lineHandler struct {
	opts   slog.HandlerOptions
	w      io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	format func(buf *bytes.Buffer, r slog.Record, attrs []slog.Attr)
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	all := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	all = append(all, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		all = append(all, a)
		return true
	})
	h.format(&buf, r, all)
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(merged, h.attrs)
	copy(merged[len(h.attrs):], attrs)
	return &lineHandler{opts: h.opts, w: h.w, mu: h.mu, attrs: merged, format: h.format}
}

// WithGroup flattens groups: this logger never nests attrs deep enough for
// grouping to matter, and flat key=val lines grep better.
func (h *lineHandler) WithGroup(string) slog.Handler { return h }

const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiCyan   = "\033[36m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiGray   = "\033[90m"
)

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed
	case level >= slog.LevelWarn:
		return ansiYellow
	case level >= slog.LevelInfo:
		return ansiCyan
	default:
		return ansiGray
	}
}

// newConsoleHandler renders "15:04:05.000  LEVEL  message key=val" lines,
// colored when stderr is a terminal.
func newConsoleHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	color := isTTY(w)
	return &lineHandler{
		opts: *opts,
		w:    w,
		mu:   &sync.Mutex{},
		format: func(buf *bytes.Buffer, r slog.Record, attrs []slog.Attr) {
			ts := r.Time.Format("15:04:05.000")
			lv := fmt.Sprintf("%-5s", r.Level.String())
			if color {
				buf.WriteString(ansiDim + ts + ansiReset + "  ")
				buf.WriteString(levelColor(r.Level) + lv + ansiReset + "  ")
			} else {
				buf.WriteString(ts + "  " + lv + "  ")
			}
			buf.WriteString(r.Message)
			writeAttrs(buf, attrs)
		},
	}
}

// newFileHandler renders "[<unix-timestamp>] message key=val" lines, the
// format expected by anyone tailing the per-user log file.
func newFileHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	return &lineHandler{
		opts: *opts,
		w:    w,
		mu:   &sync.Mutex{},
		format: func(buf *bytes.Buffer, r slog.Record, attrs []slog.Attr) {
			t := r.Time
			if t.IsZero() {
				t = time.Now()
			}
			fmt.Fprintf(buf, "[%d] %s", t.Unix(), r.Message)
			writeAttrs(buf, attrs)
		},
	}
}

func writeAttrs(buf *bytes.Buffer, attrs []slog.Attr) {
	for _, a := range attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(a.Value))
	}
}

// formatValue converts a slog.Value to a string, quoting strings that contain
// spaces, quotes, or are empty.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if needsQuoting(s) {
			return strconv.Quote(s)
		}
		return s
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	default:
		s := fmt.Sprintf("%v", v.Any())
		if needsQuoting(s) {
			return strconv.Quote(s)
		}
		return s
	}
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	for _, c := range s {
		if c == ' ' || c == '"' || c == '=' || c == '\n' || c == '\t' {
			return true
		}
	}
	return false
}

// isTTY reports whether w is a character device. Checks NO_COLOR and
// TERM=dumb per clig.dev guidelines.
func isTTY(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
