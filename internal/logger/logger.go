// Package logger is the process-wide structured logger, a thin layer over
// log/slog with a colored text format for terminals and JSON for files and
// collectors.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Config selects level, format and destination.
type Config struct {
	Level  string // DEBUG, INFO, WARN or ERROR
	Format string // text or json
	Output string // stdout, stderr or a file path
}

const (
	FormatText = "text"
	FormatJSON = "json"
)

type state struct {
	out    io.Writer
	file   *os.File // owned log file, closed when replaced
	color  bool
	format string
	logger *slog.Logger
}

var (
	level = new(slog.LevelVar)

	mu  sync.RWMutex
	cur = state{out: os.Stdout, color: isTerminal(os.Stdout), format: FormatText}
)

func init() {
	level.Set(slog.LevelInfo)
	rebuild()
}

// rebuild swaps in a handler for the current output and format.
// Callers hold mu, except init.
func rebuild() {
	var h slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if cur.format == FormatJSON {
		h = slog.NewJSONHandler(cur.out, opts)
	} else {
		h = NewColorTextHandler(cur.out, opts, cur.color)
	}
	cur.logger = slog.New(contextHandler{h})
}

// Init applies cfg. Empty fields keep their current value.
func Init(cfg Config) error {
	if cfg.Output != "" {
		out, file, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}
		mu.Lock()
		if cur.file != nil && cur.file != file {
			_ = cur.file.Close()
		}
		cur.out, cur.file = out, file
		cur.color = file == nil && isTerminal(out.(*os.File))
		rebuild()
		mu.Unlock()
	}
	SetLevel(cfg.Level)
	SetFormat(cfg.Format)
	return nil
}

func openOutput(dest string) (io.Writer, *os.File, error) {
	switch strings.ToLower(dest) {
	case "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %q: %w", dest, err)
	}
	return f, f, nil
}

// InitWithWriter sends output to w. Tests use it to capture logs.
func InitWithWriter(w io.Writer, lvl, format string, color bool) {
	mu.Lock()
	cur.out, cur.file, cur.color = w, nil, color
	rebuild()
	mu.Unlock()
	SetLevel(lvl)
	SetFormat(format)
}

// ParseLevel maps a level name, case-insensitively, to a slog level.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return 0, false
}

// SetLevel changes the minimum level. Unknown names are ignored.
func SetLevel(name string) {
	if l, ok := ParseLevel(name); ok {
		level.Set(l)
	}
}

// Level returns the current minimum level.
func Level() slog.Level {
	return level.Level()
}

// SetFormat switches between text and json. Unknown names are ignored.
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != FormatText && format != FormatJSON {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	if cur.format != format {
		cur.format = format
		rebuild()
	}
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return cur.logger
}

func log(ctx context.Context, l slog.Level, msg string, args []any) {
	if l < level.Level() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	current().Log(ctx, l, msg, args...)
}

// Debug logs msg with key/value pairs at debug level.
func Debug(msg string, args ...any) { log(context.Background(), slog.LevelDebug, msg, args) }

// Info logs msg with key/value pairs at info level.
func Info(msg string, args ...any) { log(context.Background(), slog.LevelInfo, msg, args) }

// Warn logs msg with key/value pairs at warn level.
func Warn(msg string, args ...any) { log(context.Background(), slog.LevelWarn, msg, args) }

// Error logs msg with key/value pairs at error level.
func Error(msg string, args ...any) { log(context.Background(), slog.LevelError, msg, args) }

// The Ctx variants also emit the LogContext fields carried by ctx.

func DebugCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelDebug, msg, args)
}

func InfoCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelInfo, msg, args)
}

func WarnCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelWarn, msg, args)
}

func ErrorCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelError, msg, args)
}

// With returns a logger with args bound to every record.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

// Duration returns the milliseconds elapsed since start.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
