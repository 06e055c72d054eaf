// Package logger is the process-wide structured logger of dittobox.
//
// It wraps log/slog with a level and format that can be changed at runtime
// and with context-aware variants that prepend the fields of a LogContext
// (trace, operation, actor, path) to every record.
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
)

// Level represents log levels
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps a case-insensitive level name to a Level.
func ParseLevel(name string) (Level, bool) {
	for i, n := range levelNames {
		if strings.EqualFold(name, n) {
			return Level(i), true
		}
	}
	return LevelInfo, false
}

// Config holds logger configuration
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

// sink is the current destination. Logs default to stderr so command output
// on stdout stays machine readable.
type sink struct {
	w      io.Writer
	color  bool
	format string
}

var (
	level slog.LevelVar

	mu      sync.RWMutex
	current = sink{w: os.Stderr, format: "text"}
	slogger *slog.Logger
	closer  io.Closer
)

func init() {
	current.color = isTerminal(os.Stderr.Fd())
	rebuild()
}

// rebuild replaces the slog logger after a sink change. Level changes do not
// need it since the handler reads the shared LevelVar.
func rebuild() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: &level}
	var h slog.Handler
	if current.format == "json" {
		h = slog.NewJSONHandler(current.w, opts)
	} else {
		h = NewColorTextHandler(current.w, opts, current.color)
	}
	slogger = slog.New(h)
}

func openSink(out string) (sink, io.Closer, error) {
	switch strings.ToLower(out) {
	case "", "stderr":
		return sink{w: os.Stderr, color: isTerminal(os.Stderr.Fd())}, nil, nil
	case "stdout":
		return sink{w: os.Stdout, color: isTerminal(os.Stdout.Fd())}, nil, nil
	}
	f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return sink{}, nil, fmt.Errorf("failed to open log file %q: %w", out, err)
	}
	return sink{w: f}, f, nil
}

// Init configures level, format and destination. Output is "stdout",
// "stderr" or a file path opened in append mode.
func Init(cfg Config) error {
	if cfg.Output != "" {
		s, c, err := openSink(cfg.Output)
		if err != nil {
			return err
		}
		mu.Lock()
		s.format = current.format
		current = s
		if closer != nil {
			_ = closer.Close()
		}
		closer = c
		mu.Unlock()
	}

	SetLevel(cfg.Level)
	SetFormat(cfg.Format)
	rebuild()
	return nil
}

// InitWithWriter directs output to w. Used by tests.
func InitWithWriter(w io.Writer, lvl, format string, enableColor bool) {
	mu.Lock()
	current.w = w
	current.color = enableColor
	mu.Unlock()

	SetLevel(lvl)
	SetFormat(format)
	rebuild()
}

// SetLevel sets the minimum log level. Unknown names are ignored.
func SetLevel(name string) {
	if l, ok := ParseLevel(name); ok {
		level.Set(l.slog())
	}
}

// SetFormat switches between "text" and "json". Unknown formats are ignored.
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	mu.Lock()
	changed := current.format != format
	current.format = format
	mu.Unlock()
	if changed {
		rebuild()
	}
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

func emit(ctx context.Context, lvl slog.Level, msg string, args []any) {
	if lvl < level.Level() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	get().Log(ctx, lvl, msg, appendContextFields(ctx, args)...)
}

// Debug logs at debug level: Debug("message", "key1", value1, ...)
func Debug(msg string, args ...any) { emit(context.Background(), slog.LevelDebug, msg, args) }

// Info logs at info level.
func Info(msg string, args ...any) { emit(context.Background(), slog.LevelInfo, msg, args) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { emit(context.Background(), slog.LevelWarn, msg, args) }

// Error logs at error level.
func Error(msg string, args ...any) { emit(context.Background(), slog.LevelError, msg, args) }

// DebugCtx logs at debug level, prefixed with the LogContext fields of ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	emit(ctx, slog.LevelDebug, msg, args)
}

// InfoCtx logs at info level with context.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	emit(ctx, slog.LevelInfo, msg, args)
}

// WarnCtx logs at warn level with context.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	emit(ctx, slog.LevelWarn, msg, args)
}

// ErrorCtx logs at error level with context.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	emit(ctx, slog.LevelError, msg, args)
}

func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	fields := []struct{ key, value string }{
		{KeyTraceID, lc.TraceID},
		{KeySpanID, lc.SpanID},
		{KeyOperation, lc.Operation},
		{KeyActor, lc.Actor},
		{KeyPath, lc.Path},
	}
	out := make([]any, 0, 2*len(fields)+len(args))
	for _, f := range fields {
		if f.value != "" {
			out = append(out, f.key, f.value)
		}
	}
	return append(out, args...)
}

// With returns a logger with additional attributes bound.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

// Duration returns the time elapsed since start in milliseconds.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
