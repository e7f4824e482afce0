package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/hupe1980/umf/event"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a case-insensitive level name (debug, info, warn,
// warning, error).
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Output formats understood by NewLogger.
const (
	FormatJSON    = "json"
	FormatText    = "text"
	FormatConsole = "console"
)

// Logger defines the minimal logging interface used throughout umf. Arguments
// are slog style key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// LoggerConfig configures construction of a UMFLogger.
type LoggerConfig struct {
	Level       LogLevel
	Format      string // json, text or console
	Output      io.Writer
	AddSource   bool
	NoColor     bool // console format only
	Component   string
	SessionID   string
	CustomAttrs map[string]any
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: FormatJSON, Output: os.Stdout, CustomAttrs: map[string]any{}}
}

// UMFLogger wraps slog.Logger adding contextual cloning helpers and domain
// convenience methods. It is cheap to copy via the With* methods and
// implements Logger.
type UMFLogger struct {
	logger    *slog.Logger
	level     LogLevel
	context   map[string]any
	component string
	sessionID string
}

// NewLogger builds a UMFLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *UMFLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	level := slogLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

	var handler slog.Handler
	switch cfg.Format {
	case FormatText:
		handler = slog.NewTextHandler(out, opts)
	case FormatConsole:
		handler = tint.NewHandler(out, &tint.Options{Level: level, AddSource: cfg.AddSource, TimeFormat: time.TimeOnly, NoColor: cfg.NoColor})
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	ctx := maps.Clone(cfg.CustomAttrs)
	if ctx == nil {
		ctx = map[string]any{}
	}
	return &UMFLogger{logger: slog.New(handler), level: cfg.Level, context: ctx, component: cfg.Component, sessionID: cfg.SessionID}
}

// NewSlogLogger creates a UMFLogger writing to stdout with the given level and format.
func NewSlogLogger(level LogLevel, format string, addSource bool) *UMFLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}

var slogLevels = map[LogLevel]slog.Level{
	LogLevelDebug: slog.LevelDebug,
	LogLevelInfo:  slog.LevelInfo,
	LogLevelWarn:  slog.LevelWarn,
	LogLevelError: slog.LevelError,
}

func slogLevel(l LogLevel) slog.Level {
	if lvl, ok := slogLevels[l]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// derive copies l, including its attribute map, and applies mutate to the copy.
func (l *UMFLogger) derive(mutate func(*UMFLogger)) *UMFLogger {
	nl := *l
	nl.context = maps.Clone(l.context)
	if nl.context == nil {
		nl.context = map[string]any{}
	}
	mutate(&nl)
	return &nl
}

// WithContext adds a key/value attribute that will be attached to every log entry.
func (l *UMFLogger) WithContext(key string, value any) *UMFLogger {
	return l.derive(func(nl *UMFLogger) { nl.context[key] = value })
}

// WithComponent sets the logical component (router, eventlog, ...).
func (l *UMFLogger) WithComponent(c string) *UMFLogger {
	return l.derive(func(nl *UMFLogger) { nl.component = c })
}

// WithSession attaches a session identifier.
func (l *UMFLogger) WithSession(sid string) *UMFLogger {
	return l.derive(func(nl *UMFLogger) { nl.sessionID = sid })
}

func (l *UMFLogger) buildAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(l.context)+2)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.sessionID != "" {
		attrs = append(attrs, slog.String("session_id", l.sessionID))
	}
	for k, v := range l.context {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func (l *UMFLogger) log(level slog.Level, msg string, args ...any) {
	if level < slogLevel(l.level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(l.buildAttrs()...)
	r.Add(args...)
	_ = l.logger.Handler().Handle(context.Background(), r)
}

// Debug logs at debug level.
func (l *UMFLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs at info level.
func (l *UMFLogger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warn logs at warn level.
func (l *UMFLogger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs at error level.
func (l *UMFLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

// LogDispatch records the outcome of one router dispatch.
func (l *UMFLogger) LogDispatch(op string, dur time.Duration, err error, attrs ...any) {
	LogDispatch(l, op, dur, err, attrs...)
}

// LogAppend records one envelope written to an event log.
func (l *UMFLogger) LogAppend(env event.Envelope) {
	LogAppend(l, env)
}

// StartTimer returns a closure that logs the elapsed duration when invoked.
func (l *UMFLogger) StartTimer(op string) func() {
	start := time.Now()
	return func() { l.Info("Operation completed", "operation", op, "duration", time.Since(start)) }
}

// LogDispatch records the outcome of one router dispatch on any Logger:
// debug on success, warn on failure. attrs are appended as extra key/value
// pairs.
func LogDispatch(logger Logger, op string, dur time.Duration, err error, attrs ...any) {
	args := append([]any{"operation", op, "duration", dur}, attrs...)
	if err != nil {
		logger.Warn("Operation failed", append(args, "error", err.Error())...)
		return
	}
	logger.Debug("Operation completed", args...)
}

// LogAppend records one envelope written to an event log at debug level.
func LogAppend(logger Logger, env event.Envelope) {
	h := env.Header()
	logger.Debug("Event appended",
		"event_type", string(env.EventType),
		"sequence", env.Sequence,
		"event_id", h.ID,
		"session_id", h.SessionID,
	)
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}
