package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the encoding of log entries.
type Format string

const (
	// FormatConsole writes human readable lines.
	FormatConsole Format = "console"
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

var (
	// global is the shared logger instance used when the context carries none.
	//nolint:gochecknoglobals // Logger is used all over the project, so it's okay.
	global *zap.SugaredLogger
	// currentLevel is the minimum log level for messages to be processed.
	//nolint:gochecknoglobals // Shared by every logger built with a nil level.
	currentLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
)

func init() { //nolint:gochecknoinits // If the logging level is not set, the application will have no logs.
	SetLogger(New(currentLevel, os.Stderr, FormatConsole))
}

// New creates a *zap.SugaredLogger writing entries in format to out.
// Standard output carries the run summary, so callers normally pass os.Stderr.
// A nil level uses the shared atomic level changed by SetLevel.
func New(level zapcore.LevelEnabler, out io.Writer, format Format, options ...zap.Option) *zap.SugaredLogger {
	if level == nil {
		level = currentLevel
	}

	if out == nil {
		out = os.Stderr
	}

	core := zapcore.NewCore(newEncoder(format), zapcore.AddSync(out), level)

	return zap.New(core, options...).Sugar()
}

func newEncoder(format Format) zapcore.Encoder {
	//nolint:exhaustruct // Remaining encoder settings keep their defaults.
	config := zapcore.EncoderConfig{
		TimeKey:        "time",
		MessageKey:     "message",
		LevelKey:       "level",
		NameKey:        "logger",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	if format == FormatJSON {
		config.EncodeLevel = zapcore.LowercaseLevelEncoder

		return zapcore.NewJSONEncoder(config)
	}

	config.EncodeLevel = zapcore.CapitalLevelEncoder
	config.ConsoleSeparator = "  "

	return zapcore.NewConsoleEncoder(config)
}

// ParseLogLevel converts string input to zap log level.
func ParseLogLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// ParseFormat converts string input to a log format.
func ParseFormat(s string) (Format, bool) {
	switch format := Format(strings.ToLower(strings.TrimSpace(s))); format {
	case FormatConsole, FormatJSON:
		return format, true
	default:
		return FormatConsole, false
	}
}

// Configure replaces the global logger with one writing format to stderr at level.
func Configure(level zapcore.Level, format Format) {
	SetLevel(level)
	SetLogger(New(currentLevel, os.Stderr, format))
}

// Level returns the current logging level of the global logger.
func Level() zapcore.Level {
	return currentLevel.Level()
}

// Logger returns the global logger.
func Logger() *zap.SugaredLogger {
	return global
}

// SetLogger sets the global logger.
// This function is not thread-safe.
func SetLogger(l *zap.SugaredLogger) {
	global = l
}

// SetLevel sets the log level shared by the global logger.
func SetLevel(level zapcore.Level) {
	//nolint:errcheck // Stderr sync errors are irrelevant here.
	defer global.Sync()

	currentLevel.SetLevel(level)
}

// Info writes an information level message using the logger from the context.
func Info(ctx context.Context, args ...any) {
	FromContext(ctx).Info(args...)
}

// DebugKV writes a message and key-value pairs at the debug level.
func DebugKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Debugw(message, kvs...)
}

// InfoKV writes a message and key-value pairs at the information level.
func InfoKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Infow(message, kvs...)
}

// WarnKV writes a message and key-value pairs at the warning level.
func WarnKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Warnw(message, kvs...)
}

// ErrorKV writes a message and key-value pairs at the error level.
func ErrorKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Errorw(message, kvs...)
}
