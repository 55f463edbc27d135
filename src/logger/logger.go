package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"startpage-sync/src/models"
)

// -----------------------------------------------------------------------------

// Logger is a named, printf-style logger backed by zerolog.
type Logger struct {
	name   string
	base   zerolog.Logger // without the component field, for Named
	logger zerolog.Logger
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance. A nil config logs INFO and above to
// stdout in console format.
func NewLogger(config *models.MConfig, name string) *Logger {
	level, format := "INFO", "console"
	if config != nil {
		if config.LogLevel != "" {
			level = config.LogLevel
		}
		if config.LogFormat != "" {
			format = config.LogFormat
		}
	}
	return NewLoggerWithWriter(os.Stdout, level, format, name)
}

// -----------------------------------------------------------------------------

// NewLoggerWithWriter builds a Logger writing to w. Used by tests to capture
// output.
func NewLoggerWithWriter(w io.Writer, level, format, name string) *Logger {
	var out io.Writer = w
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime, NoColor: true}
	}

	base := zerolog.New(out).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()

	return &Logger{name: name, base: base, logger: base.With().Str("component", name).Logger()}
}

// -----------------------------------------------------------------------------

// Discard returns a Logger that drops everything.
func Discard(name string) *Logger {
	return &Logger{name: name, base: zerolog.Nop(), logger: zerolog.Nop()}
}

// -----------------------------------------------------------------------------

// Named derives a logger for a sub-component sharing the same sink and level.
func (l *Logger) Named(name string) *Logger {
	return &Logger{name: name, base: l.base, logger: l.base.With().Str("component", name).Logger()}
}

// -----------------------------------------------------------------------------

func (l *Logger) Name() string {
	return l.name
}

// -----------------------------------------------------------------------------

func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

func (l *Logger) Warning(format string, args ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.Info().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.Error().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.logger.WithLevel(zerolog.FatalLevel).Msg(fmt.Sprintf(format, args...))
	os.Exit(1)
}

// -----------------------------------------------------------------------------

// IsDebug reports whether debug messages are emitted.
func (l *Logger) IsDebug() bool {
	return l.logger.GetLevel() <= zerolog.DebugLevel
}

// -----------------------------------------------------------------------------

func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARNING", "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "CRITICAL", "FATAL":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
