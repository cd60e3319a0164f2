// Package logger provides process-wide structured logging for clause.
// It wraps a single logrus logger; --verbose lowers the level to debug so
// the stage-by-stage progress of the pipeline becomes visible.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields is a set of structured log fields.
type Fields = logrus.Fields

var (
	mu      sync.RWMutex
	verbose bool
	base    = logrus.InfoLevel
	std     = newLogger()
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Init configures level ("debug", "info", "warn", "error") and format
// ("text" or "json").
func Init(level, format string) error {
	lvl := logrus.InfoLevel
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("parse log level: %w", err)
		}
		lvl = parsed
	}

	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(format) {
	case "", "text":
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		std.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	base = lvl
	if !verbose {
		std.SetLevel(lvl)
	}
	return nil
}

// SetVerbose enables or disables debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		std.SetLevel(logrus.DebugLevel)
	} else {
		std.SetLevel(base)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer. Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std.SetOutput(w)
}

// With returns an entry carrying fields, for call sites that log several
// lines about the same document or stage.
func With(fields Fields) *logrus.Entry {
	return std.WithFields(fields)
}

// Debug logs at debug level. Only visible in verbose mode.
func Debug(format string, args ...any) {
	std.Debugf(format, args...)
}

// Section logs a section header at debug level.
func Section(name string) {
	std.Debugf("=== %s ===", name)
}

// Info logs at info level.
func Info(format string, args ...any) {
	std.Infof(format, args...)
}

// Warn logs at warn level.
func Warn(format string, args ...any) {
	std.Warnf(format, args...)
}

// Error logs at error level.
func Error(format string, args ...any) {
	std.Errorf(format, args...)
}
