// Package logger provides verbose logging for the saai CLI.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr so users can follow session recovery and relay calls.
// Errors are always printed.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	log               = newLogger(os.Stderr)
)

func newLogger(w io.Writer) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		PartsOrder: []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel: func(i any) string {
			if s, ok := i.(string); ok {
				return fmt.Sprintf("[%s]", levelTag(s))
			}
			return "[?]"
		},
	}
	return zerolog.New(cw)
}

func levelTag(level string) string {
	switch level {
	case zerolog.LevelDebugValue:
		return "DEBUG"
	case zerolog.LevelInfoValue:
		return "INFO"
	case zerolog.LevelWarnValue:
		return "WARN"
	case zerolog.LevelErrorValue:
		return "ERROR"
	default:
		return level
	}
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	log = newLogger(w)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		log.Debug().Msgf(format, args...)
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		log.Info().Msgf(format, args...)
	}
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		log.Warn().Msgf(format, args...)
	}
}

// Error prints an error message regardless of verbose mode.
func Error(err error, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	ev := log.Error()
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msgf(format, args...)
}

// Fields prints a structured debug event if verbose mode is enabled.
func Fields(msg string, fields map[string]any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		log.Debug().Fields(fields).Msg(msg)
	}
}

// Token shortens a credential for log output.
func Token(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:8] + "..."
}
