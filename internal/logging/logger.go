// Package logging is the process-wide human-readable log. The TUI owns the
// terminal, so everything goes to a dated file under the data directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	mu     sync.RWMutex
	logger *log.Logger
	file   *os.File
)

// Init opens <dataDir>/logs/universal-YYYY-MM-DD.log in append mode and
// routes package logging there. debug enables Debug lines.
func Init(dataDir string, debug bool) error {
	dir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	name := "universal-" + time.Now().Format(time.DateOnly) + ".log"
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	InitWriter(f, debug)
	mu.Lock()
	file = f
	mu.Unlock()
	return nil
}

// InitWriter routes package logging to w.
func InitWriter(w io.Writer, debug bool) {
	opts := log.Options{ReportTimestamp: true, TimeFormat: time.RFC3339, Level: log.InfoLevel}
	if debug {
		opts.Level = log.DebugLevel
	}
	l := log.NewWithOptions(w, opts)

	mu.Lock()
	logger = l
	mu.Unlock()
}

// Close closes the log file and detaches the logger.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Close()
		file = nil
	}
	logger = nil
}

func current() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// The level helpers are no-ops until Init or InitWriter runs.

func Debug(msg string, keyvals ...any) { logAt(log.DebugLevel, msg, keyvals) }
func Info(msg string, keyvals ...any)  { logAt(log.InfoLevel, msg, keyvals) }
func Warn(msg string, keyvals ...any)  { logAt(log.WarnLevel, msg, keyvals) }
func Error(msg string, keyvals ...any) { logAt(log.ErrorLevel, msg, keyvals) }

func logAt(lvl log.Level, msg string, keyvals []any) {
	if l := current(); l != nil {
		l.Log(lvl, msg, keyvals...)
	}
}

// WithPrefix returns a logger tagged with prefix, or nil before Init.
func WithPrefix(prefix string) *log.Logger {
	if l := current(); l != nil {
		return l.WithPrefix(prefix)
	}
	return nil
}
