// Package debuglog writes the diagnostic trail to debug.log.
//
// Line format:
//
//	[2025-01-01T00:00:00.000Z] [INFO] message | Details: {"key":"value"}
//
// Lines without details still carry an empty "| Details: {}" suffix.
//
// Writing is best effort. A logger that cannot open or write its file keeps
// going silently so that diagnostics never turn into a second failure.
package debuglog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// Details carries structured context for a log line.
type Details map[string]any

type Logger struct {
	mu      sync.Mutex
	path    string
	console *log.Logger
	now     func() time.Time
}

// New returns a Logger appending to path. An empty path disables the file.
func New(path string) *Logger {
	return &Logger{path: path, now: time.Now}
}

// Discard returns a Logger that writes nowhere.
func Discard() *Logger {
	return New("")
}

// SetConsole mirrors every line to the given logger, typically stderr.
func (l *Logger) SetConsole(console *log.Logger) {
	l.mu.Lock()
	l.console = console
	l.mu.Unlock()
}

func (l *Logger) Info(msg string, details Details) {
	l.write(LevelInfo, msg, details)
}

func (l *Logger) Warn(msg string, details Details) {
	l.write(LevelWarn, msg, details)
}

// Error logs msg with err folded into the details under "error".
func (l *Logger) Error(msg string, err error, details Details) {
	merged := make(Details, len(details)+1)
	for k, v := range details {
		merged[k] = v
	}
	if err != nil {
		merged["error"] = err.Error()
	}
	l.write(LevelError, msg, merged)
}

// Format renders a single line without the trailing newline.
func Format(ts time.Time, level Level, msg string, details Details) string {
	line := "[" + ts.UTC().Format(timeLayout) + "] [" + string(level) + "] " + msg
	if len(details) == 0 {
		return line + " | Details: {}"
	}
	data, err := json.Marshal(details)
	if err != nil {
		data = []byte(fmt.Sprintf("%q", fmt.Sprint(details)))
	}
	return line + " | Details: " + string(data)
}

func (l *Logger) write(level Level, msg string, details Details) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	line := Format(l.now(), level, msg, details)
	if l.console != nil {
		l.console.Println(line)
	}
	if l.path == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	_, _ = f.WriteString(line + "\n")
	_ = f.Close()
}
