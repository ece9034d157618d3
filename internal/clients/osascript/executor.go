package osascript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/tazhate/calbridge/internal/debuglog"
)

const (
	// DefaultPath is the macOS script runner.
	DefaultPath = "osascript"

	previewLen = 100
)

// Script return values. AppleScript has no structured status channel, so the
// mutation templates encode their outcome as one of these strings.
const (
	StatusSuccess  = "SUCCESS"
	StatusFailed   = "FAILED"
	StatusNotFound = "NOT_FOUND"
)

// Executor runs AppleScript through osascript, one process per call.
type Executor struct {
	path   string
	logger *debuglog.Logger
}

// NewExecutor creates an executor. An empty path means DefaultPath.
func NewExecutor(path string, logger *debuglog.Logger) *Executor {
	if path == "" {
		path = DefaultPath
	}
	return &Executor{path: path, logger: logger}
}

// Path returns the runner binary.
func (e *Executor) Path() string {
	return e.path
}

// Execute runs script and returns its trimmed stdout.
//
// stderr output on a successful run is logged as a warning. On failure the
// error text is classified into ErrAppNotRunning, ErrPermissionDenied or
// *ExecError. There is no timeout: a hung app blocks until ctx is done.
func (e *Executor) Execute(ctx context.Context, script string) (string, error) {
	preview := Preview(script)
	e.logger.Info("executing script", debuglog.Details{"preview": preview})

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.path, "-e", script)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = err.Error()
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) && stderr.Len() > 0 {
			message = err.Error() + ": " + message
		}
		classified := Classify(message)
		e.logger.Error("script failed", classified, debuglog.Details{
			"preview":  preview,
			"raw":      message,
			"duration": elapsed.String(),
		})
		return "", fmt.Errorf("run %s: %w", e.path, classified)
	}

	if warn := strings.TrimSpace(stderr.String()); warn != "" {
		e.logger.Warn("script wrote to stderr", debuglog.Details{"preview": preview, "stderr": warn})
	}

	out := strings.TrimSpace(stdout.String())
	e.logger.Info("script succeeded", debuglog.Details{
		"preview":  preview,
		"bytes":    len(out),
		"duration": elapsed.String(),
	})
	return out, nil
}

// Preview shortens script for logging: whitespace collapsed, at most
// previewLen runes.
func Preview(script string) string {
	collapsed := strings.Join(strings.Fields(script), " ")
	runes := []rune(collapsed)
	if len(runes) <= previewLen {
		return collapsed
	}
	return string(runes[:previewLen]) + "..."
}
