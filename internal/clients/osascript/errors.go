package osascript

import (
	"errors"
	"strings"
)

var (
	// ErrAppNotRunning means Calendar or Reminders is not running.
	ErrAppNotRunning = errors.New("Calendar or Reminders app is not running; launch the app and retry")

	// ErrPermissionDenied means the automation permission was not granted.
	ErrPermissionDenied = errors.New("automation access to Calendar/Reminders denied; check System Settings > Privacy & Security > Automation")
)

// ExecError is any other failure reported by the script runner.
type ExecError struct {
	Message string
}

func (e *ExecError) Error() string {
	return "AppleScript execution failed: " + e.Message
}

var (
	notRunningPatterns = []string{"application isn't running", "application isn’t running", "(-600)"}
	permissionPatterns = []string{"permission", "not authorized", "(-1743)"}
)

// Classify maps raw error text from osascript to a typed error.
// osascript has no structured error channel so matching is on substrings.
func Classify(message string) error {
	lower := strings.ToLower(message)
	for _, p := range notRunningPatterns {
		if strings.Contains(lower, p) {
			return ErrAppNotRunning
		}
	}
	for _, p := range permissionPatterns {
		if strings.Contains(lower, p) {
			return ErrPermissionDenied
		}
	}
	return &ExecError{Message: strings.TrimSpace(message)}
}
