package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tazhate/calbridge/internal/debuglog"
	"github.com/tazhate/calbridge/internal/domain"
)

// ActivityLog is the append-only audit trail of adds and deletes.
type ActivityLog struct {
	mu     sync.Mutex
	path   string
	logger *debuglog.Logger
	now    func() time.Time
}

func NewActivityLog(path string, logger *debuglog.Logger) *ActivityLog {
	return &ActivityLog{path: path, logger: logger, now: time.Now}
}

// Append writes one entry as a single line.
func (a *ActivityLog) Append(entry domain.ActivityEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("create activity log dir: %w", err)
	}
	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(entry.Line() + "\n"); err != nil {
		return fmt.Errorf("write activity log: %w", err)
	}
	return nil
}

// Record appends an entry stamped with the current time. A failed write is
// reported to the debug log only; the audited operation has already happened.
func (a *ActivityLog) Record(action domain.ActivityAction, kind domain.ActivityKind, title string) {
	entry := domain.ActivityEntry{
		Timestamp: a.now(),
		Action:    action,
		Kind:      kind,
		Title:     title,
	}
	if err := a.Append(entry); err != nil {
		a.logger.Error("activity log write failed", err, debuglog.Details{"entry": entry.Line()})
	}
}
