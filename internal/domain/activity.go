package domain

import (
	"fmt"
	"time"
)

type ActivityAction string

const (
	ActionAdd          ActivityAction = "ADD"
	ActionAddFailed    ActivityAction = "ADD_FAILED"
	ActionDelete       ActivityAction = "DELETE"
	ActionDeleteFailed ActivityAction = "DELETE_FAILED"
)

type ActivityKind string

const (
	KindEvent    ActivityKind = "event"
	KindReminder ActivityKind = "reminder"
)

// ActivityEntry is one audit line. Written once, never read back.
type ActivityEntry struct {
	Timestamp time.Time
	Action    ActivityAction
	Kind      ActivityKind
	Title     string
}

// ActivityTimeLayout is ISO 8601 in UTC with milliseconds.
const ActivityTimeLayout = "2006-01-02T15:04:05.000Z"

// Line renders the entry as it appears in activity.log, without newline.
// The title is Go-quoted so a newline in it cannot start a forged entry.
func (e ActivityEntry) Line() string {
	return fmt.Sprintf("[%s] %s %s %q", e.Timestamp.UTC().Format(ActivityTimeLayout), e.Action, e.Kind, e.Title)
}
