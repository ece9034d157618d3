package domain

// OperationResult is the outcome of a mutating call against the app.
// NotFound is a normal outcome for deletes, not an error.
type OperationResult string

const (
	ResultSuccess  OperationResult = "success"
	ResultNotFound OperationResult = "not_found"
	ResultFailed   OperationResult = "failed"
)

// OK reports whether the operation succeeded.
func (r OperationResult) OK() bool {
	return r == ResultSuccess
}

// CombinedResult is the answer to a joint events + reminders query.
// HasEvents / HasReminders report whether the category is configured at all,
// independent of whether its query returned anything.
type CombinedResult struct {
	Events       []CalendarEvent
	Reminders    []CalendarEvent
	HasEvents    bool
	HasReminders bool
	EventsErr    error
	RemindersErr error
}
