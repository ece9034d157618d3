package domain

// Category is one of the two independently configurable targets.
type Category string

const (
	CategorySchedule Category = "schedule"
	CategoryReminder Category = "reminder"
)

// Label returns a human-readable name for prompts and messages.
func (c Category) Label() string {
	switch c {
	case CategorySchedule:
		return "schedule calendar"
	case CategoryReminder:
		return "reminder list"
	}
	return string(c)
}

// CalendarConfig holds the selected calendar and reminder list names.
// A name present here is believed valid but may be stale: the user can
// rename or delete calendars in the app at any time.
type CalendarConfig struct {
	ScheduleCalendar string `json:"scheduleCalendar,omitempty"`
	ReminderCalendar string `json:"reminderCalendar,omitempty"`
}

// NeedsSetup returns true if neither category is configured.
func (c CalendarConfig) NeedsSetup() bool {
	return c.ScheduleCalendar == "" && c.ReminderCalendar == ""
}

// Name returns the configured name for a category.
func (c CalendarConfig) Name(cat Category) string {
	if cat == CategoryReminder {
		return c.ReminderCalendar
	}
	return c.ScheduleCalendar
}

// WithName returns a copy with the category's name replaced.
func (c CalendarConfig) WithName(cat Category, name string) CalendarConfig {
	if cat == CategoryReminder {
		c.ReminderCalendar = name
	} else {
		c.ScheduleCalendar = name
	}
	return c
}

// Status projects the config into a ConnectionStatus.
func (c CalendarConfig) Status() ConnectionStatus {
	return ConnectionStatus{
		ScheduleConnected: c.ScheduleCalendar != "",
		ReminderConnected: c.ReminderCalendar != "",
		ScheduleName:      c.ScheduleCalendar,
		ReminderName:      c.ReminderCalendar,
	}
}

// AppConfig holds operational limits. Immutable after load.
type AppConfig struct {
	MaxEvents   int `json:"maxEvents"`
	DefaultDays int `json:"defaultDays"`
	MaxDays     int `json:"maxDays"`
}

const (
	DefaultMaxEvents   = 1000
	DefaultDefaultDays = 1
	DefaultMaxDays     = 365
)

// DefaultAppConfig returns the built-in limits.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		MaxEvents:   DefaultMaxEvents,
		DefaultDays: DefaultDefaultDays,
		MaxDays:     DefaultMaxDays,
	}
}

// Normalize replaces out-of-range values with defaults so that a partially
// filled document still yields usable limits.
func (c *AppConfig) Normalize() {
	if c.MaxEvents <= 0 {
		c.MaxEvents = DefaultMaxEvents
	}
	if c.DefaultDays < 1 {
		c.DefaultDays = DefaultDefaultDays
	}
	if c.MaxDays <= 0 {
		c.MaxDays = DefaultMaxDays
	}
	if c.DefaultDays > c.MaxDays {
		c.DefaultDays = c.MaxDays
	}
}

// EffectiveDays clamps a requested window. Zero or negative means default.
func (c AppConfig) EffectiveDays(days int) int {
	if days <= 0 {
		return c.DefaultDays
	}
	if days > c.MaxDays {
		return c.MaxDays
	}
	return days
}

// EffectiveLimit clamps a requested result cap. Zero or negative means MaxEvents.
func (c AppConfig) EffectiveLimit(limit int) int {
	if limit <= 0 || limit > c.MaxEvents {
		return c.MaxEvents
	}
	return limit
}

// CalendarEvent is a single event or reminder as reported by the app.
// Dates are kept as the app formats them and are not re-parsed.
type CalendarEvent struct {
	Title     string `json:"title"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate,omitempty"`
	Calendar  string `json:"calendar"`
	AllDay    bool   `json:"allDay"`
}

// FormatTime returns the start date with an all-day marker.
func (e CalendarEvent) FormatTime() string {
	if e.AllDay {
		return e.StartDate + " (all day)"
	}
	if e.StartDate == "" {
		return "no date"
	}
	return e.StartDate
}

// ConnectionStatus is a read-only view of which categories are configured.
type ConnectionStatus struct {
	ScheduleConnected bool   `json:"scheduleConnected"`
	ReminderConnected bool   `json:"reminderConnected"`
	ScheduleName      string `json:"scheduleName,omitempty"`
	ReminderName      string `json:"reminderName,omitempty"`
}
