package main

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tazhate/calbridge/internal/domain"
)

// Bridge is the calendar surface the tools call into.
type Bridge interface {
	ConnectionStatus() domain.ConnectionStatus
	EffectiveWindow(days, limit int) (int, int)
	GetEvents(ctx context.Context, days, limit int) ([]domain.CalendarEvent, error)
	GetReminders(ctx context.Context, days, limit int) ([]domain.CalendarEvent, error)
	GetEventsAndReminders(ctx context.Context, days, maxEvents, maxReminders int) domain.CombinedResult
	AddEvent(ctx context.Context, title string, start time.Time, end *time.Time) (domain.OperationResult, error)
	RemoveEvent(ctx context.Context, title string) (domain.OperationResult, error)
	AddReminder(ctx context.Context, title string, due *time.Time) (domain.OperationResult, error)
	RemoveReminder(ctx context.Context, title string) (domain.OperationResult, error)
	AddTestEvent(ctx context.Context) (string, domain.OperationResult, error)
	AddTestReminder(ctx context.Context) (string, domain.OperationResult, error)
}

var noArgs = InputSchema{Type: "object", Properties: map[string]Property{}}

func windowArgs(capKey, what string) InputSchema {
	return InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"days": {Type: "number", Description: "Days ahead starting today (default from config.json, capped at maxDays)"},
			capKey: {Type: "number", Description: "Maximum number of " + what + " (default and cap: maxEvents from config.json)"},
		},
	}
}

var tools = []Tool{
	{
		Name:        "check_calendar_connection",
		Description: "Show which calendar and reminder list are connected.",
		InputSchema: noArgs,
	},
	{
		Name:        "get_events",
		Description: "List calendar events starting within the next days.",
		InputSchema: windowArgs("maxEvents", "events"),
	},
	{
		Name:        "get_reminders",
		Description: "List open reminders due within the next days, plus undated ones.",
		InputSchema: windowArgs("maxReminders", "reminders"),
	},
	{
		Name:        "get_events_and_reminders",
		Description: "List events and reminders together. A side that is not connected or fails is reported empty.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"days":         {Type: "number", Description: "Days ahead starting today"},
				"maxEvents":    {Type: "number", Description: "Maximum number of events"},
				"maxReminders": {Type: "number", Description: "Maximum number of reminders"},
			},
		},
	},
	{
		Name:        "add_event",
		Description: "Add a timed event (meeting, appointment, class) to the connected calendar.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"title":     {Type: "string", Description: "Event title"},
				"startDate": {Type: "string", Description: "Start time, ISO 8601"},
				"endDate":   {Type: "string", Description: "End time, ISO 8601 (optional, default start + 1h)"},
			},
			Required: []string{"title", "startDate"},
		},
	},
	{
		Name:        "remove_event",
		Description: "Delete the first event with exactly this title.",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: map[string]Property{"title": {Type: "string", Description: "Title of the event to delete"}},
			Required:   []string{"title"},
		},
	},
	{
		Name:        "add_reminder",
		Description: "Add a to-do (task, chore, errand) to the connected reminder list.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"title":   {Type: "string", Description: "Reminder title"},
				"dueDate": {Type: "string", Description: "Due time, ISO 8601 (optional)"},
			},
			Required: []string{"title"},
		},
	},
	{
		Name:        "remove_reminder",
		Description: "Delete the first reminder with exactly this title.",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: map[string]Property{"title": {Type: "string", Description: "Title of the reminder to delete"}},
			Required:   []string{"title"},
		},
	},
	{
		Name:        "add_test_event",
		Description: "Add a test event starting in ten minutes.",
		InputSchema: noArgs,
	},
	{
		Name:        "add_test_reminder",
		Description: "Add a test reminder due in two hours.",
		InputSchema: noArgs,
	},
}

func (s *MCPServer) callTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	switch name {
	case "check_calendar_connection":
		return formatStatus(s.bridge.ConnectionStatus()), nil

	case "get_events", "get_reminders":
		days, err := intArg(args, "days")
		if err != nil {
			return "", err
		}
		capKey := "maxEvents"
		if name == "get_reminders" {
			capKey = "maxReminders"
		}
		limit, err := intArg(args, capKey)
		if err != nil {
			return "", err
		}
		window, _ := s.bridge.EffectiveWindow(days, limit)
		if name == "get_events" {
			events, err := s.bridge.GetEvents(ctx, days, limit)
			if err != nil {
				return "", err
			}
			return formatList("Events", window, events), nil
		}
		reminders, err := s.bridge.GetReminders(ctx, days, limit)
		if err != nil {
			return "", err
		}
		return formatList("Reminders", window, reminders), nil

	case "get_events_and_reminders":
		var nums [3]int
		for i, key := range []string{"days", "maxEvents", "maxReminders"} {
			n, err := intArg(args, key)
			if err != nil {
				return "", err
			}
			nums[i] = n
		}
		window, _ := s.bridge.EffectiveWindow(nums[0], 0)
		res := s.bridge.GetEventsAndReminders(ctx, nums[0], nums[1], nums[2])
		return formatCombined(window, res), nil

	case "add_event":
		title, err := stringArg(args, "title", true)
		if err != nil {
			return "", err
		}
		start, err := timeArg(args, "startDate", true)
		if err != nil {
			return "", err
		}
		end, err := timeArg(args, "endDate", false)
		if err != nil {
			return "", err
		}
		res, err := s.bridge.AddEvent(ctx, title, *start, end)
		if err != nil {
			return "", err
		}
		return addText(domain.KindEvent, title, s.bridge.ConnectionStatus().ScheduleName, res)

	case "add_reminder":
		title, err := stringArg(args, "title", true)
		if err != nil {
			return "", err
		}
		due, err := timeArg(args, "dueDate", false)
		if err != nil {
			return "", err
		}
		res, err := s.bridge.AddReminder(ctx, title, due)
		if err != nil {
			return "", err
		}
		return addText(domain.KindReminder, title, s.bridge.ConnectionStatus().ReminderName, res)

	case "remove_event", "remove_reminder":
		title, err := stringArg(args, "title", true)
		if err != nil {
			return "", err
		}
		kind := domain.KindEvent
		remove := s.bridge.RemoveEvent
		if name == "remove_reminder" {
			kind = domain.KindReminder
			remove = s.bridge.RemoveReminder
		}
		res, err := remove(ctx, title)
		if err != nil {
			return "", err
		}
		return removeText(kind, title, res)

	case "add_test_event":
		title, res, err := s.bridge.AddTestEvent(ctx)
		if err != nil {
			return "", err
		}
		return addText(domain.KindEvent, title, s.bridge.ConnectionStatus().ScheduleName, res)

	case "add_test_reminder":
		title, res, err := s.bridge.AddTestReminder(ctx)
		if err != nil {
			return "", err
		}
		return addText(domain.KindReminder, title, s.bridge.ConnectionStatus().ReminderName, res)
	}

	return "", fmt.Errorf("unknown tool: %s", name)
}

func formatStatus(st domain.ConnectionStatus) string {
	line := func(label string, ok bool, name string) string {
		if !ok {
			return fmt.Sprintf("%s: not connected", label)
		}
		return fmt.Sprintf("%s: connected (%s)", label, name)
	}

	var b strings.Builder
	b.WriteString("Calendar connection status\n\n")
	b.WriteString(line("Schedule calendar", st.ScheduleConnected, st.ScheduleName) + "\n")
	b.WriteString(line("Reminder list", st.ReminderConnected, st.ReminderName))
	if !st.ScheduleConnected && !st.ReminderConnected {
		b.WriteString("\n\nRun the server with --setup in a terminal to connect.")
	}
	return b.String()
}

func formatList(heading string, days int, items []domain.CalendarEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s for the next %d day(s) (%d)\n", heading, days, len(items))
	if len(items) == 0 {
		b.WriteString("\nNothing found.")
		return b.String()
	}
	for _, item := range items {
		fmt.Fprintf(&b, "\n- %s\n  %s", item.Title, item.FormatTime())
	}
	return b.String()
}

func formatCombined(days int, res domain.CombinedResult) string {
	var sections []string
	if res.HasEvents {
		s := formatList("Events", days, res.Events)
		if res.EventsErr != nil {
			s += "\n(events could not be read: " + res.EventsErr.Error() + ")"
		}
		sections = append(sections, s)
	} else {
		sections = append(sections, "Events: no schedule calendar connected")
	}
	if res.HasReminders {
		s := formatList("Reminders", days, res.Reminders)
		if res.RemindersErr != nil {
			s += "\n(reminders could not be read: " + res.RemindersErr.Error() + ")"
		}
		sections = append(sections, s)
	} else {
		sections = append(sections, "Reminders: no reminder list connected")
	}
	return strings.Join(sections, "\n\n")
}

func addText(kind domain.ActivityKind, title, target string, res domain.OperationResult) (string, error) {
	if res != domain.ResultSuccess {
		return "", fmt.Errorf("could not add %s %q to %q", kind, title, target)
	}
	return fmt.Sprintf("Added %s %q to %q.", kind, title, target), nil
}

func removeText(kind domain.ActivityKind, title string, res domain.OperationResult) (string, error) {
	switch res {
	case domain.ResultSuccess:
		return fmt.Sprintf("Removed %s %q.", kind, title), nil
	case domain.ResultNotFound:
		return fmt.Sprintf("No %s titled %q was found.", kind, title), nil
	}
	return "", fmt.Errorf("could not remove %s %q", kind, title)
}

func stringArg(args map[string]interface{}, key string, required bool) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("%s is required", key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	if required && strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

// intArg reads an optional integer. Missing means 0, which the bridge
// replaces with its default.
func intArg(args map[string]interface{}, key string) (int, error) {
	switch v := args[key].(type) {
	case nil:
		return 0, nil
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be an integer", key)
	}
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime accepts RFC 3339 or a local date or date-time without zone.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want ISO 8601 such as 2024-01-31T14:00", s)
}

func timeArg(args map[string]interface{}, key string, required bool) (*time.Time, error) {
	s, err := stringArg(args, key, required)
	if err != nil || s == "" {
		return nil, err
	}
	t, err := ParseTime(s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &t, nil
}
