package osascript

import (
	"fmt"
	"strings"
	"time"
)

// Quote renders s as an AppleScript string literal. Backslashes and double
// quotes are escaped and line breaks become spaces, so user text can never
// terminate the literal or start a new statement.
func Quote(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\r\n", " ",
		"\r", " ",
		"\n", " ",
	)
	return `"` + r.Replace(s) + `"`
}

// dateLines emits statements that build variable name as the local time t.
// The day is reset to 1 before year and month are set so that e.g. setting
// February on the 31st cannot roll over into March.
func dateLines(name string, t time.Time) string {
	t = t.Local()
	secs := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return fmt.Sprintf(`set %[1]s to current date
set day of %[1]s to 1
set year of %[1]s to %[2]d
set month of %[1]s to %[3]d
set day of %[1]s to %[4]d
set time of %[1]s to %[5]d
`, name, t.Year(), int(t.Month()), t.Day(), secs)
}

// windowLines emits windowStart (today at midnight) and windowEnd.
func windowLines(days int) string {
	return fmt.Sprintf(`set windowStart to current date
set time of windowStart to 0
set windowEnd to windowStart + (%d * 86400)
`, days)
}

// ListCalendarsScript returns the names of all calendars in Calendar.
func ListCalendarsScript() string {
	return `tell application "Calendar"
	set names to {}
	repeat with cal in calendars
		set end of names to (name of cal)
	end repeat
	return names
end tell`
}

// ListReminderListsScript returns the names of all lists in Reminders.
func ListReminderListsScript() string {
	return `tell application "Reminders"
	set names to {}
	repeat with lst in lists
		set end of names to (name of lst)
	end repeat
	return names
end tell`
}

// EventsScript lists up to limit events of calendarName starting within the
// next days days, one title|start|end|calendar|allDay record per item.
func EventsScript(calendarName string, days, limit int) string {
	name := Quote(calendarName)
	return windowLines(days) + fmt.Sprintf(`tell application "Calendar"
	try
		set targetCal to calendar %[1]s
		set found to (every event of targetCal whose start date >= windowStart and start date <= windowEnd)
		set out to {}
		set n to 0
		repeat with evt in found
			if n >= %[2]d then exit repeat
			set end of out to ((summary of evt) & "|" & ((start date of evt) as string) & "|" & ((end date of evt) as string) & "|" & %[1]s & "|" & ((allday event of evt) as string))
			set n to n + 1
		end repeat
		return out
	on error
		return {}
	end try
end tell`, name, limit)
}

// RemindersScript lists up to limit open reminders of listName that are due
// within the window or have no due date.
func RemindersScript(listName string, days, limit int) string {
	name := Quote(listName)
	return windowLines(days) + fmt.Sprintf(`tell application "Reminders"
	try
		set targetList to list %[1]s
		set found to (every reminder of targetList whose completed is false)
		set out to {}
		set n to 0
		repeat with r in found
			if n >= %[2]d then exit repeat
			set due to due date of r
			if due is missing value then
				set end of out to ((name of r) & "|||" & %[1]s & "|false")
				set n to n + 1
			else if due >= windowStart and due <= windowEnd then
				set dueText to (due as string)
				set end of out to ((name of r) & "|" & dueText & "|" & dueText & "|" & %[1]s & "|false")
				set n to n + 1
			end if
		end repeat
		return out
	on error
		return {}
	end try
end tell`, name, limit)
}

// AddEventScript creates an event and returns SUCCESS or FAILED.
func AddEventScript(calendarName, title string, start, end time.Time) string {
	return dateLines("eventStart", start) + dateLines("eventEnd", end) + fmt.Sprintf(`tell application "Calendar"
	try
		set targetCal to calendar %s
		make new event at end of events of targetCal with properties {summary:%s, start date:eventStart, end date:eventEnd}
		return "%s"
	on error
		return "%s"
	end try
end tell`, Quote(calendarName), Quote(title), StatusSuccess, StatusFailed)
}

// AddReminderScript creates a reminder, with a due date when due is non-nil.
func AddReminderScript(listName, title string, due *time.Time) string {
	var prefix, props string
	if due != nil {
		prefix = dateLines("dueAt", *due)
		props = fmt.Sprintf("{name:%s, due date:dueAt}", Quote(title))
	} else {
		props = fmt.Sprintf("{name:%s}", Quote(title))
	}
	return prefix + fmt.Sprintf(`tell application "Reminders"
	try
		set targetList to list %s
		make new reminder at end of reminders of targetList with properties %s
		return "%s"
	on error
		return "%s"
	end try
end tell`, Quote(listName), props, StatusSuccess, StatusFailed)
}

// DeleteEventScript deletes the first event whose summary equals title.
func DeleteEventScript(calendarName, title string) string {
	return deleteScript("Calendar", "calendar", "event", "summary", calendarName, title)
}

// DeleteReminderScript deletes the first reminder whose name equals title.
func DeleteReminderScript(listName, title string) string {
	return deleteScript("Reminders", "list", "reminder", "name", listName, title)
}

func deleteScript(app, container, item, titleProp, containerName, title string) string {
	return fmt.Sprintf(`tell application "%[1]s"
	try
		set targetGroup to %[2]s %[5]s
		set matches to (every %[3]s of targetGroup whose %[4]s is %[6]s)
		if (count of matches) > 0 then
			delete item 1 of matches
			return "%[7]s"
		else
			return "%[8]s"
		end if
	on error
		return "%[9]s"
	end try
end tell`, app, container, item, titleProp, Quote(containerName), Quote(title), StatusSuccess, StatusNotFound, StatusFailed)
}

// ResultStatus maps a mutation script's output to its status constant.
// SUCCESS wins over NOT_FOUND; anything unrecognized is FAILED.
func ResultStatus(output string) string {
	switch {
	case strings.Contains(output, StatusSuccess):
		return StatusSuccess
	case strings.Contains(output, StatusNotFound):
		return StatusNotFound
	default:
		return StatusFailed
	}
}
