// Package ics renders fetched events and reminders as an iCalendar document.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/tazhate/calbridge/internal/debuglog"
	"github.com/tazhate/calbridge/internal/domain"
)

const productID = "-//calbridge//Calendar Export//EN"

// appleLayouts are the en-US renderings of "date as string" seen from
// Calendar and Reminders across macOS releases.
var appleLayouts = []string{
	"Monday, January 2, 2006 at 3:04:05 PM",
	"Monday, January 2, 2006 3:04:05 PM",
	"Monday, January 2, 2006 at 15:04:05",
	"Monday, 2 January 2006 at 15:04:05",
	"January 2, 2006 at 3:04:05 PM",
	"2006-01-02 15:04:05",
}

// ParseAppleDate parses a date string produced by AppleScript in loc.
// The narrow no-break space newer releases put before AM/PM is accepted.
func ParseAppleDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(strings.NewReplacer("\u202f", " ", "\u00a0", " ").Replace(s))
	for _, layout := range appleLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Stats counts what a build wrote and what it had to leave out.
type Stats struct {
	Events    int
	Reminders int
	Skipped   int
}

type Exporter struct {
	logger *debuglog.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewExporter(logger *debuglog.Logger) *Exporter {
	return &Exporter{logger: logger, loc: time.Local, now: time.Now}
}

// Build converts events to VEVENTs and reminders to VTODOs. Events whose
// start date cannot be parsed are skipped; reminders without a parseable due
// date are exported undated.
func (e *Exporter) Build(events, reminders []domain.CalendarEvent) (*ical.Calendar, Stats) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	stamp := e.now().UTC()
	var stats Stats

	for _, ev := range events {
		comp, err := e.event(ev, stamp)
		if err != nil {
			stats.Skipped++
			e.logger.Warn("event skipped in export", debuglog.Details{"title": ev.Title, "error": err.Error()})
			continue
		}
		cal.Children = append(cal.Children, comp)
		stats.Events++
	}

	for _, r := range reminders {
		cal.Children = append(cal.Children, e.todo(r, stamp))
		stats.Reminders++
	}

	return cal, stats
}

// Write encodes cal to w.
func (e *Exporter) Write(w io.Writer, cal *ical.Calendar) error {
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func (e *Exporter) event(ev domain.CalendarEvent, stamp time.Time) (*ical.Component, error) {
	start, err := ParseAppleDate(ev.StartDate, e.loc)
	if err != nil {
		return nil, err
	}
	end, err := ParseAppleDate(ev.EndDate, e.loc)
	if err != nil || end.Before(start) {
		end = start.Add(time.Hour)
		if ev.AllDay {
			end = start.AddDate(0, 0, 1)
		}
	}

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, uid("event", ev.Title, ev.StartDate, ev.Calendar))
	vevent.Props.SetText(ical.PropSummary, ev.Title)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	if ev.Calendar != "" {
		vevent.Props.SetText(ical.PropCategories, ev.Calendar)
	}

	if ev.AllDay {
		vevent.Props.SetDate(ical.PropDateTimeStart, start)
		vevent.Props.SetDate(ical.PropDateTimeEnd, end)
	} else {
		vevent.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
	}
	return vevent.Component, nil
}

func (e *Exporter) todo(r domain.CalendarEvent, stamp time.Time) *ical.Component {
	todo := ical.NewComponent(ical.CompToDo)
	todo.Props.SetText(ical.PropUID, uid("reminder", r.Title, r.StartDate, r.Calendar))
	todo.Props.SetText(ical.PropSummary, r.Title)
	todo.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	todo.Props.SetText(ical.PropStatus, "NEEDS-ACTION")
	if r.Calendar != "" {
		todo.Props.SetText(ical.PropCategories, r.Calendar)
	}

	if r.StartDate != "" {
		due, err := ParseAppleDate(r.StartDate, e.loc)
		if err == nil {
			todo.Props.SetDateTime(ical.PropDue, due.UTC())
		} else {
			e.logger.Warn("reminder due date dropped in export", debuglog.Details{"title": r.Title, "error": err.Error()})
		}
	}
	return todo
}

// uid is stable across exports so importers update rather than duplicate.
func uid(kind string, parts ...string) string {
	name := kind + "\x00" + strings.Join(parts, "\x00")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String() + "@calbridge"
}
