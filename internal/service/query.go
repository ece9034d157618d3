package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/tazhate/calbridge/internal/clients/osascript"
	"github.com/tazhate/calbridge/internal/debuglog"
	"github.com/tazhate/calbridge/internal/domain"
)

// GetEvents lists schedule events starting within days days from today.
// days is clamped to the configured maximum; limit <= 0 means MaxEvents.
func (s *CalendarService) GetEvents(ctx context.Context, days, limit int) ([]domain.CalendarEvent, error) {
	calendar, err := s.requireName(domain.CategorySchedule)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	return s.query(ctx, domain.CategorySchedule, calendar, days, limit)
}

// GetReminders lists open reminders due within the window or undated.
func (s *CalendarService) GetReminders(ctx context.Context, days, limit int) ([]domain.CalendarEvent, error) {
	list, err := s.requireName(domain.CategoryReminder)
	if err != nil {
		return nil, fmt.Errorf("get reminders: %w", err)
	}
	return s.query(ctx, domain.CategoryReminder, list, days, limit)
}

// GetEventsAndReminders runs both queries in parallel. A failing or
// unconfigured side yields an empty slice; the other side is unaffected.
func (s *CalendarService) GetEventsAndReminders(ctx context.Context, days, maxEvents, maxReminders int) domain.CombinedResult {
	cfg := s.Config()
	res := domain.CombinedResult{
		Events:       []domain.CalendarEvent{},
		Reminders:    []domain.CalendarEvent{},
		HasEvents:    cfg.ScheduleCalendar != "",
		HasReminders: cfg.ReminderCalendar != "",
	}

	var wg sync.WaitGroup
	if res.HasEvents {
		wg.Add(1)
		go func() {
			defer wg.Done()
			events, err := s.query(ctx, domain.CategorySchedule, cfg.ScheduleCalendar, days, maxEvents)
			if err != nil {
				res.EventsErr = err
				return
			}
			res.Events = events
		}()
	}
	if res.HasReminders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reminders, err := s.query(ctx, domain.CategoryReminder, cfg.ReminderCalendar, days, maxReminders)
			if err != nil {
				res.RemindersErr = err
				return
			}
			res.Reminders = reminders
		}()
	}
	wg.Wait()

	return res
}

// EffectiveWindow returns the clamped day count and cap for a request.
func (s *CalendarService) EffectiveWindow(days, limit int) (int, int) {
	app := s.AppConfig()
	return app.EffectiveDays(days), app.EffectiveLimit(limit)
}

func (s *CalendarService) query(ctx context.Context, cat domain.Category, name string, days, limit int) ([]domain.CalendarEvent, error) {
	window, capacity := s.EffectiveWindow(days, limit)

	script := osascript.EventsScript(name, window, capacity)
	if cat == domain.CategoryReminder {
		script = osascript.RemindersScript(name, window, capacity)
	}

	out, err := s.runner.Execute(ctx, script)
	if err != nil {
		s.logger.Error("query failed", err, debuglog.Details{"category": cat, "name": name, "days": window})
		return nil, fmt.Errorf("get %s entries from %q: %w", cat, name, err)
	}

	events := s.parser.Parse(out)
	if len(events) > capacity {
		events = events[:capacity]
	}
	return events, nil
}
