package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tazhate/calbridge/internal/clients/osascript"
	"github.com/tazhate/calbridge/internal/debuglog"
	"github.com/tazhate/calbridge/internal/domain"
	"github.com/tazhate/calbridge/internal/storage"
)

// ScriptRunner executes one automation script and returns its output.
type ScriptRunner interface {
	Execute(ctx context.Context, script string) (string, error)
}

// CalendarService bridges calendar and reminder operations to the
// Calendar and Reminders apps.
//
// The selection is held in memory for the life of the process and handed
// out as copies. Callers never see the service's own value.
type CalendarService struct {
	store     *storage.Store
	runner    ScriptRunner
	parser    *osascript.Parser
	validator *Validator
	activity  *storage.ActivityLog
	logger    *debuglog.Logger
	now       func() time.Time

	mu        sync.RWMutex
	config    domain.CalendarConfig
	persisted domain.CalendarConfig
	app       domain.AppConfig
	state     SetupState
}

// NewCalendarService creates a service. Call Init before use.
func NewCalendarService(store *storage.Store, runner ScriptRunner, activity *storage.ActivityLog, logger *debuglog.Logger) *CalendarService {
	return &CalendarService{
		store:     store,
		runner:    runner,
		parser:    osascript.NewParser(logger),
		validator: NewValidator(runner),
		activity:  activity,
		logger:    logger,
		now:       time.Now,
		app:       domain.DefaultAppConfig(),
		state:     StateUnconfigured,
	}
}

// Config returns a copy of the current selection.
func (s *CalendarService) Config() domain.CalendarConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// AppConfig returns the operational limits loaded at Init.
func (s *CalendarService) AppConfig() domain.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.app
}

// ConnectionStatus reports which categories are configured.
func (s *CalendarService) ConnectionStatus() domain.ConnectionStatus {
	return s.Config().Status()
}

// Calendars returns the live calendar names.
func (s *CalendarService) Calendars(ctx context.Context) ([]string, error) {
	return s.validator.Calendars(ctx)
}

// ReminderLists returns the live reminder list names.
func (s *CalendarService) ReminderLists(ctx context.Context) ([]string, error) {
	return s.validator.ReminderLists(ctx)
}

// requireName returns the configured name for cat or a ConfigError.
func (s *CalendarService) requireName(cat domain.Category) (string, error) {
	name := s.Config().Name(cat)
	if name == "" {
		return "", &domain.ConfigError{Category: cat}
	}
	return name, nil
}

// AddEvent creates an event in the schedule calendar. A nil end means one
// hour after start.
func (s *CalendarService) AddEvent(ctx context.Context, title string, start time.Time, end *time.Time) (domain.OperationResult, error) {
	calendar, err := s.requireName(domain.CategorySchedule)
	if err != nil {
		return domain.ResultFailed, fmt.Errorf("add %s %q: %w", domain.KindEvent, title, err)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.ResultFailed, fmt.Errorf("event title cannot be empty")
	}

	finish := start.Add(time.Hour)
	if end != nil {
		finish = *end
	}
	if finish.Before(start) {
		return domain.ResultFailed, fmt.Errorf("event %q ends before it starts", title)
	}

	out, err := s.runner.Execute(ctx, osascript.AddEventScript(calendar, title, start, finish))
	return s.finishAdd(domain.KindEvent, title, out, err)
}

// RemoveEvent deletes the first event titled exactly title.
func (s *CalendarService) RemoveEvent(ctx context.Context, title string) (domain.OperationResult, error) {
	calendar, err := s.requireName(domain.CategorySchedule)
	if err != nil {
		return domain.ResultFailed, fmt.Errorf("remove %s %q: %w", domain.KindEvent, title, err)
	}

	out, err := s.runner.Execute(ctx, osascript.DeleteEventScript(calendar, title))
	return s.finishRemove(domain.KindEvent, title, out, err)
}

// AddReminder creates a reminder, optionally with a due date.
func (s *CalendarService) AddReminder(ctx context.Context, title string, due *time.Time) (domain.OperationResult, error) {
	list, err := s.requireName(domain.CategoryReminder)
	if err != nil {
		return domain.ResultFailed, fmt.Errorf("add %s %q: %w", domain.KindReminder, title, err)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.ResultFailed, fmt.Errorf("reminder title cannot be empty")
	}

	out, err := s.runner.Execute(ctx, osascript.AddReminderScript(list, title, due))
	return s.finishAdd(domain.KindReminder, title, out, err)
}

// RemoveReminder deletes the first reminder titled exactly title.
func (s *CalendarService) RemoveReminder(ctx context.Context, title string) (domain.OperationResult, error) {
	list, err := s.requireName(domain.CategoryReminder)
	if err != nil {
		return domain.ResultFailed, fmt.Errorf("remove %s %q: %w", domain.KindReminder, title, err)
	}

	out, err := s.runner.Execute(ctx, osascript.DeleteReminderScript(list, title))
	return s.finishRemove(domain.KindReminder, title, out, err)
}

// AddTestEvent adds an event starting ten minutes from now.
func (s *CalendarService) AddTestEvent(ctx context.Context) (string, domain.OperationResult, error) {
	now := s.now()
	title := fmt.Sprintf("Test event %s", now.Format("15:04"))
	res, err := s.AddEvent(ctx, title, now.Add(10*time.Minute), nil)
	return title, res, err
}

// AddTestReminder adds a reminder due two hours from now.
func (s *CalendarService) AddTestReminder(ctx context.Context) (string, domain.OperationResult, error) {
	now := s.now()
	title := fmt.Sprintf("Test reminder %s", now.Format("15:04"))
	due := now.Add(2 * time.Hour)
	res, err := s.AddReminder(ctx, title, &due)
	return title, res, err
}

func (s *CalendarService) finishAdd(kind domain.ActivityKind, title, out string, err error) (domain.OperationResult, error) {
	if err != nil {
		s.activity.Record(domain.ActionAddFailed, kind, title)
		s.logger.Error("add failed", err, debuglog.Details{"kind": kind, "title": title})
		return domain.ResultFailed, fmt.Errorf("add %s %q: %w", kind, title, err)
	}
	if osascript.ResultStatus(out) == osascript.StatusSuccess {
		s.activity.Record(domain.ActionAdd, kind, title)
		return domain.ResultSuccess, nil
	}
	s.activity.Record(domain.ActionAddFailed, kind, title)
	s.logger.Warn("add reported failure", debuglog.Details{"kind": kind, "title": title, "output": out})
	return domain.ResultFailed, nil
}

func (s *CalendarService) finishRemove(kind domain.ActivityKind, title, out string, err error) (domain.OperationResult, error) {
	if err != nil {
		s.activity.Record(domain.ActionDeleteFailed, kind, title)
		s.logger.Error("delete failed", err, debuglog.Details{"kind": kind, "title": title})
		return domain.ResultFailed, fmt.Errorf("remove %s %q: %w", kind, title, err)
	}

	switch osascript.ResultStatus(out) {
	case osascript.StatusSuccess:
		s.activity.Record(domain.ActionDelete, kind, title)
		return domain.ResultSuccess, nil
	case osascript.StatusNotFound:
		s.activity.Record(domain.ActionDeleteFailed, kind, title)
		return domain.ResultNotFound, nil
	default:
		s.activity.Record(domain.ActionDeleteFailed, kind, title)
		s.logger.Warn("delete reported failure", debuglog.Details{"kind": kind, "title": title, "output": out})
		return domain.ResultFailed, nil
	}
}
