package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/tazhate/calbridge/internal/clients/osascript"
	"github.com/tazhate/calbridge/internal/domain"
)

// Validator checks configured names against the live app. Nothing is
// cached: calendars can be renamed or deleted between two calls.
type Validator struct {
	runner ScriptRunner
}

func NewValidator(runner ScriptRunner) *Validator {
	return &Validator{runner: runner}
}

// Calendars returns the names of all calendars in Calendar.
func (v *Validator) Calendars(ctx context.Context) ([]string, error) {
	out, err := v.runner.Execute(ctx, osascript.ListCalendarsScript())
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	return osascript.DecodeNames(out), nil
}

// ReminderLists returns the names of all lists in Reminders.
func (v *Validator) ReminderLists(ctx context.Context) ([]string, error) {
	out, err := v.runner.Execute(ctx, osascript.ListReminderListsScript())
	if err != nil {
		return nil, fmt.Errorf("list reminder lists: %w", err)
	}
	return osascript.DecodeNames(out), nil
}

func (v *Validator) ValidateCalendar(ctx context.Context, name string) (bool, error) {
	names, err := v.Calendars(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

func (v *Validator) ValidateReminderList(ctx context.Context, name string) (bool, error) {
	names, err := v.ReminderLists(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

// Options returns the live names for a category.
func (v *Validator) Options(ctx context.Context, cat domain.Category) ([]string, error) {
	if cat == domain.CategoryReminder {
		return v.ReminderLists(ctx)
	}
	return v.Calendars(ctx)
}

// Validate dispatches on category.
func (v *Validator) Validate(ctx context.Context, cat domain.Category, name string) (bool, error) {
	if cat == domain.CategoryReminder {
		return v.ValidateReminderList(ctx, name)
	}
	return v.ValidateCalendar(ctx, name)
}
