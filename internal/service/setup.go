package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tazhate/calbridge/internal/debuglog"
	"github.com/tazhate/calbridge/internal/domain"
)

// SetupState tracks the configuration lifecycle.
//
//	Unconfigured -> SetupInProgress -> Configured
//	Configured -> SetupInProgress   (revalidation found a stale name)
type SetupState int

const (
	StateUnconfigured SetupState = iota
	StateSetupInProgress
	StateConfigured
)

func (s SetupState) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateSetupInProgress:
		return "setup_in_progress"
	case StateConfigured:
		return "configured"
	}
	return fmt.Sprintf("SetupState(%d)", int(s))
}

// Prompter asks the user to pick one of options for a category. It returns
// the 1-based choice; 0 or anything out of range means skip.
type Prompter interface {
	Choose(ctx context.Context, cat domain.Category, options []string) (int, error)
}

var categories = []domain.Category{domain.CategorySchedule, domain.CategoryReminder}

// State returns the current lifecycle state.
func (s *CalendarService) State() SetupState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *CalendarService) setState(state SetupState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Init loads both documents and brings the service to a usable state.
//
// With nothing configured it runs setup. Otherwise every configured name is
// checked against the app; stale names are cleared and setup runs for them.
// A nil prompter skips the interactive part; categories stay unset.
func (s *CalendarService) Init(ctx context.Context, prompter Prompter) error {
	app := s.store.LoadAppConfig()
	cfg, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	s.mu.Lock()
	s.app = app
	s.config = cfg
	s.persisted = cfg
	s.mu.Unlock()

	if cfg.NeedsSetup() {
		s.logger.Info("setup required", nil)
		return s.RunSetup(ctx, prompter)
	}

	invalid, err := s.invalidCategories(ctx, cfg)
	if err != nil {
		// The names could not be checked, not proven stale. Keep them and
		// let Revalidate settle the state once the app answers.
		s.setState(stateFor(cfg))
		return fmt.Errorf("validate settings: %w", err)
	}
	if len(invalid) == 0 {
		s.setState(StateConfigured)
		s.logger.Info("settings valid", debuglog.Details{
			"scheduleCalendar": cfg.ScheduleCalendar,
			"reminderCalendar": cfg.ReminderCalendar,
		})
		return nil
	}

	s.clear(invalid)
	return s.RunSetup(ctx, prompter)
}

// RunSetup offers every unset category that has options and persists the
// result once, after all categories were offered.
func (s *CalendarService) RunSetup(ctx context.Context, prompter Prompter) error {
	s.setState(StateSetupInProgress)
	cfg := s.Config()

	if prompter == nil {
		s.logger.Warn("setup skipped: no interactive prompt available", nil)
	} else {
		options, err := s.fetchOptions(ctx)
		if err != nil {
			s.setState(stateFor(cfg))
			return fmt.Errorf("setup: %w", err)
		}
		for _, cat := range categories {
			if cfg.Name(cat) != "" || len(options[cat]) == 0 {
				continue
			}
			choice, err := prompter.Choose(ctx, cat, options[cat])
			if err != nil {
				s.setState(stateFor(cfg))
				return fmt.Errorf("choose %s: %w", cat.Label(), err)
			}
			if name, ok := Select(options[cat], choice); ok {
				cfg = cfg.WithName(cat, name)
				s.logger.Info("selected", debuglog.Details{"category": cat, "name": name})
			}
		}
	}

	return s.commit(cfg, stateFor(cfg))
}

// Revalidate re-checks configured names. Stale ones are cleared and
// persisted and the service falls back to SetupInProgress; when all names
// check out the service is Configured again.
func (s *CalendarService) Revalidate(ctx context.Context) error {
	cfg := s.Config()
	if cfg.NeedsSetup() {
		return nil
	}
	invalid, err := s.invalidCategories(ctx, cfg)
	if err != nil {
		return fmt.Errorf("revalidate: %w", err)
	}
	if len(invalid) == 0 {
		s.setState(stateFor(cfg))
		return nil
	}
	cfg = s.clear(invalid)
	return s.commit(cfg, StateSetupInProgress)
}

// Select maps a 1-based choice to an option. 0 or out of range skips.
func Select(options []string, choice int) (string, bool) {
	if choice < 1 || choice > len(options) {
		return "", false
	}
	return options[choice-1], true
}

func stateFor(cfg domain.CalendarConfig) SetupState {
	if cfg.NeedsSetup() {
		return StateUnconfigured
	}
	return StateConfigured
}

// clear unsets the given categories in memory and returns the new config.
func (s *CalendarService) clear(cats []domain.Category) domain.CalendarConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cat := range cats {
		s.logger.Warn("configured name no longer exists, clearing", debuglog.Details{
			"category": cat,
			"name":     s.config.Name(cat),
		})
		s.config = s.config.WithName(cat, "")
	}
	s.state = StateSetupInProgress
	return s.config
}

// commit installs cfg and saves it if it differs from what is on disk.
func (s *CalendarService) commit(cfg domain.CalendarConfig, state SetupState) error {
	s.mu.Lock()
	s.config = cfg
	s.state = state
	dirty := cfg != s.persisted
	s.mu.Unlock()

	if !dirty {
		return nil
	}
	if err := s.store.Save(cfg); err != nil {
		return err
	}

	s.mu.Lock()
	s.persisted = cfg
	s.mu.Unlock()
	s.logger.Info("settings saved", debuglog.Details{
		"scheduleCalendar": cfg.ScheduleCalendar,
		"reminderCalendar": cfg.ReminderCalendar,
	})
	return nil
}

// invalidCategories validates every configured category in parallel.
func (s *CalendarService) invalidCategories(ctx context.Context, cfg domain.CalendarConfig) ([]domain.Category, error) {
	type result struct {
		cat   domain.Category
		valid bool
		err   error
	}

	var wg sync.WaitGroup
	results := make([]result, len(categories))
	for i, cat := range categories {
		name := cfg.Name(cat)
		if name == "" {
			results[i] = result{cat: cat, valid: true}
			continue
		}
		wg.Add(1)
		go func(i int, cat domain.Category, name string) {
			defer wg.Done()
			valid, err := s.validator.Validate(ctx, cat, name)
			results[i] = result{cat: cat, valid: valid, err: err}
		}(i, cat, name)
	}
	wg.Wait()

	var invalid []domain.Category
	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.cat.Label(), r.err))
			continue
		}
		if !r.valid {
			invalid = append(invalid, r.cat)
		}
	}
	return invalid, errors.Join(errs...)
}

// fetchOptions lists calendars and reminder lists in parallel. One side
// failing leaves its options empty; both failing is an error.
func (s *CalendarService) fetchOptions(ctx context.Context) (map[domain.Category][]string, error) {
	var wg sync.WaitGroup
	names := make([][]string, len(categories))
	errs := make([]error, len(categories))
	for i, cat := range categories {
		wg.Add(1)
		go func(i int, cat domain.Category) {
			defer wg.Done()
			names[i], errs[i] = s.validator.Options(ctx, cat)
		}(i, cat)
	}
	wg.Wait()

	options := make(map[domain.Category][]string, len(categories))
	failed := 0
	for i, cat := range categories {
		if errs[i] != nil {
			failed++
			s.logger.Error("listing options failed", errs[i], debuglog.Details{"category": cat})
			continue
		}
		options[cat] = names[i]
	}
	if failed == len(categories) {
		return nil, errors.Join(errs...)
	}
	return options, nil
}
