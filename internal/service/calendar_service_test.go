package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tazhate/calbridge/internal/clients/osascript"
	"github.com/tazhate/calbridge/internal/debuglog"
	"github.com/tazhate/calbridge/internal/domain"
	"github.com/tazhate/calbridge/internal/storage"
)

// fakeRunner answers scripts by inspecting their text.
type fakeRunner struct {
	mu      sync.Mutex
	scripts []string
	respond func(script string) (string, error)
}

func (f *fakeRunner) Execute(_ context.Context, script string) (string, error) {
	f.mu.Lock()
	f.scripts = append(f.scripts, script)
	f.mu.Unlock()
	return f.respond(script)
}

func (f *fakeRunner) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scripts...)
}

// appResponder simulates Calendar and Reminders with fixed contents.
func appResponder(calendars, lists string) func(string) (string, error) {
	return func(script string) (string, error) {
		switch {
		case strings.Contains(script, "repeat with cal in calendars"):
			return calendars, nil
		case strings.Contains(script, "repeat with lst in lists"):
			return lists, nil
		case strings.Contains(script, "make new"):
			return osascript.StatusSuccess, nil
		case strings.Contains(script, `is "missing"`):
			return osascript.StatusNotFound, nil
		case strings.Contains(script, "delete item 1"):
			return osascript.StatusSuccess, nil
		case strings.Contains(script, "every event of targetCal"):
			return "Standup|Mon|Mon|Work|false, Offsite|Tue|Wed|Work|true", nil
		case strings.Contains(script, "every reminder of targetList"):
			return "Buy milk|||Inbox|false", nil
		}
		return "", errors.New("unexpected script")
	}
}

type fixedPrompter map[domain.Category]int

func (p fixedPrompter) Choose(_ context.Context, cat domain.Category, _ []string) (int, error) {
	return p[cat], nil
}

type testEnv struct {
	svc    *CalendarService
	runner *fakeRunner
	store  *storage.Store
	dir    string
}

func newTestEnv(t *testing.T, respond func(string) (string, error)) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := debuglog.Discard()
	store := storage.NewStore(filepath.Join(dir, "setting.json"), filepath.Join(dir, "config.json"), logger)
	runner := &fakeRunner{respond: respond}
	activity := storage.NewActivityLog(filepath.Join(dir, "activity.log"), logger)
	svc := NewCalendarService(store, runner, activity, logger)
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 14, 0, 0, 0, time.Local) }
	return &testEnv{svc: svc, runner: runner, store: store, dir: dir}
}

// configured seeds setting.json and runs Init without a prompter.
func (e *testEnv) configured(t *testing.T, cfg domain.CalendarConfig) {
	t.Helper()
	if err := e.store.Save(cfg); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	if err := e.svc.Init(context.Background(), nil); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
}

func (e *testEnv) activityLines(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.dir, "activity.log"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatalf("read activity log: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestInit_FreshSetupPersistsOnlySelection(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, appResponder("Work, Home", "Inbox"))

	prompter := fixedPrompter{domain.CategorySchedule: 1, domain.CategoryReminder: 0}
	if err := env.svc.Init(context.Background(), prompter); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(env.dir, "setting.json"))
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	if want := "{\n  \"scheduleCalendar\": \"Work\"\n}"; string(data) != want {
		t.Errorf("setting.json = %q, want %q", data, want)
	}
	if strings.Contains(string(data), "reminderCalendar") {
		t.Error("skipped category was persisted")
	}
	if got := env.svc.State(); got != StateConfigured {
		t.Errorf("State() = %v, want configured", got)
	}
	status := env.svc.ConnectionStatus()
	if !status.ScheduleConnected || status.ReminderConnected || status.ScheduleName != "Work" {
		t.Errorf("ConnectionStatus() = %+v", status)
	}
}

func TestInit_NoPrompterStaysUnconfigured(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, appResponder("Work", "Inbox"))

	if err := env.svc.Init(context.Background(), nil); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if got := env.svc.State(); got != StateUnconfigured {
		t.Errorf("State() = %v, want unconfigured", got)
	}
	if calls := env.runner.calls(); len(calls) != 0 {
		t.Errorf("runner called %d times without a prompter", len(calls))
	}
}

func TestInit_ValidConfig(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, appResponder("Work, Home", "Inbox"))
	env.configured(t, domain.CalendarConfig{ScheduleCalendar: "Home", ReminderCalendar: "Inbox"})

	if got := env.svc.State(); got != StateConfigured {
		t.Errorf("State() = %v, want configured", got)
	}
	if got := len(env.runner.calls()); got != 2 {
		t.Errorf("runner called %d times, want 2 validations", got)
	}
}

func TestInit_StaleNameClearedAndPersisted(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, appResponder("Work", "Inbox"))
	env.configured(t, domain.CalendarConfig{ScheduleCalendar: "Deleted", ReminderCalendar: "Inbox"})

	cfg := env.svc.Config()
	if cfg.ScheduleCalendar != "" || cfg.ReminderCalendar != "Inbox" {
		t.Errorf("Config() = %+v, want only the stale name cleared", cfg)
	}
	onDisk, err := env.store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if onDisk != cfg {
		t.Errorf("on disk = %+v, in memory = %+v", onDisk, cfg)
	}
}

func TestInit_StaleNameReoffered(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, appResponder("Work, Home", "Inbox"))
	if err := env.store.Save(domain.CalendarConfig{ScheduleCalendar: "Old"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	prompter := fixedPrompter{domain.CategorySchedule: 2}
	if err := env.svc.Init(context.Background(), prompter); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if got := env.svc.Config().ScheduleCalendar; got != "Home" {
		t.Errorf("ScheduleCalendar = %q, want Home", got)
	}
}

func TestInit_ValidationErrorPropagates(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, func(string) (string, error) { return "", osascript.ErrAppNotRunning })
	if err := env.store.Save(domain.CalendarConfig{ScheduleCalendar: "Work"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := env.svc.Init(context.Background(), nil)
	if !errors.Is(err, osascript.ErrAppNotRunning) {
		t.Fatalf("Init() error = %v, want ErrAppNotRunning", err)
	}
	if got := env.svc.Config().ScheduleCalendar; got != "Work" {
		t.Errorf("config cleared on validation error: %q", got)
	}
}

func TestInit_ValidationErrorThenRevalidateRecovers(t *testing.T) {
	t.Parallel()

	var running atomic.Bool
	respond := appResponder("Work", "Inbox")
	env := newTestEnv(t, func(script string) (string, error) {
		if !running.Load() {
			return "", osascript.ErrAppNotRunning
		}
		return respond(script)
	})
	if err := env.store.Save(domain.CalendarConfig{ScheduleCalendar: "Work"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := env.svc.Init(context.Background(), nil); !errors.Is(err, osascript.ErrAppNotRunning) {
		t.Fatalf("Init() error = %v, want ErrAppNotRunning", err)
	}
	if got := env.svc.State(); got != StateConfigured {
		t.Errorf("State() after unverified Init = %v, want configured", got)
	}

	if err := env.svc.Revalidate(context.Background()); err == nil {
		t.Error("Revalidate() succeeded while the app is down")
	}
	if got := env.svc.Config().ScheduleCalendar; got != "Work" {
		t.Errorf("name cleared while the app is down: %q", got)
	}

	running.Store(true)
	if err := env.svc.Revalidate(context.Background()); err != nil {
		t.Fatalf("Revalidate() error = %v", err)
	}
	if got := env.svc.State(); got != StateConfigured {
		t.Errorf("State() after recovery = %v, want configured", got)
	}
}

func TestRevalidate_PromotesAfterBackEdge(t *testing.T) {
	t.Parallel()

	calendars := "Work"
	var mu sync.Mutex
	respond := appResponder("", "Inbox")
	env := newTestEnv(t, func(script string) (string, error) {
		if strings.Contains(script, "repeat with cal in calendars") {
			mu.Lock()
			defer mu.Unlock()
			return calendars, nil
		}
		return respond(script)
	})
	env.configured(t, domain.CalendarConfig{ScheduleCalendar: "Work", ReminderCalendar: "Inbox"})

	mu.Lock()
	calendars = "Home"
	mu.Unlock()
	if err := env.svc.Revalidate(context.Background()); err != nil {
		t.Fatalf("Revalidate() error = %v", err)
	}
	if got := env.svc.State(); got != StateSetupInProgress {
		t.Fatalf("State() = %v, want setup_in_progress", got)
	}

	if err := env.svc.Revalidate(context.Background()); err != nil {
		t.Fatalf("Revalidate() error = %v", err)
	}
	if got := env.svc.State(); got != StateConfigured {
		t.Errorf("State() = %v, want configured with the reminder list still valid", got)
	}
}

func TestRevalidate(t *testing.T) {
	t.Parallel()

	calendars := "Work"
	var mu sync.Mutex
	respond := appResponder("", "Inbox")
	env := newTestEnv(t, func(script string) (string, error) {
		if strings.Contains(script, "repeat with cal in calendars") {
			mu.Lock()
			defer mu.Unlock()
			return calendars, nil
		}
		return respond(script)
	})
	env.configured(t, domain.CalendarConfig{ScheduleCalendar: "Work"})

	if err := env.svc.Revalidate(context.Background()); err != nil {
		t.Fatalf("Revalidate() error = %v", err)
	}
	if got := env.svc.State(); got != StateConfigured {
		t.Errorf("State() = %v, want configured", got)
	}

	mu.Lock()
	calendars = "Renamed"
	mu.Unlock()

	if err := env.svc.Revalidate(context.Background()); err != nil {
		t.Fatalf("Revalidate() error = %v", err)
	}
	if got := env.svc.State(); got != StateSetupInProgress {
		t.Errorf("State() = %v, want setup_in_progress", got)
	}
	onDisk, err := env.store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !onDisk.NeedsSetup() {
		t.Errorf("stale name still on disk: %+v", onDisk)
	}
}

func TestSelect(t *testing.T) {
	t.Parallel()

	options := []string{"Work", "Home"}
	tests := []struct {
		choice int
		want   string
		ok     bool
	}{
		{0, "", false},
		{1, "Work", true},
		{2, "Home", true},
		{3, "", false},
		{-1, "", false},
	}
	for _, tt := range tests {
		got, ok := Select(options, tt.choice)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Select(%d) = %q, %v; want %q, %v", tt.choice, got, ok, tt.want, tt.ok)
		}
	}
}

func TestMutations_RequireConfiguration(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, appResponder("Work", "Inbox"))
	if err := env.svc.Init(context.Background(), nil); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	ctx := context.Background()
	start := time.Now()

	checks := []struct {
		name   string
		cat    domain.Category
		prefix string
		call   func() error
	}{
		{"AddEvent", domain.CategorySchedule, `add event "x": `, func() error { _, err := env.svc.AddEvent(ctx, "x", start, nil); return err }},
		{"RemoveEvent", domain.CategorySchedule, `remove event "x": `, func() error { _, err := env.svc.RemoveEvent(ctx, "x"); return err }},
		{"AddReminder", domain.CategoryReminder, `add reminder "x": `, func() error { _, err := env.svc.AddReminder(ctx, "x", nil); return err }},
		{"RemoveReminder", domain.CategoryReminder, `remove reminder "x": `, func() error { _, err := env.svc.RemoveReminder(ctx, "x"); return err }},
		{"GetEvents", domain.CategorySchedule, "get events: ", func() error { _, err := env.svc.GetEvents(ctx, 1, 0); return err }},
		{"GetReminders", domain.CategoryReminder, "get reminders: ", func() error { _, err := env.svc.GetReminders(ctx, 1, 0); return err }},
	}
	for _, c := range checks {
		err := c.call()
		var cfgErr *domain.ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Category != c.cat {
			t.Errorf("%s error = %v, want ConfigError(%s)", c.name, err, c.cat)
		}
		if !errors.Is(err, domain.ErrNotConfigured) {
			t.Errorf("%s error does not wrap ErrNotConfigured", c.name)
		}
		if err != nil && !strings.HasPrefix(err.Error(), c.prefix) {
			t.Errorf("%s error = %q, want prefix %q", c.name, err, c.prefix)
		}
	}
	if calls := env.runner.calls(); len(calls) != 0 {
		t.Errorf("runner reached %d times while unconfigured", len(calls))
	}
	if lines := env.activityLines(t); len(lines) != 0 {
		t.Errorf("activity written while unconfigured: %q", lines)
	}
}

func TestAddEvent_DefaultsEndToOneHour(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, appResponder("Work", "Inbox"))
	env.configured(t, domain.CalendarConfig{ScheduleCalendar: "Work"})

	start := time.Date(2024, 1, 1, 14, 0, 0, 0, time.Local)
	res, err := env.svc.AddEvent(context.Background(), "Meeting", start, nil)
	if err != nil || res != domain.ResultSuccess {
		t.Fatalf("AddEvent() = %v, %v", res, err)
	}

	calls := env.runner.calls()
	script := calls[len(calls)-1]
	for _, want := range []string{"set time of eventStart to 50400", "set time of eventEnd to 54000", `summary:"Meeting"`} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}

	lines := env.activityLines(t)
	if len(lines) != 1 || !strings.HasSuffix(lines[0], `] ADD event "Meeting"`) {
		t.Errorf("activity = %q, want one ADD line", lines)
	}
}

func TestAddEvent_Validation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, appResponder("Work", "Inbox"))
	env.configured(t, domain.CalendarConfig{ScheduleCalendar: "Work"})
	before := len(env.runner.calls())

	start := time.Now()
	end := start.Add(-time.Minute)
	if _, err := env.svc.AddEvent(context.Background(), "x", start, &end); err == nil {
		t.Error("AddEvent() with end before start succeeded")
	}
	if _, err := env.svc.AddEvent(context.Background(), "   ", start, nil); err == nil {
		t.Error("AddEvent() with blank title succeeded")
	}
	if got := len(env.runner.calls()); got != before {
		t.Errorf("runner called %d extra times", got-before)
	}
}

func TestAddReminder_ExecutionFailure(t *testing.T) {
	t.Parallel()
	respond := appResponder("Work", "Inbox")
	env := newTestEnv(t, func(script string) (string, error) {
		if strings.Contains(script, "make new reminder") {
			return "", osascript.ErrPermissionDenied
		}
		return respond(script)
	})
	env.configured(t, domain.CalendarConfig{ReminderCalendar: "Inbox"})

	res, err := env.svc.AddReminder(context.Background(), "Call mom", nil)
	if res != domain.ResultFailed || !errors.Is(err, osascript.ErrPermissionDenied) {
		t.Fatalf("AddReminder() = %v, %v", res, err)
	}
	if !strings.Contains(err.Error(), `"Call mom"`) {
		t.Errorf("error %q lacks title context", err)
	}
	lines := env.activityLines(t)
	if len(lines) != 1 || !strings.HasSuffix(lines[0], `] ADD_FAILED reminder "Call mom"`) {
		t.Errorf("activity = %q", lines)
	}
}

func TestRemove_TriState(t *testing.T) {
	t.Parallel()
	respond := appResponder("Work", "Inbox")
	env := newTestEnv(t, func(script string) (string, error) {
		if strings.Contains(script, `is "broken"`) {
			return osascript.StatusFailed, nil
		}
		return respond(script)
	})
	env.configured(t, domain.CalendarConfig{ScheduleCalendar: "Work", ReminderCalendar: "Inbox"})
	ctx := context.Background()

	res, err := env.svc.RemoveEvent(ctx, "missing")
	if err != nil || res != domain.ResultNotFound {
		t.Errorf("RemoveEvent(missing) = %v, %v; want not_found, nil", res, err)
	}
	res, err = env.svc.RemoveEvent(ctx, "Standup")
	if err != nil || res != domain.ResultSuccess {
		t.Errorf("RemoveEvent(Standup) = %v, %v; want success, nil", res, err)
	}
	res, err = env.svc.RemoveReminder(ctx, "broken")
	if err != nil || res != domain.ResultFailed {
		t.Errorf("RemoveReminder(broken) = %v, %v; want failed, nil", res, err)
	}

	lines := env.activityLines(t)
	want := []string{
		`DELETE_FAILED event "missing"`,
		`DELETE event "Standup"`,
		`DELETE_FAILED reminder "broken"`,
	}
	if len(lines) != len(want) {
		t.Fatalf("activity = %q, want %d lines", lines, len(want))
	}
	for i := range want {
		if !strings.HasSuffix(lines[i], "] "+want[i]) {
			t.Errorf("line %d = %q, want suffix %q", i, lines[i], want[i])
		}
	}
}

func TestTestEntries(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, appResponder("Work", "Inbox"))
	env.configured(t, domain.CalendarConfig{ScheduleCalendar: "Work", ReminderCalendar: "Inbox"})
	ctx := context.Background()

	title, res, err := env.svc.AddTestEvent(ctx)
	if err != nil || res != domain.ResultSuccess || title != "Test event 14:00" {
		t.Errorf("AddTestEvent() = %q, %v, %v", title, res, err)
	}
	calls := env.runner.calls()
	if script := calls[len(calls)-1]; !strings.Contains(script, "set time of eventStart to 51000") {
		t.Errorf("test event not ten minutes ahead:\n%s", script)
	}

	title, res, err = env.svc.AddTestReminder(ctx)
	if err != nil || res != domain.ResultSuccess || title != "Test reminder 14:00" {
		t.Errorf("AddTestReminder() = %q, %v, %v", title, res, err)
	}
	calls = env.runner.calls()
	if script := calls[len(calls)-1]; !strings.Contains(script, "set time of dueAt to 57600") {
		t.Errorf("test reminder not two hours ahead:\n%s", script)
	}
}
