package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/tazhate/calbridge/internal/debuglog"
	"github.com/tazhate/calbridge/internal/domain"
)

// Store persists the calendar selection (setting.json) and reads the
// operational limits (config.json).
//
// Reads are tolerant: a missing, empty or corrupt document falls back to an
// empty selection or default limits. Only writes fail loudly, because a
// failed save leaves memory and disk disagreeing.
type Store struct {
	settingsPath  string
	appConfigPath string
	logger        *debuglog.Logger
	now           func() time.Time
}

func NewStore(settingsPath, appConfigPath string, logger *debuglog.Logger) *Store {
	return &Store{
		settingsPath:  settingsPath,
		appConfigPath: appConfigPath,
		logger:        logger,
		now:           time.Now,
	}
}

// SettingsPath returns the location of setting.json.
func (s *Store) SettingsPath() string {
	return s.settingsPath
}

// Load reads the calendar selection.
//
//   - missing file: an empty document is written and returned
//   - empty or whitespace-only file: treated as empty and rewritten
//   - invalid JSON: the file is moved to <path>.backup.<unixMillis> and an
//     empty document takes its place
//
// Errors are returned only for unexpected read failures and failed writes.
func (s *Store) Load() (domain.CalendarConfig, error) {
	var cfg domain.CalendarConfig

	data, err := os.ReadFile(s.settingsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("settings file missing, creating", debuglog.Details{"path": s.settingsPath})
			return cfg, s.Save(cfg)
		}
		s.logger.Error("settings read failed", err, debuglog.Details{"path": s.settingsPath})
		return cfg, fmt.Errorf("read settings: %w", err)
	}

	if strings.TrimSpace(string(data)) == "" {
		s.logger.Info("settings file empty, resetting", debuglog.Details{"path": s.settingsPath})
		return cfg, s.Save(cfg)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		backup := fmt.Sprintf("%s.backup.%d", s.settingsPath, s.now().UnixMilli())
		if renameErr := os.Rename(s.settingsPath, backup); renameErr != nil {
			// Keep the corrupt file in place rather than overwrite it.
			s.logger.Error("settings backup failed", renameErr, debuglog.Details{"path": s.settingsPath})
			return domain.CalendarConfig{}, nil
		}
		s.logger.Error("settings file corrupt, backed up", err, debuglog.Details{"backup": backup})
		return domain.CalendarConfig{}, s.Save(domain.CalendarConfig{})
	}

	s.logger.Info("settings loaded", debuglog.Details{
		"scheduleCalendar": cfg.ScheduleCalendar,
		"reminderCalendar": cfg.ReminderCalendar,
	})
	return cfg, nil
}

// Save overwrites setting.json. Unset names are omitted from the document.
// The write goes through a temp file and rename so a crash cannot leave a
// half-written document behind.
func (s *Store) Save(cfg domain.CalendarConfig) error {
	if err := s.save(cfg); err != nil {
		s.logger.Error("settings save failed", err, debuglog.Details{"path": s.settingsPath})
		return fmt.Errorf("save settings %s: %w: %w", s.settingsPath, domain.ErrPersistence, err)
	}
	return nil
}

func (s *Store) save(cfg domain.CalendarConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.settingsPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".setting-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, s.settingsPath)
}

// LoadAppConfig reads config.json. Comments and trailing commas are
// accepted. Any failure yields the defaults; this never blocks startup and
// never writes a file.
func (s *Store) LoadAppConfig() domain.AppConfig {
	cfg := domain.DefaultAppConfig()

	data, err := os.ReadFile(s.appConfigPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("app config unreadable, using defaults", debuglog.Details{"path": s.appConfigPath, "error": err.Error()})
		}
		return cfg
	}
	if strings.TrimSpace(string(data)) == "" {
		return cfg
	}

	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		s.logger.Warn("app config malformed, using defaults", debuglog.Details{"path": s.appConfigPath, "error": err.Error()})
		return domain.DefaultAppConfig()
	}
	cfg.Normalize()

	s.logger.Info("app config loaded", debuglog.Details{
		"maxEvents":   cfg.MaxEvents,
		"defaultDays": cfg.DefaultDays,
		"maxDays":     cfg.MaxDays,
	})
	return cfg
}
