package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	SettingsFile  = "setting.json"
	AppConfigFile = "config.json"
	ActivityFile  = "activity.log"
	DebugFile     = "debug.log"

	DefaultRevalidate = "@every 1h"
)

type Config struct {
	DataDir       string
	OsascriptPath string
	// RevalidateSpec is a cron spec; empty disables revalidation.
	RevalidateSpec string
	Debug          bool
}

func Load() (*Config, error) {
	dataDir := os.Getenv("CALBRIDGE_DATA_DIR")
	if dataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("CALBRIDGE_DATA_DIR is unset and no user config dir: %w", err)
		}
		dataDir = filepath.Join(base, "calbridge")
	}

	osascriptPath := os.Getenv("CALBRIDGE_OSASCRIPT")
	if osascriptPath == "" {
		osascriptPath = "osascript"
	}

	revalidate := strings.TrimSpace(os.Getenv("CALBRIDGE_REVALIDATE"))
	switch strings.ToLower(revalidate) {
	case "":
		revalidate = DefaultRevalidate
	case "off", "none", "0":
		revalidate = ""
	}

	var debug bool
	if d := os.Getenv("CALBRIDGE_DEBUG"); d != "" {
		var err error
		debug, err = strconv.ParseBool(d)
		if err != nil {
			return nil, fmt.Errorf("invalid CALBRIDGE_DEBUG: %w", err)
		}
	}

	return &Config{
		DataDir:        dataDir,
		OsascriptPath:  osascriptPath,
		RevalidateSpec: revalidate,
		Debug:          debug,
	}, nil
}

func (c *Config) SettingsPath() string  { return filepath.Join(c.DataDir, SettingsFile) }
func (c *Config) AppConfigPath() string { return filepath.Join(c.DataDir, AppConfigFile) }
func (c *Config) ActivityPath() string  { return filepath.Join(c.DataDir, ActivityFile) }
func (c *Config) DebugPath() string     { return filepath.Join(c.DataDir, DebugFile) }
