package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is wrapped by ConfigError.
	ErrNotConfigured = errors.New("category not configured")

	// ErrPersistence marks a failed settings save: memory and disk have diverged.
	ErrPersistence = errors.New("settings not persisted")
)

// ConfigError reports that a required category has no calendar selected.
type ConfigError struct {
	Category Category
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not configured; run setup first", e.Category.Label())
}

func (e *ConfigError) Unwrap() error {
	return ErrNotConfigured
}
