package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pocketpages/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Settings — app preferences outside the editing engine
// ─────────────────────────────────────────────────────────────
//
// Stored as key-value rows in app_settings, created by the storage migration.

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ErrInvalidSetting is returned for unknown keys or values.
var ErrInvalidSetting = errors.New("invalid setting")

const (
	SettingTheme = "theme"
	defaultTheme = ThemeSystem
)

// KnownSettings lists the keys Set accepts.
var KnownSettings = []string{SettingTheme}

// SettingsStore is the persistence the settings service needs.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// SettingsService reads and writes user preferences.
type SettingsService struct {
	store SettingsStore
}

// NewSettingsService creates a SettingsService. A nil store serves defaults only.
func NewSettingsService(store SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

// ParseTheme validates a theme name case-insensitively.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	}
	return "", fmt.Errorf("%w: theme %q (want light, dark or system)", ErrInvalidSetting, s)
}

// Theme returns the saved theme, or the system default when unset or unreadable.
func (s *SettingsService) Theme(ctx context.Context) Theme {
	if s.store == nil {
		return defaultTheme
	}
	v, err := s.store.Get(ctx, SettingTheme)
	if err != nil {
		return defaultTheme
	}
	t, err := ParseTheme(v)
	if err != nil {
		return defaultTheme
	}
	return t
}

func (s *SettingsService) SetTheme(ctx context.Context, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	if s.store == nil {
		return fmt.Errorf("settings: no store")
	}
	return s.store.Set(ctx, SettingTheme, string(t))
}

// Get returns a setting by key, with defaults applied.
func (s *SettingsService) Get(ctx context.Context, key string) (string, error) {
	switch key {
	case SettingTheme:
		return string(s.Theme(ctx)), nil
	}
	return "", fmt.Errorf("%w: unknown key %q", ErrInvalidSetting, key)
}

// Set validates and stores a setting by key.
func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	switch key {
	case SettingTheme:
		t, err := ParseTheme(value)
		if err != nil {
			return err
		}
		return s.SetTheme(ctx, t)
	}
	return fmt.Errorf("%w: unknown key %q", ErrInvalidSetting, key)
}

var _ SettingsStore = (*storage.SettingsStore)(nil)
