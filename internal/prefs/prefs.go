// Package prefs stores UI preferences (theme, sidebar state) in a small
// key=value file. Writes are immediate; there is no debounce.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// FileName is the preferences file created under the data directory.
const FileName = "preferences.env"

const (
	keyTheme            = "theme"
	keySidebarCollapsed = "sidebar_collapsed"
)

// Theme is the UI colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme accepts "light" or "dark" in any case.
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	}
	return "", fmt.Errorf("unknown theme %q (want light or dark)", s)
}

// Preferences is the full preference set.
type Preferences struct {
	Theme            Theme
	SidebarCollapsed bool
}

// Defaults returns the preferences of a fresh install.
func Defaults() Preferences {
	return Preferences{Theme: ThemeLight}
}

// Store reads and writes the preferences file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore keeps preferences under dataDir.
func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, FileName)}
}

// Load reads the preferences once. A missing file or unknown values yield
// the defaults for the affected fields.
func (s *Store) Load() (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Defaults()
	values, err := godotenv.Read(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read preferences: %w", err)
	}
	if t, err := ParseTheme(values[keyTheme]); err == nil {
		p.Theme = t
	}
	if b, err := strconv.ParseBool(values[keySidebarCollapsed]); err == nil {
		p.SidebarCollapsed = b
	}
	return p, nil
}

// SetTheme writes the theme immediately.
func (s *Store) SetTheme(t Theme) error {
	return s.update(keyTheme, string(t))
}

// SetSidebarCollapsed writes the sidebar state immediately.
func (s *Store) SetSidebarCollapsed(collapsed bool) error {
	return s.update(keySidebarCollapsed, strconv.FormatBool(collapsed))
}

func (s *Store) update(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := godotenv.Read(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read preferences: %w", err)
		}
		values = make(map[string]string)
	}
	values[key] = value

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create preferences directory: %w", err)
	}
	if err := godotenv.Write(values, s.path); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}
