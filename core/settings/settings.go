// Package settings persists the user-editable assistant settings.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWakePhrase = "assistant"
	DefaultDigestTime = "08:00"

	// DigestTimeLayout is the HH:MM layout digest times are stored in.
	DigestTimeLayout = "15:04"
)

var ErrInvalidDigestTime = errors.New("digest time must be HH:MM")

type Settings struct {
	WakePhrase    string `yaml:"wake_phrase"`
	DigestEnabled bool   `yaml:"digest_enabled"`
	DigestTime    string `yaml:"digest_time"`
}

func Default() Settings {
	return Settings{
		WakePhrase:    DefaultWakePhrase,
		DigestEnabled: false,
		DigestTime:    DefaultDigestTime,
	}
}

// Normalize trims the settings and fills empty values with defaults.
func (s Settings) Normalize() Settings {
	s.WakePhrase = strings.TrimSpace(s.WakePhrase)
	if s.WakePhrase == "" {
		s.WakePhrase = DefaultWakePhrase
	}
	s.DigestTime = strings.TrimSpace(s.DigestTime)
	if s.DigestTime == "" {
		s.DigestTime = DefaultDigestTime
	}
	return s
}

func (s Settings) Validate() error {
	if _, err := ParseDigestTime(s.DigestTime); err != nil {
		return err
	}
	return nil
}

// ParseDigestTime validates an HH:MM time of day and returns it in
// canonical zero-padded form.
func ParseDigestTime(value string) (string, error) {
	parsed, err := time.Parse(DigestTimeLayout, strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDigestTime, value)
	}
	return parsed.Format(DigestTimeLayout), nil
}

// Store keeps Settings in a YAML file.
type Store struct {
	fs   afero.Fs
	path string
}

func NewStore(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// Load reads the stored settings. A missing file yields the defaults.
func (s *Store) Load() (Settings, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	} else if err != nil {
		return Default(), fmt.Errorf("failed to read settings: %w", err)
	}

	settings := Default()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Default(), fmt.Errorf("failed to parse settings: %w", err)
	}

	settings = settings.Normalize()
	if err := settings.Validate(); err != nil {
		return Default(), err
	}
	return settings, nil
}

func (s *Store) Save(settings Settings) error {
	settings = settings.Normalize()
	if err := settings.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
