package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/spf13/afero"
)

// FileStore keeps events in a JSON file, sorted by start time.
type FileStore struct {
	fs   afero.Fs
	path string

	mu     sync.Mutex
	events []Event
}

func NewFileStore(fs afero.Fs, path string) (*FileStore, error) {
	store := &FileStore{fs: fs, path: path}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *FileStore) load() error {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to read calendar: %w", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return fmt.Errorf("failed to parse calendar: %w", err)
	}
	sortEvents(events)
	s.events = events
	return nil
}

// Add stores a new event under a fresh ID and returns the stored copy.
func (s *FileStore) Add(event Event) (Event, error) {
	event.Title = strings.TrimSpace(event.Title)
	if err := event.Validate(); err != nil {
		return Event{}, err
	}
	event.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	events := append(slices.Clone(s.events), event)
	sortEvents(events)
	if err := s.persist(events); err != nil {
		return Event{}, err
	}
	s.events = events
	return event, nil
}

// DeleteByTitle removes the first event whose title contains title, ignoring
// case. It reports false if nothing matched.
func (s *FileStore) DeleteByTitle(title string) (Event, bool, error) {
	needle := strings.ToLower(strings.TrimSpace(title))
	if needle == "" {
		return Event{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.events, func(e Event) bool {
		return strings.Contains(strings.ToLower(e.Title), needle)
	})
	if idx < 0 {
		return Event{}, false, nil
	}

	deleted := s.events[idx]
	events := slices.Delete(slices.Clone(s.events), idx, idx+1)
	if err := s.persist(events); err != nil {
		return Event{}, false, err
	}
	s.events = events
	return deleted, true, nil
}

// ForDate returns the events on date (YYYY-MM-DD) in start order.
func (s *FileStore) ForDate(date string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matching []Event
	for _, event := range s.events {
		if event.Date == date {
			matching = append(matching, event)
		}
	}
	return snapshot(matching)
}

func (s *FileStore) Events() ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.events)
}

func (s *FileStore) persist(events []Event) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create calendar directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		return errors.Join(fmt.Errorf("failed to replace calendar: %w", err), s.fs.Remove(tmpPath))
	}
	return nil
}

func snapshot(events []Event) ([]Event, error) {
	out := make([]Event, 0, len(events))
	if len(events) == 0 {
		return out, nil
	}
	if err := copier.CopyWithOption(&out, events, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to copy events: %w", err)
	}
	return out, nil
}

func sortEvents(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.Time, b.Time)
	})
}
