package calendar

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
)

func newTestStore(t *testing.T) (*FileStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := NewFileStore(fs, "/data/events.json")
	if err != nil {
		t.Fatalf("expected store to open, got %v", err)
	}
	return store, fs
}

func TestAddKeepsEventsSortedAndPersists(t *testing.T) {
	store, fs := newTestStore(t)

	for _, event := range []Event{
		{Date: "2026-10-18", Time: "09:00", Title: "Dentist"},
		{Date: "2026-10-17", Time: "14:30", Title: "Project review"},
		{Date: "2026-10-17", Time: "08:15", Title: "Standup"},
	} {
		if _, err := store.Add(event); err != nil {
			t.Fatalf("expected add to succeed, got %v", err)
		}
	}

	events, err := store.Events()
	if err != nil {
		t.Fatalf("expected events, got %v", err)
	}
	titles := []string{events[0].Title, events[1].Title, events[2].Title}
	if titles[0] != "Standup" || titles[1] != "Project review" || titles[2] != "Dentist" {
		t.Fatalf("expected events sorted by start, got %v", titles)
	}

	reopened, err := NewFileStore(fs, "/data/events.json")
	if err != nil {
		t.Fatalf("expected store to reopen, got %v", err)
	}
	persisted, _ := reopened.Events()
	if len(persisted) != 3 || persisted[0].ID == "" {
		t.Fatalf("expected persisted events with ids, got %+v", persisted)
	}
}

func TestAddRejectsInvalidEvents(t *testing.T) {
	store, _ := newTestStore(t)

	testCases := []Event{
		{Date: "2026-10-17", Time: "10:00"},
		{Date: "17/10/2026", Time: "10:00", Title: "Bad date"},
		{Date: "2026-10-17", Time: "10am", Title: "Bad time"},
	}
	for _, event := range testCases {
		if _, err := store.Add(event); !errors.Is(err, ErrInvalidEvent) {
			t.Fatalf("expected invalid event error for %+v, got %v", event, err)
		}
	}
}

func TestDeleteByTitleRemovesFirstCaseInsensitiveMatch(t *testing.T) {
	store, _ := newTestStore(t)
	_, _ = store.Add(Event{Date: "2026-10-17", Time: "09:00", Title: "Team Meeting"})
	_, _ = store.Add(Event{Date: "2026-10-18", Time: "09:00", Title: "Meeting with Ana"})

	deleted, ok, err := store.DeleteByTitle("meeting")
	if err != nil || !ok {
		t.Fatalf("expected a deletion, got ok=%v err=%v", ok, err)
	}
	if deleted.Title != "Team Meeting" {
		t.Fatalf("expected first match to be deleted, got %q", deleted.Title)
	}

	events, _ := store.Events()
	if len(events) != 1 || events[0].Title != "Meeting with Ana" {
		t.Fatalf("expected only the second meeting to remain, got %+v", events)
	}

	if _, ok, _ := store.DeleteByTitle("yoga"); ok {
		t.Fatalf("expected no match for unknown title")
	}
	if _, ok, _ := store.DeleteByTitle("  "); ok {
		t.Fatalf("expected blank title to match nothing")
	}
}

func TestForDateReturnsIndependentCopies(t *testing.T) {
	store, _ := newTestStore(t)
	_, _ = store.Add(Event{Date: "2026-10-17", Time: "09:00", Title: "Standup"})
	_, _ = store.Add(Event{Date: "2026-10-18", Time: "09:00", Title: "Dentist"})

	today, err := store.ForDate("2026-10-17")
	if err != nil {
		t.Fatalf("expected events, got %v", err)
	}
	if len(today) != 1 || today[0].Title != "Standup" {
		t.Fatalf("unexpected events for date: %+v", today)
	}

	today[0].Title = "changed"
	again, _ := store.ForDate("2026-10-17")
	if again[0].Title != "Standup" {
		t.Fatalf("expected store to be unaffected by caller mutation")
	}

	none, _ := store.ForDate("2026-12-25")
	if len(none) != 0 {
		t.Fatalf("expected no events, got %+v", none)
	}
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/events.json", []byte("{not json"), 0o644)

	if _, err := NewFileStore(fs, "/events.json"); err == nil {
		t.Fatalf("expected corrupt calendar to be rejected")
	}
}
