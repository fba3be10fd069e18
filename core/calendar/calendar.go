// Package calendar stores the user's calendar events.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var ErrInvalidEvent = errors.New("invalid calendar event")

type Event struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidEvent, e.Date)
	}
	if _, err := time.Parse(TimeLayout, e.Time); err != nil {
		return fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidEvent, e.Time)
	}
	return nil
}

// Start is the local time the event begins at.
func (e Event) Start() time.Time {
	start, err := time.ParseInLocation(DateLayout+" "+TimeLayout, e.Date+" "+e.Time, time.Local)
	if err != nil {
		return time.Time{}
	}
	return start
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
