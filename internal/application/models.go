package application

import (
	"fmt"
	"time"
)

// Location is the physical study location for a day. Exactly two values are
// recognized; anything else coming out of the extraction step is rejected.
type Location string

const (
	LocationHome  Location = "Home"
	LocationAfeka Location = "Afeka"
)

// ParseLocation validates a raw location string against the known set.
func ParseLocation(raw string) (Location, error) {
	switch Location(raw) {
	case LocationHome:
		return LocationHome, nil
	case LocationAfeka:
		return LocationAfeka, nil
	}
	return "", fmt.Errorf("%w: unknown location %q", ErrMalformedSchedule, raw)
}

// ScheduleEntry is one extracted study day.
type ScheduleEntry struct {
	Date     string   `json:"date"`
	Location Location `json:"location"`
}

// Validate checks the entry against the strict date and location rules.
func (e ScheduleEntry) Validate() error {
	if _, err := time.Parse(dateLayout, e.Date); err != nil {
		return fmt.Errorf("%w: invalid date %q", ErrMalformedSchedule, e.Date)
	}
	if _, err := ParseLocation(string(e.Location)); err != nil {
		return err
	}
	return nil
}

const (
	dateLayout      = "2006-01-02"
	shortDateLayout = "02.01.06"
)

// NormalizeDate accepts either a strict YYYY-MM-DD date or the DD.MM.YY form
// that appears in schedule image headers, and returns the strict form.
func NormalizeDate(raw string) (string, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.Format(dateLayout), nil
	}
	if t, err := time.Parse(shortDateLayout, raw); err == nil {
		return t.Format(dateLayout), nil
	}
	return "", fmt.Errorf("%w: invalid date %q", ErrMalformedSchedule, raw)
}

// Media describes a message attachment as reported by the messaging provider.
type Media struct {
	URL      string
	Mimetype string
}

// Message is a single chat message inside the extraction window.
type Message struct {
	ID        string
	From      string
	Timestamp time.Time
	Body      string
	Media     *Media
}

// CalendarEvent is the provider-independent event shape this system reads and
// writes. Start and end are bare dates for all-day events; End is exclusive,
// one day past Start.
type CalendarEvent struct {
	Summary      string
	Description  string
	StartDate    string
	EndDate      string
	Transparency string
}

// RunRecord journals one pipeline run for the local ledger.
type RunRecord struct {
	ID         string
	Kind       string
	StartedAt  time.Time
	FinishedAt time.Time
	Entries    int
	Inserted   int
	Skipped    int
	Error      string
}

// Run kinds recorded in the journal.
const (
	RunKindExtract   = "extract"
	RunKindReconcile = "reconcile"
)
