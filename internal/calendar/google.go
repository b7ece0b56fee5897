// Package calendar implements the calendar provider client: day-window text
// queries, all-day inserts, and nearest-event lookup against a single
// calendar.
package calendar

import (
	"context"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/example/studysync/internal/application"
)

// Client is bound to one calendar and one credential scope.
type Client struct {
	svc        *gcal.Service
	calendarID string
}

// NewClient opens a calendar session from a resolved service account
// document. readOnly selects the read-only scope used by the status path;
// the reconciler needs the write scope.
func NewClient(ctx context.Context, credentialsJSON []byte, calendarID string, readOnly bool) (*Client, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("calendar: calendar id is required")
	}

	scope := gcal.CalendarScope
	if readOnly {
		scope = gcal.CalendarReadonlyScope
	}

	svc, err := gcal.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(scope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: open service: %w", err)
	}
	return &Client{svc: svc, calendarID: calendarID}, nil
}

// FindEvents lists events on the given day (UTC window, end-of-day exclusive)
// whose text matches the query. The provider's text match is substring-based,
// which is what the reconciler's duplicate check relies on.
func (c *Client) FindEvents(ctx context.Context, date string, query string) ([]application.CalendarEvent, error) {
	res, err := c.svc.Events.List(c.calendarID).
		TimeMin(date + "T00:00:00Z").
		TimeMax(date + "T23:59:59Z").
		SingleEvents(true).
		Q(query).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: list events: %w", err)
	}

	events := make([]application.CalendarEvent, 0, len(res.Items))
	for _, item := range res.Items {
		events = append(events, fromProviderEvent(item))
	}
	return events, nil
}

// InsertEvent creates an all-day event on the calendar.
func (c *Client) InsertEvent(ctx context.Context, event application.CalendarEvent) error {
	body := &gcal.Event{
		Summary:      event.Summary,
		Description:  event.Description,
		Start:        &gcal.EventDateTime{Date: event.StartDate},
		End:          &gcal.EventDateTime{Date: event.EndDate},
		Transparency: event.Transparency,
	}
	if _, err := c.svc.Events.Insert(c.calendarID, body).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: insert event: %w", err)
	}
	return nil
}

// NextEvent returns the single nearest event starting at or after from.
func (c *Client) NextEvent(ctx context.Context, from time.Time) (application.CalendarEvent, bool, error) {
	res, err := c.svc.Events.List(c.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		MaxResults(1).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return application.CalendarEvent{}, false, fmt.Errorf("calendar: list events: %w", err)
	}
	if len(res.Items) == 0 {
		return application.CalendarEvent{}, false, nil
	}
	return fromProviderEvent(res.Items[0]), true, nil
}

func fromProviderEvent(item *gcal.Event) application.CalendarEvent {
	event := application.CalendarEvent{
		Summary:      item.Summary,
		Description:  item.Description,
		Transparency: item.Transparency,
	}
	if item.Start != nil {
		event.StartDate = item.Start.Date
	}
	if item.End != nil {
		event.EndDate = item.End.Date
	}
	return event
}
