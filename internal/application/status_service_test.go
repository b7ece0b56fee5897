package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/studysync/internal/testfixtures"
)

func TestClassifyTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title string
		want  bool
	}{
		{title: "Study: Afeka Lab", want: true},
		{title: "Study: Afeka", want: true},
		{title: "College orientation", want: true},
		{title: "Study: Home", want: false},
		{title: "Afeka then home", want: false},
		{title: "AFEKA", want: true},
		{title: "Dentist", want: false},
		{title: NoEventReason, want: false},
		{title: "", want: false},
	}

	for _, tc := range cases {
		if got := ClassifyTitle(tc.title); got != tc.want {
			t.Fatalf("ClassifyTitle(%q) = %v, want %v", tc.title, got, tc.want)
		}
	}
}

func TestStatusServiceCheck(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})

	t.Run("classifies the nearest event", func(t *testing.T) {
		t.Parallel()

		cal := &calendarAPIStub{next: CalendarEvent{Summary: "Study: Afeka"}, nextFound: true}
		svc := NewStatusService(cal, clock.NowFunc(), nil)

		result, err := svc.Check(context.Background())
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !result.Trigger || result.Reason != "Study: Afeka" {
			t.Fatalf("unexpected result %#v", result)
		}
	})

	t.Run("no upcoming event yields the sentinel reason", func(t *testing.T) {
		t.Parallel()

		cal := &calendarAPIStub{}
		svc := NewStatusService(cal, clock.NowFunc(), nil)

		result, err := svc.Check(context.Background())
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if result.Trigger || result.Reason != NoEventReason {
			t.Fatalf("unexpected result %#v", result)
		}
	})

	t.Run("calendar failures surface to the caller", func(t *testing.T) {
		t.Parallel()

		cal := &calendarAPIStub{nextErr: errors.New("calendar down")}
		svc := NewStatusService(cal, clock.NowFunc(), nil)

		if _, err := svc.Check(context.Background()); err == nil {
			t.Fatal("expected the calendar error to surface")
		}
	})
}
