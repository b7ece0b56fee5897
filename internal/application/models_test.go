package application

import (
	"errors"
	"testing"
)

func TestParseLocation(t *testing.T) {
	t.Parallel()

	t.Run("accepts the known locations", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"Home", "Afeka"} {
			if _, err := ParseLocation(raw); err != nil {
				t.Fatalf("ParseLocation(%q) failed: %v", raw, err)
			}
		}
	})

	t.Run("rejects unknown and case-mismatched values", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"", "home", "AFEKA", "Office"} {
			if _, err := ParseLocation(raw); !errors.Is(err, ErrMalformedSchedule) {
				t.Fatalf("ParseLocation(%q): expected ErrMalformedSchedule, got %v", raw, err)
			}
		}
	})
}

func TestNormalizeDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "strict form passes through", raw: "2025-03-09", want: "2025-03-09", ok: true},
		{name: "short header form converts", raw: "09.03.25", want: "2025-03-09", ok: true},
		{name: "short form without padding fails", raw: "9.3.25", ok: false},
		{name: "impossible date fails", raw: "2025-02-30", ok: false},
		{name: "wrong separator fails", raw: "2025/03/09", ok: false},
		{name: "empty fails", raw: "", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeDate(tc.raw)
			if !tc.ok {
				if !errors.Is(err, ErrMalformedSchedule) {
					t.Fatalf("expected ErrMalformedSchedule, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeDate(%q) failed: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("NormalizeDate(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestScheduleEntryValidate(t *testing.T) {
	t.Parallel()

	t.Run("accepts a strict entry", func(t *testing.T) {
		t.Parallel()

		entry := ScheduleEntry{Date: "2025-03-09", Location: LocationAfeka}
		if err := entry.Validate(); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
	})

	t.Run("rejects non-normalized dates", func(t *testing.T) {
		t.Parallel()

		entry := ScheduleEntry{Date: "09.03.25", Location: LocationHome}
		if err := entry.Validate(); !errors.Is(err, ErrMalformedSchedule) {
			t.Fatalf("expected ErrMalformedSchedule, got %v", err)
		}
	})

	t.Run("rejects unknown locations", func(t *testing.T) {
		t.Parallel()

		entry := ScheduleEntry{Date: "2025-03-09", Location: "Campus"}
		if err := entry.Validate(); !errors.Is(err, ErrMalformedSchedule) {
			t.Fatalf("expected ErrMalformedSchedule, got %v", err)
		}
	})
}
