package application

import (
	"errors"
	"testing"
	"time"
)

func TestArtifactKey(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, time.March, 9, 14, 30, 5, 0, time.UTC)
	want := "whatsapp_summary_2025-03-09-14-30-05.json"
	if got := ArtifactKey(at); got != want {
		t.Fatalf("ArtifactKey = %q, want %q", got, want)
	}
}

func TestDecodeArtifact(t *testing.T) {
	t.Parallel()

	t.Run("decodes a plain artifact", func(t *testing.T) {
		t.Parallel()

		entries, err := DecodeArtifact([]byte(`[{"date": "2025-03-09", "location": "Home"}]`))
		if err != nil {
			t.Fatalf("DecodeArtifact failed: %v", err)
		}
		if len(entries) != 1 || entries[0].Location != LocationHome {
			t.Fatalf("unexpected entries %#v", entries)
		}
	})

	t.Run("strips fence leakage", func(t *testing.T) {
		t.Parallel()

		body := []byte("```json\n[{\"date\": \"2025-03-09\", \"location\": \"Afeka\"}]\n```")
		entries, err := DecodeArtifact(body)
		if err != nil {
			t.Fatalf("DecodeArtifact failed: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("unexpected entries %#v", entries)
		}
	})

	t.Run("empty list is a valid schedule", func(t *testing.T) {
		t.Parallel()

		entries, err := DecodeArtifact([]byte(`[]`))
		if err != nil {
			t.Fatalf("DecodeArtifact failed: %v", err)
		}
		if len(entries) != 0 {
			t.Fatalf("expected empty schedule, got %#v", entries)
		}
	})

	t.Run("no-info sentinel is distinct from empty", func(t *testing.T) {
		t.Parallel()

		if _, err := DecodeArtifact([]byte("no info")); !errors.Is(err, ErrNoScheduleInfo) {
			t.Fatalf("expected ErrNoScheduleInfo, got %v", err)
		}
	})

	t.Run("invalid entries reject the artifact", func(t *testing.T) {
		t.Parallel()

		body := []byte(`[{"date": "soon", "location": "Home"}]`)
		if _, err := DecodeArtifact(body); !errors.Is(err, ErrMalformedSchedule) {
			t.Fatalf("expected ErrMalformedSchedule, got %v", err)
		}
	})
}
