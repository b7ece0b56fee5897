package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	artifactKeyPrefix   = "whatsapp_summary_"
	artifactKeySuffix   = ".json"
	artifactKeyLayout   = "2006-01-02-15-04-05"
	artifactContentType = "application/json"
)

// ArtifactKey derives the object storage key for an artifact written at t.
func ArtifactKey(t time.Time) string {
	return artifactKeyPrefix + t.Format(artifactKeyLayout) + artifactKeySuffix
}

// publishArtifact serializes the schedule and writes it under a
// timestamp-derived key. Single attempt: the key embeds the write time, so a
// blind retry would mint a second artifact.
func publishArtifact(ctx context.Context, store ObjectStore, entries []ScheduleEntry, at time.Time) (string, error) {
	body, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	key := ArtifactKey(at)
	if err := store.Put(ctx, key, body, artifactContentType); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return key, nil
}

// DecodeArtifact parses a stored artifact body. Model output occasionally
// leaks through with a markdown code fence, so a leading fence (optionally
// tagged "json") is stripped before parsing. The no-info sentinel is reported
// as ErrNoScheduleInfo, distinct from an empty schedule.
func DecodeArtifact(body []byte) ([]ScheduleEntry, error) {
	text := stripCodeFence(strings.TrimSpace(string(body)))
	text = strings.Trim(text, "'\" \n")

	if strings.HasPrefix(strings.ToLower(text), noInfoReplyPrefix) {
		return nil, ErrNoScheduleInfo
	}

	var entries []ScheduleEntry
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		return nil, fmt.Errorf("%w: artifact is not a JSON list", ErrMalformedSchedule)
	}
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.Trim(text, "`")
	text = strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(text, "json"); ok {
		text = strings.TrimSpace(rest)
	}
	return text
}
