package application

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

//go:embed prompt.txt
var instructionPrompt string

// MessageSource is the slice of the messaging provider the extractor needs.
type MessageSource interface {
	Messages(ctx context.Context) ([]Message, error)
	DownloadMedia(ctx context.Context, url string) ([]byte, error)
}

// InferenceClient converts a composite prompt (with embedded local image
// references) into reply text. The transport behind it is swappable.
type InferenceClient interface {
	Infer(ctx context.Context, prompt string) (string, error)
}

// ObjectStore is the slice of object storage the pipeline needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// RunJournal records pipeline runs in the local ledger.
type RunJournal interface {
	RecordRun(ctx context.Context, run RunRecord) error
}

// ExtractService turns the recent conversation into a published schedule
// artifact: filter messages by window, stage image attachments, compose one
// prompt, invoke inference once, validate the reply, publish.
type ExtractService struct {
	source     MessageSource
	inference  InferenceClient
	store      ObjectStore
	journal    RunJournal
	scratchDir string
	window     time.Duration
	now        func() time.Time
	newRunID   func() string
	logger     *slog.Logger
}

// NewExtractService constructs an ExtractService. journal may be nil when no
// ledger is configured.
func NewExtractService(source MessageSource, inference InferenceClient, store ObjectStore, journal RunJournal, scratchDir string, window time.Duration, now func() time.Time, newRunID func() string, logger *slog.Logger) *ExtractService {
	if scratchDir == "" {
		scratchDir = "./waha_images"
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	if newRunID == nil {
		newRunID = func() string { return "" }
	}
	return &ExtractService{
		source:     source,
		inference:  inference,
		store:      store,
		journal:    journal,
		scratchDir: scratchDir,
		window:     window,
		now:        now,
		newRunID:   newRunID,
		logger:     defaultLogger(logger),
	}
}

// ExtractResult reports what one extraction run produced.
type ExtractResult struct {
	RunID       string
	ArtifactKey string
	Entries     []ScheduleEntry
	Messages    int
}

// Run executes one extraction pass. The scratch directory is cleared on every
// path, success or failure. ErrNoMessages and ErrNoScheduleInfo mark runs with
// nothing to publish.
func (s *ExtractService) Run(ctx context.Context) (result ExtractResult, err error) {
	runID := s.newRunID()
	startedAt := s.now()
	logger := serviceLogger(ctx, s.logger, "ExtractService", "Run", "run_id", runID)
	result.RunID = runID

	defer func() {
		s.clearScratch(ctx, logger)
		s.journalRun(ctx, logger, RunRecord{
			ID:         runID,
			Kind:       RunKindExtract,
			StartedAt:  startedAt,
			FinishedAt: s.now(),
			Entries:    len(result.Entries),
			Error:      errorText(err),
		})
		if err != nil {
			logger.ErrorContext(ctx, "extraction run finished with error", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "extraction run finished",
			"messages", result.Messages,
			"entries", len(result.Entries),
			"artifact_key", result.ArtifactKey,
		)
	}()

	messages, err := s.source.Messages(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch messages: %w", err)
	}

	cutoff := s.now().Add(-s.window)
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		// Messages exactly at the window boundary stay in.
		if msg.Timestamp.Before(cutoff) {
			continue
		}
		result.Messages++

		imageTag := ""
		if msg.Media != nil && strings.HasPrefix(msg.Media.Mimetype, "image") {
			if path, stageErr := s.stageImage(ctx, msg); stageErr != nil {
				// Degrade: keep the message, drop the image.
				logger.WarnContext(ctx, "image staging failed", "error", stageErr, "message_id", msg.ID)
			} else {
				imageTag = fmt.Sprintf(" [Attached Image: @%s]", path)
			}
		}

		if msg.Body == "" && imageTag == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s%s",
			msg.Timestamp.Local().Format("2006-01-02 15:04"), msg.From, msg.Body, imageTag))
	}

	if result.Messages == 0 {
		return result, ErrNoMessages
	}

	prompt := composePrompt(lines)
	logger.InfoContext(ctx, "invoking inference", "messages", result.Messages, "images", strings.Count(prompt, "[Attached Image:"))

	reply, err := s.inference.Infer(ctx, prompt)
	if err != nil {
		return result, fmt.Errorf("inference: %w", err)
	}

	entries, err := ParseScheduleReply(reply)
	if err != nil {
		return result, err
	}
	result.Entries = entries

	key, err := publishArtifact(ctx, s.store, entries, s.now())
	if err != nil {
		return result, err
	}
	result.ArtifactKey = key
	return result, nil
}

func (s *ExtractService) stageImage(ctx context.Context, msg Message) (string, error) {
	data, err := s.source.DownloadMedia(ctx, msg.Media.URL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.scratchDir, 0o700); err != nil {
		return "", err
	}
	path := filepath.Join(s.scratchDir, sanitizeMessageID(msg.ID)+".jpg")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func (s *ExtractService) clearScratch(ctx context.Context, logger *slog.Logger) {
	entries, err := os.ReadDir(s.scratchDir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WarnContext(ctx, "scratch directory read failed", "error", err)
		}
		return
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.scratchDir, entry.Name())); err != nil {
			logger.WarnContext(ctx, "scratch file removal failed", "error", err, "name", entry.Name())
		}
	}
}

func (s *ExtractService) journalRun(ctx context.Context, logger *slog.Logger, run RunRecord) {
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordRun(ctx, run); err != nil {
		logger.WarnContext(ctx, "run journal write failed", "error", err)
	}
}

func composePrompt(lines []string) string {
	parts := make([]string, 0, len(lines)+3)
	parts = append(parts, strings.TrimRight(instructionPrompt, "\n"), "\n--- USER INPUT START ---")
	parts = append(parts, lines...)
	parts = append(parts, "--- USER INPUT END ---")
	return strings.Join(parts, "\n")
}

// sanitizeMessageID keeps the characters safe for a scratch file name:
// alphanumerics, '-' and '_'.
func sanitizeMessageID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

// noInfoReplyPrefix matches the literal no-data reply the instruction block
// pins for the model.
const noInfoReplyPrefix = "no info"

// ParseScheduleReply validates the model reply as a whole: either the no-info
// sentinel, or a JSON list of {date, location} with strict dates and known
// locations. Any violation rejects the entire reply.
func ParseScheduleReply(reply string) ([]ScheduleEntry, error) {
	text := stripCodeFence(strings.TrimSpace(reply))
	text = strings.Trim(text, "'\" \n")

	if strings.HasPrefix(strings.ToLower(text), noInfoReplyPrefix) {
		return nil, ErrNoScheduleInfo
	}

	var raw []struct {
		Date     string `json:"date"`
		Location string `json:"location"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: reply is not a JSON list", ErrMalformedSchedule)
	}

	entries := make([]ScheduleEntry, 0, len(raw))
	for _, item := range raw {
		date, err := NormalizeDate(item.Date)
		if err != nil {
			return nil, err
		}
		location, err := ParseLocation(item.Location)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ScheduleEntry{Date: date, Location: location})
	}
	return entries, nil
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
