// Package config loads the service configuration from the process environment.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Exhaustion policies for the session readiness poller.
const (
	ExhaustionSkip = "skip"
	ExhaustionFail = "fail"
)

// Config captures environment driven configuration for the pipeline and the
// trigger endpoint.
type Config struct {
	WAHABaseURL      string
	WAHASession      string
	WAHAChatID       string
	WAHAAPIKey       string
	WAHAInternalHost string
	MessageLimit     int
	Window           time.Duration
	ScratchDir       string

	PollAttempts   int
	PollInterval   time.Duration
	PollExhaustion string

	GeminiAPIKey string
	GeminiModel  string

	S3Bucket  string
	AWSRegion string

	CalendarID         string
	CalendarSecretName string
	TriggerSecretName  string

	HTTPPort  int
	LedgerDSN string
	Cron      string
}

// Load parses configuration from the current process environment.
//
// Optional values fall back to defaults; malformed values are collected and
// reported together. Per-command required values are checked by the Require
// methods, so a command only fails on the variables it actually uses.
func Load() (Config, error) {
	cfg := Config{
		WAHABaseURL:      "http://waha:3000",
		WAHASession:      "default",
		WAHAInternalHost: "waha",
		MessageLimit:     100,
		Window:           24 * time.Hour,
		ScratchDir:       "./waha_images",
		PollAttempts:     10,
		PollInterval:     5 * time.Second,
		PollExhaustion:   ExhaustionSkip,
		GeminiModel:      "pro",
		AWSRegion:        "us-east-1",
		HTTPPort:         8080,
		LedgerDSN:        "file:studysync.db?_pragma=busy_timeout(5000)",
		Cron:             "@every 6h",
	}

	invalid := make([]string, 0, 2)

	stringVar(&cfg.WAHABaseURL, "STUDYSYNC_WAHA_BASE_URL")
	stringVar(&cfg.WAHASession, "STUDYSYNC_WAHA_SESSION")
	stringVar(&cfg.WAHAChatID, "STUDYSYNC_WAHA_CHAT_ID")
	stringVar(&cfg.WAHAAPIKey, "STUDYSYNC_WAHA_API_KEY")
	stringVar(&cfg.WAHAInternalHost, "STUDYSYNC_WAHA_INTERNAL_HOST")
	intVar(&cfg.MessageLimit, "STUDYSYNC_MESSAGE_LIMIT", &invalid)
	durationVar(&cfg.Window, "STUDYSYNC_WINDOW", &invalid)
	stringVar(&cfg.ScratchDir, "STUDYSYNC_SCRATCH_DIR")

	intVar(&cfg.PollAttempts, "STUDYSYNC_POLL_ATTEMPTS", &invalid)
	durationVar(&cfg.PollInterval, "STUDYSYNC_POLL_INTERVAL", &invalid)
	if policy := strings.TrimSpace(os.Getenv("STUDYSYNC_POLL_EXHAUSTION")); policy != "" {
		if policy != ExhaustionSkip && policy != ExhaustionFail {
			invalid = append(invalid, "STUDYSYNC_POLL_EXHAUSTION")
		} else {
			cfg.PollExhaustion = policy
		}
	}

	stringVar(&cfg.GeminiAPIKey, "STUDYSYNC_GEMINI_API_KEY")
	stringVar(&cfg.GeminiModel, "STUDYSYNC_GEMINI_MODEL")

	stringVar(&cfg.S3Bucket, "STUDYSYNC_S3_BUCKET")
	stringVar(&cfg.AWSRegion, "STUDYSYNC_AWS_REGION")

	stringVar(&cfg.CalendarID, "STUDYSYNC_CALENDAR_ID")
	stringVar(&cfg.CalendarSecretName, "STUDYSYNC_CALENDAR_SECRET_NAME")
	stringVar(&cfg.TriggerSecretName, "STUDYSYNC_TRIGGER_SECRET_NAME")

	intVar(&cfg.HTTPPort, "STUDYSYNC_HTTP_PORT", &invalid)
	stringVar(&cfg.LedgerDSN, "STUDYSYNC_LEDGER_DSN")
	stringVar(&cfg.Cron, "STUDYSYNC_CRON")

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// RequireExtract validates the variables the extract pipeline needs.
func (c Config) RequireExtract() error {
	return requireAll(map[string]string{
		"STUDYSYNC_WAHA_CHAT_ID": c.WAHAChatID,
		"STUDYSYNC_WAHA_API_KEY": c.WAHAAPIKey,
		"STUDYSYNC_S3_BUCKET":    c.S3Bucket,
	})
}

// RequireReconcile validates the variables the calendar reconciler needs.
func (c Config) RequireReconcile() error {
	return requireAll(map[string]string{
		"STUDYSYNC_S3_BUCKET":            c.S3Bucket,
		"STUDYSYNC_CALENDAR_ID":          c.CalendarID,
		"STUDYSYNC_CALENDAR_SECRET_NAME": c.CalendarSecretName,
	})
}

// RequireServe validates the variables the trigger endpoint needs.
func (c Config) RequireServe() error {
	return requireAll(map[string]string{
		"STUDYSYNC_CALENDAR_ID":          c.CalendarID,
		"STUDYSYNC_CALENDAR_SECRET_NAME": c.CalendarSecretName,
		"STUDYSYNC_TRIGGER_SECRET_NAME":  c.TriggerSecretName,
	})
}

func requireAll(vars map[string]string) error {
	missing := make([]string, 0, len(vars))
	for name, value := range vars {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func stringVar(dst *string, name string) {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		*dst = value
	}
}

func intVar(dst *int, name string, invalid *[]string) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		*invalid = append(*invalid, name)
		return
	}
	*dst = parsed
}

func durationVar(dst *time.Duration, name string, invalid *[]string) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		*invalid = append(*invalid, name)
		return
	}
	*dst = parsed
}
