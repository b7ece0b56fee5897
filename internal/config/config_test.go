package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.WAHABaseURL != "http://waha:3000" {
		t.Fatalf("unexpected base URL %q", cfg.WAHABaseURL)
	}
	if cfg.WAHASession != "default" || cfg.WAHAInternalHost != "waha" {
		t.Fatalf("unexpected session defaults %q/%q", cfg.WAHASession, cfg.WAHAInternalHost)
	}
	if cfg.MessageLimit != 100 || cfg.Window != 24*time.Hour {
		t.Fatalf("unexpected window defaults %d/%v", cfg.MessageLimit, cfg.Window)
	}
	if cfg.PollAttempts != 10 || cfg.PollInterval != 5*time.Second || cfg.PollExhaustion != ExhaustionSkip {
		t.Fatalf("unexpected poll defaults %d/%v/%q", cfg.PollAttempts, cfg.PollInterval, cfg.PollExhaustion)
	}
	if cfg.GeminiModel != "pro" || cfg.AWSRegion != "us-east-1" {
		t.Fatalf("unexpected provider defaults %q/%q", cfg.GeminiModel, cfg.AWSRegion)
	}
	if cfg.HTTPPort != 8080 || cfg.Cron != "@every 6h" {
		t.Fatalf("unexpected service defaults %d/%q", cfg.HTTPPort, cfg.Cron)
	}
	if !strings.HasPrefix(cfg.LedgerDSN, "file:studysync.db") {
		t.Fatalf("unexpected ledger DSN %q", cfg.LedgerDSN)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STUDYSYNC_WAHA_BASE_URL", "http://waha.internal:4000")
	t.Setenv("STUDYSYNC_WINDOW", "48h")
	t.Setenv("STUDYSYNC_MESSAGE_LIMIT", "250")
	t.Setenv("STUDYSYNC_POLL_EXHAUSTION", "fail")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WAHABaseURL != "http://waha.internal:4000" {
		t.Fatalf("unexpected base URL %q", cfg.WAHABaseURL)
	}
	if cfg.Window != 48*time.Hour || cfg.MessageLimit != 250 {
		t.Fatalf("unexpected overrides %v/%d", cfg.Window, cfg.MessageLimit)
	}
	if cfg.PollExhaustion != ExhaustionFail {
		t.Fatalf("unexpected exhaustion policy %q", cfg.PollExhaustion)
	}
}

func TestLoadCollectsInvalidValues(t *testing.T) {
	t.Setenv("STUDYSYNC_MESSAGE_LIMIT", "lots")
	t.Setenv("STUDYSYNC_WINDOW", "-1h")
	t.Setenv("STUDYSYNC_POLL_EXHAUSTION", "maybe")

	_, err := Load()
	if err == nil {
		t.Fatal("expected Load to fail")
	}
	for _, name := range []string{"STUDYSYNC_MESSAGE_LIMIT", "STUDYSYNC_WINDOW", "STUDYSYNC_POLL_EXHAUSTION"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("expected %s in error, got %v", name, err)
		}
	}
}

func TestRequireMethods(t *testing.T) {
	t.Run("extract reports its missing variables", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		err = cfg.RequireExtract()
		if err == nil {
			t.Fatal("expected missing variables")
		}
		for _, name := range []string{"STUDYSYNC_WAHA_CHAT_ID", "STUDYSYNC_WAHA_API_KEY", "STUDYSYNC_S3_BUCKET"} {
			if !strings.Contains(err.Error(), name) {
				t.Fatalf("expected %s in error, got %v", name, err)
			}
		}
	})

	t.Run("extract passes when its variables are set", func(t *testing.T) {
		t.Setenv("STUDYSYNC_WAHA_CHAT_ID", "123@g.us")
		t.Setenv("STUDYSYNC_WAHA_API_KEY", "key")
		t.Setenv("STUDYSYNC_S3_BUCKET", "bucket")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if err := cfg.RequireExtract(); err != nil {
			t.Fatalf("RequireExtract failed: %v", err)
		}
		// Serve still misses its own variables.
		if err := cfg.RequireServe(); err == nil {
			t.Fatal("expected RequireServe to fail")
		}
	})

	t.Run("serve and reconcile check the calendar variables", func(t *testing.T) {
		t.Setenv("STUDYSYNC_S3_BUCKET", "bucket")
		t.Setenv("STUDYSYNC_CALENDAR_ID", "primary")
		t.Setenv("STUDYSYNC_CALENDAR_SECRET_NAME", "calendar-sa")
		t.Setenv("STUDYSYNC_TRIGGER_SECRET_NAME", "trigger-secret")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if err := cfg.RequireReconcile(); err != nil {
			t.Fatalf("RequireReconcile failed: %v", err)
		}
		if err := cfg.RequireServe(); err != nil {
			t.Fatalf("RequireServe failed: %v", err)
		}
	})
}
