package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/example/studysync/internal/application"
	"github.com/example/studysync/internal/calendar"
	"github.com/example/studysync/internal/config"
	httptransport "github.com/example/studysync/internal/http"
	"github.com/example/studysync/internal/inference"
	"github.com/example/studysync/internal/persistence"
	"github.com/example/studysync/internal/persistence/sqlite"
	"github.com/example/studysync/internal/secrets"
	"github.com/example/studysync/internal/storage"
	"github.com/example/studysync/internal/waha"
)

const usage = `usage: studysync <command> [flags]

commands:
  extract     run the conversation-to-schedule pipeline once
  reconcile   apply a published schedule artifact to the calendar
  serve       run the status trigger HTTP endpoint
  run         daemon mode: cron-scheduled extraction runs
`

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "extract":
		err = runExtract(ctx, cfg, logger)
	case "reconcile":
		err = runReconcile(ctx, cfg, logger, os.Args[2:])
	case "serve":
		err = runServe(ctx, cfg, logger)
	case "run":
		err = runDaemon(ctx, cfg, logger)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err, "error_kind", application.ErrorKind(err))
		os.Exit(1)
	}
}

func runExtract(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := cfg.RequireExtract(); err != nil {
		return err
	}

	source := waha.NewClient(waha.Options{
		BaseURL:      cfg.WAHABaseURL,
		Session:      cfg.WAHASession,
		ChatID:       cfg.WAHAChatID,
		APIKey:       cfg.WAHAAPIKey,
		InternalHost: cfg.WAHAInternalHost,
		MessageLimit: cfg.MessageLimit,
	})

	poller := application.NewSessionPoller(source, cfg.PollAttempts, cfg.PollInterval, logger)
	if err := poller.AwaitReady(ctx); err != nil {
		if errors.Is(err, application.ErrSessionNotReady) && cfg.PollExhaustion == config.ExhaustionSkip {
			logger.Warn("session never became ready, skipping run", "error", err)
			return nil
		}
		return err
	}

	store, err := storage.NewS3Store(ctx, cfg.S3Bucket, cfg.AWSRegion)
	if err != nil {
		return err
	}

	ledger, adapter, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer closeLedger(ledger, logger)

	var journal application.RunJournal
	if adapter != nil {
		journal = adapter
	}

	service := application.NewExtractService(
		source,
		inference.NewCLIClient(cfg.GeminiModel, cfg.GeminiAPIKey),
		store,
		journal,
		cfg.ScratchDir,
		cfg.Window,
		time.Now,
		uuid.NewString,
		logger,
	)

	result, err := service.Run(ctx)
	switch {
	case errors.Is(err, application.ErrNoMessages), errors.Is(err, application.ErrNoScheduleInfo):
		logger.Info("nothing to publish", "reason", err.Error())
		return nil
	case err != nil:
		return err
	}

	logger.Info("schedule published", "artifact_key", result.ArtifactKey, "entries", len(result.Entries))
	return nil
}

func runReconcile(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	key := fs.String("key", "", "artifact object key")
	eventFile := fs.String("event", "", "path to a storage event notification JSON ('-' for stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.RequireReconcile(); err != nil {
		return err
	}

	keys, err := resolveArtifactKeys(*key, *eventFile)
	if err != nil {
		return err
	}

	store, err := storage.NewS3Store(ctx, cfg.S3Bucket, cfg.AWSRegion)
	if err != nil {
		return err
	}
	secretStore, err := secrets.NewManagerStore(ctx, cfg.AWSRegion)
	if err != nil {
		return err
	}
	cal, err := openCalendar(ctx, secretStore, cfg, false)
	if err != nil {
		return err
	}

	ledger, adapter, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer closeLedger(ledger, logger)

	var reconcileLedger application.ReconcileLedger
	if adapter != nil {
		reconcileLedger = adapter
	}
	service := application.NewReconcileService(cal, reconcileLedger, time.Now, uuid.NewString, logger)

	for _, artifactKey := range keys {
		body, err := store.Get(ctx, artifactKey)
		if err != nil {
			return err
		}

		entries, err := application.DecodeArtifact(body)
		if errors.Is(err, application.ErrNoScheduleInfo) {
			logger.Info("artifact carries no schedule info", "artifact_key", artifactKey)
			continue
		}
		if err != nil {
			return fmt.Errorf("artifact %s: %w", artifactKey, err)
		}

		result, err := service.Reconcile(ctx, entries)
		if err != nil {
			return fmt.Errorf("artifact %s: %w", artifactKey, err)
		}
		logger.Info("artifact reconciled",
			"artifact_key", artifactKey,
			"inserted", result.Inserted,
			"skipped", result.Skipped,
		)
	}
	return nil
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := cfg.RequireServe(); err != nil {
		return err
	}

	secretStore, err := secrets.NewManagerStore(ctx, cfg.AWSRegion)
	if err != nil {
		return err
	}
	triggerSecret, err := secretStore.GetSecret(ctx, cfg.TriggerSecretName)
	if err != nil {
		return err
	}
	triggerSecret = application.ResolveSharedSecret(triggerSecret, cfg.TriggerSecretName)

	cal, err := openCalendar(ctx, secretStore, cfg, true)
	if err != nil {
		return err
	}

	statusService := application.NewStatusService(cal, time.Now, logger)
	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Status:     httptransport.NewStatusHandler(statusService, logger),
		Secret:     triggerSecret,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("status trigger endpoint listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runDaemon(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := cfg.RequireExtract(); err != nil {
		return err
	}

	scheduler := cron.New()
	_, err := scheduler.AddFunc(cfg.Cron, func() {
		if err := runExtract(ctx, cfg, logger); err != nil {
			logger.Error("scheduled extraction failed", "error", err, "error_kind", application.ErrorKind(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cfg.Cron, err)
	}

	logger.Info("daemon started", "cron", cfg.Cron)
	scheduler.Start()
	<-ctx.Done()

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("scheduled run still in flight at shutdown")
	}
	return nil
}

// resolveArtifactKeys turns the reconcile flags into the list of artifact keys
// to process: a bare key, or the object keys of a storage event notification.
func resolveArtifactKeys(key, eventFile string) ([]string, error) {
	switch {
	case key != "" && eventFile != "":
		return nil, errors.New("use either -key or -event, not both")
	case key != "":
		return []string{key}, nil
	case eventFile != "":
		var body []byte
		var err error
		if eventFile == "-" {
			body, err = io.ReadAll(os.Stdin)
		} else {
			body, err = os.ReadFile(eventFile)
		}
		if err != nil {
			return nil, err
		}
		keys, err := storage.ObjectKeys(body)
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, errors.New("event notification carries no object keys")
		}
		return keys, nil
	default:
		return nil, errors.New("one of -key or -event is required")
	}
}

func openCalendar(ctx context.Context, secretStore application.SecretStore, cfg config.Config, readOnly bool) (*calendar.Client, error) {
	blob, err := secretStore.GetSecret(ctx, cfg.CalendarSecretName)
	if err != nil {
		return nil, err
	}
	account, err := application.ResolveServiceAccount(blob)
	if err != nil {
		return nil, err
	}
	return calendar.NewClient(ctx, account.JSON(), cfg.CalendarID, readOnly)
}

func openLedger(cfg config.Config) (*sqlite.Ledger, *ledgerAdapter, error) {
	if cfg.LedgerDSN == "" {
		return nil, nil, nil
	}
	ledger, err := sqlite.Open(cfg.LedgerDSN)
	if err != nil {
		return nil, nil, err
	}
	return ledger, &ledgerAdapter{repo: ledger}, nil
}

func closeLedger(ledger *sqlite.Ledger, logger *slog.Logger) {
	if ledger == nil {
		return
	}
	if err := ledger.Close(); err != nil {
		logger.Error("failed to close ledger", "error", err)
	}
}

// ledgerAdapter bridges the application's ledger interfaces to the
// persistence repository.
type ledgerAdapter struct {
	repo persistence.LedgerRepository
}

func (a *ledgerAdapter) SeenEvent(ctx context.Context, date string, location application.Location) (bool, error) {
	return a.repo.SeenEvent(ctx, date, string(location))
}

func (a *ledgerAdapter) RecordEvent(ctx context.Context, date string, location application.Location, runID string, at time.Time) error {
	return a.repo.RecordEvent(ctx, persistence.EventRecord{
		Date:      date,
		Location:  string(location),
		RunID:     runID,
		CreatedAt: at,
	})
}

func (a *ledgerAdapter) RecordRun(ctx context.Context, run application.RunRecord) error {
	return a.repo.RecordRun(ctx, persistence.RunRecord{
		ID:         run.ID,
		Kind:       run.Kind,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Entries:    run.Entries,
		Inserted:   run.Inserted,
		Skipped:    run.Skipped,
		Error:      run.Error,
	})
}

func (a *ledgerAdapter) AcquireLease(ctx context.Context, holder string, at time.Time, ttl time.Duration) (bool, error) {
	return a.repo.AcquireLease(ctx, holder, at, ttl)
}

func (a *ledgerAdapter) ReleaseLease(ctx context.Context, holder string) error {
	return a.repo.ReleaseLease(ctx, holder)
}
