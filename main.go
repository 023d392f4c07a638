package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"matchain-gc/client"
	"matchain-gc/config"
	"matchain-gc/models"
	"matchain-gc/observability"
	"matchain-gc/scraper/matchapro"
	"matchain-gc/services"
	"matchain-gc/session"
	"matchain-gc/storage"
	"matchain-gc/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	logger := utils.NewFileLogger(cfg.LogFile)
	defer logger.Close()

	fmt.Println("\n==================================================")
	fmt.Println("   MatchaIn GC (Matcha Input Gak Culun)")
	fmt.Println("==================================================")

	if err := cfg.Validate(); err != nil {
		logger.Error("%v", err)
		return 1
	}

	runID := uuid.NewString()
	logger.Info("=== Ground-check batch upload starting (run %s) ===", runID)
	logger.Info("Config: input: %s | cache: %v | headless: %v | checkpoint every %d rows",
		cfg.InputDir, cfg.UseSessionCache, cfg.Headless, cfg.CheckpointEvery)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := utils.NewConsole(os.Stdin, os.Stdout)

	metrics, err := observability.NewCollector(nil)
	if err != nil {
		logger.Error("Failed to register metrics: %v", err)
		return 1
	}
	if cfg.MetricsAddr != "" {
		srv := observability.NewServer(metrics, runID, logger)
		srv.Start(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	var ledger storage.RunLedger
	if cfg.PostgresDSN != "" {
		pg, err := storage.NewPostgresLedger(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL, run ledger disabled: %v", err)
		} else {
			defer pg.Close()
			ledger = pg
		}
	}

	geofence, err := services.LoadGeofence(cfg.BoundingBoxFile, logger)
	if err != nil {
		logger.Error("Failed to load bounding boxes: %v", err)
	}

	if cfg.ShowRules {
		fmt.Print(services.Rules)
		if err := console.WaitForEnter("Press ENTER to continue..."); err != nil {
			logger.Warn("No console input available, continuing")
		}
	}

	var cache *session.FileCache
	if cfg.UseSessionCache {
		cache = &session.FileCache{Path: cfg.SessionFile}
	} else if err := (&session.FileCache{Path: cfg.SessionFile}).Remove(); err != nil {
		logger.Warn("Could not remove stale session file: %v", err)
	}

	auth := matchapro.New(matchapro.Options{
		DirURL:    cfg.DirURL,
		Username:  cfg.Username,
		Password:  cfg.Password,
		OTPSecret: cfg.OTPSecret,
		UserAgent: cfg.UserAgent,
		ChromeBin: cfg.ChromeBin,
		Headless:  cfg.Headless,
		Prompt:    console,
		Logger:    logger,
	})

	initial, err := session.Bootstrap(ctx, auth, cache, logger)
	if err != nil {
		logger.Error("Could not obtain an authenticated session: %v", err)
		return 1
	}
	logger.Info("Session ready, token %s", models.ShortToken(initial.SubmissionToken))

	opts := session.Options{Authenticator: auth, Logger: logger, Metrics: metrics}
	if cache != nil {
		opts.Store = cache
	}
	manager, err := session.NewManager(opts, initial)
	if err != nil {
		logger.Error("Invalid session material: %v", err)
		return 1
	}

	submitter := client.New(client.Config{
		PostURL:             cfg.PostURL,
		Origin:              cfg.BaseURL,
		Referer:             cfg.DirURL,
		UserAgent:           cfg.UserAgent,
		Timeout:             cfg.RequestTimeout,
		MaxTransportRetries: cfg.MaxTransportRetries,
		RateLimitDefault:    cfg.RateLimitDefault,
	}, manager, logger, client.WithRecorder(metrics))

	stores := storage.NewStores()
	archiver := storage.NewArchiver(cfg.BackupDir, cfg.ProcessedDir)

	processor := services.NewProcessor(services.ProcessorOptions{
		Store:           stores,
		Archiver:        archiver,
		Submitter:       submitter,
		Tokens:          manager,
		Validator:       services.NewValidator(geofence),
		Operator:        console,
		Pacer:           utils.NewPacer(cfg.PaceMin, cfg.PaceMax, nil),
		Metrics:         metrics,
		Logger:          logger,
		CheckpointEvery: cfg.CheckpointEvery,
		SaveRetry: utils.RetryConfig{
			MaxAttempts: cfg.SaveRetries,
			BaseDelay:   cfg.SaveRetryDelay,
			Logger:      logger,
		},
	})

	runner := services.NewRunner(services.RunnerOptions{
		InputDir:   cfg.InputDir,
		Extensions: stores.Extensions(),
		RunID:      runID,
		Processor:  processor,
		Mover:      archiver,
		Ledger:     ledger,
		Operator:   console,
		Logger:     logger,
	})

	stats, runErr := runner.Run(ctx)
	switch {
	case errors.Is(runErr, services.ErrInterrupted):
		logger.Warn("Run interrupted by operator; progress has been saved")
	case errors.Is(runErr, services.ErrSessionLost):
		logger.Error("Run aborted: the session could not be recovered")
	case runErr != nil:
		logger.Error("Run failed: %v", runErr)
	}

	if len(stats) > 0 {
		reporter := services.NewReportService(logger)
		report := reporter.Generate(stats)
		reporter.Print(os.Stdout, report)
		if _, err := reporter.Save(cfg.ReportDir, report); err != nil {
			logger.Error("Failed to save summary report: %v", err)
		}
	}

	logger.Info("All processing finished.")
	if runErr != nil && !errors.Is(runErr, services.ErrInterrupted) {
		return 1
	}
	return 0
}
