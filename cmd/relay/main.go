package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/oracle-relay/internal/archive"
	"github.com/rickgao/oracle-relay/internal/config"
	"github.com/rickgao/oracle-relay/internal/database"
	"github.com/rickgao/oracle-relay/internal/ledger"
	"github.com/rickgao/oracle-relay/internal/model"
	"github.com/rickgao/oracle-relay/internal/queue"
	"github.com/rickgao/oracle-relay/internal/relay"
	"github.com/rickgao/oracle-relay/internal/source"
	"github.com/rickgao/oracle-relay/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/relay.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting relay",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"ledger_ws", cfg.Ledger.WSURL,
		"source_url", cfg.Source.URL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Request queue
	q := queue.New[model.Request](cfg.Queue.InitialCapacity)

	// Submission archive (optional)
	var (
		pool          *pgxpool.Pool
		archiveWriter *archive.Writer
		handler       relay.SubmissionHandler
	)
	if cfg.Archive.Enabled {
		logger.Info("connecting to archive database",
			"host", cfg.Database.Archive.Host,
			"port", cfg.Database.Archive.Port,
			"database", cfg.Database.Archive.Name,
		)
		pool, err = database.Connect(ctx, cfg.Database.Archive)
		if err != nil {
			logger.Error("failed to connect to archive database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		archiveWriter = archive.NewWriter(archive.WriterConfig{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
		}, pool, logger)
		if err := archiveWriter.Start(ctx); err != nil {
			logger.Error("failed to start archive writer", "error", err)
			os.Exit(1)
		}
		handler = archiveWriter
	}

	// Data source client and retry fetcher
	srcClient := source.NewClient(
		cfg.Source.URL,
		cfg.Source.APIKey,
		source.WithLogger(logger),
		source.WithTimeout(cfg.Source.Timeout),
	)
	fetcher := source.NewFetcher(source.FetcherConfig{
		MaxRetries: cfg.Source.MaxRetries,
		Backoff:    cfg.Source.RetryBackoff,
		ValueScale: cfg.Source.ValueScale,
	}, srcClient, logger)

	// Ledger access
	submitter := ledger.NewSubmitter(ledger.SubmitterConfig{
		RPCURL:     cfg.Ledger.RPCURL,
		APIKey:     cfg.Ledger.APIKey,
		From:       cfg.Ledger.SubmitFrom,
		Timeout:    cfg.Ledger.SubmitTimeout,
		MaxRetries: cfg.Ledger.SubmitRetries,
		Backoff:    cfg.Ledger.SubmitBackoff,
	}, logger)

	subscriber := ledger.NewSubscriber(ledger.SubscriberConfig{
		URL:                cfg.Ledger.WSURL,
		APIKey:             cfg.Ledger.APIKey,
		ReconnectBaseDelay: cfg.Ledger.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Ledger.ReconnectMaxDelay,
		MaxReconnects:      cfg.Ledger.MaxReconnects,
		PingInterval:       cfg.Ledger.PingInterval,
		ReadTimeout:        cfg.Ledger.ReadTimeout,
		EventBuffer:        cfg.Ledger.EventBuffer,
	}, logger)
	if err := subscriber.Start(ctx); err != nil {
		logger.Error("failed to start subscriber", "error", err)
		os.Exit(1)
	}

	// Intake and processor
	intake := relay.NewIntake(q, subscriber, logger)
	if err := intake.Start(ctx); err != nil {
		logger.Error("failed to start intake", "error", err)
		os.Exit(1)
	}

	processor := relay.NewProcessor(relay.ProcessorConfig{
		BatchSize:    cfg.Processor.BatchSize,
		TickInterval: cfg.Processor.TickInterval,
	}, q, fetcher, submitter, handler, logger)
	if err := processor.Start(ctx); err != nil {
		logger.Error("failed to start processor", "error", err)
		os.Exit(1)
	}

	// Health server and fatal-error supervision
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHealthHandler(pool, q, subscriber, processor, submitter, logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case err := <-subscriber.Fatal():
			// Dead event intake: requests would never be queued again.
			return err
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	logger.Info("relay running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	runErr := g.Wait()
	cancel()

	logger.Info("shutting down...")

	// Drain in dependency order: processor finishes its in-flight batch,
	// then intake and subscriber stop, then the archive takes its final
	// flush.
	exitCode := 0
	if runErr != nil {
		logger.Error("relay failed", "error", runErr)
		exitCode = 1
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := processor.Stop(stopCtx); err != nil {
		logger.Error("processor drain failed", "error", err)
		exitCode = 1
	}
	if err := intake.Stop(stopCtx); err != nil {
		logger.Error("intake stop failed", "error", err)
		exitCode = 1
	}
	if err := subscriber.Stop(stopCtx); err != nil {
		logger.Error("subscriber stop failed", "error", err)
		exitCode = 1
	}
	if archiveWriter != nil {
		if err := archiveWriter.Stop(stopCtx); err != nil {
			logger.Error("archive writer stop failed", "error", err)
			exitCode = 1
		}
	}

	if dropped := q.Len(); dropped > 0 {
		logger.Warn("requests left queued at shutdown", "count", dropped)
	}

	logger.Info("relay stopped")
	os.Exit(exitCode)
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(
	pool *pgxpool.Pool,
	q *queue.Queue[model.Request],
	subscriber *ledger.Subscriber,
	processor *relay.Processor,
	submitter *ledger.Submitter,
	logger *slog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		// Check event subscription
		if subscriber.IsConnected() {
			health.Components["subscription"] = "connected"
		} else {
			health.Status = "degraded"
			health.Components["subscription"] = "disconnected"
		}

		// Check archive database
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["archive_db"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["archive_db"] = "connected"
			}
		}

		health.Components["queue"] = map[string]interface{}{
			"depth": q.Len(),
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"queue":        q.Stats(),
			"subscription": subscriber.Stats(),
			"processor":    processor.Stats(),
			"submitter":    submitter.Stats(),
		})
	})

	return mux
}
