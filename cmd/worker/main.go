package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/file-processor/internal/bootstrap"
	"github.com/kirillkom/file-processor/internal/config"
	"github.com/kirillkom/file-processor/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewWorker(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", app.ProcessingMetrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.Info("worker_subscribed",
			"subject", cfg.NATSSubject,
			"max_concurrent_jobs", app.Scheduler.Status().MaxConcurrentJobs,
		)
		// Enqueue only admits the job, so one slow file never blocks delivery.
		err := app.ProcessUC.Consume(groupCtx, app.Queue.SubscribeFileUploaded, 2*time.Minute)
		if err != nil {
			logger.Warn("processing_drain_incomplete", "error", err, "status", app.Scheduler.Status())
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("worker_metrics_shutdown_failed", "error", shutdownErr)
		}
		return err
	})

	if err := group.Wait(); err != nil {
		logger.Error("worker_failed", "error", err)
		os.Exit(1)
	}
	logger.Info("worker_stopped")
}
