package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/kirillkom/file-processor/internal/adapters/http"
	"github.com/kirillkom/file-processor/internal/bootstrap"
	"github.com/kirillkom/file-processor/internal/config"
	"github.com/kirillkom/file-processor/internal/core/ports"
	"github.com/kirillkom/file-processor/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewAPI(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	var status ports.QueueStatusReader
	if app.Scheduler != nil {
		status = app.Scheduler
	}
	router := httpadapter.NewRouter(app.UploadUC, app.FilesUC, status, app.Auth, app.HTTPMetrics, httpadapter.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimitRPS:   cfg.APIRateLimitRPS,
		RateLimitBurst: cfg.APIRateLimitBurst,
		MaxInFlight:    cfg.APIMaxConnections,
		CORSOrigins:    cfg.CORSOrigins,
	}).Handler()

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		logger.Error("api_listen_failed", "port", cfg.APIPort, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("api_listening",
			"port", cfg.APIPort,
			"file_store", cfg.FileStore,
			"processing_mode", cfg.ProcessingMode,
		)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("api_shutdown_failed", "error", err)
		}
		if app.ProcessUC != nil {
			if err := app.ProcessUC.Drain(shutdownCtx); err != nil {
				logger.Warn("processing_drain_incomplete", "error", err, "status", app.Scheduler.Status())
			}
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("api_server_failed", "error", err)
		os.Exit(1)
	}
	logger.Info("api_stopped")
}
