package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/file-processor/internal/config"
	"github.com/kirillkom/file-processor/internal/core/ports"
	"github.com/kirillkom/file-processor/internal/core/processing"
	"github.com/kirillkom/file-processor/internal/core/usecase"
	"github.com/kirillkom/file-processor/internal/infrastructure/analyzer"
	jwtauth "github.com/kirillkom/file-processor/internal/infrastructure/auth/jwt"
	"github.com/kirillkom/file-processor/internal/infrastructure/cache/thumbcache"
	"github.com/kirillkom/file-processor/internal/infrastructure/queue/nats"
	"github.com/kirillkom/file-processor/internal/infrastructure/repository/memory"
	"github.com/kirillkom/file-processor/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/file-processor/internal/infrastructure/resilience"
	"github.com/kirillkom/file-processor/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/file-processor/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	HTTPMetrics       *metrics.HTTPServerMetrics
	ProcessingMetrics *metrics.ProcessingMetrics

	Repo  ports.FileRepository
	Queue ports.MessageQueue

	// Scheduler and ProcessUC are nil in an API process that hands work to
	// the worker over NATS.
	Scheduler *processing.Scheduler
	ProcessUC *usecase.ProcessFileUseCase

	UploadUC *usecase.UploadFileUseCase
	FilesUC  *usecase.FileQueryService
	Auth     *jwtauth.Authenticator

	closeFns []func()
}

// NewAPI wires the HTTP process. In inprocess mode it owns the scheduler.
func NewAPI(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := validateModes(cfg); err != nil {
		return nil, err
	}
	app, storage, err := newBase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app.HTTPMetrics = metrics.NewHTTPServerMetrics("api")

	var processor ports.FileProcessor
	switch cfg.ProcessingMode {
	case config.ProcessingNATS:
		if err := app.connectQueue(cfg, "file-processor-api"); err != nil {
			app.Close()
			return nil, err
		}
		processor = usecase.NewQueueDispatcher(app.Queue)
	default:
		app.startProcessing(cfg, storage, app.HTTPMetrics.Registry())
		processor = app.ProcessUC
	}

	cache, err := thumbcache.New(cfg.ThumbnailCacheSize)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.UploadUC = usecase.NewUploadFileUseCase(app.Repo, storage, processor, cfg.MaxUploadBytes)
	app.FilesUC = usecase.NewFileQueryService(app.Repo, storage, cache)

	users, err := jwtauth.ParseUsers(cfg.APIUsers)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("parse API_USERS: %w", err)
	}
	app.Auth, err = jwtauth.New(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute, users)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init authenticator: %w", err)
	}
	return app, nil
}

// NewWorker wires the NATS consumer process.
func NewWorker(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if cfg.FileStore != config.FileStorePostgres {
		return nil, errors.New("worker requires FILE_STORE=postgres to share records with the api")
	}
	app, storage, err := newBase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := app.connectQueue(cfg, "file-processor-worker"); err != nil {
		app.Close()
		return nil, err
	}
	app.startProcessing(cfg, storage, nil)
	return app, nil
}

func validateModes(cfg config.Config) error {
	switch cfg.FileStore {
	case config.FileStoreMemory, config.FileStorePostgres:
	default:
		return fmt.Errorf("unsupported FILE_STORE %q", cfg.FileStore)
	}
	switch cfg.ProcessingMode {
	case config.ProcessingInProcess:
	case config.ProcessingNATS:
		if cfg.FileStore != config.FileStorePostgres {
			return errors.New("PROCESSING_MODE=nats requires FILE_STORE=postgres")
		}
	default:
		return fmt.Errorf("unsupported PROCESSING_MODE %q", cfg.ProcessingMode)
	}
	return nil
}

func newBase(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, *localfs.Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("init object storage: %w", err)
	}

	if cfg.FileStore == config.FileStorePostgres {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewFileRepository(db, resilience.NewExecutor(resiliencePolicy(cfg), logger))
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		app.Repo = repo
		app.onClose(func() { closeDB(db, logger) })
	} else {
		app.Repo = memory.NewFileRepository()
	}
	return app, storage, nil
}

func (a *App) connectQueue(cfg config.Config, clientName string) error {
	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ClientName:         clientName,
		ResilienceExecutor: resilience.NewExecutor(resiliencePolicy(cfg), a.Logger),
		Logger:             a.Logger,
	})
	if err != nil {
		return fmt.Errorf("init message queue: %w", err)
	}
	a.Queue = queue
	a.onClose(queue.Close)
	return nil
}

func (a *App) startProcessing(cfg config.Config, storage *localfs.Storage, registry *prometheus.Registry) {
	a.ProcessingMetrics = metrics.NewProcessingMetrics("processing", registry)
	analyzers := analyzer.NewRegistry(storage, analyzer.Options{
		ThumbnailMaxSide: cfg.ThumbnailMaxSide,
		ThumbnailQuality: cfg.ThumbnailQuality,
	})
	a.Scheduler = processing.New(analyzers, processing.Options{
		MaxConcurrent: cfg.MaxConcurrentJobs,
		Logger:        a.Logger,
		Observer:      a.ProcessingMetrics,
	})
	a.ProcessUC = usecase.NewProcessFileUseCase(a.Repo, storage, a.Scheduler, a.Logger)
}

func resiliencePolicy(cfg config.Config) resilience.Policy {
	return resilience.Policy{
		MaxAttempts:        cfg.RetryMaxAttempts,
		InitialBackoff:     time.Duration(cfg.RetryInitialBackoffMs) * time.Millisecond,
		MaxBackoff:         time.Duration(cfg.RetryMaxBackoffMs) * time.Millisecond,
		Multiplier:         2,
		BreakerEnabled:     cfg.BreakerEnabled,
		BreakerMinRequests: uint32(max(cfg.BreakerMinRequests, 0)),
		BreakerCooldown:    time.Duration(cfg.BreakerCooldownSec) * time.Second,
	}
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("postgres_close_failed", "error", err)
	}
}

func (a *App) onClose(fn func()) {
	a.closeFns = append(a.closeFns, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
