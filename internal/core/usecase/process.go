package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/file-processor/internal/core/domain"
	"github.com/kirillkom/file-processor/internal/core/ports"
	"github.com/kirillkom/file-processor/internal/core/processing"
)

// JobSubmitter is the part of the scheduler the use case depends on.
type JobSubmitter interface {
	Submit(req domain.ProcessingRequest) *processing.Handle
}

// ProcessFileUseCase loads a stored upload, submits it to the scheduler and
// writes the settled outcome back to the file record.
type ProcessFileUseCase struct {
	repo      ports.FileRepository
	storage   ports.ObjectStorage
	scheduler JobSubmitter
	logger    *slog.Logger

	inflight sync.WaitGroup
}

func NewProcessFileUseCase(
	repo ports.FileRepository,
	storage ports.ObjectStorage,
	scheduler JobSubmitter,
	logger *slog.Logger,
) *ProcessFileUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessFileUseCase{
		repo:      repo,
		storage:   storage,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Enqueue returns as soon as the job is admitted. Records already in a
// terminal state are left untouched so redelivered messages are harmless.
func (uc *ProcessFileUseCase) Enqueue(ctx context.Context, fileID string) error {
	file, err := uc.repo.GetByID(ctx, fileID)
	if err != nil {
		return fmt.Errorf("fetch file by id: %w", err)
	}
	if file.Status == domain.StatusProcessed || file.Status == domain.StatusError {
		uc.logger.Info("processing_skip_terminal", "file_id", fileID, "status", string(file.Status))
		return nil
	}

	data, err := uc.readStored(ctx, file.StorageKey)
	if err != nil {
		result := processing.FailedResult(domain.KindForMediaType(file.MediaType), err, time.Now().UTC())
		uc.logger.Error("processing_read_failed", "file_id", fileID, "storage_key", file.StorageKey, "error", err)
		if saveErr := uc.repo.SaveResult(ctx, fileID, domain.StatusError, &result, ""); saveErr != nil {
			return fmt.Errorf("%w; save failed result: %v", err, saveErr)
		}
		return nil
	}

	if err := uc.repo.UpdateStatus(ctx, fileID, domain.StatusProcessing); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	handle := uc.scheduler.Submit(domain.ProcessingRequest{
		FileID:    file.ID,
		MediaType: file.MediaType,
		Filename:  file.Filename,
		Size:      file.Size,
		Data:      data,
	})

	uc.inflight.Add(1)
	go func() {
		defer uc.inflight.Done()
		uc.reconcile(handle)
	}()
	return nil
}

// Drain waits for every admitted job to be written back or for ctx to end.
func (uc *ProcessFileUseCase) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		uc.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscriber delivers file ids to handler until ctx ends and returns once
// no further deliveries can happen.
type Subscriber func(ctx context.Context, handler func(context.Context, string) error) error

// Consume feeds subscribed file ids into Enqueue. Draining starts only after
// subscribe has returned, so no job is admitted while Drain waits.
func (uc *ProcessFileUseCase) Consume(ctx context.Context, subscribe Subscriber, drainTimeout time.Duration) error {
	subErr := subscribe(ctx, uc.Enqueue)

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	if err := uc.Drain(drainCtx); err != nil {
		return errors.Join(subErr, fmt.Errorf("drain processing: %w", err))
	}
	return subErr
}

func (uc *ProcessFileUseCase) readStored(ctx context.Context, key string) ([]byte, error) {
	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, domain.NewProcessingError(domain.KindGeneric, domain.ErrResourceFailure, fmt.Errorf("open stored file: %w", err))
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, domain.NewProcessingError(domain.KindGeneric, domain.ErrResourceFailure, fmt.Errorf("read stored file: %w", err))
	}
	return data, nil
}

// reconcile runs detached from any request context: the outcome must be
// persisted even if the caller has gone away.
func (uc *ProcessFileUseCase) reconcile(handle *processing.Handle) {
	ctx := context.Background()
	result, err := handle.Wait(ctx)

	status := domain.StatusProcessed
	thumbnailKey := ""
	switch {
	case errors.Is(err, processing.ErrJobFailed):
		status = domain.StatusError
	case err != nil:
		uc.logger.Error("processing_wait_failed", "file_id", handle.FileID(), "error", err)
		return
	default:
		if image, ok := result.Analysis.(domain.ImageAnalysis); ok {
			thumbnailKey = image.ThumbnailPath
		}
	}

	if err := uc.repo.SaveResult(ctx, handle.FileID(), status, &result, thumbnailKey); err != nil {
		if domain.IsKind(err, domain.ErrFileNotFound) {
			uc.logger.Info("processing_result_discarded", "file_id", handle.FileID(), "reason", "file deleted")
			return
		}
		uc.logger.Error("processing_result_save_failed", "file_id", handle.FileID(), "error", err)
		return
	}
	uc.logger.Info("processing_result_saved",
		"file_id", handle.FileID(),
		"status", string(status),
		"kind", string(result.Kind),
		"duration_ms", result.DurationMs,
	)
}
