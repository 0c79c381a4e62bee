package processing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

// ErrJobFailed is returned by Handle.Wait when the job settled with an error
// result. The wrapped message is safe to show to clients.
var ErrJobFailed = errors.New("processing failed")

// Handle is the pending outcome of one submitted job. It is settled exactly
// once by the scheduler.
type Handle struct {
	fileID string

	once   sync.Once
	done   chan struct{}
	result domain.ProcessingResult
	err    error
}

func newHandle(fileID string) *Handle {
	return &Handle{
		fileID: fileID,
		done:   make(chan struct{}),
	}
}

func (h *Handle) FileID() string { return h.fileID }

// Done is closed once the job has settled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the job settles or ctx ends. Cancelling ctx only stops
// waiting; the job itself keeps running. A failed job returns its error result
// together with an error wrapping ErrJobFailed.
func (h *Handle) Wait(ctx context.Context) (domain.ProcessingResult, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return domain.ProcessingResult{}, ctx.Err()
	}
}

func (h *Handle) settle(result domain.ProcessingResult) {
	h.once.Do(func() {
		h.result = result
		if result.Status == domain.ResultError {
			h.err = fmt.Errorf("%s: %w", result.Message, ErrJobFailed)
		}
		close(h.done)
	})
}
