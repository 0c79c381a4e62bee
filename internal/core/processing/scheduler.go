package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/file-processor/internal/core/domain"
	"github.com/kirillkom/file-processor/internal/core/ports"
)

const DefaultMaxConcurrent = 3

// Observer receives job lifecycle events, typically for metrics.
type Observer interface {
	JobStarted(kind domain.AnalysisKind, queueWait time.Duration)
	JobFinished(kind domain.AnalysisKind, status domain.ResultStatus, duration time.Duration)
	BacklogChanged(queued, active int)
}

type Options struct {
	MaxConcurrent int
	Logger        *slog.Logger
	Observer      Observer
	Clock         func() time.Time
}

type queueEntry struct {
	req        domain.ProcessingRequest
	handle     *Handle
	enqueuedAt time.Time
}

// Scheduler admits processing requests into an unbounded FIFO backlog and runs
// at most MaxConcurrent analyzers at a time. Backlog and active counter are
// only touched under mu.
type Scheduler struct {
	registry      ports.AnalyzerRegistry
	maxConcurrent int
	logger        *slog.Logger
	observer      Observer
	now           func() time.Time

	mu      sync.Mutex
	backlog []*queueEntry
	active  int
}

func New(registry ports.AnalyzerRegistry, options Options) *Scheduler {
	maxConcurrent := options.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := options.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	clock := options.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		registry:      registry,
		maxConcurrent: maxConcurrent,
		logger:        logger,
		observer:      observer,
		now:           clock,
	}
}

// Submit never blocks and never rejects. The returned handle settles once the
// job has run.
func (s *Scheduler) Submit(req domain.ProcessingRequest) *Handle {
	handle := newHandle(req.FileID)
	entry := &queueEntry{
		req:        req,
		handle:     handle,
		enqueuedAt: s.now(),
	}

	s.mu.Lock()
	s.backlog = append(s.backlog, entry)
	queued, active := len(s.backlog), s.active
	s.mu.Unlock()

	s.observer.BacklogChanged(queued, active)
	s.logger.Debug("processing_job_queued",
		"file_id", req.FileID,
		"media_type", req.MediaType,
		"queue_length", queued,
		"active_jobs", active,
	)

	s.dispatch()
	return handle
}

func (s *Scheduler) Status() domain.QueueStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.QueueStatus{
		QueueLength:       len(s.backlog),
		ActiveJobs:        s.active,
		MaxConcurrentJobs: s.maxConcurrent,
	}
}

// dispatch admits backlog entries in arrival order while capacity is free.
func (s *Scheduler) dispatch() {
	for {
		s.mu.Lock()
		if s.active >= s.maxConcurrent || len(s.backlog) == 0 {
			s.mu.Unlock()
			return
		}
		entry := s.backlog[0]
		s.backlog[0] = nil
		s.backlog = s.backlog[1:]
		s.active++
		queued, active := len(s.backlog), s.active
		s.mu.Unlock()

		s.observer.BacklogChanged(queued, active)
		go s.run(entry)
	}
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.active--
	queued, active := len(s.backlog), s.active
	s.mu.Unlock()
	s.observer.BacklogChanged(queued, active)
}

func (s *Scheduler) run(entry *queueEntry) {
	start := s.now()
	kind, analyzer := s.registry.AnalyzerFor(entry.req.MediaType)
	s.observer.JobStarted(kind, start.Sub(entry.enqueuedAt))

	analysis, err := s.analyze(analyzer, kind, entry.req)
	end := s.now()

	var result domain.ProcessingResult
	if err != nil {
		s.logFailure(entry.req, kind, err)
		result = failedResult(kind, err, start, end)
	} else {
		result = completedResult(kind, analysis, start, end)
		s.logger.Info("processing_job_completed",
			"file_id", entry.req.FileID,
			"kind", string(kind),
			"duration_ms", result.DurationMs,
		)
	}
	s.observer.JobFinished(kind, result.Status, end.Sub(start))

	s.release()
	entry.handle.settle(result)
	s.dispatch()
}

// analyze contains analyzer panics so one job cannot take the scheduler down.
func (s *Scheduler) analyze(analyzer ports.Analyzer, kind domain.AnalysisKind, req domain.ProcessingRequest) (analysis domain.Analysis, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			analysis = nil
			err = domain.NewProcessingError(kind, domain.ErrAnalyzerFailure, fmt.Errorf("analyzer panic: %v", rec))
		}
	}()

	analysis, err = analyzer.Analyze(context.Background(), req)
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, domain.NewProcessingError(kind, domain.ErrAnalyzerFailure, errors.New("analyzer returned no result"))
	}
	if analysis.Kind() != kind {
		return nil, domain.NewProcessingError(kind, domain.ErrAnalyzerFailure,
			fmt.Errorf("analyzer returned %s result for %s request", analysis.Kind(), kind))
	}
	return analysis, nil
}

func (s *Scheduler) logFailure(req domain.ProcessingRequest, kind domain.AnalysisKind, err error) {
	attrs := []any{
		"file_id", req.FileID,
		"filename", req.Filename,
		"media_type", req.MediaType,
		"kind", string(kind),
		"category", domain.CategoryName(err),
		"error", err,
	}
	if domain.IsKind(err, domain.ErrResourceFailure) {
		s.logger.Error("processing_job_failed", attrs...)
		return
	}
	s.logger.Warn("processing_job_failed", attrs...)
}

type noopObserver struct{}

func (noopObserver) JobStarted(domain.AnalysisKind, time.Duration)                       {}
func (noopObserver) JobFinished(domain.AnalysisKind, domain.ResultStatus, time.Duration) {}
func (noopObserver) BacklogChanged(int, int)                                             {}
