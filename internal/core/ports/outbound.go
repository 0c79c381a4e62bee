package ports

import (
	"context"
	"io"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

// FileRepository persists and reads file records.
type FileRepository interface {
	Create(ctx context.Context, file *domain.File) error
	GetByID(ctx context.Context, id string) (*domain.File, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.File, error)
	UpdateStatus(ctx context.Context, id string, status domain.FileStatus) error
	SaveResult(ctx context.Context, id string, status domain.FileStatus, result *domain.ProcessingResult, thumbnailKey string) error
	Delete(ctx context.Context, id string) error
}

// ObjectStorage stores uploaded bytes and derived artifacts such as thumbnails.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes processing requests between api and worker.
type MessageQueue interface {
	PublishFileUploaded(ctx context.Context, fileID string) error
	SubscribeFileUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// Analyzer produces the family-specific analysis of one file.
type Analyzer interface {
	Analyze(ctx context.Context, req domain.ProcessingRequest) (domain.Analysis, error)
}

// AnalyzerRegistry routes a declared media type to its analyzer.
type AnalyzerRegistry interface {
	AnalyzerFor(mediaType string) (domain.AnalysisKind, Analyzer)
}

// ThumbnailCache keeps recently served thumbnails in memory.
type ThumbnailCache interface {
	Get(key string) ([]byte, bool)
	Add(key string, data []byte)
	Remove(key string)
}
