package ports

import (
	"context"
	"io"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

// UploadInput describes one multipart upload after transport decoding.
type UploadInput struct {
	OwnerID   string
	Filename  string
	MediaType string
	Size      int64
	Body      io.Reader
}

// FileUploader is the inbound contract for upload orchestration.
type FileUploader interface {
	Upload(ctx context.Context, in UploadInput) (*domain.File, error)
}

// FileService is the inbound read/delete model for file records.
type FileService interface {
	Get(ctx context.Context, ownerID, id string) (*domain.File, error)
	List(ctx context.Context, ownerID string) ([]domain.File, error)
	Thumbnail(ctx context.Context, ownerID, id string) ([]byte, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// FileProcessor is the inbound contract for asynchronous file processing.
// Enqueue returns once the job is admitted; the outcome is written back to the record.
type FileProcessor interface {
	Enqueue(ctx context.Context, fileID string) error
}

// QueueStatusReader exposes a point-in-time view of the processing backlog.
type QueueStatusReader interface {
	Status() domain.QueueStatus
}

// Authenticator issues bearer tokens for configured users and verifies them.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*domain.Token, error)
	Verify(token string) (string, error)
}
