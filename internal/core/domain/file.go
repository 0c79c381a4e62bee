package domain

import "time"

type FileStatus string

const (
	StatusUploaded   FileStatus = "uploaded"
	StatusProcessing FileStatus = "processing"
	StatusProcessed  FileStatus = "processed"
	StatusError      FileStatus = "error"
)

// File is the stored record of an uploaded file and its processing outcome.
type File struct {
	ID           string            `json:"id"`
	OwnerID      string            `json:"owner_id"`
	Filename     string            `json:"filename"`
	MediaType    string            `json:"media_type"`
	Size         int64             `json:"size"`
	StorageKey   string            `json:"-"`
	ThumbnailKey string            `json:"thumbnail_key,omitempty"`
	Status       FileStatus        `json:"status"`
	Result       *ProcessingResult `json:"result,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ProcessingRequest is what the scheduler consumes. It is not modified after submission.
type ProcessingRequest struct {
	FileID    string
	MediaType string
	Filename  string
	Size      int64
	Data      []byte
}

// QueueStatus is a point-in-time view of the processing scheduler.
type QueueStatus struct {
	QueueLength       int `json:"queue_length"`
	ActiveJobs        int `json:"active_jobs"`
	MaxConcurrentJobs int `json:"max_concurrent_jobs"`
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
