package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

// FileRepository keeps file records in process memory. Records are lost on restart.
type FileRepository struct {
	mu    sync.RWMutex
	files map[string]domain.File
	now   func() time.Time
}

func NewFileRepository() *FileRepository {
	return &FileRepository{
		files: make(map[string]domain.File),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *FileRepository) Create(_ context.Context, file *domain.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.files[file.ID]; exists {
		return domain.WrapError(domain.ErrInvalidInput, "create file", fmt.Errorf("duplicate id=%s", file.ID))
	}
	r.files[file.ID] = *file
	return nil
}

func (r *FileRepository) GetByID(_ context.Context, id string) (*domain.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	file, ok := r.files[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrFileNotFound, "get file", fmt.Errorf("id=%s", id))
	}
	return &file, nil
}

func (r *FileRepository) ListByOwner(_ context.Context, ownerID string) ([]domain.File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.File, 0)
	for _, file := range r.files {
		if file.OwnerID == ownerID {
			out = append(out, file)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *FileRepository) UpdateStatus(_ context.Context, id string, status domain.FileStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.files[id]
	if !ok {
		return domain.WrapError(domain.ErrFileNotFound, "update file status", fmt.Errorf("id=%s", id))
	}
	file.Status = status
	file.UpdatedAt = r.now()
	r.files[id] = file
	return nil
}

func (r *FileRepository) SaveResult(_ context.Context, id string, status domain.FileStatus, result *domain.ProcessingResult, thumbnailKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.files[id]
	if !ok {
		return domain.WrapError(domain.ErrFileNotFound, "save file result", fmt.Errorf("id=%s", id))
	}
	file.Status = status
	file.Result = result
	file.ThumbnailKey = thumbnailKey
	file.UpdatedAt = r.now()
	r.files[id] = file
	return nil
}

func (r *FileRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[id]; !ok {
		return domain.WrapError(domain.ErrFileNotFound, "delete file", fmt.Errorf("id=%s", id))
	}
	delete(r.files, id)
	return nil
}
