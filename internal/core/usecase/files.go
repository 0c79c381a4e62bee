package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/kirillkom/file-processor/internal/core/domain"
	"github.com/kirillkom/file-processor/internal/core/ports"
)

type FileQueryService struct {
	repo    ports.FileRepository
	storage ports.ObjectStorage
	cache   ports.ThumbnailCache
}

func NewFileQueryService(repo ports.FileRepository, storage ports.ObjectStorage, cache ports.ThumbnailCache) *FileQueryService {
	if cache == nil {
		cache = noopThumbnailCache{}
	}
	return &FileQueryService{
		repo:    repo,
		storage: storage,
		cache:   cache,
	}
}

func (s *FileQueryService) Get(ctx context.Context, ownerID, id string) (*domain.File, error) {
	file, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch file by id: %w", err)
	}
	if file.OwnerID != ownerID {
		return nil, domain.WrapError(domain.ErrForbidden, "get file", fmt.Errorf("file %s belongs to another owner", id))
	}
	return file, nil
}

func (s *FileQueryService) List(ctx context.Context, ownerID string) ([]domain.File, error) {
	files, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

func (s *FileQueryService) Thumbnail(ctx context.Context, ownerID, id string) ([]byte, error) {
	file, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if file.ThumbnailKey == "" {
		return nil, domain.WrapError(domain.ErrFileNotFound, "get thumbnail", errors.New("file has no thumbnail"))
	}

	if data, ok := s.cache.Get(file.ThumbnailKey); ok {
		return data, nil
	}

	rc, err := s.storage.Open(ctx, file.ThumbnailKey)
	if err != nil {
		return nil, fmt.Errorf("open thumbnail: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read thumbnail: %w", err)
	}
	s.cache.Add(file.ThumbnailKey, data)
	return data, nil
}

// Delete removes the record first. Stored bytes are cleaned up best effort
// after that; leftovers are logged, not returned.
func (s *FileQueryService) Delete(ctx context.Context, ownerID, id string) error {
	file, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}

	keys := []string{file.StorageKey}
	if file.ThumbnailKey != "" {
		s.cache.Remove(file.ThumbnailKey)
		keys = append(keys, file.ThumbnailKey)
	}
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			slog.Warn("file_cleanup_failed", "file_id", id, "key", key, "error", err)
		}
	}
	return nil
}

type noopThumbnailCache struct{}

func (noopThumbnailCache) Get(string) ([]byte, bool) { return nil, false }
func (noopThumbnailCache) Add(string, []byte)        {}
func (noopThumbnailCache) Remove(string)             {}
