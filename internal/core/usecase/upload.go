package usecase

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/kirillkom/file-processor/internal/core/domain"
	"github.com/kirillkom/file-processor/internal/core/ports"
)

const maxFilenameLength = 255

type UploadFileUseCase struct {
	repo      ports.FileRepository
	storage   ports.ObjectStorage
	processor ports.FileProcessor
	maxBytes  int64
	now       func() time.Time
}

func NewUploadFileUseCase(
	repo ports.FileRepository,
	storage ports.ObjectStorage,
	processor ports.FileProcessor,
	maxBytes int64,
) *UploadFileUseCase {
	return &UploadFileUseCase{
		repo:      repo,
		storage:   storage,
		processor: processor,
		maxBytes:  maxBytes,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (uc *UploadFileUseCase) Upload(ctx context.Context, in ports.UploadInput) (*domain.File, error) {
	if err := uc.validate(&in); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate upload", err)
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(in.Filename))
	now := uc.now()

	if err := uc.storage.Save(ctx, storageKey, io.LimitReader(in.Body, uc.maxBytes)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	file := &domain.File{
		ID:         id,
		OwnerID:    in.OwnerID,
		Filename:   in.Filename,
		MediaType:  resolveMediaType(in.MediaType, in.Filename),
		Size:       in.Size,
		StorageKey: storageKey,
		Status:     domain.StatusUploaded,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := uc.repo.Create(ctx, file); err != nil {
		_ = uc.storage.Delete(ctx, storageKey)
		return nil, fmt.Errorf("create file record: %w", err)
	}

	if err := uc.processor.Enqueue(ctx, file.ID); err != nil {
		// Nothing was handed off, so the record would never settle.
		cleanupCtx := context.WithoutCancel(ctx)
		_ = uc.repo.Delete(cleanupCtx, file.ID)
		_ = uc.storage.Delete(cleanupCtx, storageKey)
		return nil, fmt.Errorf("enqueue processing: %w", err)
	}

	// The record may have advanced to processing by now.
	if current, err := uc.repo.GetByID(ctx, file.ID); err == nil {
		return current, nil
	}
	return file, nil
}

func (uc *UploadFileUseCase) validate(in *ports.UploadInput) error {
	in.Filename = strings.TrimSpace(in.Filename)
	return validation.ValidateStruct(in,
		validation.Field(&in.OwnerID, validation.Required),
		validation.Field(&in.Filename,
			validation.Required,
			validation.Length(1, maxFilenameLength),
		),
		validation.Field(&in.Size,
			validation.Required,
			validation.Min(int64(1)),
			validation.Max(uc.maxBytes),
		),
		validation.Field(&in.Body, validation.NotNil),
	)
}

// resolveMediaType prefers the declared type, then the filename extension.
func resolveMediaType(declared, filename string) string {
	if mediaType := domain.NormalizeMediaType(declared); mediaType != "" && mediaType != domain.MediaTypeOctet {
		return mediaType
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return domain.NormalizeMediaType(byExt)
	}
	return domain.MediaTypeOctet
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "file.bin"
	}
	return base
}
