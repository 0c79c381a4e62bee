package httpadapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/file-processor/internal/core/domain"
	"github.com/kirillkom/file-processor/internal/core/ports"
)

const testToken = "good-token"

type authFake struct{}

func (authFake) Login(_ context.Context, username, password string) (*domain.Token, error) {
	if username == "alice" && password == "wonderland" {
		return &domain.Token{AccessToken: testToken, TokenType: "Bearer", ExpiresIn: 3600}, nil
	}
	return nil, domain.WrapError(domain.ErrUnauthorized, "login", errors.New("invalid credentials"))
}

func (authFake) Verify(token string) (string, error) {
	if token == testToken {
		return "alice", nil
	}
	return "", domain.WrapError(domain.ErrUnauthorized, "verify", errors.New("bad token"))
}

type uploaderFake struct {
	got  ports.UploadInput
	body string
	err  error
}

func (f *uploaderFake) Upload(_ context.Context, in ports.UploadInput) (*domain.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.got = in
	f.body = string(raw)
	now := time.Now().UTC()
	return &domain.File{
		ID:         "file-1",
		OwnerID:    in.OwnerID,
		Filename:   in.Filename,
		MediaType:  in.MediaType,
		Size:       in.Size,
		StorageKey: "file-1_" + in.Filename,
		Status:     domain.StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

type fileServiceFake struct {
	files     map[string]domain.File
	thumbnail []byte
	deleted   []string
	err       error
}

func (f *fileServiceFake) lookup(ownerID, id string) (*domain.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	file, ok := f.files[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrFileNotFound, "get file", errors.New(id))
	}
	if file.OwnerID != ownerID {
		return nil, domain.WrapError(domain.ErrForbidden, "get file", errors.New(id))
	}
	return &file, nil
}

func (f *fileServiceFake) Get(_ context.Context, ownerID, id string) (*domain.File, error) {
	return f.lookup(ownerID, id)
}

func (f *fileServiceFake) List(_ context.Context, ownerID string) ([]domain.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.File, 0)
	for _, file := range f.files {
		if file.OwnerID == ownerID {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fileServiceFake) Thumbnail(_ context.Context, ownerID, id string) ([]byte, error) {
	if _, err := f.lookup(ownerID, id); err != nil {
		return nil, err
	}
	if f.thumbnail == nil {
		return nil, domain.WrapError(domain.ErrFileNotFound, "thumbnail", errors.New("none"))
	}
	return f.thumbnail, nil
}

func (f *fileServiceFake) Delete(_ context.Context, ownerID, id string) error {
	if _, err := f.lookup(ownerID, id); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type statusFake struct {
	status domain.QueueStatus
}

func (f statusFake) Status() domain.QueueStatus { return f.status }

func authorized(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}
