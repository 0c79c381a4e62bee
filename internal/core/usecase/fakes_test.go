package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/kirillkom/file-processor/internal/core/domain"
	"github.com/kirillkom/file-processor/internal/core/ports"
)

type repoFake struct {
	mu        sync.Mutex
	files     map[string]domain.File
	createErr error
	statuses  []domain.FileStatus
	saved     chan string
}

func newRepoFake() *repoFake {
	return &repoFake{
		files: make(map[string]domain.File),
		saved: make(chan string, 16),
	}
}

func (f *repoFake) put(file domain.File) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[file.ID] = file
}

func (f *repoFake) get(id string) (domain.File, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	return file, ok
}

func (f *repoFake) Create(_ context.Context, file *domain.File) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.put(*file)
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.File, error) {
	file, ok := f.get(id)
	if !ok {
		return nil, domain.WrapError(domain.ErrFileNotFound, "get file", fmt.Errorf("id=%s", id))
	}
	return &file, nil
}

func (f *repoFake) ListByOwner(_ context.Context, ownerID string) ([]domain.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.File, 0)
	for _, file := range f.files {
		if file.OwnerID == ownerID {
			out = append(out, file)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, id string, status domain.FileStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return domain.WrapError(domain.ErrFileNotFound, "update status", fmt.Errorf("id=%s", id))
	}
	file.Status = status
	f.files[id] = file
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *repoFake) SaveResult(_ context.Context, id string, status domain.FileStatus, result *domain.ProcessingResult, thumbnailKey string) error {
	f.mu.Lock()
	file, ok := f.files[id]
	if !ok {
		f.mu.Unlock()
		f.saved <- id
		return domain.WrapError(domain.ErrFileNotFound, "save result", fmt.Errorf("id=%s", id))
	}
	file.Status = status
	file.Result = result
	file.ThumbnailKey = thumbnailKey
	f.files[id] = file
	f.statuses = append(f.statuses, status)
	f.mu.Unlock()
	f.saved <- id
	return nil
}

func (f *repoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[id]; !ok {
		return domain.WrapError(domain.ErrFileNotFound, "delete file", fmt.Errorf("id=%s", id))
	}
	delete(f.files, id)
	return nil
}

type storageFake struct {
	mu      sync.Mutex
	objects map[string][]byte
	opens   int
	saveErr error
	openErr error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	raw, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrFileNotFound, "open object", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *storageFake) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

type processorFake struct {
	ids []string
	err error
}

func (f *processorFake) Enqueue(_ context.Context, fileID string) error {
	if f.err != nil {
		return f.err
	}
	f.ids = append(f.ids, fileID)
	return nil
}

type analyzerFunc func(ctx context.Context, req domain.ProcessingRequest) (domain.Analysis, error)

func (f analyzerFunc) Analyze(ctx context.Context, req domain.ProcessingRequest) (domain.Analysis, error) {
	return f(ctx, req)
}

type registryFake struct {
	analyzer ports.Analyzer
}

func (r registryFake) AnalyzerFor(mediaType string) (domain.AnalysisKind, ports.Analyzer) {
	return domain.KindForMediaType(mediaType), r.analyzer
}

type cacheFake struct {
	entries map[string][]byte
}

func newCacheFake() *cacheFake {
	return &cacheFake{entries: make(map[string][]byte)}
}

func (c *cacheFake) Get(key string) ([]byte, bool) {
	data, ok := c.entries[key]
	return data, ok
}

func (c *cacheFake) Add(key string, data []byte) { c.entries[key] = data }
func (c *cacheFake) Remove(key string)           { delete(c.entries, key) }
