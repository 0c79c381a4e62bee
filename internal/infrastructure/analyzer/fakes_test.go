package analyzer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

type storageFake struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
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
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *storageFake) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}
