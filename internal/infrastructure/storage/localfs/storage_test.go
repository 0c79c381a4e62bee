package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

func TestSaveCreatesNestedKeyAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	storage, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := storage.Save(context.Background(), "thumbnails/a_thumb.jpg", strings.NewReader("jpeg")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "thumbnails"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "a_thumb.jpg" {
		t.Fatalf("expected only the committed file, got %v", entries)
	}

	rc, err := storage.Open(context.Background(), "thumbnails/a_thumb.jpg")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	if string(raw) != "jpeg" {
		t.Fatalf("unexpected content %q", raw)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestSaveFailureDoesNotLeavePartialFile(t *testing.T) {
	dir := t.TempDir()
	storage, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := storage.Save(context.Background(), "broken.bin", failingReader{}); err == nil {
		t.Fatalf("expected write error")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty storage dir, got %v", entries)
	}
}

func TestRejectsKeysOutsideRoot(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	err = storage.Save(context.Background(), "../escape.txt", strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestOpenMissingReturnsNotFoundAndDeleteIsIdempotent(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := storage.Open(context.Background(), "missing"); !domain.IsKind(err, domain.ErrFileNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := storage.Delete(context.Background(), "missing"); err != nil {
		t.Fatalf("Delete() of missing key error = %v", err)
	}
}
