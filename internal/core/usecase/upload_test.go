package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/file-processor/internal/core/domain"
	"github.com/kirillkom/file-processor/internal/core/ports"
)

func TestUploadSavesRecordAndEnqueues(t *testing.T) {
	repo := newRepoFake()
	storage := newStorageFake()
	processor := &processorFake{}
	uc := NewUploadFileUseCase(repo, storage, processor, 1024)

	file, err := uc.Upload(context.Background(), ports.UploadInput{
		OwnerID:   "alice",
		Filename:  "report 1.txt",
		MediaType: "text/plain; charset=utf-8",
		Size:      5,
		Body:      strings.NewReader("hello"),
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if file.ID == "" || file.Status != domain.StatusUploaded || file.OwnerID != "alice" {
		t.Fatalf("unexpected file: %+v", file)
	}
	if file.MediaType != "text/plain" {
		t.Fatalf("expected normalized media type, got %q", file.MediaType)
	}
	if !strings.HasSuffix(file.StorageKey, "_report_1.txt") || !strings.HasPrefix(file.StorageKey, file.ID) {
		t.Fatalf("unexpected storage key %q", file.StorageKey)
	}
	if string(storage.objects[file.StorageKey]) != "hello" {
		t.Fatalf("expected stored body hello, got %q", storage.objects[file.StorageKey])
	}
	if len(processor.ids) != 1 || processor.ids[0] != file.ID {
		t.Fatalf("expected enqueue of %s, got %v", file.ID, processor.ids)
	}
}

func TestUploadResolvesMediaTypeFromExtension(t *testing.T) {
	tests := []struct {
		declared string
		filename string
		want     string
	}{
		{declared: "", filename: "data.csv", want: "text/csv"},
		{declared: "application/octet-stream", filename: "doc.pdf", want: "application/pdf"},
		{declared: "", filename: "blob.unknownext", want: domain.MediaTypeOctet},
		{declared: "IMAGE/PNG", filename: "x.bin", want: "image/png"},
	}
	for _, tt := range tests {
		if got := resolveMediaType(tt.declared, tt.filename); got != tt.want {
			t.Fatalf("resolveMediaType(%q, %q) = %q, want %q", tt.declared, tt.filename, got, tt.want)
		}
	}
}

func TestUploadRejectsInvalidInput(t *testing.T) {
	long := strings.Repeat("a", 256)
	tests := []struct {
		name string
		in   ports.UploadInput
	}{
		{name: "empty filename", in: ports.UploadInput{OwnerID: "alice", Filename: "  ", Size: 1, Body: strings.NewReader("x")}},
		{name: "long filename", in: ports.UploadInput{OwnerID: "alice", Filename: long, Size: 1, Body: strings.NewReader("x")}},
		{name: "empty file", in: ports.UploadInput{OwnerID: "alice", Filename: "a.txt", Size: 0, Body: strings.NewReader("")}},
		{name: "too large", in: ports.UploadInput{OwnerID: "alice", Filename: "a.txt", Size: 2048, Body: strings.NewReader("x")}},
		{name: "no owner", in: ports.UploadInput{Filename: "a.txt", Size: 1, Body: strings.NewReader("x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepoFake()
			storage := newStorageFake()
			uc := NewUploadFileUseCase(repo, storage, &processorFake{}, 1024)

			_, err := uc.Upload(context.Background(), tt.in)
			if !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if len(storage.objects) != 0 {
				t.Fatalf("expected nothing stored")
			}
		})
	}
}

func TestUploadRemovesStoredBytesWhenRecordFails(t *testing.T) {
	repo := newRepoFake()
	repo.createErr = errors.New("db down")
	storage := newStorageFake()
	uc := NewUploadFileUseCase(repo, storage, &processorFake{}, 1024)

	_, err := uc.Upload(context.Background(), ports.UploadInput{
		OwnerID: "alice", Filename: "a.txt", MediaType: "text/plain", Size: 1, Body: strings.NewReader("x"),
	})
	if err == nil || !strings.Contains(err.Error(), "create file record") {
		t.Fatalf("expected create error, got %v", err)
	}
	if len(storage.objects) != 0 {
		t.Fatalf("expected stored bytes to be removed, got %d objects", len(storage.objects))
	}
}

func TestUploadEnqueueErrorRollsBackRecordAndBytes(t *testing.T) {
	repo := newRepoFake()
	storage := newStorageFake()
	uc := NewUploadFileUseCase(repo, storage, &processorFake{err: errors.New("queue down")}, 1024)

	_, err := uc.Upload(context.Background(), ports.UploadInput{
		OwnerID: "alice", Filename: "a.txt", MediaType: "text/plain", Size: 1, Body: strings.NewReader("x"),
	})
	if err == nil || !strings.Contains(err.Error(), "enqueue processing") {
		t.Fatalf("expected enqueue error, got %v", err)
	}
	files, err := repo.ListByOwner(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no leftover records, got %+v", files)
	}
	if len(storage.objects) != 0 {
		t.Fatalf("expected stored bytes to be removed, got %d objects", len(storage.objects))
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report 1.txt":        "report_1.txt",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\pic.png`: "pic.png",
		"données.csv":         "donn_es.csv",
		"..":                  "file.bin",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
