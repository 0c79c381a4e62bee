package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/file-processor/internal/core/domain"
	"github.com/kirillkom/file-processor/internal/infrastructure/resilience"
)

func newRepoWithMock(t *testing.T) (*FileRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &FileRepository{db: db}, mock, func() { _ = db.Close() }
}

var fileColumns = []string{
	"id", "owner_id", "filename", "media_type", "size", "storage_key", "thumbnail_key", "status", "result", "created_at", "updated_at",
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, owner_id, filename").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesStoredResult(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	result := []byte(`{"status":"completed","type":"pdf","analysis":{"estimated_pages":2,"pdf_version":"1.4"},"start_time":"2026-01-01T00:00:00Z","end_time":"2026-01-01T00:00:01Z","duration_ms":1000}`)
	mock.ExpectQuery("SELECT id, owner_id, filename").
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows(fileColumns).
			AddRow("f1", "alice", "doc.pdf", "application/pdf", int64(100000), "f1_doc.pdf", "", "processed", result, now, now))

	file, err := repo.GetByID(context.Background(), "f1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if file.Status != domain.StatusProcessed || file.Result == nil {
		t.Fatalf("unexpected file: %+v", file)
	}
	pdf, ok := file.Result.Analysis.(domain.PDFAnalysis)
	if !ok || pdf.EstimatedPages != 2 || pdf.Version != "1.4" {
		t.Fatalf("unexpected analysis: %#v", file.Result.Analysis)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListByOwnerScansRows(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, owner_id, filename.* FROM files WHERE owner_id").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(fileColumns).
			AddRow("f2", "alice", "b.txt", "text/plain", int64(3), "f2_b.txt", "", "uploaded", nil, now, now).
			AddRow("f1", "alice", "a.txt", "text/plain", int64(3), "f1_a.txt", "", "processing", nil, now, now))

	files, err := repo.ListByOwner(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(files) != 2 || files[0].ID != "f2" || files[1].Status != domain.StatusProcessing || files[0].Result != nil {
		t.Fatalf("unexpected files: %+v", files)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE files").
		WithArgs("missing", string(domain.StatusProcessing), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing)
	if !domain.IsKind(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveResultStoresJSON(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE files").
		WithArgs("f1", string(domain.StatusError), sqlmock.AnyArg(), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveResult(context.Background(), "f1", domain.StatusError, &domain.ProcessingResult{
		Status:  domain.ResultError,
		Kind:    domain.KindImage,
		Error:   "Processing failed",
		Message: "Image processing failed",
	}, "")
	if err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM files").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "missing"); !domain.IsKind(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveResultRetriesLostConnection(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	exec := resilience.NewExecutor(resilience.Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}, nil)
	repo := NewFileRepository(db, exec)

	mock.ExpectExec("UPDATE files").
		WillReturnError(&pgconn.PgError{Code: "08006", Message: "connection failure"})
	mock.ExpectExec("UPDATE files").
		WithArgs("f1", string(domain.StatusProcessed), sqlmock.AnyArg(), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.SaveResult(context.Background(), "f1", domain.StatusProcessed, &domain.ProcessingResult{
		Status: domain.ResultCompleted,
		Kind:   domain.KindText,
		Analysis: domain.TextAnalysis{
			LineCount: 1,
		},
	}, "")
	if err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClassifyPostgresError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		retry bool
	}{
		{name: "connection", err: &pgconn.PgError{Code: "08003"}, retry: true},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, retry: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, retry: false},
		{name: "cancelled", err: context.Canceled, retry: false},
	}
	for _, tt := range tests {
		if got := classifyPostgresError(tt.err).Retry; got != tt.retry {
			t.Fatalf("%s: retry = %v, want %v", tt.name, got, tt.retry)
		}
	}
}
