package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/file-processor/internal/core/domain"
	"github.com/kirillkom/file-processor/internal/infrastructure/resilience"
)

type FileRepository struct {
	db       *sql.DB
	executor *resilience.Executor
}

// NewFileRepository retries transient write failures through executor when
// it is not nil.
func NewFileRepository(db *sql.DB, executor *resilience.Executor) *FileRepository {
	return &FileRepository{db: db, executor: executor}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *FileRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	media_type TEXT NOT NULL,
	size BIGINT NOT NULL,
	storage_key TEXT NOT NULL,
	thumbnail_key TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	result JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_owner_created ON files(owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_files_status ON files(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	resultJSON, err := marshalResult(file.Result)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO files (
	id, owner_id, filename, media_type, size, storage_key, thumbnail_key, status, result, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		file.ID, file.OwnerID, file.Filename, file.MediaType, file.Size, file.StorageKey, file.ThumbnailKey,
		string(file.Status), resultJSON, file.CreatedAt, file.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

const selectColumns = `id, owner_id, filename, media_type, size, storage_key, thumbnail_key, status, result, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*domain.File, error) {
	var file domain.File
	var status string
	var resultRaw []byte

	if err := row.Scan(
		&file.ID, &file.OwnerID, &file.Filename, &file.MediaType, &file.Size, &file.StorageKey,
		&file.ThumbnailKey, &status, &resultRaw, &file.CreatedAt, &file.UpdatedAt,
	); err != nil {
		return nil, err
	}
	file.Status = domain.FileStatus(status)

	if len(resultRaw) > 0 {
		var result domain.ProcessingResult
		if err := json.Unmarshal(resultRaw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		file.Result = &result
	}
	return &file, nil
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (*domain.File, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM files WHERE id = $1`, id)
	file, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrFileNotFound, "get file", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return file, nil
}

func (r *FileRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.File, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM files WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := make([]domain.File, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

func (r *FileRepository) UpdateStatus(ctx context.Context, id string, status domain.FileStatus) error {
	res, err := r.exec(ctx, "postgres.update_status", `
UPDATE files
SET status = $2, updated_at = $3
WHERE id = $1
`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update file status: %w", err)
	}
	return expectAffected(res, "update file status", id)
}

func (r *FileRepository) SaveResult(ctx context.Context, id string, status domain.FileStatus, result *domain.ProcessingResult, thumbnailKey string) error {
	resultJSON, err := marshalResult(result)
	if err != nil {
		return err
	}
	res, err := r.exec(ctx, "postgres.save_result", `
UPDATE files
SET status = $2, result = $3, thumbnail_key = $4, updated_at = $5
WHERE id = $1
`, id, string(status), resultJSON, thumbnailKey, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save file result: %w", err)
	}
	return expectAffected(res, "save file result", id)
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return expectAffected(res, "delete file", id)
}

func (r *FileRepository) exec(ctx context.Context, operation, query string, args ...any) (sql.Result, error) {
	if r.executor == nil {
		return r.db.ExecContext(ctx, query, args...)
	}
	var res sql.Result
	err := r.executor.Execute(ctx, operation, func(ctx context.Context) error {
		var execErr error
		res, execErr = r.db.ExecContext(ctx, query, args...)
		return execErr
	}, classifyPostgresError)
	return res, err
}

func expectAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrFileNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}

func marshalResult(result *domain.ProcessingResult) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return raw, nil
}
