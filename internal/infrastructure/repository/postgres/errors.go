package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/file-processor/internal/infrastructure/resilience"
)

// classifyPostgresError retries lost connections, serialization failures and
// deadlocks. Constraint and syntax errors are permanent.
func classifyPostgresError(err error) resilience.Outcome {
	if err == nil {
		return resilience.Outcome{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Outcome{Retry: false, Trip: false}
	}
	if errors.Is(err, driver.ErrBadConn) || pgconn.SafeToRetry(err) {
		return resilience.Outcome{Retry: true, Trip: true}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"):
			return resilience.Outcome{Retry: true, Trip: true}
		case pgErr.Code == "40001", pgErr.Code == "40P01":
			return resilience.Outcome{Retry: true, Trip: false}
		default:
			return resilience.Outcome{Retry: false, Trip: false}
		}
	}
	return resilience.Outcome{Retry: false, Trip: true}
}
