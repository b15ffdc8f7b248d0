package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsUniqueViolation checks if the error is a PostgreSQL unique constraint violation (code 23505).
func IsUniqueViolation(err error) bool {
	return hasCode(err, "23505")
}

// IsCheckViolation checks if the error is a PostgreSQL check constraint violation (code 23514).
func IsCheckViolation(err error) bool {
	return hasCode(err, "23514")
}

// IsRetryable reports serialization failures (40001) and detected deadlocks (40P01).
// Both mean a concurrent transaction won and nothing was written.
func IsRetryable(err error) bool {
	return hasCode(err, "40001") || hasCode(err, "40P01")
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
