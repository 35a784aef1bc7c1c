package postgres

import (
	"database/sql"
	"errors"

	crerr "github.com/cockroachdb/errors"
	"github.com/lib/pq"

	"github.com/oddsmith/playerident/internal/domain/storage"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// Postgres error codes that are safe to retry: serialization_failure,
// deadlock_detected, lock_not_available.
var transientPQCodes = map[pq.ErrorCode]struct{}{
	"40001": {},
	"40P01": {},
	"55P03": {},
}

func isTransient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	_, ok := transientPQCodes[pqErr.Code]
	return ok
}

// classify marks retryable failures so callers can test with
// errors.Is(err, storage.ErrTransient).
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return crerr.Mark(err, storage.ErrTransient)
	}
	return err
}
