package leave

import (
	"errors"

	leaveerrors "go-hris-leave/internal/leave/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// mapRepositoryError turns a missing row into notFound (when given) and
// lock contention into ErrConcurrentUpdate. Other errors pass through and
// end up as 500s.
func mapRepositoryError(err error, notFound error) error {
	if err == nil {
		return nil
	}

	if notFound != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return leaveerrors.ErrConcurrentUpdate.WithCause(pgErr)
		}
	}

	return err
}
