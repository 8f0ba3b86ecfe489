package database

import (
	"context"
	stderrors "errors"

	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes that mean "someone else already created it".
const (
	UniqueViolation = "23505"
	DuplicateTable  = "42P07"
	DuplicateObject = "42710"
)

// Classify maps a pgx error onto the pgcache error taxonomy:
//   - context cancellation or deadline: CanceledError
//   - server errors in the connection, resource and operator-intervention
//     classes, serialization failures and deadlocks: TemporaryError
//   - any other server error: PermanentError
//   - errors that never reached the server (dial, I/O): TemporaryError
func Classify(err error, msg string) error {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewCanceled(msg, err)
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		if retryableSQLState(pgErr.Code) {
			return errors.NewTemporary(msg, err)
		}
		return errors.NewPermanent(msg, err)
	}

	return errors.NewTemporary(msg, err)
}

// IsDuplicateObject reports whether err is a server error raised because
// the object being created already exists.
func IsDuplicateObject(err error) bool {
	var pgErr *pgconn.PgError
	if !stderrors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case UniqueViolation, DuplicateTable, DuplicateObject:
		return true
	}
	return false
}

func retryableSQLState(code string) bool {
	if len(code) != 5 {
		return false
	}
	switch code[:2] {
	case "08", "53", "57":
		return true
	}
	return code == "40001" || code == "40P01"
}
