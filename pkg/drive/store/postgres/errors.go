package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	driveerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
)

// PostgreSQL error codes: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// mapPgError maps PostgreSQL errors to drive errors.
// kind names the record ("folder" or "file") and id its identifier.
func mapPgError(err error, operation, kind, id string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return driveerrors.NewNotFoundError(id, kind)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return driveerrors.NewAlreadyExistsError(id)
		case codeForeignKeyViolation:
			// Inserts/updates violate the FK when the parent is missing;
			// deletes violate it when children still reference the row.
			if operation == "RemoveFolder" {
				return driveerrors.NewNotEmptyError(id)
			}
			return driveerrors.NewNotFoundError(id, "parent folder")
		}
	}

	return fmt.Errorf("%s: %w", operation, err)
}

// mapInsertError maps an INSERT failure: a duplicate primary key is reported
// against the new id, a foreign key violation against the missing parent.
func mapInsertError(err error, operation, id, parentID string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return driveerrors.NewAlreadyExistsError(id)
	}
	return mapPgError(err, operation, "folder", parentID)
}

// isRetryable reports whether a transaction failed only because it lost a
// serialization race and can be replayed.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}
