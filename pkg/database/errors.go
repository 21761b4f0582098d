package database

import (
	"context"
	"database/sql"
	"errors"
	"net"

	"youth-cms-backend/pkg/apperrors"

	"github.com/lib/pq"
)

// mapPQError translates driver errors into the application taxonomy so the
// retry policy and the transport layer can act on them uniformly.
func mapPQError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.Wrap(apperrors.TypeNotFound, "record not found", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return apperrors.Wrap(apperrors.TypeDuplicate, "duplicate key", err)
		case "23503": // foreign_key_violation
			return apperrors.Wrap(apperrors.TypeForeignKey, "foreign key violation", err)
		case "23502", "23514": // not_null_violation, check_violation
			return apperrors.Wrap(apperrors.TypeValidation, "constraint violation", err)
		}
		switch pqErr.Code.Class() {
		case "08", "53", "57", "58": // connection, resources, operator intervention, system
			return apperrors.Wrap(apperrors.TypeTransient, "database unavailable", err)
		}
		return apperrors.Wrap(apperrors.TypeInternal, "database error", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperrors.Wrap(apperrors.TypeTransient, "network failure", err)
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return apperrors.Wrap(apperrors.TypeTransient, "connection gone", err)
	}
	return err
}

// notFound builds the taxonomy error for a missing record.
func notFound(what string) error {
	return apperrors.New(apperrors.TypeNotFound, what+" not found")
}

// staleWrite builds the taxonomy error for a conditional update that matched
// zero rows while the record still exists.
func staleWrite(what string) error {
	return apperrors.New(apperrors.TypeConflict, "cannot edit "+what+": approved or not permitted")
}
