package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sevatrust/seva-donations/internal/apperr"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapErr converts driver errors into apperr kinds; what names the entity for messages.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(what + " not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Conflict(what + " already exists")
		case pgForeignKeyViolation:
			return apperr.Conflict(what + " references a missing or dependent row")
		}
	}
	return apperr.Internal(what+" query failed", err)
}

func notFoundIfNone(tag pgconn.CommandTag, what string) error {
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(what + " not found")
	}
	return nil
}
