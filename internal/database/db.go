package database

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/luckynumbers/api/internal/models"
)

// MapPostgresError translates pgx errors into the service's sentinel errors.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	if pgErr, ok := err.(*pgconn.PgError); ok {
		switch pgErr.Code {
		case "23505": // unique_violation (admin email, result date)
			return models.ErrConflict
		case "23502": // not_null_violation
			return models.ErrBadRequest
		case "23514": // check_violation (result 0-99 range)
			return models.ErrBadRequest
		}
	}

	return err
}
