package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate is returned when an insert collides with a unique key.
	ErrDuplicate = errors.New("repository: duplicate key")
	// ErrConditionFailed is returned when a conditional update matched no row.
	ErrConditionFailed = errors.New("repository: update condition not met")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func mapWriteError(err error) error {
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}
