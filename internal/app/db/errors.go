package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique field (username, group name, friend edge) is taken.
	ErrDuplicate = errors.New("duplicate record")

	// ErrValidation is returned when a field does not match its allowed pattern.
	ErrValidation = errors.New("validation failed")

	// ErrAlreadyMember is returned when adding a user that is already in the group.
	ErrAlreadyMember = errors.New("already a group member")

	// ErrNotMember is returned when removing a user that is not in the group.
	ErrNotMember = errors.New("not a group member")

	// ErrGroupLimit is returned when the creator already owns the maximum number of groups.
	ErrGroupLimit = errors.New("group limit reached")
)

// IsUniqueViolation checks if the error is a PostgreSQL unique constraint violation (code 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
