package shared

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	coreshared "github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

const fkViolation = "23503"

// MapError translates driver errors into domain sentinels.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return coreshared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == fkViolation {
		return coreshared.ErrInUse
	}
	return err
}
