package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsPgUndefinedTableError checks if the mirror tables have not been created yet
func IsPgUndefinedTableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 42P01 = undefined_table
		return pgErr.Code == "42P01"
	}
	return false
}
