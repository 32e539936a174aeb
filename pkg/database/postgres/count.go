package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// NamedCount runs a named "SELECT count(*) ..." query and returns its single value.
// Scan and iteration errors are returned instead of reading as zero.
func NamedCount(ctx context.Context, db *sqlx.DB, query string, arg interface{}) (int, error) {
	rows, err := db.NamedQueryContext(ctx, query, arg)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, err
		}
	}
	return count, rows.Err()
}
