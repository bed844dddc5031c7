package database

import (
	"context"
	"database/sql"
)

// execRequireRows validates that an ExecContext result affected at least one row.
// Returns err if non-nil, or notFoundErr if rowsAffected is 0.
func execRequireRows(result sql.Result, err, notFoundErr error) error {
	if err != nil {
		return err
	}
	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return affectedErr
	}
	if n == 0 {
		return notFoundErr
	}
	return nil
}

// dbtx is satisfied by both *sqlx.DB and *sqlx.Tx. Repositories are built
// against this interface, never opening their own transactions (§4.4):
// the calling service passes either the pool or a transaction-bound
// handle depending on whether it needs the operation inside a wider
// scope.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

func queryContext(ctx context.Context, db dbtx, query string, args ...any) (*sql.Rows, error) {
	return db.QueryContext(ctx, query, args...)
}
