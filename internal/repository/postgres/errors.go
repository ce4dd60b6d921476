package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/njprem/accountd/internal/repository/ports"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// wrap maps driver errors onto the port sentinels and tags everything else
// with the failing operation.
func wrap(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ports.ErrNotFound
	case isUniqueViolation(err):
		return ports.ErrDuplicateEmail
	}
	return oops.Code("DB_QUERY_FAILED").With("operation", op).Wrap(err)
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}
