package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// withTx runs fn inside a transaction and commits when fn returns nil. Any
// error or panic rolls back.
func withTx(ctx context.Context, db *sqlx.DB, op string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap(op, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = wrap(op, cerr)
		}
	}()
	return fn(tx)
}
