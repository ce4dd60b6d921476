package postgres

import (
	"context"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

const connectAttempts = 5

// New opens the pool and pings it, backing off while the database comes up.
func New(ctx context.Context, dsn string) (*sqlx.DB, error) {
	var db *sqlx.DB
	backoff := retry.WithMaxRetries(connectAttempts, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		conn, err := sqlx.ConnectContext(ctx, "pgx", dsn)
		if err != nil {
			return retry.RetryableError(err)
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return db, nil
}
