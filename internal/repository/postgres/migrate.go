package postgres

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
	"github.com/samber/oops"

	"github.com/njprem/accountd/internal/repository/postgres/migrations"
)

var gooseUp = goose.UpContext

// Migrate applies every pending embedded migration.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "set dialect").Wrap(err)
	}
	if err := gooseUp(ctx, db, "."); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	return nil
}
