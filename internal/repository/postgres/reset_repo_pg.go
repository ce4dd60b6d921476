package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/njprem/accountd/internal/domain"
	"github.com/njprem/accountd/internal/repository/ports"
)

// resetRow stores the ULID in its canonical text form.
type resetRow struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Expire    bool      `db:"expire"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type ResetRepository struct {
	db *sqlx.DB
}

func NewResetRepo(db *sqlx.DB) *ResetRepository {
	return &ResetRepository{db: db}
}

func (r *ResetRepository) Create(ctx context.Context, record *domain.ResetRecord) error {
	const query = `
        INSERT INTO password_reset (id, email, expire, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := r.db.ExecContext(ctx, query,
		record.ID.String(), record.Email, record.Expire, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return wrap("create reset record", err)
	}
	return nil
}

func (r *ResetRepository) FindByID(ctx context.Context, id ulid.ULID) (*domain.ResetRecord, error) {
	const query = `
        SELECT id, email, expire, created_at, updated_at
        FROM password_reset
        WHERE id = $1
    `
	var row resetRow
	if err := r.db.GetContext(ctx, &row, query, id.String()); err != nil {
		return nil, wrap("find reset record", err)
	}
	parsed, err := ulid.Parse(row.ID)
	if err != nil {
		return nil, oops.Code("DB_CORRUPT_ROW").With("reset_id", row.ID).Wrap(err)
	}
	return &domain.ResetRecord{
		ID:        parsed,
		Email:     row.Email,
		Expire:    row.Expire,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// Redeem locks the record row, writes the password and spends the record in
// one transaction. A concurrent redemption waits on the row lock and then
// sees expire already set.
func (r *ResetRepository) Redeem(ctx context.Context, id ulid.ULID, userID uuid.UUID, passwordHash string) error {
	const (
		lockQuery = `
        SELECT expire
        FROM password_reset
        WHERE id = $1
        FOR UPDATE
    `
		passwordQuery = `
        UPDATE user_account
        SET password_hash = $2,
            updated_at = NOW()
        WHERE id = $1
    `
		consumeQuery = `
        UPDATE password_reset
        SET expire = TRUE,
            updated_at = NOW()
        WHERE id = $1
    `
	)
	return withTx(ctx, r.db, "redeem reset record", func(tx *sqlx.Tx) error {
		var expire bool
		if err := tx.GetContext(ctx, &expire, lockQuery, id.String()); err != nil {
			return wrap("lock reset record", err)
		}
		if expire {
			return ports.ErrAlreadyConsumed
		}
		res, err := tx.ExecContext(ctx, passwordQuery, userID, passwordHash)
		if err != nil {
			return wrap("update password", err)
		}
		if err := requireRow(res, "update password"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, consumeQuery, id.String()); err != nil {
			return wrap("consume reset record", err)
		}
		return nil
	})
}
