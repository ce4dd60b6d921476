package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/njprem/accountd/internal/domain"
	"github.com/njprem/accountd/internal/repository/ports"
)

const userColumns = `id, username, email, phone, password_hash, tokens, provider, account_id, created_at, updated_at`

type userRow struct {
	domain.User
	Tokens pq.StringArray `db:"tokens"`
}

func (r userRow) toDomain() *domain.User {
	user := r.User
	user.Tokens = []string(r.Tokens)
	if user.Tokens == nil {
		user.Tokens = []string{}
	}
	return &user
}

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	const query = `
        INSERT INTO user_account (username, email, phone, password_hash, provider, account_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + userColumns

	var row userRow
	err := r.db.QueryRowxContext(ctx, query,
		user.Username, user.Email, user.Phone, user.PasswordHash, user.Provider, user.AccountID,
	).StructScan(&row)
	if err != nil {
		return nil, wrap("create user", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) UpsertDelegated(ctx context.Context, email, username, provider, accountID string) (*domain.User, error) {
	const query = `
        INSERT INTO user_account (username, email, provider, account_id)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (email) DO UPDATE
        SET provider = EXCLUDED.provider,
            account_id = EXCLUDED.account_id,
            updated_at = NOW()
        RETURNING ` + userColumns

	var row userRow
	if err := r.db.QueryRowxContext(ctx, query, username, email, provider, accountID).StructScan(&row); err != nil {
		return nil, wrap("upsert delegated user", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM user_account WHERE email = $1`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, email); err != nil {
		return nil, wrap("find user by email", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM user_account WHERE id = $1`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, wrap("find user by id", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields ports.UserFields) error {
	const query = `
        UPDATE user_account
        SET username = COALESCE($2, username),
            email = COALESCE($3, email),
            phone = COALESCE($4, phone),
            password_hash = COALESCE($5, password_hash),
            updated_at = NOW()
        WHERE id = $1
    `
	res, err := r.db.ExecContext(ctx, query, id, fields.Username, fields.Email, fields.Phone, fields.PasswordHash)
	if err != nil {
		return wrap("update user fields", err)
	}
	return requireRow(res, "update user fields")
}

// AppendToken checks the cap and appends in one statement, so concurrent
// logins cannot push the list past max.
func (r *UserRepository) AppendToken(ctx context.Context, id uuid.UUID, token string, max int) error {
	const query = `
        UPDATE user_account
        SET tokens = array_append(tokens, $2),
            updated_at = NOW()
        WHERE id = $1 AND cardinality(tokens) < $3
    `
	res, err := r.db.ExecContext(ctx, query, id, token, max)
	if err != nil {
		return wrap("append token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("append token", err)
	}
	if n == 0 {
		if err := r.exists(ctx, id); err != nil {
			return err
		}
		return ports.ErrTokenLimitReached
	}
	return nil
}

func (r *UserRepository) RemoveToken(ctx context.Context, id uuid.UUID, token string) error {
	const query = `
        UPDATE user_account
        SET tokens = array_remove(tokens, $2),
            updated_at = NOW()
        WHERE id = $1 AND $2 = ANY(tokens)
    `
	res, err := r.db.ExecContext(ctx, query, id, token)
	if err != nil {
		return wrap("remove token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("remove token", err)
	}
	if n == 0 {
		if err := r.exists(ctx, id); err != nil {
			return err
		}
		return ports.ErrTokenNotFound
	}
	return nil
}

func (r *UserRepository) ClearTokens(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE user_account
        SET tokens = '{}',
            updated_at = NOW()
        WHERE id = $1
    `
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return wrap("clear tokens", err)
	}
	return requireRow(res, "clear tokens")
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM user_account WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return wrap("delete user", err)
	}
	return requireRow(res, "delete user")
}

func (r *UserRepository) exists(ctx context.Context, id uuid.UUID) error {
	const query = `SELECT EXISTS (SELECT 1 FROM user_account WHERE id = $1)`

	var found bool
	if err := r.db.GetContext(ctx, &found, query, id); err != nil {
		return wrap("check user exists", err)
	}
	if !found {
		return ports.ErrNotFound
	}
	return nil
}
