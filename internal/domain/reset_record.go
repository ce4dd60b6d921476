package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// ResetRecord is one entry of the password-reset ledger. Expire flips to true
// once, when the reset is redeemed, and never flips back.
type ResetRecord struct {
	ID        ulid.ULID `db:"-" json:"id"`
	Email     string    `db:"email" json:"email"`
	Expire    bool      `db:"expire" json:"expire"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func NewResetRecord(email string, now time.Time) *ResetRecord {
	return &ResetRecord{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
