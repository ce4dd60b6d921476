package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	PasswordHash *string   `db:"password_hash" json:"-"`
	Tokens       []string  `db:"-" json:"-"`
	Provider     *string   `db:"provider" json:"provider,omitempty"`
	AccountID    *string   `db:"account_id" json:"account_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// HasToken reports whether token is one of the user's live sessions.
func (u *User) HasToken(token string) bool {
	return slices.Contains(u.Tokens, token)
}

// Profile strips credentials and session state from the user.
func (u *User) Profile() *UserProfile {
	return &UserProfile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		Provider:  u.Provider,
		AccountID: u.AccountID,
	}
}

type UserProfile struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Provider  *string   `json:"provider,omitempty"`
	AccountID *string   `json:"account_id,omitempty"`
}

// ProfileUpdate carries one optional slot per mutable attribute. A nil slot
// leaves the stored value untouched.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Phone    *string
	Password *string
}

func (p ProfileUpdate) IsEmpty() bool {
	return p.Username == nil && p.Email == nil && p.Phone == nil && p.Password == nil
}
