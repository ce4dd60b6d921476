package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/njprem/accountd/internal/domain"
)

type ResetRepository interface {
	Create(ctx context.Context, record *domain.ResetRecord) error
	FindByID(ctx context.Context, id ulid.ULID) (*domain.ResetRecord, error)
	// Redeem stores passwordHash for userID and flips the record's expire from
	// false to true as one atomic unit. Nothing changes unless both writes
	// land. It returns ErrAlreadyConsumed if the record was already spent and
	// ErrNotFound if the record or the user is gone.
	Redeem(ctx context.Context, id ulid.ULID, userID uuid.UUID, passwordHash string) error
}
