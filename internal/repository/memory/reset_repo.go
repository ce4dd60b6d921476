package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/njprem/accountd/internal/domain"
	"github.com/njprem/accountd/internal/repository/ports"
)

type passwordWriter interface {
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type ResetRepository struct {
	mu      sync.Mutex
	records map[ulid.ULID]domain.ResetRecord
	users   passwordWriter
	now     func() time.Time
}

// NewResetRepo returns a ledger that writes redeemed passwords into users.
func NewResetRepo(users *UserRepository) *ResetRepository {
	return &ResetRepository{
		records: make(map[ulid.ULID]domain.ResetRecord),
		users:   users,
		now:     time.Now,
	}
}

func (r *ResetRepository) Create(ctx context.Context, record *domain.ResetRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[record.ID] = *record
	return nil
}

func (r *ResetRepository) FindByID(ctx context.Context, id ulid.ULID) (*domain.ResetRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &record, nil
}

// Redeem holds the ledger lock from the expire check until the record is
// spent, so only one caller's password can land.
func (r *ResetRepository) Redeem(ctx context.Context, id ulid.ULID, userID uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return ports.ErrNotFound
	}
	if record.Expire {
		return ports.ErrAlreadyConsumed
	}
	if err := r.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return err
	}
	record.Expire = true
	record.UpdatedAt = r.now()
	r.records[id] = record
	return nil
}

// Len reports how many records the ledger holds.
func (r *ResetRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
