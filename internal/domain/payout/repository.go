package payout

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PayoutRepository defines the interface for physician payout persistence
type PayoutRepository interface {
	// FindByID finds a payout by ID
	FindByID(ctx context.Context, id uuid.UUID) (*PhysicianPayout, error)

	// FindByPayoutNumber finds a payout by its payout number
	FindByPayoutNumber(ctx context.Context, payoutNumber string) (*PhysicianPayout, error)

	// FindByDoctor finds a doctor's payouts, newest period first
	FindByDoctor(ctx context.Context, doctorID uuid.UUID) ([]PhysicianPayout, error)

	// FindPaidOverlapping finds paid payouts for the doctor whose period
	// overlaps [start, end]. Used to reject recalculation of settled
	// periods.
	FindPaidOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]PhysicianPayout, error)

	// Save creates or updates a payout
	Save(ctx context.Context, p *PhysicianPayout) error

	// SaveWithLock saves with optimistic locking so the pending-to-paid
	// transition happens exactly once
	SaveWithLock(ctx context.Context, p *PhysicianPayout) error

	// GeneratePayoutNumber generates the next unique payout number
	GeneratePayoutNumber(ctx context.Context) (string, error)
}
