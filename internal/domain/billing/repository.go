package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prontivus/backend/internal/domain/shared"
)

// BillingRecordFilter defines filtering options for billing queries.
// Results are ordered by billing date descending, ties broken by billing
// number ascending, so pagination is stable and deterministic.
type BillingRecordFilter struct {
	shared.Filter
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Type      *BillingType
	Status    *BillingStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	DueFrom   *time.Time
	DueTo     *time.Time
}

// BillingRecordRepository defines the interface for billing record persistence
type BillingRecordRepository interface {
	// FindByID finds a billing record by ID with its payment log
	FindByID(ctx context.Context, id uuid.UUID) (*BillingRecord, error)

	// FindByBillingNumber finds a billing record by its billing number
	FindByBillingNumber(ctx context.Context, billingNumber string) (*BillingRecord, error)

	// FindAll finds billing records matching the filter
	FindAll(ctx context.Context, filter BillingRecordFilter) ([]BillingRecord, error)

	// FindOpen finds records with a positive balance in pending, overdue
	// or disputed status, for the aging projection
	FindOpen(ctx context.Context) ([]BillingRecord, error)

	// FindByDoctorInPeriod finds the doctor's records with a billing date
	// inside [from, to], for payout calculation
	FindByDoctorInPeriod(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]BillingRecord, error)

	// Save creates or updates a billing record and its payment log
	Save(ctx context.Context, record *BillingRecord) error

	// SaveWithLock saves with optimistic locking. Payment writes for a
	// record must go through this path so two concurrent AddPayment calls
	// cannot both read a stale balance.
	SaveWithLock(ctx context.Context, record *BillingRecord) error

	// Count counts billing records matching the filter
	Count(ctx context.Context, filter BillingRecordFilter) (int64, error)

	// SumTotalsInRange sums total_amount of non-cancelled records with a
	// billing date inside [from, to], in minor units
	SumTotalsInRange(ctx context.Context, from, to time.Time) (int64, error)

	// SumPaymentsInRange sums payment amounts with a payment date inside
	// [from, to], in minor units
	SumPaymentsInRange(ctx context.Context, from, to time.Time) (int64, error)

	// ExistsByBillingNumber checks if a billing number is taken
	ExistsByBillingNumber(ctx context.Context, billingNumber string) (bool, error)

	// GenerateBillingNumber generates the next unique billing number
	GenerateBillingNumber(ctx context.Context) (string, error)
}
