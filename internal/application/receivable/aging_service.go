package receivable

import (
	"context"
	"time"

	"github.com/prontivus/backend/internal/domain/billing"
	"github.com/prontivus/backend/internal/domain/receivable"
)

// AgingService produces the accounts-receivable aging report. The report
// is derived from the open billing records on every call and never
// cached; two calls with the same as-of date over the same ledger state
// return the same report.
type AgingService struct {
	repo billing.BillingRecordRepository
}

// NewAgingService creates a new AgingService
func NewAgingService(repo billing.BillingRecordRepository) *AgingService {
	return &AgingService{repo: repo}
}

// GetAgingReport builds the aging report as of the given date. A zero
// asOf means now.
func (s *AgingService) GetAgingReport(ctx context.Context, asOf time.Time) (*receivable.Report, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	records, err := s.repo.FindOpen(ctx)
	if err != nil {
		return nil, err
	}
	return receivable.BuildReport(records, asOf), nil
}
