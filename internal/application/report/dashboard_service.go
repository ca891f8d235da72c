package report

import (
	"context"
	"time"

	"github.com/prontivus/backend/internal/domain/billing"
	"github.com/prontivus/backend/internal/domain/receivable"
	"github.com/prontivus/backend/internal/domain/report"
	"github.com/prontivus/backend/internal/domain/shared"
	"github.com/prontivus/backend/internal/domain/shared/valueobject"
)

// ExpenseProvider supplies the clinic's expense total for a period.
// Expenses live in an external system; the ledger treats the figure as
// an opaque input and never validates or itemizes it.
type ExpenseProvider interface {
	// TotalExpenses returns the expense total for [from, to] in minor units
	TotalExpenses(ctx context.Context, from, to time.Time) (int64, error)
}

// DashboardService composes the financial dashboard from the billing
// ledger and the external expense system. This is a read-only
// aggregation path, so the expense call is retried once on failure;
// write paths never retry.
type DashboardService struct {
	billingRepo  billing.BillingRecordRepository
	expenses     ExpenseProvider
	callTimeout  time.Duration
	retryBackoff time.Duration
}

// DashboardOption is a functional option for configuring DashboardService
type DashboardOption func(*DashboardService)

// WithExpenseCallTimeout bounds each expense provider call
func WithExpenseCallTimeout(d time.Duration) DashboardOption {
	return func(s *DashboardService) {
		s.callTimeout = d
	}
}

// WithRetryBackoff sets the pause before the single expense retry
func WithRetryBackoff(d time.Duration) DashboardOption {
	return func(s *DashboardService) {
		s.retryBackoff = d
	}
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(billingRepo billing.BillingRecordRepository, expenses ExpenseProvider, opts ...DashboardOption) *DashboardService {
	s := &DashboardService{
		billingRepo:  billingRepo,
		expenses:     expenses,
		callTimeout:  5 * time.Second,
		retryBackoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetDashboard builds the financial summary for a reporting period
func (s *DashboardService) GetDashboard(ctx context.Context, from, to time.Time) (*report.DashboardSummary, error) {
	if from.After(to) {
		return nil, shared.NewDomainError(shared.ErrCodeRange, "Period start cannot be after period end")
	}

	revenueMinor, err := s.billingRepo.SumTotalsInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	paymentsMinor, err := s.billingRepo.SumPaymentsInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	countFilter := billing.BillingRecordFilter{
		Filter:   shared.DefaultFilter(),
		DateFrom: &from,
		DateTo:   &to,
	}
	billingCount, err := s.billingRepo.Count(ctx, countFilter)
	if err != nil {
		return nil, err
	}

	open, err := s.billingRepo.FindOpen(ctx)
	if err != nil {
		return nil, err
	}
	aging := receivable.BuildReport(open, to)

	expensesMinor, err := s.fetchExpenses(ctx, from, to)
	if err != nil {
		return nil, err
	}

	summary := report.NewDashboardSummary(
		from, to,
		valueobject.NewMoneyBRL(revenueMinor),
		valueobject.NewMoneyBRL(paymentsMinor),
		aging.Total,
		aging.Overdue(),
		valueobject.NewMoneyBRL(expensesMinor),
		billingCount,
	)
	return &summary, nil
}

// fetchExpenses calls the expense system with a bounded timeout and one
// retry. A failure after the retry surfaces as DEPENDENCY_ERROR so the
// caller can tell a collaborator outage from a ledger fault.
func (s *DashboardService) fetchExpenses(ctx context.Context, from, to time.Time) (int64, error) {
	total, err := s.expenseCall(ctx, from, to)
	if err == nil {
		return total, nil
	}

	select {
	case <-ctx.Done():
		return 0, shared.NewDomainError(shared.ErrCodeDependency, "Expense system unavailable: "+err.Error())
	case <-time.After(s.retryBackoff):
	}

	total, err = s.expenseCall(ctx, from, to)
	if err != nil {
		return 0, shared.NewDomainError(shared.ErrCodeDependency, "Expense system unavailable: "+err.Error())
	}
	return total, nil
}

func (s *DashboardService) expenseCall(ctx context.Context, from, to time.Time) (int64, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.expenses.TotalExpenses(callCtx, from, to)
}
