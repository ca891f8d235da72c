package report

import (
	"time"

	"github.com/prontivus/backend/internal/domain/shared/valueobject"
)

// DashboardSummary is a point-in-time financial snapshot for a reporting
// period. It is computed on demand from the ledger and never stored.
type DashboardSummary struct {
	PeriodStart            time.Time         `json:"period_start"`
	PeriodEnd              time.Time         `json:"period_end"`
	TotalRevenue           valueobject.Money `json:"total_revenue"`
	TotalPayments          valueobject.Money `json:"total_payments"`
	OutstandingReceivables valueobject.Money `json:"outstanding_receivables"`
	OverdueReceivables     valueobject.Money `json:"overdue_receivables"`
	TotalExpenses          valueobject.Money `json:"total_expenses"`
	NetProfit              valueobject.Money `json:"net_profit"`
	BillingCount           int64             `json:"billing_count"`
}

// NewDashboardSummary derives the net profit from revenue billed and
// expenses reported for the period.
func NewDashboardSummary(
	start, end time.Time,
	revenue, payments, outstanding, overdue, expenses valueobject.Money,
	billingCount int64,
) DashboardSummary {
	return DashboardSummary{
		PeriodStart:            start,
		PeriodEnd:              end,
		TotalRevenue:           revenue,
		TotalPayments:          payments,
		OutstandingReceivables: outstanding,
		OverdueReceivables:     overdue,
		TotalExpenses:          expenses,
		NetProfit:              revenue.MustSubtract(expenses),
		BillingCount:           billingCount,
	}
}
