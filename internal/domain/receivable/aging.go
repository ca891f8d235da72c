// Package receivable derives the accounts-receivable aging view over open
// billing records. Nothing here is persisted: the projection is recomputed
// on every query so it can never drift from the ledger.
package receivable

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prontivus/backend/internal/domain/billing"
	"github.com/prontivus/backend/internal/domain/shared/valueobject"
)

// AgingBucket classifies an outstanding balance by days past due
type AgingBucket string

const (
	BucketCurrent AgingBucket = "current"
	Bucket30      AgingBucket = "30"
	Bucket60      AgingBucket = "60"
	Bucket90      AgingBucket = "90"
	Bucket120Plus AgingBucket = "120+"
)

// Buckets lists all buckets oldest-last, the order reports render them in
var Buckets = []AgingBucket{BucketCurrent, Bucket30, Bucket60, Bucket90, Bucket120Plus}

// BucketFor maps days overdue to its aging bucket
func BucketFor(daysOverdue int) AgingBucket {
	switch {
	case daysOverdue <= 0:
		return BucketCurrent
	case daysOverdue <= 30:
		return Bucket30
	case daysOverdue <= 60:
		return Bucket60
	case daysOverdue <= 90:
		return Bucket90
	default:
		return Bucket120Plus
	}
}

// rank orders buckets oldest-first for collections prioritization
func (b AgingBucket) rank() int {
	switch b {
	case Bucket120Plus:
		return 0
	case Bucket90:
		return 1
	case Bucket60:
		return 2
	case Bucket30:
		return 3
	default:
		return 4
	}
}

// Entry is one open billing record in the aging view
type Entry struct {
	BillingID     uuid.UUID             `json:"billing_id"`
	BillingNumber string                `json:"billing_number"`
	PatientID     uuid.UUID             `json:"patient_id"`
	DoctorID      uuid.UUID             `json:"doctor_id"`
	DueDate       time.Time             `json:"due_date"`
	Outstanding   valueobject.Money     `json:"outstanding_amount"`
	DaysOverdue   int                   `json:"days_overdue"`
	Bucket        AgingBucket           `json:"aging_bucket"`
	Status        billing.BillingStatus `json:"status"`
}

// Report is an aging snapshot taken at a single instant
type Report struct {
	AsOf         time.Time                         `json:"as_of"`
	Entries      []Entry                           `json:"entries"`
	BucketTotals map[AgingBucket]valueobject.Money `json:"bucket_totals"`
	Total        valueobject.Money                 `json:"total"`
}

// Overdue returns the outstanding total excluding the current bucket
func (r *Report) Overdue() valueobject.Money {
	current, ok := r.BucketTotals[BucketCurrent]
	if !ok {
		return r.Total
	}
	return r.Total.MustSubtract(current)
}

// BuildReport computes the aging view for the given records as of the
// given instant. Records with a non-positive balance are excluded even
// if their stored status looks open: balance is the authoritative
// overdue signal, status is informational only. Entries come back in
// collections order, oldest bucket first, largest outstanding first
// within a bucket.
func BuildReport(records []billing.BillingRecord, asOf time.Time) *Report {
	currency := valueobject.DefaultCurrency
	if len(records) > 0 {
		currency = records[0].Currency()
	}

	report := &Report{
		AsOf:         asOf,
		Entries:      make([]Entry, 0, len(records)),
		BucketTotals: make(map[AgingBucket]valueobject.Money, len(Buckets)),
		Total:        valueobject.Zero(currency),
	}
	for _, b := range Buckets {
		report.BucketTotals[b] = valueobject.Zero(currency)
	}

	for i := range records {
		br := &records[i]
		balance := br.BalanceAmount()
		if !balance.IsPositive() {
			continue
		}
		status := br.StatusAt(asOf)
		switch status {
		case billing.BillingStatusPending, billing.BillingStatusOverdue, billing.BillingStatusDisputed:
		default:
			continue
		}

		days := br.DaysOverdue(asOf)
		bucket := BucketFor(days)
		report.Entries = append(report.Entries, Entry{
			BillingID:     br.ID,
			BillingNumber: br.BillingNumber,
			PatientID:     br.PatientID,
			DoctorID:      br.DoctorID,
			DueDate:       br.DueDate,
			Outstanding:   balance,
			DaysOverdue:   days,
			Bucket:        bucket,
			Status:        status,
		})
		report.BucketTotals[bucket] = report.BucketTotals[bucket].MustAdd(balance)
		report.Total = report.Total.MustAdd(balance)
	}

	sort.SliceStable(report.Entries, func(i, j int) bool {
		a, b := report.Entries[i], report.Entries[j]
		if a.Bucket != b.Bucket {
			return a.Bucket.rank() < b.Bucket.rank()
		}
		if a.Outstanding.MinorUnits() != b.Outstanding.MinorUnits() {
			return a.Outstanding.MinorUnits() > b.Outstanding.MinorUnits()
		}
		return a.BillingNumber < b.BillingNumber
	})

	return report
}
