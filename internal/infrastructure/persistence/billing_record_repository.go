package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prontivus/backend/internal/domain/billing"
	"github.com/prontivus/backend/internal/domain/shared"
	"github.com/prontivus/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBillingRecordRepository implements BillingRecordRepository using GORM
type GormBillingRecordRepository struct {
	db *gorm.DB
}

// NewGormBillingRecordRepository creates a new GormBillingRecordRepository
func NewGormBillingRecordRepository(db *gorm.DB) *GormBillingRecordRepository {
	return &GormBillingRecordRepository{db: db}
}

// toDomainReconciled rebuilds the aggregate from a stored row and
// reconciles it before handing it out. The payment log is the source
// of truth; paid_amount_minor and balance_minor are denormalized for
// SQL aggregation, so a row whose columns disagree with its own log
// must not reach the domain layer.
func toDomainReconciled(model *models.BillingRecordModel) (*billing.BillingRecord, error) {
	record := model.ToDomain()
	if err := record.Reconcile(); err != nil {
		return nil, err
	}
	if paid := record.PaidAmount().MinorUnits(); paid != model.PaidAmountMinor {
		return nil, shared.NewDomainError(shared.ErrCodeConflict, fmt.Sprintf(
			"Billing record %s stored paid amount %d does not match payment log %d",
			model.BillingNumber, model.PaidAmountMinor, paid))
	}
	if balance := record.BalanceAmount().MinorUnits(); balance != model.BalanceMinor {
		return nil, shared.NewDomainError(shared.ErrCodeConflict, fmt.Sprintf(
			"Billing record %s stored balance %d does not match payment log %d",
			model.BillingNumber, model.BalanceMinor, balance))
	}
	return record, nil
}

// FindByID finds a billing record by its ID with its payment log
func (r *GormBillingRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.BillingRecord, error) {
	var model models.BillingRecordModel
	if err := r.db.WithContext(ctx).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return toDomainReconciled(&model)
}

// FindByBillingNumber finds a billing record by its billing number
func (r *GormBillingRecordRepository) FindByBillingNumber(ctx context.Context, billingNumber string) (*billing.BillingRecord, error) {
	var model models.BillingRecordModel
	if err := r.db.WithContext(ctx).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("billing_number = ?", billingNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return toDomainReconciled(&model)
}

// FindAll finds billing records matching the filter
func (r *GormBillingRecordRepository) FindAll(ctx context.Context, filter billing.BillingRecordFilter) ([]billing.BillingRecord, error) {
	var recordModels []models.BillingRecordModel
	query := r.db.WithContext(ctx).Model(&models.BillingRecordModel{}).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
	query = r.applyFilter(query, filter)

	if err := query.Find(&recordModels).Error; err != nil {
		return nil, err
	}
	records := make([]billing.BillingRecord, len(recordModels))
	for i := range recordModels {
		record, err := toDomainReconciled(&recordModels[i])
		if err != nil {
			return nil, err
		}
		records[i] = *record
	}
	return records, nil
}

// FindOpen finds records with a positive balance that are not cancelled
// or refunded, for the aging projection
func (r *GormBillingRecordRepository) FindOpen(ctx context.Context) ([]billing.BillingRecord, error) {
	var recordModels []models.BillingRecordModel
	if err := r.db.WithContext(ctx).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("balance_minor > 0 AND cancelled_at IS NULL AND refunded_at IS NULL").
		Order("due_date ASC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}
	records := make([]billing.BillingRecord, len(recordModels))
	for i := range recordModels {
		record, err := toDomainReconciled(&recordModels[i])
		if err != nil {
			return nil, err
		}
		records[i] = *record
	}
	return records, nil
}

// FindByDoctorInPeriod finds the doctor's records with a billing date
// inside [from, to]
func (r *GormBillingRecordRepository) FindByDoctorInPeriod(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]billing.BillingRecord, error) {
	var recordModels []models.BillingRecordModel
	if err := r.db.WithContext(ctx).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("doctor_id = ? AND billing_date >= ? AND billing_date <= ?", doctorID, from, to).
		Order("billing_date ASC, billing_number ASC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}
	records := make([]billing.BillingRecord, len(recordModels))
	for i := range recordModels {
		record, err := toDomainReconciled(&recordModels[i])
		if err != nil {
			return nil, err
		}
		records[i] = *record
	}
	return records, nil
}

// Save creates or updates a billing record and its payment log. Payment
// rows are insert-only; Save appends new ones and never rewrites old ones.
func (r *GormBillingRecordRepository) Save(ctx context.Context, record *billing.BillingRecord) error {
	model := models.BillingRecordModelFromDomain(record)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking. The version predicate
// serializes concurrent writers on the same record; the loser gets a
// conflict and re-reads. The update is a column map rather than the
// model struct: a final payment drives balance_minor to zero and a
// refund clears disputed_at, and GORM skips zero-valued struct fields.
func (r *GormBillingRecordRepository) SaveWithLock(ctx context.Context, record *billing.BillingRecord) error {
	model := models.BillingRecordModelFromDomain(record)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Model(&models.BillingRecordModel{}).
			Where("id = ? AND version = ?", record.ID, record.Version-1).
			Updates(map[string]any{
				"version":           model.Version,
				"updated_at":        model.UpdatedAt,
				"paid_amount_minor": model.PaidAmountMinor,
				"balance_minor":     model.BalanceMinor,
				"notes":             model.Notes,
				"cancelled_at":      model.CancelledAt,
				"cancel_reason":     model.CancelReason,
				"disputed_at":       model.DisputedAt,
				"dispute_reason":    model.DisputeReason,
				"refunded_at":       model.RefundedAt,
				"refund_reason":     model.RefundReason,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		for i := range model.Payments {
			payment := model.Payments[i]
			if err := tx.Where("id = ?", payment.ID).
				FirstOrCreate(&payment).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Count counts billing records matching the filter
func (r *GormBillingRecordRepository) Count(ctx context.Context, filter billing.BillingRecordFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.BillingRecordModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumTotalsInRange sums total_amount_minor of non-cancelled records with
// a billing date inside [from, to]
func (r *GormBillingRecordRepository) SumTotalsInRange(ctx context.Context, from, to time.Time) (int64, error) {
	var result struct {
		Total int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.BillingRecordModel{}).
		Select("COALESCE(SUM(total_amount_minor), 0) as total").
		Where("billing_date >= ? AND billing_date <= ? AND cancelled_at IS NULL", from, to).
		Scan(&result).Error; err != nil {
		return 0, err
	}
	return result.Total, nil
}

// SumPaymentsInRange sums payment amounts with a payment date inside
// [from, to]. Corrections are negative rows, so the sum nets them out.
func (r *GormBillingRecordRepository) SumPaymentsInRange(ctx context.Context, from, to time.Time) (int64, error) {
	var result struct {
		Total int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("COALESCE(SUM(amount_minor), 0) as total").
		Where("payment_date >= ? AND payment_date <= ?", from, to).
		Scan(&result).Error; err != nil {
		return 0, err
	}
	return result.Total, nil
}

// ExistsByBillingNumber checks if a billing number exists
func (r *GormBillingRecordRepository) ExistsByBillingNumber(ctx context.Context, billingNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.BillingRecordModel{}).
		Where("billing_number = ?", billingNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateBillingNumber generates a unique billing number
func (r *GormBillingRecordRepository) GenerateBillingNumber(ctx context.Context) (string, error) {
	// Format: FAT-YYYYMMDD-XXXXX
	date := time.Now().Format("20060102")
	prefix := fmt.Sprintf("FAT-%s-", date)

	var maxNumber string
	if err := r.db.WithContext(ctx).
		Model(&models.BillingRecordModel{}).
		Select("billing_number").
		Where("billing_number LIKE ?", prefix+"%").
		Order("billing_number DESC").
		Limit(1).
		Pluck("billing_number", &maxNumber).Error; err != nil {
		return "", err
	}

	var nextNum int
	if maxNumber != "" {
		parts := strings.Split(maxNumber, "-")
		if len(parts) == 3 {
			fmt.Sscanf(parts[2], "%d", &nextNum)
		}
	}
	nextNum++

	return fmt.Sprintf("%s%05d", prefix, nextNum), nil
}

// applyFilter applies filter options to the query
func (r *GormBillingRecordRepository) applyFilter(query *gorm.DB, filter billing.BillingRecordFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	// Fixed ordering keeps pagination stable under inserts
	return query.Order("billing_date DESC, billing_number ASC")
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormBillingRecordRepository) applyFilterWithoutPagination(query *gorm.DB, filter billing.BillingRecordFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("billing_number ILIKE ? OR notes ILIKE ?", searchPattern, searchPattern)
	}

	if filter.PatientID != nil {
		query = query.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.DoctorID != nil {
		query = query.Where("doctor_id = ?", *filter.DoctorID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = applyStatusPredicate(query, *filter.Status)
	}
	if filter.DateFrom != nil {
		query = query.Where("billing_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("billing_date <= ?", *filter.DateTo)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}

	return query
}

// applyStatusPredicate translates the derived record status into SQL.
// Status is never stored: pending, overdue and paid follow from the
// balance and due date, so the predicate mirrors the domain derivation
// and cannot go stale while a record sits untouched past its due date.
func applyStatusPredicate(query *gorm.DB, status billing.BillingStatus) *gorm.DB {
	const open = "cancelled_at IS NULL AND refunded_at IS NULL AND disputed_at IS NULL"
	switch status {
	case billing.BillingStatusCancelled:
		return query.Where("cancelled_at IS NOT NULL")
	case billing.BillingStatusRefunded:
		return query.Where("cancelled_at IS NULL AND refunded_at IS NOT NULL")
	case billing.BillingStatusDisputed:
		return query.Where("cancelled_at IS NULL AND refunded_at IS NULL AND disputed_at IS NOT NULL")
	case billing.BillingStatusPaid:
		return query.Where(open + " AND balance_minor <= 0")
	case billing.BillingStatusOverdue:
		return query.Where(open+" AND balance_minor > 0 AND due_date < ?", time.Now())
	case billing.BillingStatusPending:
		return query.Where(open+" AND balance_minor > 0 AND due_date >= ?", time.Now())
	default:
		return query
	}
}

// Ensure GormBillingRecordRepository implements BillingRecordRepository
var _ billing.BillingRecordRepository = (*GormBillingRecordRepository)(nil)
