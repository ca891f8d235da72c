package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prontivus/backend/internal/domain/payout"
	"github.com/prontivus/backend/internal/domain/shared"
	"github.com/prontivus/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPayoutRepository implements PayoutRepository using GORM
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewGormPayoutRepository creates a new GormPayoutRepository
func NewGormPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// FindByID finds a payout by its ID
func (r *GormPayoutRepository) FindByID(ctx context.Context, id uuid.UUID) (*payout.PhysicianPayout, error) {
	var model models.PhysicianPayoutModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPayoutNumber finds a payout by its payout number
func (r *GormPayoutRepository) FindByPayoutNumber(ctx context.Context, payoutNumber string) (*payout.PhysicianPayout, error) {
	var model models.PhysicianPayoutModel
	if err := r.db.WithContext(ctx).
		Where("payout_number = ?", payoutNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByDoctor finds a doctor's payouts, newest period first
func (r *GormPayoutRepository) FindByDoctor(ctx context.Context, doctorID uuid.UUID) ([]payout.PhysicianPayout, error) {
	var payoutModels []models.PhysicianPayoutModel
	if err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("period_start DESC").
		Find(&payoutModels).Error; err != nil {
		return nil, err
	}
	payouts := make([]payout.PhysicianPayout, len(payoutModels))
	for i := range payoutModels {
		payouts[i] = *payoutModels[i].ToDomain()
	}
	return payouts, nil
}

// FindPaidOverlapping finds paid payouts for the doctor whose period
// overlaps [start, end]
func (r *GormPayoutRepository) FindPaidOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]payout.PhysicianPayout, error) {
	var payoutModels []models.PhysicianPayoutModel
	if err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND status = ? AND period_start <= ? AND period_end >= ?",
			doctorID, payout.PayoutStatusPaid, end, start).
		Order("period_start ASC").
		Find(&payoutModels).Error; err != nil {
		return nil, err
	}
	payouts := make([]payout.PhysicianPayout, len(payoutModels))
	for i := range payoutModels {
		payouts[i] = *payoutModels[i].ToDomain()
	}
	return payouts, nil
}

// Save creates or updates a payout
func (r *GormPayoutRepository) Save(ctx context.Context, p *payout.PhysicianPayout) error {
	model := models.PhysicianPayoutModelFromDomain(p)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking so the pending-to-paid
// transition lands exactly once
func (r *GormPayoutRepository) SaveWithLock(ctx context.Context, p *payout.PhysicianPayout) error {
	model := models.PhysicianPayoutModelFromDomain(p)
	result := r.db.WithContext(ctx).
		Model(&models.PhysicianPayoutModel{}).
		Where("id = ? AND version = ?", p.ID, p.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// GeneratePayoutNumber generates a unique payout number
func (r *GormPayoutRepository) GeneratePayoutNumber(ctx context.Context) (string, error) {
	// Format: REP-YYYYMMDD-XXXXX
	date := time.Now().Format("20060102")
	prefix := fmt.Sprintf("REP-%s-", date)

	var maxNumber string
	if err := r.db.WithContext(ctx).
		Model(&models.PhysicianPayoutModel{}).
		Select("payout_number").
		Where("payout_number LIKE ?", prefix+"%").
		Order("payout_number DESC").
		Limit(1).
		Pluck("payout_number", &maxNumber).Error; err != nil {
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

// Ensure GormPayoutRepository implements PayoutRepository
var _ payout.PayoutRepository = (*GormPayoutRepository)(nil)
