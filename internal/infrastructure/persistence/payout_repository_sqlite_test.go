package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prontivus/backend/internal/domain/billing"
	"github.com/prontivus/backend/internal/domain/payout"
	"github.com/prontivus/backend/internal/domain/shared"
	"github.com/prontivus/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prontivus/backend/internal/infrastructure/persistence/models"
)

func setupPayoutSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.PhysicianPayoutModel{})
	require.NoError(t, err)

	return db
}

func calculateTestPayout(t *testing.T, payoutNumber string, doctorID uuid.UUID, periodStart, periodEnd time.Time, grossMinor int64) *payout.PhysicianPayout {
	t.Helper()

	item, err := billing.NewLineItem(billing.ItemTypeConsultation, "Consulta", 1, valueobject.NewMoneyBRL(grossMinor))
	require.NoError(t, err)
	record, err := billing.NewBillingRecord(
		"FAT-"+payoutNumber, uuid.New(), doctorID, billing.BillingTypePrivate,
		periodStart.AddDate(0, 0, 1), periodStart.AddDate(0, 1, 0),
		[]billing.LineItem{item},
		valueobject.ZeroBRL(), valueobject.ZeroBRL(), billing.InsuranceInfo{}, "", nil,
	)
	require.NoError(t, err)

	period, err := payout.NewPeriod(periodStart, periodEnd)
	require.NoError(t, err)
	policy, err := payout.NewFlatFeePolicy(valueobject.NewMoneyBRL(2000))
	require.NoError(t, err)

	p, err := payout.Calculate(payoutNumber, doctorID, period, []billing.BillingRecord{*record}, policy, nil)
	require.NoError(t, err)
	return p
}

func TestGormPayoutRepository_RoundTrip(t *testing.T) {
	db := setupPayoutSQLiteDB(t)
	repo := NewGormPayoutRepository(db)
	ctx := context.Background()

	periodStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	t.Run("saves and reloads a calculated payout", func(t *testing.T) {
		doctorID := uuid.New()
		p := calculateTestPayout(t, "REP-20260201-00001", doctorID, periodStart, periodEnd, 50000)

		err := repo.Save(ctx, p)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "REP-20260201-00001", found.PayoutNumber)
		assert.Equal(t, doctorID, found.DoctorID)
		assert.Equal(t, int64(50000), found.GrossRevenue.MinorUnits())
		assert.Equal(t, int64(2000), found.FacilityFee.MinorUnits())
		assert.Equal(t, int64(48000), found.NetPayout.MinorUnits())
		assert.Equal(t, payout.PayoutStatusPending, found.Status)
		assert.Nil(t, found.PaidAt)
		assert.WithinDuration(t, p.Period.Start, found.Period.Start, time.Second)
		assert.WithinDuration(t, p.Period.End, found.Period.End, time.Second)
	})

	t.Run("finds by payout number", func(t *testing.T) {
		doctorID := uuid.New()
		p := calculateTestPayout(t, "REP-20260201-00002", doctorID, periodStart, periodEnd, 30000)
		require.NoError(t, repo.Save(ctx, p))

		found, err := repo.FindByPayoutNumber(ctx, "REP-20260201-00002")
		require.NoError(t, err)
		assert.Equal(t, p.ID, found.ID)
	})

	t.Run("returns ErrNotFound for an unknown payout", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormPayoutRepository_FindByDoctor_SQLite(t *testing.T) {
	db := setupPayoutSQLiteDB(t)
	repo := NewGormPayoutRepository(db)
	ctx := context.Background()

	doctorID := uuid.New()
	january := calculateTestPayout(t, "REP-20260201-00011", doctorID,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), 10000)
	february := calculateTestPayout(t, "REP-20260301-00012", doctorID,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), 20000)
	require.NoError(t, repo.Save(ctx, january))
	require.NoError(t, repo.Save(ctx, february))

	other := calculateTestPayout(t, "REP-20260201-00013", uuid.New(),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), 5000)
	require.NoError(t, repo.Save(ctx, other))

	payouts, err := repo.FindByDoctor(ctx, doctorID)
	require.NoError(t, err)
	require.Len(t, payouts, 2)

	// Newest period first
	assert.Equal(t, "REP-20260301-00012", payouts[0].PayoutNumber)
	assert.Equal(t, "REP-20260201-00011", payouts[1].PayoutNumber)
}

func TestGormPayoutRepository_FindPaidOverlapping_SQLite(t *testing.T) {
	db := setupPayoutSQLiteDB(t)
	repo := NewGormPayoutRepository(db)
	ctx := context.Background()

	doctorID := uuid.New()
	periodStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	settled := calculateTestPayout(t, "REP-20260201-00021", doctorID, periodStart, periodEnd, 40000)
	require.NoError(t, settled.MarkPaid(time.Now(), nil))
	require.NoError(t, repo.Save(ctx, settled))

	pending := calculateTestPayout(t, "REP-20260201-00022", doctorID,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), 40000)
	require.NoError(t, repo.Save(ctx, pending))

	t.Run("matches a paid payout whose period crosses the range", func(t *testing.T) {
		overlapping, err := repo.FindPaidOverlapping(ctx, doctorID,
			time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Len(t, overlapping, 1)
		assert.Equal(t, "REP-20260201-00021", overlapping[0].PayoutNumber)
	})

	t.Run("ignores pending payouts and disjoint periods", func(t *testing.T) {
		overlapping, err := repo.FindPaidOverlapping(ctx, doctorID,
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Empty(t, overlapping)
	})
}

func TestGormPayoutRepository_SaveWithLock_SQLite(t *testing.T) {
	db := setupPayoutSQLiteDB(t)
	repo := NewGormPayoutRepository(db)
	ctx := context.Background()

	doctorID := uuid.New()
	periodStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	t.Run("settles a payout with a fresh version", func(t *testing.T) {
		p := calculateTestPayout(t, "REP-20260201-00031", doctorID, periodStart, periodEnd, 60000)
		require.NoError(t, repo.Save(ctx, p))

		loaded, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.NoError(t, loaded.MarkPaid(time.Now(), nil))

		err = repo.SaveWithLock(ctx, loaded)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, payout.PayoutStatusPaid, found.Status)
		assert.NotNil(t, found.PaidAt)
		assert.Equal(t, 2, found.Version)
	})

	t.Run("rejects a stale version", func(t *testing.T) {
		p := calculateTestPayout(t, "REP-20260301-00032", doctorID,
			time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), 60000)
		require.NoError(t, repo.Save(ctx, p))

		winner, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		loser, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)

		require.NoError(t, winner.MarkPaid(time.Now(), nil))
		require.NoError(t, repo.SaveWithLock(ctx, winner))

		require.NoError(t, loser.MarkPaid(time.Now(), nil))
		err = repo.SaveWithLock(ctx, loser)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestGormPayoutRepository_GeneratePayoutNumber_SQLite(t *testing.T) {
	db := setupPayoutSQLiteDB(t)
	repo := NewGormPayoutRepository(db)
	ctx := context.Background()

	prefix := "REP-" + time.Now().Format("20060102") + "-"

	first, err := repo.GeneratePayoutNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, prefix+"00001", first)

	doctorID := uuid.New()
	p := calculateTestPayout(t, first, doctorID,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), 10000)
	require.NoError(t, repo.Save(ctx, p))

	second, err := repo.GeneratePayoutNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, prefix+"00002", second)
}
