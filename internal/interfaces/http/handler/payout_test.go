package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	payoutapp "github.com/prontivus/backend/internal/application/payout"
	"github.com/prontivus/backend/internal/domain/billing"
	"github.com/prontivus/backend/internal/domain/payout"
	"github.com/prontivus/backend/internal/domain/shared/valueobject"
	"github.com/prontivus/backend/internal/interfaces/http/dto"
)

type mockPayoutRepo struct {
	mock.Mock
}

func (m *mockPayoutRepo) FindByID(ctx context.Context, id uuid.UUID) (*payout.PhysicianPayout, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.PhysicianPayout), args.Error(1)
}

func (m *mockPayoutRepo) FindByPayoutNumber(ctx context.Context, payoutNumber string) (*payout.PhysicianPayout, error) {
	args := m.Called(ctx, payoutNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.PhysicianPayout), args.Error(1)
}

func (m *mockPayoutRepo) FindByDoctor(ctx context.Context, doctorID uuid.UUID) ([]payout.PhysicianPayout, error) {
	args := m.Called(ctx, doctorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payout.PhysicianPayout), args.Error(1)
}

func (m *mockPayoutRepo) FindPaidOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]payout.PhysicianPayout, error) {
	args := m.Called(ctx, doctorID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payout.PhysicianPayout), args.Error(1)
}

func (m *mockPayoutRepo) Save(ctx context.Context, p *payout.PhysicianPayout) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPayoutRepo) SaveWithLock(ctx context.Context, p *payout.PhysicianPayout) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPayoutRepo) GeneratePayoutNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func newPayoutTestRouter(payoutRepo *mockPayoutRepo, billingRepo *mockBillingRepo) *gin.Engine {
	h := NewPayoutHandler(payoutapp.NewService(payoutRepo, billingRepo))
	router := gin.New()
	api := router.Group("/api/v1")
	api.POST("/payouts/calculate", h.CalculatePayout)
	api.GET("/payouts/:id", h.GetPayout)
	api.GET("/payouts/doctor/:doctor_id", h.ListDoctorPayouts)
	api.POST("/payouts/:id/pay", h.MarkPayoutPaid)
	return router
}

func doctorRecord(t *testing.T, doctorID uuid.UUID, billingDate time.Time, totalMinor int64) billing.BillingRecord {
	t.Helper()
	item, err := billing.NewLineItem(billing.ItemTypeConsultation, "Consulta", 1, valueobject.NewMoneyBRL(totalMinor))
	require.NoError(t, err)
	record, err := billing.NewBillingRecord(
		fmt.Sprintf("FAT-2026-%04d", totalMinor%10000), uuid.New(), doctorID, billing.BillingTypePrivate,
		billingDate, billingDate.AddDate(0, 0, 30),
		[]billing.LineItem{item},
		valueobject.ZeroBRL(), valueobject.ZeroBRL(), billing.InsuranceInfo{}, "", nil,
	)
	require.NoError(t, err)
	return *record
}

func TestPayoutHandler_CalculatePayout(t *testing.T) {
	doctorID := uuid.New()
	periodStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	t.Run("calculates a percentage payout", func(t *testing.T) {
		records := []billing.BillingRecord{
			doctorRecord(t, doctorID, periodStart.AddDate(0, 0, 5), 100000),
		}

		payoutRepo := new(mockPayoutRepo)
		billingRepo := new(mockBillingRepo)
		payoutRepo.On("FindPaidOverlapping", mock.Anything, doctorID, mock.Anything, mock.Anything).
			Return([]payout.PhysicianPayout{}, nil)
		billingRepo.On("FindByDoctorInPeriod", mock.Anything, doctorID, mock.Anything, mock.Anything).
			Return(records, nil)
		payoutRepo.On("GeneratePayoutNumber", mock.Anything).Return("REP-2026-0007", nil)
		payoutRepo.On("Save", mock.Anything, mock.AnythingOfType("*payout.PhysicianPayout")).Return(nil)

		body := gin.H{
			"doctor_id":    doctorID.String(),
			"period_start": periodStart.Format(time.RFC3339),
			"period_end":   periodEnd.Format(time.RFC3339),
			"fee_type":     "percentage",
			"fee_percent":  "20",
		}
		w := doJSON(newPayoutTestRouter(payoutRepo, billingRepo), http.MethodPost, "/api/v1/payouts/calculate", body)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "REP-2026-0007", data["payout_number"])

		net := data["net_payout"].(map[string]interface{})
		assert.Equal(t, float64(80000), net["amount_minor"])
	})

	t.Run("rejects a period overlapping a settled payout", func(t *testing.T) {
		settled := payout.PhysicianPayout{PayoutNumber: "REP-2026-0001"}

		payoutRepo := new(mockPayoutRepo)
		billingRepo := new(mockBillingRepo)
		payoutRepo.On("FindPaidOverlapping", mock.Anything, doctorID, mock.Anything, mock.Anything).
			Return([]payout.PhysicianPayout{settled}, nil)

		body := gin.H{
			"doctor_id":    doctorID.String(),
			"period_start": periodStart.Format(time.RFC3339),
			"period_end":   periodEnd.Format(time.RFC3339),
			"fee_type":     "percentage",
			"fee_percent":  "20",
		}
		w := doJSON(newPayoutTestRouter(payoutRepo, billingRepo), http.MethodPost, "/api/v1/payouts/calculate", body)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "ALREADY_PAID")
		billingRepo.AssertNotCalled(t, "FindByDoctorInPeriod", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects an unknown fee type", func(t *testing.T) {
		payoutRepo := new(mockPayoutRepo)
		billingRepo := new(mockBillingRepo)

		body := gin.H{
			"doctor_id":    doctorID.String(),
			"period_start": periodStart.Format(time.RFC3339),
			"period_end":   periodEnd.Format(time.RFC3339),
			"fee_type":     "tiered",
		}
		w := doJSON(newPayoutTestRouter(payoutRepo, billingRepo), http.MethodPost, "/api/v1/payouts/calculate", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPayoutHandler_GetPayout(t *testing.T) {
	t.Run("404 when payout is missing", func(t *testing.T) {
		payoutRepo := new(mockPayoutRepo)
		billingRepo := new(mockBillingRepo)
		payoutRepo.On("FindByID", mock.Anything, mock.Anything).Return(nil, nil)

		w := doJSON(newPayoutTestRouter(payoutRepo, billingRepo), http.MethodGet, "/api/v1/payouts/"+uuid.NewString(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("400 on malformed id", func(t *testing.T) {
		payoutRepo := new(mockPayoutRepo)
		billingRepo := new(mockBillingRepo)

		w := doJSON(newPayoutTestRouter(payoutRepo, billingRepo), http.MethodGet, "/api/v1/payouts/xyz", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPayoutHandler_ListDoctorPayouts(t *testing.T) {
	doctorID := uuid.New()
	payoutRepo := new(mockPayoutRepo)
	billingRepo := new(mockBillingRepo)
	payoutRepo.On("FindByDoctor", mock.Anything, doctorID).Return([]payout.PhysicianPayout{}, nil)

	w := doJSON(newPayoutTestRouter(payoutRepo, billingRepo), http.MethodGet, "/api/v1/payouts/doctor/"+doctorID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestPayoutHandler_MarkPayoutPaid(t *testing.T) {
	doctorID := uuid.New()
	periodStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	newCalculated := func(t *testing.T) *payout.PhysicianPayout {
		t.Helper()
		period, err := payout.NewPeriod(periodStart, periodEnd)
		require.NoError(t, err)
		policy, err := payout.NewFlatFeePolicy(valueobject.NewMoneyBRL(10000))
		require.NoError(t, err)
		p, err := payout.Calculate("REP-2026-0009", doctorID, period,
			[]billing.BillingRecord{doctorRecord(t, doctorID, periodStart.AddDate(0, 0, 3), 50000)},
			policy, nil)
		require.NoError(t, err)
		return p
	}

	t.Run("settles a calculated payout", func(t *testing.T) {
		p := newCalculated(t)
		payoutRepo := new(mockPayoutRepo)
		billingRepo := new(mockBillingRepo)
		payoutRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		payoutRepo.On("SaveWithLock", mock.Anything, p).Return(nil)

		w := doJSON(newPayoutTestRouter(payoutRepo, billingRepo), http.MethodPost,
			fmt.Sprintf("/api/v1/payouts/%s/pay", p.ID), gin.H{})

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "paid", data["status"])
		assert.NotNil(t, data["paid_at"])
	})

	t.Run("409 when settling twice", func(t *testing.T) {
		p := newCalculated(t)
		require.NoError(t, p.MarkPaid(time.Now(), nil))

		payoutRepo := new(mockPayoutRepo)
		billingRepo := new(mockBillingRepo)
		payoutRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		w := doJSON(newPayoutTestRouter(payoutRepo, billingRepo), http.MethodPost,
			fmt.Sprintf("/api/v1/payouts/%s/pay", p.ID), gin.H{})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "ALREADY_PAID")
		payoutRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}
