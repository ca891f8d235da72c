package payout

import (
	"fmt"

	"github.com/prontivus/backend/internal/domain/shared"
	"github.com/prontivus/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// FeePolicy computes the facility fee deducted from a physician's gross
// billed revenue. Policies are pure functions: the same gross always
// yields the same fee. Clinics vary, so the policy is pluggable rather
// than hard-coded.
type FeePolicy interface {
	// Apply returns the facility fee for the given gross revenue
	Apply(gross valueobject.Money) valueobject.Money
	// Describe returns a human-readable policy description for payout records
	Describe() string
}

// PercentageFeePolicy deducts a percentage of gross revenue, rounded
// half-up at the minor unit
type PercentageFeePolicy struct {
	Percent decimal.Decimal
}

// NewPercentageFeePolicy creates a percentage policy. The percentage
// must be within [0, 100].
func NewPercentageFeePolicy(percent decimal.Decimal) (PercentageFeePolicy, error) {
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return PercentageFeePolicy{}, shared.NewDomainError(shared.ErrCodeValidation,
			"Facility fee percentage must be between 0 and 100")
	}
	return PercentageFeePolicy{Percent: percent}, nil
}

// Apply returns the percentage of gross, rounded half-up
func (p PercentageFeePolicy) Apply(gross valueobject.Money) valueobject.Money {
	return gross.Percentage(p.Percent)
}

// Describe returns the policy description
func (p PercentageFeePolicy) Describe() string {
	return fmt.Sprintf("percentage %s%%", p.Percent.String())
}

// FlatFeePolicy deducts a fixed amount regardless of gross revenue
type FlatFeePolicy struct {
	Amount valueobject.Money
}

// NewFlatFeePolicy creates a flat-fee policy. The amount cannot be negative.
func NewFlatFeePolicy(amount valueobject.Money) (FlatFeePolicy, error) {
	if amount.IsNegative() {
		return FlatFeePolicy{}, shared.NewDomainError(shared.ErrCodeValidation,
			"Flat facility fee cannot be negative")
	}
	return FlatFeePolicy{Amount: amount}, nil
}

// Apply returns the flat amount
func (p FlatFeePolicy) Apply(gross valueobject.Money) valueobject.Money {
	return p.Amount
}

// Describe returns the policy description
func (p FlatFeePolicy) Describe() string {
	return fmt.Sprintf("flat %s", p.Amount.String())
}
