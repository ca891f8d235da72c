package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	BRL Currency = "BRL" // Brazilian Real (default)
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = BRL

// Money is a value object representing monetary amounts as integer minor
// units (centavos). It is immutable - all operations return new Money
// instances. No float ever represents an amount; division and percentage
// operations round half-up at the minor unit.
type Money struct {
	minor    int64
	currency Currency
}

// NewMoney creates a new Money with the specified minor units and currency
func NewMoney(minorUnits int64, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{minor: minorUnits, currency: currency}, nil
}

// MustNewMoney creates Money and panics on an empty currency. Intended
// for persistence mappers where the currency column is NOT NULL.
func MustNewMoney(minorUnits int64, currency Currency) Money {
	m, err := NewMoney(minorUnits, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMoneyBRL creates Money in BRL from minor units (centavos)
func NewMoneyBRL(minorUnits int64) Money {
	return Money{minor: minorUnits, currency: BRL}
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{minor: 0, currency: currency}
}

// ZeroBRL returns a zero-value Money in BRL
func ZeroBRL() Money {
	return Zero(BRL)
}

// MinorUnits returns the amount in minor units
func (m Money) MinorUnits() int64 {
	return m.minor
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.minor == 0
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.minor > 0
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.minor < 0
}

// Add returns a new Money with the sum of both amounts
// Returns error if currencies don't match
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot add money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{minor: m.minor + other.minor, currency: m.currency}, nil
}

// MustAdd adds two Money values, panics if currencies don't match
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns a new Money with the difference
// Returns error if currencies don't match
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("cannot subtract money with different currencies: %s and %s", m.currency, other.currency)
	}
	return Money{minor: m.minor - other.minor, currency: m.currency}, nil
}

// MustSubtract subtracts two Money values, panics if currencies don't match
func (m Money) MustSubtract(other Money) Money {
	result, err := m.Subtract(other)
	if err != nil {
		panic(err)
	}
	return result
}

// MultiplyByInt returns a new Money multiplied by an integer factor
func (m Money) MultiplyByInt(factor int64) Money {
	return Money{minor: m.minor * factor, currency: m.currency}
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{minor: -m.minor, currency: m.currency}
}

// Abs returns a new Money with the absolute value
func (m Money) Abs() Money {
	if m.minor < 0 {
		return m.Negate()
	}
	return m
}

// FloorZero returns the amount floored at zero. Used for display-side
// balances; the internal signed value is kept to detect overpayment.
func (m Money) FloorZero() Money {
	if m.minor < 0 {
		return Zero(m.currency)
	}
	return m
}

// Percentage returns the given percentage of this Money, rounded half-up
// at the minor unit
func (m Money) Percentage(percent decimal.Decimal) Money {
	amount := decimal.NewFromInt(m.minor).Mul(percent).Div(decimal.NewFromInt(100))
	return Money{minor: roundHalfUp(amount), currency: m.currency}
}

// DivideBy returns a new Money divided by the given divisor, rounded
// half-up at the minor unit. Returns error if divisor is zero.
func (m Money) DivideBy(divisor int64) (Money, error) {
	if divisor == 0 {
		return Money{}, errors.New("cannot divide by zero")
	}
	amount := decimal.NewFromInt(m.minor).Div(decimal.NewFromInt(divisor))
	return Money{minor: roundHalfUp(amount), currency: m.currency}, nil
}

// roundHalfUp rounds a decimal amount of minor units to the nearest
// integer, with .5 away from zero
func roundHalfUp(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.minor == other.minor
}

// Compare returns -1, 0 or 1 comparing this Money to the other
// Returns error if currencies don't match
func (m Money) Compare(other Money) (int, error) {
	if m.currency != other.currency {
		return 0, fmt.Errorf("cannot compare money with different currencies: %s and %s", m.currency, other.currency)
	}
	switch {
	case m.minor < other.minor:
		return -1, nil
	case m.minor > other.minor:
		return 1, nil
	default:
		return 0, nil
	}
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) (bool, error) {
	c, err := m.Compare(other)
	return c > 0, err
}

// LessThan returns true if this Money is less than the other
func (m Money) LessThan(other Money) (bool, error) {
	c, err := m.Compare(other)
	return c < 0, err
}

// Decimal returns the amount as a decimal in major units (e.g. 15000
// centavos -> 150.00)
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.minor).Div(decimal.NewFromInt(100))
}

// String returns a string representation of the Money
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Decimal().StringFixed(2), m.currency)
}

// moneyJSON is the wire shape for Money. Amounts cross the boundary as
// integer minor units with an explicit currency code, never as floats.
type moneyJSON struct {
	AmountMinor int64    `json:"amount_minor"`
	Currency    Currency `json:"currency"`
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	currency := m.currency
	if currency == "" {
		currency = DefaultCurrency
	}
	return json.Marshal(moneyJSON{AmountMinor: m.minor, Currency: currency})
}

// UnmarshalJSON implements json.Unmarshaler. Currency defaults to
// DefaultCurrency when absent.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.minor = v.AmountMinor
	m.currency = v.Currency
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}

// Value implements driver.Valuer for database storage.
// Stores the minor units as an integer; currency lives in its own column.
func (m Money) Value() (driver.Value, error) {
	return m.minor, nil
}

// Scan implements sql.Scanner for database retrieval. Scans only the
// minor units; currency defaults to DefaultCurrency if not already set.
func (m *Money) Scan(value any) error {
	if value == nil {
		m.minor = 0
		m.currency = DefaultCurrency
		return nil
	}

	switch v := value.(type) {
	case int64:
		m.minor = v
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return fmt.Errorf("invalid numeric value: %w", err)
		}
		m.minor = d.IntPart()
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("invalid numeric value: %w", err)
		}
		m.minor = d.IntPart()
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}

// Allocate divides money into n parts, rounding half-up per part and
// assigning the remainder centavo-by-centavo to the first parts so the
// result always sums to the original amount
func (m Money) Allocate(parts int) ([]Money, error) {
	if parts <= 0 {
		return nil, errors.New("parts must be positive")
	}
	base := m.minor / int64(parts)
	remainder := m.minor % int64(parts)

	result := make([]Money, parts)
	for i := range result {
		part := base
		if int64(i) < remainder {
			part++
		}
		result[i] = Money{minor: part, currency: m.currency}
	}
	return result, nil
}

// Sum adds a series of Money values in the given currency. An empty
// series yields zero. Returns error on currency mismatch.
func Sum(currency Currency, values ...Money) (Money, error) {
	total := Zero(currency)
	for _, v := range values {
		var err error
		total, err = total.Add(v)
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
