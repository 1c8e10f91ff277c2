package types

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrCurrencyMismatch is returned when Money arithmetic mixes currencies.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// ErrNegativeQuantity is returned when a Quantity is constructed from a
// negative value.
var ErrNegativeQuantity = errors.New("quantity must be non-negative")

// Currency is a value type identified by its code. Two currencies are equal
// iff their codes match.
type Currency struct {
	Code      string
	Precision int32
	Type      CurrencyType
}

func (c Currency) String() string { return c.Code }

// Equals reports structural equality by code.
func (c Currency) Equals(other Currency) bool { return c.Code == other.Code }

// Predefined currencies, mirroring the reference implementation's registry.
var (
	USD  = Currency{Code: "USD", Precision: 2, Type: CurrencyFiat}
	EUR  = Currency{Code: "EUR", Precision: 2, Type: CurrencyFiat}
	GBP  = Currency{Code: "GBP", Precision: 2, Type: CurrencyFiat}
	JPY  = Currency{Code: "JPY", Precision: 0, Type: CurrencyFiat}
	BTC  = Currency{Code: "BTC", Precision: 8, Type: CurrencyCrypto}
	ETH  = Currency{Code: "ETH", Precision: 8, Type: CurrencyCrypto}
	USDT = Currency{Code: "USDT", Precision: 2, Type: CurrencyCrypto}
)

// Price is a decimal value quantized to a declared precision, rounded half
// away from zero (shopspring/decimal's Round, equivalent to ROUND_HALF_UP
// for the non-negative magnitudes this engine constructs). Prices may be
// negative only via explicit negation.
type Price struct {
	value     decimal.Decimal
	precision int32
}

// NewPrice quantizes value to precision decimal places.
func NewPrice(value decimal.Decimal, precision int32) Price {
	return Price{value: value.Round(precision), precision: precision}
}

// NewPriceFromString parses and quantizes a decimal string.
func NewPriceFromString(value string, precision int32) (Price, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Price{}, fmt.Errorf("parse price %q: %w", value, err)
	}
	return NewPrice(d, precision), nil
}

// NewPriceFromFloat quantizes a float64. Intended for boundary conversions
// (report construction, test fixtures) — not for engine-internal arithmetic.
func NewPriceFromFloat(value float64, precision int32) Price {
	return NewPrice(decimal.NewFromFloat(value), precision)
}

func (p Price) Decimal() decimal.Decimal { return p.value }
func (p Price) Precision() int32         { return p.precision }
func (p Price) AsFloat() float64         { f, _ := p.value.Float64(); return f }
func (p Price) String() string           { return p.value.StringFixed(p.precision) }
func (p Price) IsZero() bool             { return p.value.IsZero() }

func (p Price) maxPrecision(other Price) int32 {
	if p.precision > other.precision {
		return p.precision
	}
	return other.precision
}

func (p Price) Equals(other Price) bool      { return p.value.Equal(other.value) }
func (p Price) LessThan(other Price) bool    { return p.value.LessThan(other.value) }
func (p Price) LessOrEqual(other Price) bool { return p.value.LessThanOrEqual(other.value) }
func (p Price) GreaterThan(other Price) bool { return p.value.GreaterThan(other.value) }
func (p Price) GreaterOrEqual(other Price) bool {
	return p.value.GreaterThanOrEqual(other.value)
}

func (p Price) Add(other Price) Price {
	return NewPrice(p.value.Add(other.value), p.maxPrecision(other))
}

func (p Price) Sub(other Price) Price {
	return NewPrice(p.value.Sub(other.value), p.maxPrecision(other))
}

func (p Price) Mul(factor decimal.Decimal) Price {
	return NewPrice(p.value.Mul(factor), p.precision)
}

func (p Price) Neg() Price {
	return NewPrice(p.value.Neg(), p.precision)
}

// Quantity is a non-negative decimal quantized to a declared precision.
type Quantity struct {
	value     decimal.Decimal
	precision int32
}

// NewQuantity quantizes value to precision decimal places. Returns
// ErrNegativeQuantity if the resulting value is negative.
func NewQuantity(value decimal.Decimal, precision int32) (Quantity, error) {
	q := value.Round(precision)
	if q.IsNegative() {
		return Quantity{}, fmt.Errorf("%w: got %s", ErrNegativeQuantity, q.String())
	}
	return Quantity{value: q, precision: precision}, nil
}

// MustQuantity panics on construction error; for use with known-safe inputs
// (literals, prior-validated values), not external input.
func MustQuantity(value decimal.Decimal, precision int32) Quantity {
	q, err := NewQuantity(value, precision)
	if err != nil {
		panic(err)
	}
	return q
}

func NewQuantityFromFloat(value float64, precision int32) (Quantity, error) {
	return NewQuantity(decimal.NewFromFloat(value), precision)
}

func (q Quantity) Decimal() decimal.Decimal { return q.value }
func (q Quantity) Precision() int32         { return q.precision }
func (q Quantity) AsFloat() float64         { f, _ := q.value.Float64(); return f }
func (q Quantity) String() string           { return q.value.StringFixed(q.precision) }
func (q Quantity) IsZero() bool             { return q.value.IsZero() }
func (q Quantity) IsPositive() bool         { return q.value.IsPositive() }

func (q Quantity) maxPrecision(other Quantity) int32 {
	if q.precision > other.precision {
		return q.precision
	}
	return other.precision
}

func (q Quantity) Equals(other Quantity) bool   { return q.value.Equal(other.value) }
func (q Quantity) LessThan(other Quantity) bool { return q.value.LessThan(other.value) }
func (q Quantity) GreaterThan(other Quantity) bool {
	return q.value.GreaterThan(other.value)
}

// Add never fails: the sum of two non-negative quantities is non-negative.
func (q Quantity) Add(other Quantity) Quantity {
	out, _ := NewQuantity(q.value.Add(other.value), q.maxPrecision(other))
	return out
}

// Sub may underflow; callers that don't already guarantee other <= q must
// check the error.
func (q Quantity) Sub(other Quantity) (Quantity, error) {
	return NewQuantity(q.value.Sub(other.value), q.maxPrecision(other))
}

// Money is an amount in a specific currency, quantized to the currency's
// precision.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{amount: amount.Round(currency.Precision), currency: currency}
}

func NewMoneyFromFloat(amount float64, currency Currency) Money {
	return NewMoney(decimal.NewFromFloat(amount), currency)
}

func Zero(currency Currency) Money { return NewMoney(decimal.Zero, currency) }

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }
func (m Money) AsFloat() float64        { f, _ := m.amount.Float64(); return f }
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(m.currency.Precision), m.currency.Code)
}
func (m Money) IsZero() bool { return m.amount.IsZero() }

func (m Money) Add(other Money) (Money, error) {
	if !m.currency.Equals(other.currency) {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return NewMoney(m.amount.Add(other.amount), m.currency), nil
}

func (m Money) Sub(other Money) (Money, error) {
	if !m.currency.Equals(other.currency) {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return NewMoney(m.amount.Sub(other.amount), m.currency), nil
}

func (m Money) Neg() Money { return NewMoney(m.amount.Neg(), m.currency) }

// AccountBalance bundles total/locked/free balances for one currency. The
// invariant free = total - locked is the caller's responsibility; the
// constructor only checks that all three share a currency.
type AccountBalance struct {
	Total  Money
	Locked Money
	Free   Money
}

func NewAccountBalance(total, locked, free Money) (AccountBalance, error) {
	if !total.currency.Equals(locked.currency) || !total.currency.Equals(free.currency) {
		return AccountBalance{}, fmt.Errorf("%w: account balance components must share a currency", ErrCurrencyMismatch)
	}
	return AccountBalance{Total: total, Locked: locked, Free: free}, nil
}
