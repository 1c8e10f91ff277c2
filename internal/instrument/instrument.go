// Package instrument defines the tradable-instrument model. A single
// Instrument struct carries an AssetClass tag rather than a type hierarchy,
// per the engine's closed-variant design: the state machine and matching
// engine are orthogonal to asset class, so only construction needs
// class-specific defaults.
package instrument

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/duskquant/backtrace/pkg/types"
)

// Instrument describes a tradable instrument's precision, size limits, and
// fee schedule.
type Instrument struct {
	ID             types.InstrumentID
	AssetClass     types.AssetClass
	QuoteCurrency  types.Currency
	PricePrecision int32
	SizePrecision  int32
	PriceIncrement decimal.Decimal
	MinQuantity    *types.Quantity
	MaxQuantity    *types.Quantity
	TakerFee       decimal.Decimal
}

// NewCurrencyPair builds an FX-style instrument (e.g. EUR/USD spot).
func NewCurrencyPair(id types.InstrumentID, quote types.Currency, pricePrecision, sizePrecision int32, takerFee decimal.Decimal) Instrument {
	return Instrument{
		ID:             id,
		AssetClass:     types.AssetClassFX,
		QuoteCurrency:  quote,
		PricePrecision: pricePrecision,
		SizePrecision:  sizePrecision,
		PriceIncrement: defaultIncrement(pricePrecision),
		TakerFee:       takerFee,
	}
}

// NewEquity builds a cash-equity instrument.
func NewEquity(id types.InstrumentID, quote types.Currency, pricePrecision int32, takerFee decimal.Decimal) Instrument {
	one := types.MustQuantity(decimal.NewFromInt(1), 0)
	return Instrument{
		ID:             id,
		AssetClass:     types.AssetClassEquity,
		QuoteCurrency:  quote,
		PricePrecision: pricePrecision,
		SizePrecision:  0,
		PriceIncrement: defaultIncrement(pricePrecision),
		MinQuantity:    &one,
		TakerFee:       takerFee,
	}
}

// NewCryptoPerpetual builds a perpetual-swap instrument with fractional sizing.
func NewCryptoPerpetual(id types.InstrumentID, quote types.Currency, pricePrecision, sizePrecision int32, takerFee decimal.Decimal) Instrument {
	return Instrument{
		ID:             id,
		AssetClass:     types.AssetClassCrypto,
		QuoteCurrency:  quote,
		PricePrecision: pricePrecision,
		SizePrecision:  sizePrecision,
		PriceIncrement: defaultIncrement(pricePrecision),
		TakerFee:       takerFee,
	}
}

// NewFuturesContract builds a dated futures instrument.
func NewFuturesContract(id types.InstrumentID, quote types.Currency, pricePrecision, sizePrecision int32, takerFee decimal.Decimal) Instrument {
	return Instrument{
		ID:             id,
		AssetClass:     types.AssetClassFuture,
		QuoteCurrency:  quote,
		PricePrecision: pricePrecision,
		SizePrecision:  sizePrecision,
		PriceIncrement: defaultIncrement(pricePrecision),
		TakerFee:       takerFee,
	}
}

func defaultIncrement(precision int32) decimal.Decimal {
	return decimal.New(1, -precision)
}

// ValidateQuantity checks a quantity's precision and bounds against the
// instrument's limits, matching the risk engine's pre-trade rules.
func (i Instrument) ValidateQuantity(q types.Quantity) error {
	if q.Precision() != i.SizePrecision {
		return fmt.Errorf("quantity precision %d does not match instrument size precision %d", q.Precision(), i.SizePrecision)
	}
	if i.MinQuantity != nil && q.LessThan(*i.MinQuantity) {
		return fmt.Errorf("quantity %s below minimum %s", q, *i.MinQuantity)
	}
	if i.MaxQuantity != nil && q.GreaterThan(*i.MaxQuantity) {
		return fmt.Errorf("quantity %s above maximum %s", q, *i.MaxQuantity)
	}
	return nil
}

// MakeQuantity builds a Quantity from a plain float at the instrument's
// size precision, rounding half-up — the constructor strategies use to turn
// a configured trade size into an order-ready quantity.
func (i Instrument) MakeQuantity(size float64) types.Quantity {
	d := decimal.NewFromFloat(size).Round(i.SizePrecision)
	return types.MustQuantity(d, i.SizePrecision)
}

// ValidatePrice checks a price's precision and positivity.
func (i Instrument) ValidatePrice(p types.Price) error {
	if !p.GreaterThan(types.NewPrice(decimal.Zero, i.PricePrecision)) {
		return fmt.Errorf("price %s must be positive", p)
	}
	if p.Precision() != i.PricePrecision {
		return fmt.Errorf("price precision %d does not match instrument price precision %d", p.Precision(), i.PricePrecision)
	}
	return nil
}
