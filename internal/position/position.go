// Package position implements weighted-average-cost position accounting:
// folding fills into a position, realized/unrealized P&L, and side flips
// under netting-OMS semantics.
package position

import (
	"github.com/shopspring/decimal"

	"github.com/duskquant/backtrace/pkg/types"
)

// Position tracks one instrument's net holding for one strategy/account.
type Position struct {
	ID           types.PositionID
	InstrumentID types.InstrumentID
	StrategyID   types.StrategyID
	TraderID     types.TraderID
	AccountID    types.AccountID
	Currency     types.Currency

	Side      types.PositionSide
	Quantity  types.Quantity // absolute
	SignedQty decimal.Decimal // positive = long, negative = short

	AvgPxOpen  types.Price
	AvgPxClose types.Price
	RealizedPnL types.Money
	Commissions map[string]types.Money // currency code -> accrued commission

	Events    []types.Event
	TsOpened  int64
	TsClosed  int64
}

// New opens an empty, flat position shell ready to receive its first fill.
func New(id types.PositionID, instrumentID types.InstrumentID, strategyID types.StrategyID, traderID types.TraderID, accountID types.AccountID, currency types.Currency, precision int32) *Position {
	return &Position{
		ID:           id,
		InstrumentID: instrumentID,
		StrategyID:   strategyID,
		TraderID:     traderID,
		AccountID:    accountID,
		Currency:     currency,
		Side:         types.PositionFlat,
		Quantity:     types.MustQuantity(decimal.Zero, precision),
		SignedQty:    decimal.Zero,
		AvgPxOpen:    types.NewPrice(decimal.Zero, 0),
		AvgPxClose:   types.NewPrice(decimal.Zero, 0),
		RealizedPnL:  types.NewMoney(decimal.Zero, currency),
		Commissions:  make(map[string]types.Money),
	}
}

// IsClosed reports whether the position is flat and has seen at least one event.
func (p *Position) IsClosed() bool {
	return p.Side == types.PositionFlat && len(p.Events) > 0
}

// ApplyFill folds one OrderFilled event into the position per spec.md §4.3's
// netting formulas: a BUY against a short reduces/flips; a BUY against
// flat/long adds to the weighted-average entry. SELL is the mirror case.
// The fill event itself is appended to p.Events — mirroring the original's
// `self._events.append(fill)` — so IsClosed (side=FLAT and len(Events)>0)
// is derived from the event list. TsOpened is stamped from the first fill
// and TsClosed from each fill that leaves the position flat.
func (p *Position) ApplyFill(fill types.Event) {
	if len(p.Events) == 0 {
		p.TsOpened = fill.TsEvent
	}

	qty := fill.LastQty.Decimal()
	switch fill.Side {
	case types.Buy:
		p.applyBuy(qty, fill.LastPx)
	case types.Sell:
		p.applySell(qty, fill.LastPx)
	}

	p.recomputeSideAndQuantity()
	p.accrueCommission(fill.Commission)
	p.Events = append(p.Events, fill)

	if p.Side == types.PositionFlat {
		p.AvgPxClose = fill.LastPx
		p.TsClosed = fill.TsEvent
	}
}

func (p *Position) applyBuy(qty decimal.Decimal, lastPx types.Price) {
	if p.SignedQty.GreaterThanOrEqual(decimal.Zero) {
		// Flat or long: extend the weighted-average entry.
		total := p.SignedQty.Add(qty)
		if !total.IsZero() {
			weighted := p.AvgPxOpen.Decimal().Mul(p.SignedQty).Add(lastPx.Decimal().Mul(qty))
			p.AvgPxOpen = types.NewPrice(weighted.Div(total.Abs()), lastPx.Precision())
		}
		p.SignedQty = total
		return
	}

	// Short: closing (and possibly flipping).
	shortMag := p.SignedQty.Neg()
	closeQty := decimal.Min(qty, shortMag)
	pnl := closeQty.Mul(p.AvgPxOpen.Decimal().Sub(lastPx.Decimal()))
	p.RealizedPnL = types.NewMoney(p.RealizedPnL.Amount().Add(pnl), p.Currency)

	p.SignedQty = p.SignedQty.Add(qty)
	if p.SignedQty.GreaterThan(decimal.Zero) {
		p.AvgPxOpen = lastPx // flipped to long
	}
}

func (p *Position) applySell(qty decimal.Decimal, lastPx types.Price) {
	if p.SignedQty.LessThanOrEqual(decimal.Zero) {
		// Flat or short: extend the weighted-average entry.
		total := p.SignedQty.Sub(qty)
		mag := total.Abs()
		if !mag.IsZero() {
			weighted := p.AvgPxOpen.Decimal().Mul(p.SignedQty.Abs()).Add(lastPx.Decimal().Mul(qty))
			p.AvgPxOpen = types.NewPrice(weighted.Div(mag), lastPx.Precision())
		}
		p.SignedQty = total
		return
	}

	// Long: closing (and possibly flipping).
	longMag := p.SignedQty
	closeQty := decimal.Min(qty, longMag)
	pnl := closeQty.Mul(lastPx.Decimal().Sub(p.AvgPxOpen.Decimal()))
	p.RealizedPnL = types.NewMoney(p.RealizedPnL.Amount().Add(pnl), p.Currency)

	p.SignedQty = p.SignedQty.Sub(qty)
	if p.SignedQty.LessThan(decimal.Zero) {
		p.AvgPxOpen = lastPx // flipped to short
	}
}

func (p *Position) recomputeSideAndQuantity() {
	switch {
	case p.SignedQty.IsPositive():
		p.Side = types.PositionLong
	case p.SignedQty.IsNegative():
		p.Side = types.PositionShort
	default:
		p.Side = types.PositionFlat
	}
	p.Quantity = types.MustQuantity(p.SignedQty.Abs(), p.Quantity.Precision())
}

func (p *Position) accrueCommission(commission types.Money) {
	if commission.IsZero() {
		return
	}
	code := commission.Currency().Code
	if existing, ok := p.Commissions[code]; ok {
		sum, _ := existing.Add(commission)
		p.Commissions[code] = sum
	} else {
		p.Commissions[code] = commission
	}
}

// UnrealizedPnL marks the open quantity to lastPrice per spec.md §4.3.
func (p *Position) UnrealizedPnL(lastPrice types.Price) types.Money {
	switch p.Side {
	case types.PositionLong:
		pnl := p.Quantity.Decimal().Mul(lastPrice.Decimal().Sub(p.AvgPxOpen.Decimal()))
		return types.NewMoney(pnl, p.Currency)
	case types.PositionShort:
		pnl := p.Quantity.Decimal().Mul(p.AvgPxOpen.Decimal().Sub(lastPrice.Decimal()))
		return types.NewMoney(pnl, p.Currency)
	default:
		return types.Zero(p.Currency)
	}
}

// TotalPnL sums realized P&L with unrealized P&L marked at lastPrice.
func (p *Position) TotalPnL(lastPrice types.Price) types.Money {
	sum, _ := p.RealizedPnL.Add(p.UnrealizedPnL(lastPrice))
	return sum
}

// NotionalValue returns |signed_qty| * lastPrice.
func (p *Position) NotionalValue(lastPrice types.Price) types.Money {
	return types.NewMoney(p.Quantity.Decimal().Mul(lastPrice.Decimal()), p.Currency)
}
