// Package portfolio provides a read-only aggregation view over the cache:
// net position, exposure, and P&L queries used by strategies and the risk
// engine.
package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/duskquant/backtrace/internal/account"
	"github.com/duskquant/backtrace/internal/cache"
	"github.com/duskquant/backtrace/pkg/types"
)

// Portfolio is kept as a distinct collaborator (rather than folded into
// Cache) because the risk engine's REDUCING-state check depends only on
// net position, not on the cache's full indexing surface.
type Portfolio struct {
	cache *cache.Cache
}

func New(c *cache.Cache) *Portfolio {
	return &Portfolio{cache: c}
}

// NetPosition returns the signed net quantity for an instrument across all
// open positions (netting venues hold at most one open position per instrument).
func (p *Portfolio) NetPosition(id types.InstrumentID) decimal.Decimal {
	net := decimal.Zero
	for _, pos := range p.cache.PositionsForInstrument(id) {
		if pos.IsClosed() {
			continue
		}
		net = net.Add(pos.SignedQty)
	}
	return net
}

func (p *Portfolio) IsNetLong(id types.InstrumentID) bool  { return p.NetPosition(id).IsPositive() }
func (p *Portfolio) IsNetShort(id types.InstrumentID) bool { return p.NetPosition(id).IsNegative() }
func (p *Portfolio) IsNetFlat(id types.InstrumentID) bool  { return p.NetPosition(id).IsZero() }

// UnrealizedPnL sums unrealized P&L across open positions for an instrument
// at lastPrice.
func (p *Portfolio) UnrealizedPnL(id types.InstrumentID, lastPrice types.Price, currency types.Currency) types.Money {
	sum := types.Zero(currency)
	for _, pos := range p.cache.PositionsForInstrument(id) {
		if pos.IsClosed() {
			continue
		}
		if added, err := sum.Add(pos.UnrealizedPnL(lastPrice)); err == nil {
			sum = added
		}
	}
	return sum
}

// RealizedPnL sums realized P&L across every position ever held for an instrument.
func (p *Portfolio) RealizedPnL(id types.InstrumentID, currency types.Currency) types.Money {
	sum := types.Zero(currency)
	for _, pos := range p.cache.PositionsForInstrument(id) {
		if added, err := sum.Add(pos.RealizedPnL); err == nil {
			sum = added
		}
	}
	return sum
}

// NetExposure returns |net position| * lastPrice, denominated in currency.
func (p *Portfolio) NetExposure(id types.InstrumentID, lastPrice types.Price, currency types.Currency) types.Money {
	net := p.NetPosition(id).Abs()
	return types.NewMoney(net.Mul(lastPrice.Decimal()), currency)
}

// BalanceTotal returns the account's total balance in currency, zero if untracked.
func (p *Portfolio) BalanceTotal(acc *account.Account, currency types.Currency) types.Money {
	if b, ok := acc.Balance(currency); ok {
		return b.Total
	}
	return types.Zero(currency)
}

// BalanceFree returns the account's free balance in currency, zero if untracked.
func (p *Portfolio) BalanceFree(acc *account.Account, currency types.Currency) types.Money {
	if b, ok := acc.Balance(currency); ok {
		return b.Free
	}
	return types.Zero(currency)
}

// BalanceLocked returns the account's locked balance in currency, zero if untracked.
func (p *Portfolio) BalanceLocked(acc *account.Account, currency types.Currency) types.Money {
	if b, ok := acc.Balance(currency); ok {
		return b.Locked
	}
	return types.Zero(currency)
}
