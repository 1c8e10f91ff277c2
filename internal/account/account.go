// Package account implements the account entity: per-currency balances,
// commission accrual, and AccountState event emission on every mutation.
package account

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/duskquant/backtrace/pkg/types"
)

// Account holds balances across one or more currencies for a venue. The
// CashAccount/MarginAccount distinction from the reference model is folded
// into a single struct with an AccountType tag and an optional Leverage,
// which is more idiomatic Go than parallel subtypes and preserves the
// original's observable behavior (Leverage is meaningful only for MARGIN).
type Account struct {
	ID          types.AccountID
	Type        types.AccountType
	Leverage    decimal.Decimal // zero value unused for AccountTypeCash
	balances    map[string]types.AccountBalance
	commissions map[string]types.Money
	Events      []types.Event
}

// New creates an account seeded with starting balances.
func New(id types.AccountID, accountType types.AccountType, leverage decimal.Decimal, starting ...types.Money) *Account {
	a := &Account{
		ID:          id,
		Type:        accountType,
		Leverage:    leverage,
		balances:    make(map[string]types.AccountBalance),
		commissions: make(map[string]types.Money),
	}
	for _, m := range starting {
		bal, _ := types.NewAccountBalance(m, types.Zero(m.Currency()), m)
		a.balances[m.Currency().Code] = bal
	}
	return a
}

// Balance returns the current balance for a currency and whether it exists.
func (a *Account) Balance(currency types.Currency) (types.AccountBalance, bool) {
	b, ok := a.balances[currency.Code]
	return b, ok
}

// Balances returns a snapshot of every tracked currency balance, used for
// AccountState events and reporting.
func (a *Account) Balances() []types.AccountBalance {
	out := make([]types.AccountBalance, 0, len(a.balances))
	for _, b := range a.balances {
		out = append(out, b)
	}
	return out
}

// AdjustFree debits (negative delta) or credits (positive delta) the free
// and total balance of a currency, creating the balance if absent.
func (a *Account) AdjustFree(delta types.Money, ts int64) error {
	code := delta.Currency().Code
	existing, ok := a.balances[code]
	if !ok {
		existing, _ = types.NewAccountBalance(types.Zero(delta.Currency()), types.Zero(delta.Currency()), types.Zero(delta.Currency()))
	}
	newTotal, err := existing.Total.Add(delta)
	if err != nil {
		return fmt.Errorf("adjust free balance: %w", err)
	}
	newFree, err := existing.Free.Add(delta)
	if err != nil {
		return fmt.Errorf("adjust free balance: %w", err)
	}
	bal, err := types.NewAccountBalance(newTotal, existing.Locked, newFree)
	if err != nil {
		return err
	}
	a.balances[code] = bal
	a.record(ts)
	return nil
}

// AccrueCommission records a commission charge against the per-currency
// cumulative total. It does not itself move balances — callers apply the
// commission as part of the same notional adjustment (see exchange.go).
func (a *Account) AccrueCommission(commission types.Money) {
	code := commission.Currency().Code
	if existing, ok := a.commissions[code]; ok {
		sum, _ := existing.Add(commission)
		a.commissions[code] = sum
	} else {
		a.commissions[code] = commission
	}
}

// Commissions returns accrued commission per currency.
func (a *Account) Commissions() map[string]types.Money {
	out := make(map[string]types.Money, len(a.commissions))
	for k, v := range a.commissions {
		out[k] = v
	}
	return out
}

func (a *Account) record(ts int64) {
	a.Events = append(a.Events, types.NewAccountState(a.ID, a.Balances(), true, ts))
}
