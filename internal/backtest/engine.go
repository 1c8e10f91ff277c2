// Package backtest is the central orchestrator: it wires cache, message bus,
// risk/execution engines, and one simulated exchange per venue, then drives
// a chronologically sorted data stream through the event loop of spec §4.9.
package backtest

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/duskquant/backtrace/internal/account"
	"github.com/duskquant/backtrace/internal/cache"
	"github.com/duskquant/backtrace/internal/clock"
	"github.com/duskquant/backtrace/internal/data"
	"github.com/duskquant/backtrace/internal/exchange"
	"github.com/duskquant/backtrace/internal/execution"
	"github.com/duskquant/backtrace/internal/instrument"
	"github.com/duskquant/backtrace/internal/msgbus"
	"github.com/duskquant/backtrace/internal/orders"
	"github.com/duskquant/backtrace/internal/portfolio"
	"github.com/duskquant/backtrace/internal/risk"
	"github.com/duskquant/backtrace/internal/strategy"
	"github.com/duskquant/backtrace/pkg/types"
)

// ErrNoResult is returned by GetResult before Run has completed.
var ErrNoResult = errors.New("backtest: no result available, call Run first")

// Engine owns every collaborator's lifetime for one backtest run: cache,
// bus, clock, risk/execution/data engines, one exchange per registered
// venue, and the strategies driven against them.
type Engine struct {
	Cache     *cache.Cache
	Portfolio *portfolio.Portfolio
	Bus       *msgbus.Bus
	Clock     *clock.TestClock
	Risk      *risk.Engine
	Exec      *execution.Engine
	Data      *data.Engine
	log       *slog.Logger

	venues   map[types.Venue]*exchange.Exchange
	accounts map[types.Venue]*account.Account

	strategies []strategy.Handlers
	dataset    []types.MarketData

	// AnnualizationFactor scales the Sharpe ratio; 252 (trading days) is
	// appropriate only for daily bars and is exposed rather than hardcoded
	// per spec.md §9's open question.
	AnnualizationFactor float64

	// BaseCurrency is the currency the balance curve is recorded in; an
	// account with no balance in this currency contributes zero.
	BaseCurrency types.Currency

	result *Result
}

// New wires a fresh set of collaborators for one backtest run.
func New(baseCurrency types.Currency, logger *slog.Logger) *Engine {
	c := cache.New()
	p := portfolio.New(c)
	bus := msgbus.New()
	clk := clock.NewTestClock()
	r := risk.New(c, p, logger)
	exec := execution.New(c, r, bus, logger)
	de := data.New(bus, logger)

	return &Engine{
		Cache:               c,
		Portfolio:           p,
		Bus:                 bus,
		Clock:               clk,
		Risk:                r,
		Exec:                exec,
		Data:                de,
		log:                 logger.With("component", "backtest"),
		venues:              make(map[types.Venue]*exchange.Exchange),
		accounts:            make(map[types.Venue]*account.Account),
		AnnualizationFactor: 252,
		BaseCurrency:        baseCurrency,
	}
}

// AddVenue creates a simulated exchange bound to venue and an account with
// id "{venue}-001" seeded with starting balances (spec.md §6).
func (e *Engine) AddVenue(venue types.Venue, oms types.OMSType, accountType types.AccountType, leverage decimal.Decimal, starting ...types.Money) types.AccountID {
	accountID := types.AccountID(fmt.Sprintf("%s-001", venue))
	acc := account.New(accountID, accountType, leverage, starting...)
	e.Cache.AddAccount(acc)
	e.accounts[venue] = acc

	var x *exchange.Exchange
	x = exchange.New(venue, oms, acc, e.Cache, e.log, func(o *orders.Order, ev types.Event) {
		if err := e.Exec.ProcessEvent(o, ev, x.OMSType()); err != nil {
			e.log.Error("failed to process venue event", "error", err)
		}
	})
	e.venues[venue] = x
	e.Exec.RegisterVenue(venue, x)
	return accountID
}

// AddInstrument registers a tradable instrument for risk/matching lookups.
func (e *Engine) AddInstrument(inst instrument.Instrument) {
	e.Cache.AddInstrument(inst)
}

// AddData appends market data to the run's input stream. Order across calls
// does not matter; Run stable-sorts the full set by ts_event.
func (e *Engine) AddData(md ...types.MarketData) {
	e.dataset = append(e.dataset, md...)
}

// AddStrategy registers a strategy's lifecycle/event handlers to be driven
// by the run. Strategies must already be Register()ed against e.Bus by
// their own constructor.
func (e *Engine) AddStrategy(h strategy.Handlers) {
	e.strategies = append(e.strategies, h)
}

// Run executes the event loop of spec.md §4.9 over the accumulated data set,
// optionally bounded to [start, end]. A run with no registered strategies is
// allowed and returns a zeroed report.
func (e *Engine) Run(start, end *int64) (*Result, error) {
	data := e.filteredSortedData(start, end)

	for _, s := range e.strategies {
		s.OnStart()
	}

	var curve []BalancePoint
	for _, md := range data {
		e.Clock.AdvanceTime(md.TsEvent())

		switch md.Kind {
		case types.MarketDataBar:
			venue := md.Bar.BarType.InstrumentID.Venue
			if x, ok := e.venues[venue]; ok {
				x.ProcessBar(md.Bar)
			}
			e.Data.ProcessBar(md.Bar)
			curve = append(curve, BalancePoint{TsEvent: md.Bar.TsEvent, Balance: e.totalBaseBalance()})
		case types.MarketDataQuote:
			e.Data.ProcessQuote(md.Quote)
		case types.MarketDataTrade:
			e.Data.ProcessTrade(md.Trade)
		}
	}

	for _, s := range e.strategies {
		s.OnStop()
	}

	result := Aggregate(e.Cache, curve, e.AnnualizationFactor)
	e.result = result
	return result, nil
}

func (e *Engine) filteredSortedData(start, end *int64) []types.MarketData {
	out := make([]types.MarketData, 0, len(e.dataset))
	for _, md := range e.dataset {
		ts := md.TsEvent()
		if start != nil && ts < *start {
			continue
		}
		if end != nil && ts > *end {
			continue
		}
		out = append(out, md)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TsEvent() < out[j].TsEvent() })
	return out
}

func (e *Engine) totalBaseBalance() decimal.Decimal {
	total := decimal.Zero
	for _, acc := range e.accounts {
		if b, ok := acc.Balance(e.BaseCurrency); ok {
			total = total.Add(b.Total.Amount())
		}
	}
	return total
}

// GetResult returns the last completed run's report.
func (e *Engine) GetResult() (*Result, error) {
	if e.result == nil {
		return nil, ErrNoResult
	}
	return e.result, nil
}

// Reset discards accumulated data and the last result, keeping registered
// venues/instruments/strategies for a fresh run over new data.
func (e *Engine) Reset() {
	e.dataset = nil
	e.result = nil
}

// Dispose releases the engine's collaborators. The in-memory core holds no
// external resources, so this is a no-op kept for interface symmetry with a
// future adapter that persists state on disposal.
func (e *Engine) Dispose() {}
