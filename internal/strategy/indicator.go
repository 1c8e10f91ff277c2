package strategy

import "github.com/duskquant/backtrace/pkg/types"

// ExponentialMovingAverage is a bar-driven EMA recurrence, fed via
// RegisterIndicatorForBars ahead of a strategy's own OnBar.
type ExponentialMovingAverage struct {
	Period      int
	Value       float64
	Initialized bool

	multiplier float64
	count      int
}

func NewExponentialMovingAverage(period int) *ExponentialMovingAverage {
	return &ExponentialMovingAverage{
		Period:     period,
		multiplier: 2.0 / (float64(period) + 1.0),
	}
}

// HandleBar folds one bar's close into the recurrence.
func (e *ExponentialMovingAverage) HandleBar(bar types.Bar) {
	e.count++
	price, _ := bar.Close.Decimal().Float64()
	if e.count == 1 {
		e.Value = price
	} else {
		e.Value = (price-e.Value)*e.multiplier + e.Value
	}
	if e.count >= e.Period {
		e.Initialized = true
	}
}

// Reset clears accumulated state.
func (e *ExponentialMovingAverage) Reset() {
	e.Value = 0
	e.count = 0
	e.Initialized = false
}
