package types

import "fmt"

// BarSpecification describes the aggregation rule for a bar series:
// "step aggregation price_type", e.g. 1-MINUTE-LAST.
type BarSpecification struct {
	Step        int
	Aggregation BarAggregation
	PriceType   PriceType
}

func (s BarSpecification) String() string {
	return fmt.Sprintf("%d-%s-%s", s.Step, s.Aggregation, s.PriceType)
}

// BarType binds a BarSpecification to the instrument it describes.
type BarType struct {
	InstrumentID InstrumentID
	Spec         BarSpecification
}

func (t BarType) String() string {
	return fmt.Sprintf("%s-%s", t.InstrumentID, t.Spec)
}

// Bar is an OHLCV aggregation over one interval for one instrument.
type Bar struct {
	BarType  BarType
	Open     Price
	High     Price
	Low      Price
	Close    Price
	Volume   Quantity
	TsEvent  int64
	TsInit   int64
}

// QuoteTick is a top-of-book bid/ask observation.
type QuoteTick struct {
	InstrumentID InstrumentID
	BidPrice     Price
	AskPrice     Price
	BidSize      Quantity
	AskSize      Quantity
	TsEvent      int64
	TsInit       int64
}

// TradeTick is a single executed trade observation.
type TradeTick struct {
	InstrumentID InstrumentID
	Price        Price
	Size         Quantity
	Side         OrderSide
	TradeID      TradeID
	TsEvent      int64
	TsInit       int64
}

// MarketDataKind tags which variant a MarketData value carries.
type MarketDataKind string

const (
	MarketDataBar   MarketDataKind = "BAR"
	MarketDataQuote MarketDataKind = "QUOTE"
	MarketDataTrade MarketDataKind = "TRADE"
)

// MarketData is a closed variant over Bar | QuoteTick | TradeTick, ordered
// chronologically by TsEvent ahead of dispatch by the backtest driver.
type MarketData struct {
	Kind  MarketDataKind
	Bar   Bar
	Quote QuoteTick
	Trade TradeTick
}

// TsEvent returns the event timestamp regardless of variant, for sorting.
func (m MarketData) TsEvent() int64 {
	switch m.Kind {
	case MarketDataBar:
		return m.Bar.TsEvent
	case MarketDataQuote:
		return m.Quote.TsEvent
	case MarketDataTrade:
		return m.Trade.TsEvent
	default:
		return 0
	}
}

func NewBarData(bar Bar) MarketData   { return MarketData{Kind: MarketDataBar, Bar: bar} }
func NewQuoteData(q QuoteTick) MarketData { return MarketData{Kind: MarketDataQuote, Quote: q} }
func NewTradeData(t TradeTick) MarketData { return MarketData{Kind: MarketDataTrade, Trade: t} }
