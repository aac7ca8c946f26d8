package models

import (
	"math"
	"time"
)

// Candle represents a single OHLCV price candle. Timestamp is in
// milliseconds since epoch, matching the exchange kline format.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Valid reports whether the candle satisfies the OHLC invariant and
// contains only finite, positive prices and non-negative volume.
func (c Candle) Valid() bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 || c.Volume < 0 {
		return false
	}
	lo := math.Min(c.Open, c.Close)
	hi := math.Max(c.Open, c.Close)
	return c.Low <= lo && hi <= c.High
}

// TickerStats holds 24h rolling statistics for the traded symbol.
type TickerStats struct {
	LastPrice     float64 `json:"last_price"`
	ChangePercent float64 `json:"change_percent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        float64 `json:"volume"`
}

// MACDResult bundles the MACD line, its signal line and the histogram.
// The three slices are trimmed to a common length.
type MACDResult struct {
	MACD      []float64 `json:"macd"`
	Signal    []float64 `json:"signal"`
	Histogram []float64 `json:"histogram"`
}

// IndicatorSnapshot holds every indicator series computed from one
// candle window. Each slice is aligned to the tail of the series and
// may be shorter than the candle count. No element is ever NaN or Inf.
type IndicatorSnapshot struct {
	EMA10  []float64  `json:"ema10"`
	EMA55  []float64  `json:"ema55"`
	EMA200 []float64  `json:"ema200"`
	EMA365 []float64  `json:"ema365"`
	RSI    []float64  `json:"rsi"`
	MACD   MACDResult `json:"macd"`
}

// EMAKind identifies which moving average an event refers to.
type EMAKind string

const (
	EMA55Kind  EMAKind = "ema55"
	EMA200Kind EMAKind = "ema200"
)

// EventKind classifies a price/EMA interaction.
type EventKind string

const (
	TouchFromAbove EventKind = "touch_from_above"
	TouchFromBelow EventKind = "touch_from_below"
	CrossAbove     EventKind = "cross_above"
	CrossBelow     EventKind = "cross_below"
)

// Recommendation values attached to enriched events and AI decisions.
const (
	RecommendLong    = "LONG"
	RecommendShort   = "SHORT"
	RecommendNeutral = "NEUTRAL"
)

// EMAEvent is a detected touch or cross of the price against an EMA
// line. Immutable once created; enrichment fields are filled in by the
// decision adapter before the event is published.
type EMAEvent struct {
	ID             string    `json:"id"`
	EMAKind        EMAKind   `json:"ema_kind"`
	Kind           EventKind `json:"kind"`
	Price          float64   `json:"price"`
	EMAValue       float64   `json:"ema_value"`
	Timestamp      time.Time `json:"timestamp"`
	Analysis       string    `json:"analysis,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
	Confidence     int       `json:"confidence,omitempty"`
	EnrichFailed   bool      `json:"enrich_failed,omitempty"`
}

// TradingMark is a chart annotation produced from a high-confidence
// enriched event.
type TradingMark struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"` // LONG or SHORT
	Price     float64   `json:"price"`
}

// Side is the direction of a position.
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// PositionStatus tracks the position lifecycle.
type PositionStatus string

const (
	StatusOpen       PositionStatus = "open"
	StatusClosed     PositionStatus = "closed"
	StatusLiquidated PositionStatus = "liquidated"
)

// Position is a simulated leveraged position. Amount is the notional
// size in USDT; posted margin is Amount/Leverage. PnL and
// LiquidationPrice are derived fields recomputed by the risk engine.
type Position struct {
	ID               string         `json:"id"`
	Side             Side           `json:"side"`
	Amount           float64        `json:"amount"`
	EntryPrice       float64        `json:"entry_price"`
	Leverage         float64        `json:"leverage"`
	OpenedAt         time.Time      `json:"opened_at"`
	AIManaged        bool           `json:"ai_managed"`
	AIReasoning      string         `json:"ai_reasoning,omitempty"`
	Confidence       int            `json:"confidence,omitempty"`
	Status           PositionStatus `json:"status"`
	PnL              float64        `json:"pnl"`
	LiquidationPrice float64        `json:"liquidation_price"`
}

// Margin returns the collateral posted for the position.
func (p Position) Margin() float64 {
	if p.Leverage <= 0 {
		return 0
	}
	return p.Amount / p.Leverage
}

// Liquidation reports a forced position closure. Loss equals the
// forfeited margin, as a negative number.
type Liquidation struct {
	PositionID string  `json:"position_id"`
	Price      float64 `json:"price"`
	Loss       float64 `json:"loss"`
}

// TimeframeSummary condenses one timeframe's indicator state for the
// decision prompt.
type TimeframeSummary struct {
	Interval      string  `json:"interval"`
	Close         float64 `json:"close"`
	EMA10         float64 `json:"ema10"`
	EMA55         float64 `json:"ema55"`
	RSI           float64 `json:"rsi"`
	MACDHistogram float64 `json:"macd_histogram"`
	ATR           float64 `json:"atr"`
	BandWidth     float64 `json:"band_width"`
	Trend         string  `json:"trend"`
}

// MarketSnapshot is the read-only projection of market and account
// state handed to the decision adapter. Never persisted.
type MarketSnapshot struct {
	Symbol     string             `json:"symbol"`
	Price      float64            `json:"price"`
	Stats      TickerStats        `json:"stats"`
	Timeframes []TimeframeSummary `json:"timeframes"`
	Positions  []Position         `json:"positions"`
	Balance    float64            `json:"balance"`
	RiskTier   string             `json:"risk_tier"`
	MinAmount  float64            `json:"min_amount"`
	MaxAmount  float64            `json:"max_amount"`
	Taken      time.Time          `json:"taken"`
}

// Decision is the normalized output of the recommendation service.
// Action is always long or short after normalization; CloseID is set
// when the model asked to close an existing position instead.
type Decision struct {
	Action     string  `json:"action"`
	Confidence int     `json:"confidence"`
	Amount     float64 `json:"amount"`
	Leverage   float64 `json:"leverage"`
	Reasoning  string  `json:"reasoning"`
	CloseID    string  `json:"close_id,omitempty"`
}

// OrderRequest carries the parameters for a real exchange order. The
// engine decides the parameters, the exchange client performs the call.
type OrderRequest struct {
	Symbol        string  `json:"symbol"`
	Side          Side    `json:"side"`
	Quantity      float64 `json:"quantity"`
	Leverage      float64 `json:"leverage"`
	ClientOrderID string  `json:"client_order_id"`
}
