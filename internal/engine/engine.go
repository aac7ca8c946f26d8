// Package engine wires the market feed, indicator state, event
// detection, the position book and the AI decision pipeline into one
// serialized update loop.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"btcdesk/internal/ai"
	"btcdesk/internal/candles"
	"btcdesk/internal/emadetect"
	"btcdesk/internal/gateway"
	"btcdesk/internal/indicators"
	"btcdesk/internal/positions"
	"btcdesk/internal/snapshot"
	"btcdesk/models"
)

// recentEventCap bounds the in-memory event history shown on the
// dashboard; the full history lives in Postgres.
const recentEventCap = 10

// Timeframes summarized for the decision prompt. The first one is the
// primary interval driving detection.
var snapshotIntervals = []string{"15m", "1h", "4h", "1d"}

// Notifier receives trade and liquidation alerts. Nil-safe wrapper
// methods guard every call site.
type Notifier interface {
	NotifyLiquidation(models.Position, models.Liquidation)
	NotifyTrade(models.Decision, models.Position)
	NotifyClose(models.Position)
}

// HistoryStore persists events, decisions and closed positions.
type HistoryStore interface {
	SaveEvent(models.EMAEvent) error
	SaveDecision(dec models.Decision, executed bool, rejectReason string) error
	SavePosition(models.Position) error
}

// Options carries the optional collaborators.
type Options struct {
	Executor models.OrderExecutor // live order routing, nil for paper
	Hub      *gateway.Hub
	History  HistoryStore
	Notifier Notifier
}

// Engine owns all mutable trading state. A single mutex serializes
// candle ingestion, indicator recomputation, detector feeding and
// mark-to-market, matching the single-writer model the math assumes.
type Engine struct {
	symbol  string
	source  models.CandleSource
	adapter *ai.Adapter
	gate    *ai.Gate
	book    *positions.Book
	builder *snapshot.Builder
	opts    Options
	logger  zerolog.Logger

	stores    map[string]*candles.Store
	detectors *emadetect.Set

	mu           sync.Mutex
	lastPrice    float64
	stats        models.TickerStats
	recentEvents []models.EMAEvent
	aiActive     bool
	aiInFlight   bool
	generation   int64
}

// New assembles an engine for one symbol.
func New(symbol string, source models.CandleSource, adapter *ai.Adapter, book *positions.Book, opts Options) *Engine {
	stores := make(map[string]*candles.Store, len(snapshotIntervals))
	for _, interval := range snapshotIntervals {
		stores[interval] = candles.NewStore(candles.DefaultMaxLen)
	}

	return &Engine{
		symbol:    symbol,
		source:    source,
		adapter:   adapter,
		gate:      ai.NewGate(adapter.Policy()),
		book:      book,
		builder:   snapshot.NewBuilder(symbol, snapshotIntervals, stores),
		opts:      opts,
		logger:    log.With().Str("component", "engine").Logger(),
		stores:    stores,
		detectors: emadetect.NewSet(),
	}
}

// PollCandles refreshes every timeframe's candle history and pushes
// the recomputed primary indicators to the dashboard.
func (e *Engine) PollCandles(ctx context.Context) {
	for _, interval := range snapshotIntervals {
		fetched, err := e.source.GetCandles(ctx, interval, candles.DefaultMaxLen)
		if err != nil {
			e.logger.Warn().Err(err).Str("interval", interval).Msg("Candle fetch failed")
			continue
		}
		e.stores[interval].Replace(fetched)

		if n := len(fetched); n > 0 {
			age := time.Since(time.UnixMilli(fetched[n-1].Timestamp))
			if age > 2*models.IntervalDuration(interval) {
				e.logger.Warn().Str("interval", interval).Dur("age", age).Msg("Candle feed is stale")
			}
		}
	}

	closes := indicators.Closes(e.primaryStore().All())
	if len(closes) == 0 {
		return
	}
	snap := indicators.Compute(closes)
	e.broadcast(gateway.TypeIndicators, snap)
}

// PollPrice processes one live price tick: mark-to-market with
// auto-liquidation, then EMA event detection. Runs on every tick for
// every open position.
func (e *Engine) PollPrice(ctx context.Context) {
	price, err := e.source.GetPrice(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Price fetch failed")
		return
	}
	stats, statsErr := e.source.GetTickerStats(ctx)

	e.mu.Lock()
	e.lastPrice = price
	if statsErr == nil {
		e.stats = stats
	} else {
		e.stats.LastPrice = price
	}

	openBefore := e.book.Positions()
	liqs := e.book.MarkToMarket(price)

	ema55, ema200 := e.currentEMAsLocked(price)
	var events []models.EMAEvent
	if ema55 > 0 && ema200 > 0 {
		events = e.detectors.Feed(price, ema55, ema200, time.Now())
	}
	e.mu.Unlock()

	gateway.PriceTicks.Inc()
	e.broadcast(gateway.TypePrice, e.statsSnapshot())

	for _, liq := range liqs {
		e.handleLiquidation(openBefore, liq)
	}
	if len(liqs) > 0 {
		e.broadcast(gateway.TypePositions, e.book.Positions())
	}

	for _, ev := range events {
		gateway.EventsDetected.WithLabelValues(string(ev.EMAKind), string(ev.Kind)).Inc()
		go e.enrichEvent(ctx, ev)
	}
}

// SetAIActive toggles AI trading. Deactivation bumps the generation
// counter so in-flight analysis results are discarded on arrival
// rather than aborted mid-request.
func (e *Engine) SetAIActive(active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.aiActive && !active {
		e.generation++
	}
	e.aiActive = active
	e.logger.Info().Bool("active", active).Msg("AI trading toggled")
}

// AIActive reports the toggle state.
func (e *Engine) AIActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aiActive
}

// AICycle launches one background analysis round. Price-tick
// processing is never blocked by the model call; the result is applied
// atomically under the engine mutex and discarded when stale.
func (e *Engine) AICycle(ctx context.Context) {
	e.mu.Lock()
	if !e.aiActive || e.aiInFlight {
		e.mu.Unlock()
		return
	}
	e.aiInFlight = true
	gen := e.generation
	e.mu.Unlock()

	snap := e.buildSnapshot()

	go func() {
		dec, err := e.adapter.Decide(ctx, snap)

		e.mu.Lock()
		e.aiInFlight = false
		stale := !e.aiActive || e.generation != gen
		e.mu.Unlock()

		if stale {
			e.logger.Info().Msg("Discarding stale AI decision")
			return
		}
		if err != nil {
			gateway.AIDecisions.WithLabelValues("error").Inc()
			e.logger.Error().Err(err).Msg("AI analysis failed")
			e.saveDecision(models.Decision{}, false, "external service unavailable")
			return
		}
		e.applyDecision(ctx, dec)
	}()
}

// RecentEvents returns the newest enriched events, newest first.
func (e *Engine) RecentEvents() []models.EMAEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.EMAEvent, len(e.recentEvents))
	copy(out, e.recentEvents)
	return out
}

// enrichEvent runs the slow LLM annotation outside the tick path and
// publishes the result. A failed enrichment still records the event.
func (e *Engine) enrichEvent(ctx context.Context, ev models.EMAEvent) {
	enriched := e.adapter.EnrichEvent(ctx, ev, e.buildSnapshot())

	e.mu.Lock()
	e.recentEvents = append([]models.EMAEvent{enriched}, e.recentEvents...)
	if len(e.recentEvents) > recentEventCap {
		e.recentEvents = e.recentEvents[:recentEventCap]
	}
	e.mu.Unlock()

	if e.opts.History != nil {
		if err := e.opts.History.SaveEvent(enriched); err != nil {
			e.logger.Warn().Err(err).Msg("Persisting event failed")
		}
	}
	e.broadcast(gateway.TypeEvent, enriched)

	if mark := ai.TradingMarkFrom(enriched); mark != nil {
		e.broadcast(gateway.TypeMark, mark)
	}
}

func (e *Engine) handleLiquidation(openBefore []models.Position, liq models.Liquidation) {
	gateway.Liquidations.Inc()
	e.broadcast(gateway.TypeLiquidation, liq)

	var target models.Position
	for _, p := range openBefore {
		if p.ID == liq.PositionID {
			target = p
			break
		}
	}
	target.Status = models.StatusLiquidated
	target.PnL = liq.Loss

	if e.opts.History != nil {
		if err := e.opts.History.SavePosition(target); err != nil {
			e.logger.Warn().Err(err).Msg("Persisting liquidation failed")
		}
	}
	if e.opts.Notifier != nil {
		e.opts.Notifier.NotifyLiquidation(target, liq)
	}
}

// currentEMAsLocked computes the latest EMA55/EMA200 over the primary
// closes with the live price substituted for the in-progress close.
func (e *Engine) currentEMAsLocked(price float64) (float64, float64) {
	closes := indicators.Closes(e.primaryStore().All())
	if len(closes) == 0 {
		return 0, 0
	}
	closes[len(closes)-1] = price
	return indicators.Last(indicators.EMA(closes, 55)), indicators.Last(indicators.EMA(closes, 200))
}

func (e *Engine) buildSnapshot() models.MarketSnapshot {
	e.mu.Lock()
	price := e.lastPrice
	stats := e.stats
	e.mu.Unlock()

	policy := e.adapter.Policy()
	return e.builder.Build(price, stats, snapshot.AccountState{
		Positions: e.book.AIPositions(),
		Balance:   e.book.Balance(),
		MinAmount: policy.MinAmount,
		MaxAmount: policy.MaxAmount,
	})
}

func (e *Engine) statsSnapshot() models.TickerStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Engine) primaryStore() *candles.Store {
	return e.stores[snapshotIntervals[0]]
}

func (e *Engine) broadcast(msgType string, data interface{}) {
	if e.opts.Hub != nil {
		e.opts.Hub.Broadcast(msgType, data)
	}
}

func (e *Engine) saveDecision(dec models.Decision, executed bool, rejectReason string) {
	if e.opts.History == nil {
		return
	}
	if err := e.opts.History.SaveDecision(dec, executed, rejectReason); err != nil {
		e.logger.Warn().Err(err).Msg("Persisting decision failed")
	}
}
