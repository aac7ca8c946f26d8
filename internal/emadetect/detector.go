// Package emadetect turns successive price/EMA samples into discrete
// touch and cross events with a per-EMA cooldown.
package emadetect

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"btcdesk/models"
)

const (
	// Tolerance is the relative distance below which the price is
	// considered touching the EMA line (0.2%).
	Tolerance = 0.002
	// Cooldown suppresses further events of the same EMA kind after
	// one fires.
	Cooldown = 5 * time.Minute
)

// Sample is one observation of the price against an EMA value.
type Sample struct {
	Price     float64
	EMA       float64
	Timestamp time.Time
}

// Detector is the per-EMA-kind state machine. Not safe for concurrent
// use; the engine feeds it from a single goroutine.
type Detector struct {
	kind      models.EMAKind
	prev      *Sample
	lastFired time.Time
	fired     bool
	logger    zerolog.Logger
}

// New creates a detector for one EMA kind.
func New(kind models.EMAKind) *Detector {
	return &Detector{
		kind:   kind,
		logger: log.With().Str("component", "ema_detector").Str("ema", string(kind)).Logger(),
	}
}

// Feed advances the state machine with a new sample and returns an
// event if one fired. The touch check runs first; when it fires the
// cross check for that sample is skipped. A sample inside the cooldown
// window of the previous event produces nothing.
func (d *Detector) Feed(s Sample) *models.EMAEvent {
	if s.Price <= 0 || s.EMA <= 0 {
		d.logger.Warn().Float64("price", s.Price).Float64("ema", s.EMA).Msg("Dropping degenerate sample")
		return nil
	}

	prev := d.prev
	d.prev = &s
	if prev == nil {
		return nil
	}

	kind, ok := d.classify(*prev, s)
	if !ok {
		return nil
	}
	if d.fired && s.Timestamp.Sub(d.lastFired) < Cooldown {
		d.logger.Debug().Str("kind", string(kind)).Msg("Event suppressed by cooldown")
		return nil
	}

	d.fired = true
	d.lastFired = s.Timestamp

	ev := &models.EMAEvent{
		ID:        uuid.New().String(),
		EMAKind:   d.kind,
		Kind:      kind,
		Price:     s.Price,
		EMAValue:  s.EMA,
		Timestamp: s.Timestamp,
	}
	d.logger.Info().
		Str("kind", string(kind)).
		Float64("price", s.Price).
		Float64("ema", s.EMA).
		Msg("EMA event detected")
	return ev
}

func (d *Detector) classify(prev, cur Sample) (models.EventKind, bool) {
	curDist := abs(cur.Price-cur.EMA) / cur.EMA
	prevDist := abs(prev.Price-prev.EMA) / prev.EMA

	if curDist <= Tolerance && prevDist > Tolerance {
		if prev.Price > prev.EMA {
			return models.TouchFromAbove, true
		}
		return models.TouchFromBelow, true
	}

	prevAbove := prev.Price > prev.EMA
	curAbove := cur.Price > cur.EMA
	if prevAbove != curAbove {
		if curAbove {
			return models.CrossAbove, true
		}
		return models.CrossBelow, true
	}
	return "", false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Set runs one detector per tracked EMA kind (55 and 200).
type Set struct {
	ema55  *Detector
	ema200 *Detector
}

// NewSet creates the standard detector pair.
func NewSet() *Set {
	return &Set{
		ema55:  New(models.EMA55Kind),
		ema200: New(models.EMA200Kind),
	}
}

// Feed passes the latest price and EMA values to both detectors and
// collects whatever events fired.
func (s *Set) Feed(price, ema55, ema200 float64, ts time.Time) []models.EMAEvent {
	var events []models.EMAEvent
	if ev := s.ema55.Feed(Sample{Price: price, EMA: ema55, Timestamp: ts}); ev != nil {
		events = append(events, *ev)
	}
	if ev := s.ema200.Feed(Sample{Price: price, EMA: ema200, Timestamp: ts}); ev != nil {
		events = append(events, *ev)
	}
	return events
}
