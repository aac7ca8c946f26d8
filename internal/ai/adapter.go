// Package ai translates market state into trade recommendations and
// enforces platform policy on whatever the model returns.
package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"btcdesk/models"
)

// markConfidenceThreshold promotes an enriched event to a chart
// trading mark.
const markConfidenceThreshold = 70

// Completer produces raw model output for a prompt. Implemented by
// Client; tests substitute a stub.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Adapter is the decision pipeline: prompt assembly, defensive
// decoding, policy normalization.
type Adapter struct {
	completer Completer
	policy    models.Policy
	logger    zerolog.Logger
}

// NewAdapter creates an adapter bound to one policy preset.
func NewAdapter(completer Completer, policy models.Policy) *Adapter {
	return &Adapter{
		completer: completer,
		policy:    policy,
		logger:    log.With().Str("component", "decision_adapter").Logger(),
	}
}

// Policy returns the adapter's policy preset.
func (a *Adapter) Policy() models.Policy {
	return a.policy
}

// Decide asks the model for a trade decision and normalizes the
// response. On service failure the paper policy falls back to a
// deterministic conservative decision; other variants surface the
// error and no trade happens.
func (a *Adapter) Decide(ctx context.Context, snap models.MarketSnapshot) (models.Decision, error) {
	content, err := a.completer.Complete(ctx, BuildPrompt(snap))
	if err == nil {
		raw, decErr := decodeDecision(content)
		if decErr == nil {
			dec := normalize(raw, snap, a.policy)
			a.logger.Info().
				Str("action", dec.Action).
				Int("confidence", dec.Confidence).
				Float64("amount", dec.Amount).
				Float64("leverage", dec.Leverage).
				Msg("Decision normalized")
			return dec, nil
		}
		a.logger.Error().Err(decErr).Msg("Malformed model response")
		err = fmt.Errorf("%w: %v", ErrServiceUnavailable, decErr)
	}

	if a.policy.FallbackOnError {
		dec := fallbackDecision(snap, a.policy)
		a.logger.Warn().Err(err).Str("action", dec.Action).Msg("Using fallback decision")
		return dec, nil
	}
	return models.Decision{}, err
}

// EnrichEvent fills the analysis fields of a detected EMA event. A
// failed enrichment keeps the event with a NEUTRAL recommendation and
// an error marker instead of discarding it.
func (a *Adapter) EnrichEvent(ctx context.Context, ev models.EMAEvent, snap models.MarketSnapshot) models.EMAEvent {
	content, err := a.completer.Complete(ctx, BuildEventPrompt(ev, snap))
	if err == nil {
		if raw, decErr := decodeDecision(content); decErr == nil {
			rec, confidence := eventRecommendation(raw)
			ev.Analysis = raw.Reasoning
			ev.Recommendation = rec
			ev.Confidence = confidence
			return ev
		}
		err = fmt.Errorf("malformed enrichment response")
	}

	a.logger.Warn().Err(err).Str("event", string(ev.Kind)).Msg("Event enrichment failed")
	ev.Analysis = "analysis unavailable"
	ev.Recommendation = models.RecommendNeutral
	ev.Confidence = 0
	ev.EnrichFailed = true
	return ev
}

// TradingMarkFrom promotes a high-confidence enriched event to a
// chart mark, or returns nil.
func TradingMarkFrom(ev models.EMAEvent) *models.TradingMark {
	if ev.Recommendation != models.RecommendLong && ev.Recommendation != models.RecommendShort {
		return nil
	}
	if ev.Confidence <= markConfidenceThreshold {
		return nil
	}
	return &models.TradingMark{
		ID:        ev.ID,
		Timestamp: ev.Timestamp,
		Type:      ev.Recommendation,
		Price:     ev.Price,
	}
}
