package ai

import (
	"fmt"

	"btcdesk/models"
)

// normalize applies the platform policy to a raw model decision. It
// runs even when the model already satisfies the rules: the model is
// never trusted to clamp itself.
func normalize(raw rawDecision, snap models.MarketSnapshot, policy models.Policy) models.Decision {
	dec := models.Decision{
		Confidence: int(raw.Confidence),
		Amount:     raw.Amount,
		Leverage:   raw.Leverage,
		Reasoning:  raw.Reasoning,
		CloseID:    raw.CloseID,
	}

	switch raw.Action {
	case "long", "buy":
		dec.Action = "long"
	case "short", "sell":
		dec.Action = "short"
	case "close":
		dec.Action = "close"
	default:
		// hold/neutral is overridden deterministically by EMA
		// alignment, and the override is disclosed in the reasoning
		dec.Action = alignmentAction(snap)
		dec.Reasoning = fmt.Sprintf("%s [hold overridden to %s by EMA10/EMA55 alignment]",
			raw.Reasoning, dec.Action)
	}

	if dec.Confidence < policy.MinConfidence {
		dec.Confidence = policy.MinConfidence
	}
	if dec.Confidence > 100 {
		dec.Confidence = 100
	}

	if dec.Action != "close" {
		if dec.Amount < policy.MinAmount {
			dec.Amount = policy.MinAmount
		}
		if dec.Amount > policy.MaxAmount {
			dec.Amount = policy.MaxAmount
		}
		if dec.Leverage < policy.MinLeverage {
			dec.Leverage = policy.MinLeverage
		}
		if dec.Leverage > policy.MaxLeverage {
			dec.Leverage = policy.MaxLeverage
		}
	}

	return dec
}

// alignmentAction derives a deterministic direction from the primary
// timeframe's EMA alignment.
func alignmentAction(snap models.MarketSnapshot) string {
	if len(snap.Timeframes) > 0 {
		tf := snap.Timeframes[0]
		if tf.EMA10 < tf.EMA55 {
			return "short"
		}
		return "long"
	}
	return "long"
}

// fallbackDecision is the conservative rule-based decision used when
// the recommendation service fails and the policy defines a fallback.
func fallbackDecision(snap models.MarketSnapshot, policy models.Policy) models.Decision {
	action := alignmentAction(snap)
	return models.Decision{
		Action:     action,
		Confidence: policy.MinConfidence,
		Amount:     policy.MinAmount,
		Leverage:   policy.MinLeverage,
		Reasoning: fmt.Sprintf("recommendation service unavailable; conservative %s from EMA10/EMA55 alignment",
			action),
	}
}

// eventRecommendation normalizes an enrichment response without
// forcing a direction: a hold stays NEUTRAL for signal annotation.
func eventRecommendation(raw rawDecision) (string, int) {
	confidence := int(raw.Confidence)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	switch raw.Action {
	case "long", "buy":
		return models.RecommendLong, confidence
	case "short", "sell":
		return models.RecommendShort, confidence
	}
	return models.RecommendNeutral, confidence
}
