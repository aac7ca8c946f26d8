package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"btcdesk/models"
)

type stubCompleter struct {
	content string
	err     error
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return s.content, s.err
}

func bullishSnapshot() models.MarketSnapshot {
	return models.MarketSnapshot{
		Symbol: "BTCUSDT",
		Price:  50000,
		Timeframes: []models.TimeframeSummary{
			{Interval: "15m", EMA10: 50200, EMA55: 50000, Trend: "bullish"},
		},
		Balance:   1000,
		MinAmount: 10,
		MaxAmount: 100,
	}
}

func TestNormalizeOverridesHold(t *testing.T) {
	tests := []struct {
		name       string
		ema10      float64
		ema55      float64
		wantAction string
	}{
		{name: "Bullish alignment", ema10: 50200, ema55: 50000, wantAction: "long"},
		{name: "Bearish alignment", ema10: 49800, ema55: 50000, wantAction: "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := bullishSnapshot()
			snap.Timeframes[0].EMA10 = tt.ema10
			snap.Timeframes[0].EMA55 = tt.ema55

			dec := normalize(rawDecision{Action: "hold", Confidence: 80, Reasoning: "wait"},
				snap, models.PaperPolicy(100))

			if dec.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q", dec.Action, tt.wantAction)
			}
			if dec.Action == "hold" || dec.Action == "neutral" {
				t.Errorf("hold survived normalization")
			}
			if !strings.Contains(dec.Reasoning, "overridden") {
				t.Errorf("Reasoning = %q, want override disclosure", dec.Reasoning)
			}
		})
	}
}

func TestNormalizeClamps(t *testing.T) {
	policy := models.LivePolicy(100)
	dec := normalize(rawDecision{
		Action:     "long",
		Confidence: 40,
		Amount:     5000,
		Leverage:   500,
	}, bullishSnapshot(), policy)

	if dec.Confidence != policy.MinConfidence {
		t.Errorf("Confidence = %d, want floored to %d", dec.Confidence, policy.MinConfidence)
	}
	if dec.Amount != policy.MaxAmount {
		t.Errorf("Amount = %v, want clamped to %v", dec.Amount, policy.MaxAmount)
	}
	if dec.Leverage != policy.MaxLeverage {
		t.Errorf("Leverage = %v, want clamped to %v", dec.Leverage, policy.MaxLeverage)
	}
}

func TestNormalizeForcesLiveMinLeverage(t *testing.T) {
	dec := normalize(rawDecision{Action: "long", Confidence: 90, Amount: 50, Leverage: 3},
		bullishSnapshot(), models.LivePolicy(100))
	if dec.Leverage != 10 {
		t.Errorf("Leverage = %v, want forced to live minimum 10", dec.Leverage)
	}
}

func TestNormalizeMapsBuySell(t *testing.T) {
	policy := models.PaperPolicy(100)
	if dec := normalize(rawDecision{Action: "buy", Confidence: 80}, bullishSnapshot(), policy); dec.Action != "long" {
		t.Errorf("buy normalized to %q, want long", dec.Action)
	}
	if dec := normalize(rawDecision{Action: "sell", Confidence: 80}, bullishSnapshot(), policy); dec.Action != "short" {
		t.Errorf("sell normalized to %q, want short", dec.Action)
	}
}

func TestDecideFallbackOnServiceError(t *testing.T) {
	paper := NewAdapter(&stubCompleter{err: errors.New("timeout")}, models.PaperPolicy(100))
	dec, err := paper.Decide(context.Background(), bullishSnapshot())
	if err != nil {
		t.Fatalf("Decide() error = %v, want fallback", err)
	}
	if dec.Action != "long" {
		t.Errorf("fallback Action = %q, want long from bullish alignment", dec.Action)
	}
	if !strings.Contains(dec.Reasoning, "unavailable") {
		t.Errorf("fallback Reasoning = %q, want unavailability disclosure", dec.Reasoning)
	}

	live := NewAdapter(&stubCompleter{err: errors.New("timeout")}, models.LivePolicy(100))
	if _, err := live.Decide(context.Background(), bullishSnapshot()); err == nil {
		t.Error("live Decide() succeeded on service error, want fail closed")
	}
}

func TestEnrichEventFailureKeepsEvent(t *testing.T) {
	adapter := NewAdapter(&stubCompleter{err: errors.New("timeout")}, models.PaperPolicy(100))
	ev := adapter.EnrichEvent(context.Background(), models.EMAEvent{
		ID:   "ev-1",
		Kind: models.CrossAbove,
	}, bullishSnapshot())

	if !ev.EnrichFailed {
		t.Error("EnrichFailed = false, want true")
	}
	if ev.Recommendation != models.RecommendNeutral {
		t.Errorf("Recommendation = %q, want NEUTRAL", ev.Recommendation)
	}
}

func TestEnrichEventKeepsNeutralHold(t *testing.T) {
	adapter := NewAdapter(&stubCompleter{
		content: `{"action":"hold","confidence":60,"reasoning":"chop"}`,
	}, models.PaperPolicy(100))

	ev := adapter.EnrichEvent(context.Background(), models.EMAEvent{ID: "ev-2"}, bullishSnapshot())
	if ev.Recommendation != models.RecommendNeutral {
		t.Errorf("Recommendation = %q, want NEUTRAL for hold enrichment", ev.Recommendation)
	}
	if ev.EnrichFailed {
		t.Error("EnrichFailed = true for a successful enrichment")
	}
}

func TestGateCooldown(t *testing.T) {
	g := NewGate(models.PaperPolicy(100))
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return current }

	dec := models.Decision{Action: "long", Confidence: 80, Amount: 50, Leverage: 5}
	if _, err := g.AllowOpen(dec, 0, 1000); err != nil {
		t.Fatalf("first AllowOpen() error = %v", err)
	}
	g.RecordAction()

	current = current.Add(2 * time.Minute)
	_, err := g.AllowOpen(dec, 0, 1000)
	var violation *PolicyViolation
	if !errors.As(err, &violation) {
		t.Fatalf("AllowOpen() inside cooldown error = %v, want PolicyViolation", err)
	}
	if !strings.Contains(violation.Reason, "cooldown active") {
		t.Errorf("Reason = %q, want cooldown message", violation.Reason)
	}
	if !strings.Contains(violation.Reason, "180s") {
		t.Errorf("Reason = %q, want 180s remaining", violation.Reason)
	}

	current = current.Add(4 * time.Minute)
	if _, err := g.AllowOpen(dec, 0, 1000); err != nil {
		t.Errorf("AllowOpen() after cooldown error = %v", err)
	}
}

func TestGateSinglePosition(t *testing.T) {
	g := NewGate(models.LivePolicy(100))
	dec := models.Decision{Action: "long", Confidence: 80, Amount: 50, Leverage: 10}

	if _, err := g.AllowOpen(dec, 1, 1000); err == nil {
		t.Error("AllowOpen() with open AI position succeeded, want violation")
	}

	paper := NewGate(models.PaperPolicy(100))
	if _, err := paper.AllowOpen(dec, 1, 1000); err != nil {
		t.Errorf("paper AllowOpen() with open AI position error = %v, want allowed", err)
	}
}

func TestGateMarginScaleDown(t *testing.T) {
	g := NewGate(models.PaperPolicy(1000))

	// Margin 100/5 = 20 exceeds balance 10; scale to 10*0.9*5 = 45
	dec := models.Decision{Action: "long", Confidence: 80, Amount: 100, Leverage: 5}
	adjusted, err := g.AllowOpen(dec, 0, 10)
	if err != nil {
		t.Fatalf("AllowOpen() error = %v", err)
	}
	if adjusted.Amount != 45 {
		t.Errorf("Amount = %v, want scaled to 45", adjusted.Amount)
	}

	// Scaled amount 1*0.9*5 = 4.5 is under the 10 USDT minimum
	_, err = g.AllowOpen(dec, 0, 1)
	var violation *PolicyViolation
	if !errors.As(err, &violation) || violation.Reason != "insufficient funds" {
		t.Errorf("AllowOpen() error = %v, want insufficient funds", err)
	}
}

func TestGateRejectsLossClose(t *testing.T) {
	g := NewGate(models.PaperPolicy(100))

	err := g.AllowClose(models.Position{ID: "p1", PnL: -5})
	var violation *PolicyViolation
	if !errors.As(err, &violation) {
		t.Fatalf("AllowClose() error = %v, want PolicyViolation", err)
	}
	if !strings.Contains(violation.Reason, "loss") {
		t.Errorf("Reason = %q, want loss mention", violation.Reason)
	}

	if err := g.AllowClose(models.Position{ID: "p1", PnL: 12}); err != nil {
		t.Errorf("AllowClose() in profit error = %v", err)
	}
}

func TestTradingMarkPromotion(t *testing.T) {
	tests := []struct {
		name           string
		recommendation string
		confidence     int
		want           bool
	}{
		{name: "High confidence long", recommendation: models.RecommendLong, confidence: 85, want: true},
		{name: "At threshold", recommendation: models.RecommendLong, confidence: 70, want: false},
		{name: "Neutral", recommendation: models.RecommendNeutral, confidence: 95, want: false},
		{name: "High confidence short", recommendation: models.RecommendShort, confidence: 75, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mark := TradingMarkFrom(models.EMAEvent{
				ID:             "ev",
				Recommendation: tt.recommendation,
				Confidence:     tt.confidence,
				Price:          50000,
			})
			if (mark != nil) != tt.want {
				t.Errorf("TradingMarkFrom() = %v, want promoted=%v", mark, tt.want)
			}
			if mark != nil && mark.Type != tt.recommendation {
				t.Errorf("mark Type = %q, want %q", mark.Type, tt.recommendation)
			}
		})
	}
}
