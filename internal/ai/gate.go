package ai

import (
	"fmt"
	"sync"
	"time"

	"btcdesk/models"
)

// PolicyViolation is an expected rejection of an AI action, not a
// fault. The reason is shown to the user as-is.
type PolicyViolation struct {
	Reason string
}

func (e *PolicyViolation) Error() string {
	return e.Reason
}

// Gate enforces the execution rules between a normalized decision and
// the position book: action cooldown, single-position discipline,
// margin coverage and the no-loss-close rule.
type Gate struct {
	mu         sync.Mutex
	policy     models.Policy
	lastAction time.Time
	acted      bool
	now        func() time.Time
}

// NewGate creates a gate for the given policy.
func NewGate(policy models.Policy) *Gate {
	return &Gate{
		policy: policy,
		now:    time.Now,
	}
}

// AllowOpen validates an open decision against account state. When
// the required margin exceeds the balance, the amount is scaled down
// to 90% of the maximum affordable before giving up. The possibly
// adjusted decision is returned.
func (g *Gate) AllowOpen(dec models.Decision, openAIPositions int, balance float64) (models.Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.cooldownLocked(); err != nil {
		return dec, err
	}

	if g.policy.SinglePosition && openAIPositions > 0 {
		return dec, &PolicyViolation{Reason: "another AI position is already open"}
	}

	if dec.Confidence < g.policy.MinConfidence {
		return dec, &PolicyViolation{Reason: "confidence below threshold"}
	}

	if dec.Leverage <= 0 {
		return dec, &PolicyViolation{Reason: "insufficient funds"}
	}
	required := dec.Amount / dec.Leverage
	if required > balance {
		scaled := balance * 0.9 * dec.Leverage
		if scaled < g.policy.MinAmount {
			return dec, &PolicyViolation{Reason: "insufficient funds"}
		}
		dec.Amount = scaled
	}

	return dec, nil
}

// AllowClose validates a close decision against the target position.
// Closing an AI position at a loss is never permitted unless the
// policy allows it.
func (g *Gate) AllowClose(p models.Position) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.cooldownLocked(); err != nil {
		return err
	}
	if p.PnL <= 0 && !g.policy.AllowLossClose {
		return &PolicyViolation{Reason: fmt.Sprintf("refusing to close at a loss (pnl=%.2f)", p.PnL)}
	}
	return nil
}

// RecordAction marks the current time as the last executed AI action,
// starting the cooldown window. Called only after an action actually
// executed.
func (g *Gate) RecordAction() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastAction = g.now()
	g.acted = true
}

func (g *Gate) cooldownLocked() error {
	if !g.acted {
		return nil
	}
	elapsed := g.now().Sub(g.lastAction)
	if elapsed < g.policy.Cooldown {
		remaining := g.policy.Cooldown - elapsed
		return &PolicyViolation{
			Reason: fmt.Sprintf("cooldown active (%ds remaining)", int(remaining.Seconds())),
		}
	}
	return nil
}
