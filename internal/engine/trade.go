package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"btcdesk/internal/ai"
	"btcdesk/internal/gateway"
	"btcdesk/internal/positions"
	"btcdesk/models"
)

// applyDecision turns a normalized AI decision into a position action,
// running the execution gate first. Rejections are recorded, not
// raised.
func (e *Engine) applyDecision(ctx context.Context, dec models.Decision) {
	var err error
	if dec.Action == "close" {
		err = e.applyClose(ctx, dec)
	} else {
		err = e.applyOpen(ctx, dec)
	}

	if err == nil {
		gateway.AIDecisions.WithLabelValues("executed").Inc()
		e.gate.RecordAction()
		e.broadcast(gateway.TypeDecision, dec)
		e.broadcast(gateway.TypePositions, e.book.Positions())
		return
	}

	var violation *ai.PolicyViolation
	if errors.As(err, &violation) {
		gateway.AIDecisions.WithLabelValues("rejected").Inc()
		e.logger.Info().Str("reason", violation.Reason).Msg("AI decision rejected")
		e.saveDecision(dec, false, violation.Reason)
		return
	}

	gateway.AIDecisions.WithLabelValues("error").Inc()
	e.logger.Error().Err(err).Msg("Executing AI decision failed")
	e.saveDecision(dec, false, err.Error())
}

func (e *Engine) applyOpen(ctx context.Context, dec models.Decision) error {
	adjusted, err := e.gate.AllowOpen(dec, len(e.book.AIPositions()), e.book.Balance())
	if err != nil {
		return err
	}

	price := e.currentPrice()
	if price <= 0 {
		return fmt.Errorf("no price available")
	}

	// Live variant routes the order to the exchange before touching
	// the book; a failed call means no position, no retry.
	if e.opts.Executor != nil {
		orderID, orderErr := e.opts.Executor.PlaceOrder(ctx, models.OrderRequest{
			Symbol:        e.symbol,
			Side:          models.Side(adjusted.Action),
			Quantity:      adjusted.Amount / price,
			Leverage:      adjusted.Leverage,
			ClientOrderID: "ai_" + uuid.New().String(),
		})
		if orderErr != nil {
			return fmt.Errorf("external service unavailable: %w", orderErr)
		}
		e.logger.Info().Str("order_id", orderID).Msg("Exchange order placed")
	}

	pos, err := e.book.Open(positions.OpenRequest{
		Side:        models.Side(adjusted.Action),
		Amount:      adjusted.Amount,
		EntryPrice:  price,
		Leverage:    adjusted.Leverage,
		AIManaged:   true,
		AIReasoning: adjusted.Reasoning,
		Confidence:  adjusted.Confidence,
	})
	if err != nil {
		if errors.Is(err, positions.ErrInsufficientFunds) {
			return &ai.PolicyViolation{Reason: "insufficient funds"}
		}
		return err
	}

	e.saveDecision(adjusted, true, "")
	if e.opts.Notifier != nil {
		e.opts.Notifier.NotifyTrade(adjusted, pos)
	}
	return nil
}

func (e *Engine) applyClose(ctx context.Context, dec models.Decision) error {
	target, err := e.closeTarget(dec.CloseID)
	if err != nil {
		return err
	}

	if err := e.gate.AllowClose(target); err != nil {
		return err
	}

	if e.opts.Executor != nil {
		if closeErr := e.opts.Executor.ClosePosition(ctx, e.symbol, target.Side); closeErr != nil {
			return fmt.Errorf("external service unavailable: %w", closeErr)
		}
	}

	closed, err := e.book.Close(target.ID, e.currentPrice())
	if err != nil {
		return err
	}

	e.saveDecision(dec, true, "")
	e.savePosition(closed)
	if e.opts.Notifier != nil {
		e.opts.Notifier.NotifyClose(closed)
	}
	return nil
}

// closeTarget resolves which AI position a close decision refers to.
// A decision without an id targets the single open AI position; a
// vanished target means the decision went stale (e.g. a liquidation
// won the race) and is rejected.
func (e *Engine) closeTarget(closeID string) (models.Position, error) {
	if closeID != "" {
		p, err := e.book.Get(closeID)
		if err != nil {
			return models.Position{}, &ai.PolicyViolation{Reason: "position no longer open"}
		}
		return p, nil
	}

	aiPositions := e.book.AIPositions()
	if len(aiPositions) == 0 {
		return models.Position{}, &ai.PolicyViolation{Reason: "no AI position to close"}
	}
	return aiPositions[0], nil
}

// ManualOpen places a user-entered market order on the book.
func (e *Engine) ManualOpen(side models.Side, amount, leverage float64) (models.Position, error) {
	price := e.currentPrice()
	if price <= 0 {
		return models.Position{}, fmt.Errorf("no price available")
	}

	pos, err := e.book.Open(positions.OpenRequest{
		Side:       side,
		Amount:     amount,
		EntryPrice: price,
		Leverage:   leverage,
	})
	if err != nil {
		return models.Position{}, err
	}
	e.broadcast(gateway.TypePositions, e.book.Positions())
	return pos, nil
}

// ManualClose closes any position at the current price. Manual closes
// are allowed at a loss; the no-loss rule binds only AI actions.
func (e *Engine) ManualClose(id string) (models.Position, error) {
	closed, err := e.book.Close(id, e.currentPrice())
	if err != nil {
		return models.Position{}, err
	}
	e.savePosition(closed)
	e.broadcast(gateway.TypePositions, e.book.Positions())
	return closed, nil
}

// Positions exposes the open position set.
func (e *Engine) Positions() []models.Position {
	return e.book.Positions()
}

// Balance exposes the free balance.
func (e *Engine) Balance() float64 {
	return e.book.Balance()
}

func (e *Engine) currentPrice() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPrice
}

func (e *Engine) savePosition(p models.Position) {
	if e.opts.History == nil {
		return
	}
	if err := e.opts.History.SavePosition(p); err != nil {
		e.logger.Warn().Err(err).Msg("Persisting position failed")
	}
}
