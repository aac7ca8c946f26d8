package positions

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"btcdesk/internal/risk"
	"btcdesk/models"
)

var (
	// ErrInsufficientFunds is returned when the required margin
	// exceeds the available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNotFound is returned for operations on unknown position ids.
	ErrNotFound = errors.New("position not found")
)

// Book owns the active position set and the simulated account
// balance. Margin (amount/leverage) is deducted on open and returned
// with PnL on close; a liquidation forfeits it entirely.
type Book struct {
	mu      sync.Mutex
	balance float64
	open    []*models.Position
	logger  zerolog.Logger
}

// NewBook creates a position book with the given starting balance.
func NewBook(startBalance float64) *Book {
	return &Book{
		balance: startBalance,
		logger:  log.With().Str("component", "position_book").Logger(),
	}
}

// OpenRequest carries the parameters for a new position.
type OpenRequest struct {
	Side        models.Side
	Amount      float64
	EntryPrice  float64
	Leverage    float64
	AIManaged   bool
	AIReasoning string
	Confidence  int
}

// Open creates a position, deducts its margin from the balance and
// returns a copy of the stored record.
func (b *Book) Open(req OpenRequest) (models.Position, error) {
	if req.Amount <= 0 || req.EntryPrice <= 0 || req.Leverage < 1 {
		return models.Position{}, fmt.Errorf("invalid order: amount=%v entry=%v leverage=%v",
			req.Amount, req.EntryPrice, req.Leverage)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	margin := req.Amount / req.Leverage
	if margin > b.balance {
		return models.Position{}, ErrInsufficientFunds
	}

	p := &models.Position{
		ID:               uuid.New().String(),
		Side:             req.Side,
		Amount:           req.Amount,
		EntryPrice:       req.EntryPrice,
		Leverage:         req.Leverage,
		OpenedAt:         time.Now(),
		AIManaged:        req.AIManaged,
		AIReasoning:      req.AIReasoning,
		Confidence:       req.Confidence,
		Status:           models.StatusOpen,
		LiquidationPrice: risk.LiquidationPrice(req.Side, req.EntryPrice, req.Leverage),
	}

	b.balance -= margin
	b.open = append(b.open, p)

	b.logger.Info().
		Str("id", p.ID).
		Str("side", string(p.Side)).
		Float64("amount", p.Amount).
		Float64("entry", p.EntryPrice).
		Float64("leverage", p.Leverage).
		Bool("ai", p.AIManaged).
		Msg("Position opened")

	return *p, nil
}

// Close terminates a position at the given exit price. The posted
// margin plus realized PnL is credited back to the balance.
func (b *Book) Close(id string, exitPrice float64) (models.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, p := range b.open {
		if p.ID != id {
			continue
		}
		p.PnL = risk.PnL(*p, exitPrice)
		p.Status = models.StatusClosed
		b.balance += p.Margin() + p.PnL
		b.open = append(b.open[:i], b.open[i+1:]...)

		b.logger.Info().
			Str("id", p.ID).
			Float64("exit", exitPrice).
			Float64("pnl", p.PnL).
			Msg("Position closed")
		return *p, nil
	}
	return models.Position{}, ErrNotFound
}

// MarkToMarket recomputes PnL for every open position at the given
// price and force-closes any position whose liquidation threshold was
// crossed. Running it twice at the same price yields the same state.
func (b *Book) MarkToMarket(price float64) []models.Liquidation {
	b.mu.Lock()
	defer b.mu.Unlock()

	var liquidations []models.Liquidation
	kept := b.open[:0]
	for _, p := range b.open {
		p.PnL = risk.PnL(*p, price)
		if !risk.ShouldLiquidate(*p, price) {
			kept = append(kept, p)
			continue
		}

		loss := risk.LiquidationLoss(*p)
		p.Status = models.StatusLiquidated
		p.PnL = loss
		liquidations = append(liquidations, models.Liquidation{
			PositionID: p.ID,
			Price:      price,
			Loss:       loss,
		})
		b.logger.Warn().
			Str("id", p.ID).
			Float64("price", price).
			Float64("loss", loss).
			Msg("Position liquidated")
	}
	b.open = kept
	return liquidations
}

// Get returns a copy of an open position.
func (b *Book) Get(id string) (models.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range b.open {
		if p.ID == id {
			return *p, nil
		}
	}
	return models.Position{}, ErrNotFound
}

// Positions returns copies of all open positions.
func (b *Book) Positions() []models.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.Position, len(b.open))
	for i, p := range b.open {
		out[i] = *p
	}
	return out
}

// AIPositions returns copies of the open AI-managed positions.
func (b *Book) AIPositions() []models.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []models.Position
	for _, p := range b.open {
		if p.AIManaged {
			out = append(out, *p)
		}
	}
	return out
}

// Balance returns the free account balance.
func (b *Book) Balance() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance
}
