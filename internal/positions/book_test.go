package positions

import (
	"errors"
	"math"
	"testing"

	"btcdesk/models"
)

func TestOpenDeductsMargin(t *testing.T) {
	b := NewBook(1000)
	p, err := b.Open(OpenRequest{Side: models.Long, Amount: 100, EntryPrice: 50000, Leverage: 10})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if b.Balance() != 990 {
		t.Errorf("Balance() = %v, want 990", b.Balance())
	}
	if p.LiquidationPrice != 45000 {
		t.Errorf("LiquidationPrice = %v, want 45000", p.LiquidationPrice)
	}
	if p.Status != models.StatusOpen {
		t.Errorf("Status = %v, want open", p.Status)
	}
}

func TestOpenInsufficientFunds(t *testing.T) {
	b := NewBook(5)
	_, err := b.Open(OpenRequest{Side: models.Long, Amount: 100, EntryPrice: 50000, Leverage: 10})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Open() error = %v, want ErrInsufficientFunds", err)
	}
	if b.Balance() != 5 {
		t.Errorf("Balance() = %v, want 5 after rejected open", b.Balance())
	}
}

func TestCloseReturnsMarginPlusPnL(t *testing.T) {
	b := NewBook(1000)
	p, err := b.Open(OpenRequest{Side: models.Long, Amount: 100, EntryPrice: 50000, Leverage: 10})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	closed, err := b.Close(p.ID, 51000)
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if math.Abs(closed.PnL-20) > 1e-9 {
		t.Errorf("PnL = %v, want 20", closed.PnL)
	}
	if closed.Status != models.StatusClosed {
		t.Errorf("Status = %v, want closed", closed.Status)
	}
	if math.Abs(b.Balance()-1020) > 1e-9 {
		t.Errorf("Balance() = %v, want 1020", b.Balance())
	}
	if len(b.Positions()) != 0 {
		t.Errorf("Positions() = %d, want 0 after close", len(b.Positions()))
	}
}

func TestCloseUnknownID(t *testing.T) {
	b := NewBook(1000)
	if _, err := b.Close("nope", 50000); !errors.Is(err, ErrNotFound) {
		t.Errorf("Close() error = %v, want ErrNotFound", err)
	}
}

func TestMarkToMarketLiquidatesOnThreshold(t *testing.T) {
	b := NewBook(1000)
	p, err := b.Open(OpenRequest{Side: models.Long, Amount: 100, EntryPrice: 50000, Leverage: 20})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	// Liquidation threshold is 47500; 48000 must not trigger it
	if liqs := b.MarkToMarket(48000); len(liqs) != 0 {
		t.Fatalf("MarkToMarket(48000) liquidated %d positions, want 0", len(liqs))
	}

	liqs := b.MarkToMarket(47000)
	if len(liqs) != 1 {
		t.Fatalf("MarkToMarket(47000) liquidated %d positions, want 1", len(liqs))
	}
	if liqs[0].PositionID != p.ID {
		t.Errorf("liquidated id = %s, want %s", liqs[0].PositionID, p.ID)
	}
	if liqs[0].Loss != -5 {
		t.Errorf("Loss = %v, want -5 (forfeited margin)", liqs[0].Loss)
	}
	if len(b.Positions()) != 0 {
		t.Errorf("Positions() = %d, want 0 after liquidation", len(b.Positions()))
	}
	// Margin was deducted at open and is not returned
	if b.Balance() != 995 {
		t.Errorf("Balance() = %v, want 995", b.Balance())
	}
}

func TestMarkToMarketIdempotent(t *testing.T) {
	b := NewBook(1000)
	if _, err := b.Open(OpenRequest{Side: models.Short, Amount: 50, EntryPrice: 60000, Leverage: 5}); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	b.MarkToMarket(61000)
	first := b.Positions()[0].PnL
	b.MarkToMarket(61000)
	second := b.Positions()[0].PnL

	if first != second {
		t.Errorf("PnL after repeated mark = %v then %v, want identical", first, second)
	}
}

func TestAIPositionsFilter(t *testing.T) {
	b := NewBook(1000)
	if _, err := b.Open(OpenRequest{Side: models.Long, Amount: 50, EntryPrice: 50000, Leverage: 5}); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ai, err := b.Open(OpenRequest{Side: models.Short, Amount: 50, EntryPrice: 50000, Leverage: 5, AIManaged: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	got := b.AIPositions()
	if len(got) != 1 || got[0].ID != ai.ID {
		t.Errorf("AIPositions() = %v, want only %s", got, ai.ID)
	}
}
