package models

import "context"

// CandleSource supplies market data. Implemented by the Binance client.
type CandleSource interface {
	GetCandles(ctx context.Context, interval string, limit int) ([]Candle, error)
	GetPrice(ctx context.Context) (float64, error)
	GetTickerStats(ctx context.Context) (TickerStats, error)
}

// OrderExecutor submits real orders. Implemented by the BingX client.
type OrderExecutor interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (string, error)
	ClosePosition(ctx context.Context, symbol string, side Side) error
	TestConnectivity(ctx context.Context) error
}
