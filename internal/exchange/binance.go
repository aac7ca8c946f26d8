package exchange

import (
	"context"
	"fmt"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"btcdesk/models"
)

// BinanceClient fetches candles, last price and 24h statistics from
// the Binance spot API. Market data only; no keys are required.
type BinanceClient struct {
	client *binance.Client
	symbol string
	logger zerolog.Logger
}

// NewBinanceClient creates a market-data client for one symbol.
func NewBinanceClient(symbol string) *BinanceClient {
	return &BinanceClient{
		client: binance.NewClient("", ""),
		symbol: symbol,
		logger: log.With().Str("component", "binance_client").Logger(),
	}
}

// GetCandles fetches up to limit klines for the given interval.
func (c *BinanceClient) GetCandles(ctx context.Context, interval string, limit int) ([]models.Candle, error) {
	klines, err := c.client.NewKlinesService().
		Symbol(c.symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching klines: %w", err)
	}

	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		candle, err := klineToCandle(k)
		if err != nil {
			c.logger.Warn().Err(err).Int64("open_time", k.OpenTime).Msg("Skipping unparsable kline")
			continue
		}
		candles = append(candles, candle)
	}

	c.logger.Debug().Int("count", len(candles)).Str("interval", interval).Msg("Fetched candles")
	return candles, nil
}

// GetPrice fetches the last trade price.
func (c *BinanceClient) GetPrice(ctx context.Context) (float64, error) {
	prices, err := c.client.NewListPricesService().Symbol(c.symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching price: %w", err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("empty price response for %s", c.symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing price %q: %w", prices[0].Price, err)
	}
	return price, nil
}

// GetTickerStats fetches 24h rolling statistics.
func (c *BinanceClient) GetTickerStats(ctx context.Context) (models.TickerStats, error) {
	stats, err := c.client.NewListPriceChangeStatsService().Symbol(c.symbol).Do(ctx)
	if err != nil {
		return models.TickerStats{}, fmt.Errorf("fetching 24h stats: %w", err)
	}
	if len(stats) == 0 {
		return models.TickerStats{}, fmt.Errorf("empty 24h stats response for %s", c.symbol)
	}

	s := stats[0]
	out := models.TickerStats{}
	var errs []error
	out.LastPrice, err = strconv.ParseFloat(s.LastPrice, 64)
	errs = append(errs, err)
	out.ChangePercent, err = strconv.ParseFloat(s.PriceChangePercent, 64)
	errs = append(errs, err)
	out.High, err = strconv.ParseFloat(s.HighPrice, 64)
	errs = append(errs, err)
	out.Low, err = strconv.ParseFloat(s.LowPrice, 64)
	errs = append(errs, err)
	out.Volume, err = strconv.ParseFloat(s.Volume, 64)
	errs = append(errs, err)
	for _, e := range errs {
		if e != nil {
			return models.TickerStats{}, fmt.Errorf("parsing 24h stats: %w", e)
		}
	}
	return out, nil
}

func klineToCandle(k *binance.Kline) (models.Candle, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parsing open: %w", err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parsing high: %w", err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parsing low: %w", err)
	}
	cls, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parsing close: %w", err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parsing volume: %w", err)
	}

	return models.Candle{
		Timestamp: k.OpenTime,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    volume,
	}, nil
}
