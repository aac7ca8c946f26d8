package ai

import (
	"fmt"
	"strings"

	"btcdesk/models"
)

const systemPrompt = `You are a cryptocurrency trading assistant analyzing BTC/USDT perpetual futures.
Respond with a single JSON object and nothing else, no markdown fences, in this exact shape:
{"action": "long"|"short"|"close"|"hold", "confidence": 0-100, "amount": <USDT notional>, "leverage": <number>, "reasoning": "<short explanation>", "close_id": "<position id when action is close>"}`

// BuildPrompt renders the market snapshot into the user prompt.
func BuildPrompt(snap models.MarketSnapshot) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Symbol: %s\n", snap.Symbol)
	fmt.Fprintf(&sb, "Current price: %.2f USDT\n", snap.Price)
	fmt.Fprintf(&sb, "24h change: %.2f%%, high %.2f, low %.2f, volume %.2f\n",
		snap.Stats.ChangePercent, snap.Stats.High, snap.Stats.Low, snap.Stats.Volume)

	sb.WriteString("\nTimeframe overview:\n")
	for _, tf := range snap.Timeframes {
		fmt.Fprintf(&sb, "- %s: close=%.2f ema10=%.2f ema55=%.2f rsi=%.1f macd_hist=%.2f atr=%.2f bb_width=%.4f trend=%s\n",
			tf.Interval, tf.Close, tf.EMA10, tf.EMA55, tf.RSI, tf.MACDHistogram, tf.ATR, tf.BandWidth, tf.Trend)
	}

	if len(snap.Positions) == 0 {
		sb.WriteString("\nOpen AI positions: none\n")
	} else {
		sb.WriteString("\nOpen AI positions:\n")
		for _, p := range snap.Positions {
			fmt.Fprintf(&sb, "- id=%s side=%s amount=%.2f entry=%.2f leverage=%.0fx pnl=%.2f\n",
				p.ID, p.Side, p.Amount, p.EntryPrice, p.Leverage, p.PnL)
		}
	}

	fmt.Fprintf(&sb, "\nAccount balance: %.2f USDT (risk tier: %s)\n", snap.Balance, snap.RiskTier)
	fmt.Fprintf(&sb, "Position size limits: %.2f to %.2f USDT\n", snap.MinAmount, snap.MaxAmount)
	sb.WriteString("\nDecide whether to open a long or short position, close an existing one, or hold.")

	return sb.String()
}

// BuildEventPrompt renders an EMA event analysis request.
func BuildEventPrompt(ev models.EMAEvent, snap models.MarketSnapshot) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "A %s event fired on the %s line: price %.2f against EMA %.2f.\n",
		ev.Kind, ev.EMAKind, ev.Price, ev.EMAValue)
	sb.WriteString("Given the market state below, assess the signal.\n\n")
	sb.WriteString(BuildPrompt(snap))
	sb.WriteString("\nRespond with the same JSON shape; use action long/short/hold as the recommendation for this signal.")

	return sb.String()
}
