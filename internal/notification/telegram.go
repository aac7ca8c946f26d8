// Package notification sends trade and liquidation alerts to a
// Telegram chat. Alerts are best effort; failures are logged, never
// propagated into the trading path.
package notification

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"btcdesk/models"
)

// Telegram sends alerts via the Telegram Bot API.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram creates a notifier from a bot token and target chat.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

// NotifyLiquidation reports a forced position closure.
func (t *Telegram) NotifyLiquidation(p models.Position, liq models.Liquidation) {
	t.send(fmt.Sprintf(
		"🚨 Liquidation\n%s %.2f USDT @ %.2f (%.0fx)\nliquidated at %.2f, loss %.2f USDT",
		p.Side, p.Amount, p.EntryPrice, p.Leverage, liq.Price, liq.Loss,
	))
}

// NotifyTrade reports an executed AI position action.
func (t *Telegram) NotifyTrade(dec models.Decision, p models.Position) {
	t.send(fmt.Sprintf(
		"🤖 AI trade executed\n%s %.2f USDT @ %.2f (%.0fx, confidence %d%%)\n%s",
		p.Side, p.Amount, p.EntryPrice, p.Leverage, dec.Confidence, dec.Reasoning,
	))
}

// NotifyClose reports an AI-initiated close.
func (t *Telegram) NotifyClose(p models.Position) {
	t.send(fmt.Sprintf(
		"🤖 AI closed %s position, pnl %.2f USDT",
		p.Side, p.PnL,
	))
}

func (t *Telegram) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Warn().Err(err).Msg("Sending telegram alert failed")
		return
	}
	t.logger.Debug().Msg("Alert sent")
}
