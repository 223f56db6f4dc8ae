// Package telegram wraps the bot API behind small interfaces so the rest of
// the app never touches tgbotapi types. Outbound messages go through Sender;
// inbound messages (webhook or long poll) go through MessageHandler.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender delivers a plain-text message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Bot is the tgbotapi-backed Sender used in production.
type Bot struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

// NewBot authenticates against the Bot API with the given token.
func NewBot(token string, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot auth: %w", err)
	}
	log.Info("telegram bot connected", zap.String("username", api.Self.UserName))
	return &Bot{api: api, log: log}, nil
}

// SendMessage sends text to a chat. tgbotapi has no context plumbing; ctx
// is checked up front so cancelled callers at least fail fast.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram send to chat %d: %w", chatID, err)
	}
	return nil
}

// Username returns the bot's Telegram username.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}
