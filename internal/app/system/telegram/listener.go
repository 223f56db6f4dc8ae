package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Listener consumes updates by long polling. It is the alternative to the
// webhook endpoint for deployments without a public HTTPS ingress; run one
// or the other, never both.
type Listener struct {
	bot     *Bot
	handler *MessageHandler
	log     *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewListener(bot *Bot, handler *MessageHandler, log *zap.Logger) *Listener {
	return &Listener{bot: bot, handler: handler, log: log}
}

// Start begins consuming updates in a background goroutine.
func (l *Listener) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := l.bot.api.GetUpdatesChan(cfg)

	l.log.Info("telegram listener started", zap.String("bot", l.bot.Username()))

	go func() {
		defer close(l.done)
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message == nil || update.Message.Chat == nil {
					continue
				}
				l.handler.Handle(ctx, update.Message.Chat.ID, update.Message.Text)
			}
		}
	}()
}

// Stop halts polling and waits for the worker goroutine to drain.
func (l *Listener) Stop() {
	if l.cancel == nil {
		return
	}
	l.bot.api.StopReceivingUpdates()
	l.cancel()
	<-l.done
	l.log.Info("telegram listener stopped")
}
