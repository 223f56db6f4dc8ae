package telegram

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/clarityhealth/claritymdt/internal/app/system/linking"
	"go.uber.org/zap"
)

// codePattern is the exact shape of an issued verification code.
var codePattern = regexp.MustCompile(`^[A-F0-9]{8}$`)

const helpText = "Welcome to the ClarityMDT bot.\n\n" +
	"To link this chat to your ClarityMDT account, open the web app, " +
	"request a verification code under Settings > Telegram, and send the " +
	"8-character code here."

// Linker is the slice of the linking service the handler needs.
type Linker interface {
	Link(ctx context.Context, code string, chatID int64) (linking.CommitResult, error)
}

// MessageHandler interprets inbound chat messages. The same handler backs
// both the webhook endpoint and the long-poll listener.
type MessageHandler struct {
	sender Sender
	linker Linker
	log    *zap.Logger
}

func NewMessageHandler(sender Sender, linker Linker, log *zap.Logger) *MessageHandler {
	return &MessageHandler{sender: sender, linker: linker, log: log}
}

// LooksLikeCode reports whether text, once trimmed and uppercased, has the
// shape of a verification code.
func LooksLikeCode(text string) bool {
	return codePattern.MatchString(strings.ToUpper(strings.TrimSpace(text)))
}

// Handle processes one inbound text message from a chat.
//
// Replies are best-effort: a failed reply is logged and dropped, never
// propagated, since there is nothing upstream that could act on it.
func (h *MessageHandler) Handle(ctx context.Context, chatID int64, text string) {
	trimmed := strings.TrimSpace(text)

	switch {
	case trimmed == "/start" || trimmed == "/help":
		h.reply(ctx, chatID, helpText)

	case LooksLikeCode(trimmed):
		_, err := h.linker.Link(ctx, trimmed, chatID)
		switch {
		case err == nil:
			// The linking service already sent the confirmation.
		case errors.Is(err, linking.ErrCodeNotFound):
			h.reply(ctx, chatID, "That code was not recognized. Request a fresh code in the web app and try again.")
		case errors.Is(err, linking.ErrCodeExpired):
			h.reply(ctx, chatID, "That code has expired. Request a new one in the web app.")
		case errors.Is(err, linking.ErrChatAlreadyLinked):
			h.reply(ctx, chatID, "This chat is already linked to a different ClarityMDT account.")
		default:
			h.log.Error("link attempt failed",
				zap.Int64("chat_id", chatID),
				zap.Error(err))
			h.reply(ctx, chatID, "Something went wrong on our side. Please try again in a moment.")
		}

	default:
		h.reply(ctx, chatID, "Send /help for instructions, or paste your 8-character verification code to link your account.")
	}
}

func (h *MessageHandler) reply(ctx context.Context, chatID int64, text string) {
	if h.sender == nil {
		return
	}
	if err := h.sender.SendMessage(ctx, chatID, text); err != nil {
		h.log.Warn("telegram reply failed",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}
