// internal/app/features/telegramlink/handler.go
package telegramlink

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	userstore "github.com/clarityhealth/claritymdt/internal/app/store/users"
	"github.com/clarityhealth/claritymdt/internal/app/store/verifycodes"
	"github.com/clarityhealth/claritymdt/internal/app/system/auditlog"
	"github.com/clarityhealth/claritymdt/internal/app/system/gates"
	"github.com/clarityhealth/claritymdt/internal/app/system/httpjson"
	"github.com/clarityhealth/claritymdt/internal/app/system/linking"
	"github.com/clarityhealth/claritymdt/internal/app/system/ratelimit"
	"github.com/clarityhealth/claritymdt/internal/app/system/telegram"
	"github.com/clarityhealth/claritymdt/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Handler serves the Telegram account linking API and the bot webhook.
//
// The linking protocol: the signed-in user requests a code here, sends it
// to the bot from their Telegram chat (webhook or long poll), and the
// linking service binds the chat id to their account. ServeVerify covers
// the reverse flow where the chat id is already known.
type Handler struct {
	Users         *userstore.Store
	Codes         *verifycodes.Store
	Linking       *linking.Service
	Messages      *telegram.MessageHandler
	WebhookSecret string
	BotUsername   string
	Limiter       *ratelimit.Limiter
	Log           *zap.Logger
	AuditLog      *auditlog.Logger
}

func NewHandler(users *userstore.Store, codes *verifycodes.Store, linkSvc *linking.Service, messages *telegram.MessageHandler, webhookSecret, botUsername string, limiter *ratelimit.Limiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:         users,
		Codes:         codes,
		Linking:       linkSvc,
		Messages:      messages,
		WebhookSecret: webhookSecret,
		BotUsername:   botUsername,
		Limiter:       limiter,
		Log:           logger,
		AuditLog:      audit,
	}
}

// ServeStatus handles GET /api/telegram.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, g.UserID)
	if err != nil {
		h.Log.Error("load user for telegram status failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}

	resp := map[string]any{
		"linked":       u.TelegramChatID != nil,
		"bot_username": h.BotUsername,
	}
	if v, err := h.Codes.Find(ctx, g.UserID); err == nil && !v.Expired() {
		resp["pending_code_expires_at"] = v.ExpiresAt
	}
	httpjson.Write(w, http.StatusOK, resp)
}

// ServeIssueCode handles POST /api/telegram/link. The plaintext code is
// returned exactly once, here; it is never readable again.
func (h *Handler) ServeIssueCode(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}

	if h.Limiter != nil && !h.Limiter.Allow(g.UserID.Hex()) {
		httpjson.WriteError(w, http.StatusTooManyRequests, httpjson.CodeValidation,
			"too many code requests, wait before requesting another")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.Codes.Issue(ctx, g.UserID, 0)
	if err != nil {
		h.Log.Error("issue verification code failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}

	h.AuditLog.TelegramLinkRequested(ctx, r, g.UserID)
	httpjson.Write(w, http.StatusCreated, map[string]any{
		"code":         v.Code,
		"expires_at":   v.ExpiresAt,
		"bot_username": h.BotUsername,
	})
}

type verifyRequest struct {
	Code   string `json:"code"`
	ChatID int64  `json:"chat_id,omitempty"`
}

// ServeVerify handles POST /api/telegram/verify. Used when the chat id is
// already known, either recorded at issue time or supplied in the body.
// The code must belong to the calling user; someone else's code reads as
// not-found.
//
// Every rejection on this path is HTTP 400. The taxonomy code in the body
// (NOT_FOUND, EXPIRED, CONFLICT) says why, but a failed link attempt is a
// bad request, not a missing resource.
func (h *Handler) ServeVerify(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}

	var req verifyRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.BadRequest(w, "invalid request body")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if !verifycodes.ValidFormat(code) {
		httpjson.BadRequest(w, "code must be 8 hex characters")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	// An account with a live link keeps it until an explicit unlink;
	// verify never silently rebinds to a different chat.
	u, err := h.Users.GetByID(ctx, g.UserID)
	if err != nil {
		h.Log.Error("load user for verify failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	if u.TelegramChatID != nil {
		httpjson.WriteError(w, http.StatusBadRequest, httpjson.CodeConflict,
			"this account is already linked to a telegram chat; unlink it first")
		return
	}

	v, err := h.Linking.Match(ctx, code, req.ChatID)
	if err != nil {
		switch {
		case errors.Is(err, linking.ErrCodeNotFound):
			httpjson.WriteError(w, http.StatusBadRequest, httpjson.CodeNotFound,
				"verification code not found")
		case errors.Is(err, linking.ErrCodeExpired):
			httpjson.WriteError(w, http.StatusBadRequest, httpjson.CodeExpired,
				"verification code expired, request a new one")
		default:
			h.Log.Error("match verification code failed", zap.Error(err))
			httpjson.Internal(w)
		}
		return
	}
	if v.UserID != g.UserID {
		httpjson.WriteError(w, http.StatusBadRequest, httpjson.CodeNotFound,
			"verification code not found")
		return
	}
	if v.ChatID == 0 && req.ChatID == 0 {
		httpjson.BadRequest(w, "no chat to link: send the code to the bot instead, or supply chat_id")
		return
	}

	res, err := h.Linking.Commit(ctx, v, req.ChatID)
	if err != nil {
		if errors.Is(err, linking.ErrChatAlreadyLinked) {
			httpjson.WriteError(w, http.StatusBadRequest, httpjson.CodeConflict,
				"that telegram chat is already linked to another account")
			return
		}
		h.Log.Error("commit telegram link failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}

	httpjson.Write(w, http.StatusOK, map[string]any{
		"linked":    true,
		"chat_id":   res.ChatID,
		"confirmed": res.Confirmed,
	})
}

// ServeUnlink handles DELETE /api/telegram/link.
func (h *Handler) ServeUnlink(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.ClearTelegramChatID(ctx, g.UserID); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			httpjson.NotFound(w, "user not found")
			return
		}
		h.Log.Error("unlink telegram failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	// Any outstanding code is useless once the user unlinks on purpose.
	if err := h.Codes.DeleteByUser(ctx, g.UserID); err != nil {
		h.Log.Warn("delete pending codes on unlink failed", zap.Error(err))
	}

	h.AuditLog.TelegramUnlinked(ctx, r, g.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// ServeWebhook handles POST /telegram/webhook/{secret}, the unauthenticated
// bot update endpoint. The path secret is the only credential; a mismatch
// is a 404 so the endpoint doesn't advertise itself.
//
// Telegram retries non-200 responses, so handled updates always return 200
// even when the message made no sense.
func (h *Handler) ServeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.WebhookSecret == "" ||
		subtle.ConstantTimeCompare([]byte(chi.URLParam(r, "secret")), []byte(h.WebhookSecret)) != 1 {
		http.NotFound(w, r)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&update); err != nil {
		h.Log.Warn("undecodable webhook update", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	h.Messages.Handle(ctx, msg.Chat.ID, msg.Text)
	w.WriteHeader(http.StatusOK)
}
