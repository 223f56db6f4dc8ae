// Package linking implements the Telegram account linking protocol: a user
// requests a short-lived verification code in the web app, sends it to the
// bot from their Telegram chat, and the webhook matches the code and commits
// the chat id onto the user record.
package linking

import (
	"context"
	"errors"
	"fmt"

	userstore "github.com/clarityhealth/claritymdt/internal/app/store/users"
	"github.com/clarityhealth/claritymdt/internal/app/store/verifycodes"
	"github.com/clarityhealth/claritymdt/internal/app/system/auditlog"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	// ErrCodeNotFound means no pending code matches the submitted value.
	ErrCodeNotFound = errors.New("verification code not found")
	// ErrCodeExpired means the code existed but its lifetime has passed.
	// The dead code is purged as a side effect.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrChatAlreadyLinked means the Telegram chat is bound to another user.
	ErrChatAlreadyLinked = errors.New("telegram chat is already linked to another user")
)

// Confirmer sends the post-link confirmation message. Implemented by the
// telegram package; a nil Confirmer disables confirmations.
type Confirmer interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Service matches verification codes and commits links.
type Service struct {
	codes     *verifycodes.Store
	users     *userstore.Store
	confirmer Confirmer
	audit     *auditlog.Logger
	log       *zap.Logger
}

func New(codes *verifycodes.Store, users *userstore.Store, confirmer Confirmer, audit *auditlog.Logger, log *zap.Logger) *Service {
	return &Service{
		codes:     codes,
		users:     users,
		confirmer: confirmer,
		audit:     audit,
		log:       log,
	}
}

// Match resolves a submitted code against the pending codes.
//
// Expired codes are purged on sight so a later retry with the same value
// reads as not-found rather than expired. When the stored record already
// carries a chat id that differs from the submitting chat, the stored
// identity wins: the code was issued for that chat, and a forwarded code
// must not link somebody else's account.
func (s *Service) Match(ctx context.Context, code string, chatID int64) (*models.VerificationCode, error) {
	v, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, verifycodes.ErrNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("find code: %w", err)
	}

	if v.Expired() {
		if err := s.codes.Consume(ctx, v.ID); err != nil && !errors.Is(err, verifycodes.ErrNotFound) {
			s.log.Warn("failed to purge expired verification code",
				zap.String("user_id", v.UserID.Hex()),
				zap.Error(err))
		}
		return nil, ErrCodeExpired
	}

	if v.ChatID != 0 && v.ChatID != chatID {
		s.log.Warn("verification code submitted from a different chat than it was issued for",
			zap.String("user_id", v.UserID.Hex()),
			zap.Int64("issued_chat_id", v.ChatID),
			zap.Int64("submitting_chat_id", chatID))
	}

	return v, nil
}

// CommitResult reports what Commit actually did. Confirmed is advisory:
// the link is durable even when the confirmation message fails.
type CommitResult struct {
	UserID    primitive.ObjectID
	ChatID    int64
	Confirmed bool
}

// Commit binds the chat to the code's user and consumes the code.
//
// The order matters: the chat id is written first so a crash between the
// two steps leaves a consumable code rather than a half-linked account
// with no way to retry.
func (s *Service) Commit(ctx context.Context, v *models.VerificationCode, chatID int64) (CommitResult, error) {
	effective := chatID
	if v.ChatID != 0 {
		effective = v.ChatID
	}

	if existing, err := s.users.GetByTelegramChatID(ctx, effective); err == nil {
		if existing.ID == v.UserID {
			// Already linked to this very user. Consume the code and
			// report success so retries are idempotent.
			_ = s.codes.Consume(ctx, v.ID)
			return CommitResult{UserID: v.UserID, ChatID: effective, Confirmed: false}, nil
		}
		return CommitResult{}, ErrChatAlreadyLinked
	} else if !errors.Is(err, userstore.ErrNotFound) {
		return CommitResult{}, fmt.Errorf("check chat binding: %w", err)
	}

	if err := s.users.SetTelegramChatID(ctx, v.UserID, effective); err != nil {
		if errors.Is(err, userstore.ErrChatAlreadyLinked) {
			// Lost the race between pre-check and write; the unique
			// index is the real arbiter.
			return CommitResult{}, ErrChatAlreadyLinked
		}
		return CommitResult{}, fmt.Errorf("set telegram chat id: %w", err)
	}

	if err := s.codes.Consume(ctx, v.ID); err != nil && !errors.Is(err, verifycodes.ErrNotFound) {
		s.log.Warn("linked but failed to consume verification code",
			zap.String("user_id", v.UserID.Hex()),
			zap.Error(err))
	}

	s.audit.TelegramLinked(ctx, v.UserID)

	result := CommitResult{UserID: v.UserID, ChatID: effective}
	if s.confirmer != nil {
		if err := s.confirmer.SendMessage(ctx, effective, "Your ClarityMDT account is now linked. You will receive meeting and case notifications here."); err != nil {
			s.log.Warn("link confirmation message failed",
				zap.Int64("chat_id", effective),
				zap.Error(err))
		} else {
			result.Confirmed = true
		}
	}
	return result, nil
}

// Link runs Match and Commit as one step, the shape the webhook uses.
func (s *Service) Link(ctx context.Context, code string, chatID int64) (CommitResult, error) {
	v, err := s.Match(ctx, code, chatID)
	if err != nil {
		s.audit.TelegramLinkFailed(ctx, err.Error())
		return CommitResult{}, err
	}
	res, err := s.Commit(ctx, v, chatID)
	if err != nil {
		s.audit.TelegramLinkFailed(ctx, err.Error())
		return CommitResult{}, err
	}
	return res, nil
}
