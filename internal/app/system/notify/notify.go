// Package notify delivers notifications: every notification is persisted to
// the in-app inbox first, then best-effort forwarded to Telegram for users
// who linked a chat. Persistence is the source of truth; a Telegram outage
// never loses a notification or fails the triggering request.
package notify

import (
	"context"
	"fmt"

	"github.com/clarityhealth/claritymdt/internal/app/store/notifications"
	userstore "github.com/clarityhealth/claritymdt/internal/app/store/users"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Sender forwards a message to a Telegram chat. Implemented by the
// telegram package; nil disables forwarding.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type Notifier struct {
	notifications *notifications.Store
	users         *userstore.Store
	sender        Sender
	log           *zap.Logger
}

func New(notifications *notifications.Store, users *userstore.Store, sender Sender, log *zap.Logger) *Notifier {
	return &Notifier{
		notifications: notifications,
		users:         users,
		sender:        sender,
		log:           log,
	}
}

// Result reports delivery for one notification. Persisted is the stored
// row; Forwarded says whether the Telegram copy went out.
type Result struct {
	Persisted models.Notification
	Forwarded bool
}

// Notify persists a notification for one user and forwards it if the user
// has a linked chat. A persistence failure is the only error path.
func (n *Notifier) Notify(ctx context.Context, notification models.Notification) (Result, error) {
	stored, err := n.notifications.Insert(ctx, notification)
	if err != nil {
		return Result{}, fmt.Errorf("persist notification: %w", err)
	}

	res := Result{Persisted: stored}
	if n.sender == nil {
		return res, nil
	}

	u, err := n.users.GetByID(ctx, stored.UserID)
	if err != nil {
		n.log.Warn("notification persisted but user lookup failed; skipping forward",
			zap.String("user_id", stored.UserID.Hex()),
			zap.Error(err))
		return res, nil
	}
	if u.TelegramChatID == nil {
		return res, nil
	}

	if err := n.sender.SendMessage(ctx, *u.TelegramChatID, render(stored)); err != nil {
		n.log.Warn("telegram forward failed",
			zap.String("user_id", stored.UserID.Hex()),
			zap.Int64("chat_id", *u.TelegramChatID),
			zap.Error(err))
		return res, nil
	}
	res.Forwarded = true
	return res, nil
}

// ManyResult reports delivery for a fan-out.
type ManyResult struct {
	Persisted []models.Notification
	Forwarded int
}

// NotifyMany fans one notification out to a set of users. The batch is a
// single InsertMany; forwarding then runs per linked user. Duplicate user
// IDs are collapsed so nobody is notified twice for one event.
func (n *Notifier) NotifyMany(ctx context.Context, userIDs []primitive.ObjectID, template models.Notification) (ManyResult, error) {
	seen := make(map[primitive.ObjectID]struct{}, len(userIDs))
	batch := make([]models.Notification, 0, len(userIDs))
	for _, uid := range userIDs {
		if uid.IsZero() {
			continue
		}
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		item := template
		item.ID = primitive.NilObjectID
		item.UserID = uid
		batch = append(batch, item)
	}
	if len(batch) == 0 {
		return ManyResult{}, nil
	}

	stored, err := n.notifications.InsertMany(ctx, batch)
	if err != nil {
		return ManyResult{}, fmt.Errorf("persist notifications: %w", err)
	}
	res := ManyResult{Persisted: stored}
	if n.sender == nil {
		return res, nil
	}

	ids := make([]primitive.ObjectID, 0, len(stored))
	for _, item := range stored {
		ids = append(ids, item.UserID)
	}
	users, err := n.users.ListByIDs(ctx, ids)
	if err != nil {
		n.log.Warn("notifications persisted but user lookup failed; skipping forwards",
			zap.Int("count", len(stored)),
			zap.Error(err))
		return res, nil
	}
	chats := make(map[primitive.ObjectID]int64, len(users))
	for _, u := range users {
		if u.TelegramChatID != nil {
			chats[u.ID] = *u.TelegramChatID
		}
	}

	for _, item := range stored {
		chatID, linked := chats[item.UserID]
		if !linked {
			continue
		}
		if err := n.sender.SendMessage(ctx, chatID, render(item)); err != nil {
			n.log.Warn("telegram forward failed",
				zap.String("user_id", item.UserID.Hex()),
				zap.Int64("chat_id", chatID),
				zap.Error(err))
			continue
		}
		res.Forwarded++
	}
	return res, nil
}

// render formats the Telegram copy of a notification.
func render(n models.Notification) string {
	if n.Message == "" {
		return n.Title
	}
	return n.Title + "\n" + n.Message
}
