// internal/domain/models/verificationcode.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VerificationCode is a short-lived, single-use token proving control of a
// Telegram chat. One live row per user (unique index on user_id); issuing a
// new code replaces any outstanding one. ChatID is 0 when the code was
// requested before the chat identity is known (webhook flow supplies it).
type VerificationCode struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Code      string             `bson:"code"` // 8 uppercase hex chars
	ChatID    int64              `bson:"chat_id,omitempty"`
	ExpiresAt time.Time          `bson:"expires_at"` // TTL index field
	CreatedAt time.Time          `bson:"created_at"`
}

// Expired reports whether the code's lifetime has passed.
func (v *VerificationCode) Expired() bool {
	return time.Now().After(v.ExpiresAt)
}
