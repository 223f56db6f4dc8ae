// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents admins, coordinators, specialists, and viewers.
//
// NOTE:
//   - TelegramChatID is nil until the user completes the linking flow.
//     At most one user may hold a given chat id (unique sparse index).
type User struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FullName     string              `bson:"full_name" json:"full_name"`
	FullNameCI   string              `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	LoginID      string              `bson:"login_id" json:"login_id"`
	LoginIDCI    string              `bson:"login_id_ci" json:"-"`
	PasswordHash string              `bson:"password_hash,omitempty" json:"-"`
	AuthMethod   string              `bson:"auth_method,omitempty" json:"auth_method,omitempty"` // internal | google
	Role         string              `bson:"role" json:"role"`                                   // admin | coordinator | specialist | viewer
	Status       string              `bson:"status,omitempty" json:"status,omitempty"`
	DepartmentID *primitive.ObjectID `bson:"department_id,omitempty" json:"department_id,omitempty"`

	TelegramChatID *int64 `bson:"telegram_chat_id,omitempty" json:"telegram_chat_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
