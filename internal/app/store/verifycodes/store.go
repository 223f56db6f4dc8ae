// internal/app/store/verifycodes/store.go
package verifycodes

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clarityhealth/claritymdt/internal/app/system/normalize"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// CodeLength is the length of a verification code in hex characters.
	CodeLength = 8
	// DefaultExpiry is how long a verification code is valid.
	DefaultExpiry = 10 * time.Minute
)

var (
	// ErrNotFound is returned when no verification code matches.
	ErrNotFound = errors.New("verification code not found")
)

// Store manages Telegram verification codes. Codes are stored in plain
// text: the bot webhook looks a code up by value with no user context,
// so a hashed form would have nothing to compare against.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
}

// New creates a Store with the given expiry. Zero or negative expiry
// falls back to DefaultExpiry.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{c: db.Collection("verification_codes"), expiry: expiry}
}

// Expiry returns the configured code lifetime.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Issue creates a verification code for the user, replacing any code they
// already hold. chatID may be 0 when the request originates from the web
// app before the Telegram chat is known.
func (s *Store) Issue(ctx context.Context, userID primitive.ObjectID, chatID int64) (models.VerificationCode, error) {
	now := time.Now()
	v := models.VerificationCode{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Code:      generateCode(),
		ChatID:    chatID,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}

	// One live code per user: replace rather than accumulate.
	if _, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return models.VerificationCode{}, fmt.Errorf("clear previous codes: %w", err)
	}
	if _, err := s.c.InsertOne(ctx, v); err != nil {
		return models.VerificationCode{}, fmt.Errorf("insert verification code: %w", err)
	}
	return v, nil
}

// Find returns the user's pending code, expired or not. Callers decide
// what expiry means for their flow.
func (s *Store) Find(ctx context.Context, userID primitive.ObjectID) (*models.VerificationCode, error) {
	var v models.VerificationCode
	if err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&v); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// FindByCode looks a code up by value after normalizing it. Expired codes
// are returned too; the matcher distinguishes expired from absent.
func (s *Store) FindByCode(ctx context.Context, code string) (*models.VerificationCode, error) {
	code = normalize.Code(code)
	if !ValidFormat(code) {
		return nil, ErrNotFound
	}
	var v models.VerificationCode
	if err := s.c.FindOne(ctx, bson.M{"code": code}).Decode(&v); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// Consume deletes a code by ID, enforcing single use. The delete doubles
// as the atomicity point: of two racing consumers, only one sees the row.
func (s *Store) Consume(ctx context.Context, id primitive.ObjectID) error {
	res := s.c.FindOneAndDelete(ctx, bson.M{"_id": id})
	if err := res.Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// DeleteByUser removes any pending codes for the user.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

// ValidFormat reports whether code looks like an issued code: exactly
// CodeLength uppercase hex characters.
func ValidFormat(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune("0123456789ABCDEF", c) {
			return false
		}
	}
	return true
}

// generateCode produces CodeLength uppercase hex characters.
// Panics if the system's cryptographic random number generator fails.
func generateCode() string {
	b := make([]byte, CodeLength/2)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand.Read failed: " + err.Error())
	}
	return strings.ToUpper(hex.EncodeToString(b))
}
