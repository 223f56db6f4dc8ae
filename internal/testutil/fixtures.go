package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// InsertUser writes a user document directly, bypassing store validation.
// Useful for seeding handler tests.
func InsertUser(t *testing.T, db *mongo.Database, u models.User) models.User {
	t.Helper()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.FullNameCI == "" {
		u.FullNameCI = text.Fold(u.FullName)
	}
	if u.LoginIDCI == "" {
		u.LoginIDCI = text.Fold(u.LoginID)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
		u.UpdatedAt = u.CreatedAt
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.Collection("users").InsertOne(ctx, u); err != nil {
		t.Fatalf("insert user fixture: %v", err)
	}
	return u
}

// InsertCase writes a case document directly.
func InsertCase(t *testing.T, db *mongo.Database, c models.Case) models.Case {
	t.Helper()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.Status == "" {
		c.Status = models.CaseOpen
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
		c.UpdatedAt = c.CreatedAt
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.Collection("cases").InsertOne(ctx, c); err != nil {
		t.Fatalf("insert case fixture: %v", err)
	}
	return c
}
