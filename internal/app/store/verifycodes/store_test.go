package verifycodes_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/clarityhealth/claritymdt/internal/app/store/verifycodes"
	"github.com/clarityhealth/claritymdt/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNew_DefaultExpiry(t *testing.T) {
	db := testutil.SetupTestDB(t)

	if got := verifycodes.New(db, 0).Expiry(); got != verifycodes.DefaultExpiry {
		t.Errorf("expected default expiry %v, got %v", verifycodes.DefaultExpiry, got)
	}
	if got := verifycodes.New(db, 30*time.Minute).Expiry(); got != 30*time.Minute {
		t.Errorf("expected custom expiry, got %v", got)
	}
}

func TestIssue_CodeFormat(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := verifycodes.New(db, 0)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	v, err := store.Issue(ctx, primitive.NewObjectID(), 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if !verifycodes.ValidFormat(v.Code) {
		t.Errorf("issued code %q has invalid format", v.Code)
	}
	if v.ChatID != 0 {
		t.Errorf("chat ID should be 0 until the webhook supplies it, got %d", v.ChatID)
	}
	if !v.ExpiresAt.After(time.Now()) {
		t.Error("issued code should not already be expired")
	}
}

func TestIssue_ReplacesExistingCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := verifycodes.New(db, 0)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	first, err := store.Issue(ctx, userID, 0)
	if err != nil {
		t.Fatalf("first Issue failed: %v", err)
	}
	second, err := store.Issue(ctx, userID, 0)
	if err != nil {
		t.Fatalf("second Issue failed: %v", err)
	}

	// Only the newest code should remain.
	if _, err := store.FindByCode(ctx, first.Code); !errors.Is(err, verifycodes.ErrNotFound) {
		t.Errorf("old code should be gone, got %v", err)
	}
	got, err := store.Find(ctx, userID)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got.Code != second.Code {
		t.Errorf("Find returned %q, want latest code %q", got.Code, second.Code)
	}
}

func TestFindByCode_Normalizes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := verifycodes.New(db, 0)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	v, err := store.Issue(ctx, primitive.NewObjectID(), 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Lowercase with surrounding whitespace, as a user might type it.
	got, err := store.FindByCode(ctx, "  "+strings.ToLower(v.Code)+" ")
	if err != nil {
		t.Fatalf("FindByCode failed: %v", err)
	}
	if got.ID != v.ID {
		t.Error("FindByCode returned a different record")
	}
}

func TestFindByCode_MalformedCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := verifycodes.New(db, 0)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, code := range []string{"", "ZZZZZZZZ", "ABC", "0123456789AB"} {
		if _, err := store.FindByCode(ctx, code); !errors.Is(err, verifycodes.ErrNotFound) {
			t.Errorf("FindByCode(%q): expected ErrNotFound, got %v", code, err)
		}
	}
}

func TestConsume_SingleUse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := verifycodes.New(db, 0)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	v, err := store.Issue(ctx, primitive.NewObjectID(), 4242)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := store.Consume(ctx, v.ID); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if err := store.Consume(ctx, v.ID); !errors.Is(err, verifycodes.ErrNotFound) {
		t.Errorf("second Consume should report ErrNotFound, got %v", err)
	}
	if _, err := store.FindByCode(ctx, v.Code); !errors.Is(err, verifycodes.ErrNotFound) {
		t.Errorf("consumed code should be gone, got %v", err)
	}
}

func TestFind_ReturnsExpiredCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	// Negative window is coerced to the default; issue with a tiny window instead.
	store := verifycodes.New(db, time.Millisecond)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	v, err := store.Issue(ctx, userID, 0)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	// The store hands back expired rows; expiry policy lives in the matcher.
	got, err := store.Find(ctx, userID)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if got.Code != v.Code {
		t.Error("Find returned a different code")
	}
	if got.ExpiresAt.After(time.Now()) {
		t.Error("code should be expired")
	}
}

func TestValidFormat(t *testing.T) {
	valid := []string{"ABCDEF01", "00000000", "DEADBEEF"}
	for _, code := range valid {
		if !verifycodes.ValidFormat(code) {
			t.Errorf("expected %q to be valid", code)
		}
	}
	invalid := []string{"", "abcdef01", "ABCDEFG1", "ABCDEF0", "ABCDEF012"}
	for _, code := range invalid {
		if verifycodes.ValidFormat(code) {
			t.Errorf("expected %q to be invalid", code)
		}
	}
}
