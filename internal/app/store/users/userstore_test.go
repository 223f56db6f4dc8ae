package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/clarityhealth/claritymdt/internal/app/store/users"
	"github.com/clarityhealth/claritymdt/internal/app/system/indexes"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"github.com/clarityhealth/claritymdt/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreate_NormalizesFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{
		FullName: "  Dr. Alice Chen  ",
		LoginID:  "  Chen@Example.org ",
		Role:     "specialist",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if u.FullName != "Dr. Alice Chen" {
		t.Errorf("name not trimmed: %q", u.FullName)
	}
	if u.LoginID != "chen@example.org" {
		t.Errorf("login ID not normalized: %q", u.LoginID)
	}
	if u.Status != "active" {
		t.Errorf("default status: got %q", u.Status)
	}

	// Case-insensitive lookup should find the same user.
	got, err := store.GetByLoginID(ctx, "CHEN@EXAMPLE.ORG")
	if err != nil {
		t.Fatalf("GetByLoginID failed: %v", err)
	}
	if got.ID != u.ID {
		t.Error("GetByLoginID returned a different user")
	}
}

func TestCreate_RejectsBadRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.User{FullName: "X", LoginID: "x@y.z", Role: "superuser"})
	if err == nil {
		t.Error("expected error for invalid role")
	}
}

func TestCreate_DuplicateLoginID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := userstore.New(db)

	if _, err := store.Create(ctx, models.User{FullName: "A", LoginID: "dup@example.org", Role: "viewer"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.User{FullName: "B", LoginID: "DUP@example.org", Role: "viewer"})
	if !errors.Is(err, userstore.ErrDuplicateLoginID) {
		t.Errorf("expected ErrDuplicateLoginID, got %v", err)
	}
}

func TestTelegramChatID_SetGetClear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{FullName: "A", LoginID: "a@example.org", Role: "specialist"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.SetTelegramChatID(ctx, u.ID, 7711); err != nil {
		t.Fatalf("SetTelegramChatID failed: %v", err)
	}

	got, err := store.GetByTelegramChatID(ctx, 7711)
	if err != nil {
		t.Fatalf("GetByTelegramChatID failed: %v", err)
	}
	if got.ID != u.ID {
		t.Error("GetByTelegramChatID returned a different user")
	}

	if err := store.ClearTelegramChatID(ctx, u.ID); err != nil {
		t.Fatalf("ClearTelegramChatID failed: %v", err)
	}
	if _, err := store.GetByTelegramChatID(ctx, 7711); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestSetTelegramChatID_ConflictOnTakenChat(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := userstore.New(db)

	a, _ := store.Create(ctx, models.User{FullName: "A", LoginID: "a@example.org", Role: "specialist"})
	b, _ := store.Create(ctx, models.User{FullName: "B", LoginID: "b@example.org", Role: "specialist"})

	if err := store.SetTelegramChatID(ctx, a.ID, 9900); err != nil {
		t.Fatalf("first link failed: %v", err)
	}
	err := store.SetTelegramChatID(ctx, b.ID, 9900)
	if !errors.Is(err, userstore.ErrChatAlreadyLinked) {
		t.Errorf("expected ErrChatAlreadyLinked, got %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestList_FilterByRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store.Create(ctx, models.User{FullName: "Coord", LoginID: "c@example.org", Role: "coordinator"})
	store.Create(ctx, models.User{FullName: "Spec1", LoginID: "s1@example.org", Role: "specialist"})
	store.Create(ctx, models.User{FullName: "Spec2", LoginID: "s2@example.org", Role: "specialist"})

	specialists, err := store.List(ctx, userstore.ListFilter{Role: "specialist"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(specialists) != 2 {
		t.Errorf("expected 2 specialists, got %d", len(specialists))
	}
}

func TestFetcher_DisabledUserIsSignedOut(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{
		FullName: "D", LoginID: "d@example.org", Role: "viewer", Status: "disabled",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	su, err := userstore.NewFetcher(db).FetchSessionUser(ctx, u.ID.Hex())
	if err != nil {
		t.Fatalf("FetchSessionUser failed: %v", err)
	}
	if su != nil {
		t.Error("disabled user should fetch as nil")
	}
}
