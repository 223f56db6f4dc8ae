package notifications_test

import (
	"errors"
	"testing"

	"github.com/clarityhealth/claritymdt/internal/app/store/notifications"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"github.com/clarityhealth/claritymdt/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestInsertAndListByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notifications.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	other := primitive.NewObjectID()

	for i := 0; i < 3; i++ {
		if _, err := store.Insert(ctx, models.Notification{
			UserID: userID, Type: models.NotifySystem, Title: "t",
		}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	store.Insert(ctx, models.Notification{UserID: other, Type: models.NotifySystem, Title: "x"})

	ns, err := store.ListByUser(ctx, userID, false, 0)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(ns) != 3 {
		t.Errorf("expected 3 notifications, got %d", len(ns))
	}
	for _, n := range ns {
		if n.UserID != userID {
			t.Error("ListByUser leaked another user's notification")
		}
	}
}

func TestInsertMany_Batch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notifications.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()}
	batch := make([]models.Notification, len(users))
	for i, uid := range users {
		batch[i] = models.Notification{UserID: uid, Type: models.NotifyMeetingScheduled, Title: "MDT meeting"}
	}

	inserted, err := store.InsertMany(ctx, batch)
	if err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}
	if len(inserted) != 3 {
		t.Fatalf("expected 3 inserted, got %d", len(inserted))
	}
	for i, n := range inserted {
		if n.ID.IsZero() {
			t.Errorf("notification %d has no ID", i)
		}
		if n.CreatedAt.IsZero() {
			t.Errorf("notification %d has no timestamp", i)
		}
	}

	// Empty batch is a no-op, not an error.
	if _, err := store.InsertMany(ctx, nil); err != nil {
		t.Errorf("empty InsertMany should succeed: %v", err)
	}
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notifications.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	n1, _ := store.Insert(ctx, models.Notification{UserID: userID, Type: models.NotifySystem, Title: "a"})
	store.Insert(ctx, models.Notification{UserID: userID, Type: models.NotifySystem, Title: "b"})

	if count, _ := store.UnreadCount(ctx, userID); count != 2 {
		t.Errorf("expected 2 unread, got %d", count)
	}

	if err := store.MarkRead(ctx, n1.ID, userID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if count, _ := store.UnreadCount(ctx, userID); count != 1 {
		t.Errorf("expected 1 unread after MarkRead, got %d", count)
	}

	ns, _ := store.ListByUser(ctx, userID, true, 0)
	if len(ns) != 1 || ns[0].Title != "b" {
		t.Errorf("unreadOnly list wrong: %+v", ns)
	}
}

func TestMarkRead_OwnerScoped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notifications.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	n, _ := store.Insert(ctx, models.Notification{UserID: owner, Type: models.NotifySystem, Title: "a"})

	err := store.MarkRead(ctx, n.ID, primitive.NewObjectID())
	if !errors.Is(err, notifications.ErrNotFound) {
		t.Errorf("non-owner MarkRead should be ErrNotFound, got %v", err)
	}
	if count, _ := store.UnreadCount(ctx, owner); count != 1 {
		t.Error("notification should still be unread")
	}
}

func TestMarkAllRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notifications.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	for i := 0; i < 4; i++ {
		store.Insert(ctx, models.Notification{UserID: userID, Type: models.NotifySystem, Title: "n"})
	}

	flipped, err := store.MarkAllRead(ctx, userID)
	if err != nil {
		t.Fatalf("MarkAllRead failed: %v", err)
	}
	if flipped != 4 {
		t.Errorf("expected 4 flipped, got %d", flipped)
	}
	if count, _ := store.UnreadCount(ctx, userID); count != 0 {
		t.Errorf("expected 0 unread, got %d", count)
	}
}

func TestDelete_OwnerScoped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notifications.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	n, _ := store.Insert(ctx, models.Notification{UserID: owner, Type: models.NotifySystem, Title: "a"})

	if err := store.Delete(ctx, n.ID, primitive.NewObjectID()); !errors.Is(err, notifications.ErrNotFound) {
		t.Errorf("non-owner Delete should be ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, n.ID, owner); err != nil {
		t.Fatalf("owner Delete failed: %v", err)
	}
	if err := store.Delete(ctx, n.ID, owner); !errors.Is(err, notifications.ErrNotFound) {
		t.Errorf("second Delete should be ErrNotFound, got %v", err)
	}
}
