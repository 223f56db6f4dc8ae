// internal/app/store/notifications/store.go
package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no notification matches, including when a
// row exists but belongs to a different user. Ownership misses are not
// distinguished from absence, so callers can't probe other users' inboxes.
var ErrNotFound = errors.New("notification not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications")}
}

// Insert persists one notification.
func (s *Store) Insert(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

// InsertMany persists a batch in one round trip. Used by fan-out so a
// meeting with thirty participants is one write, not thirty.
func (s *Store) InsertMany(ctx context.Context, ns []models.Notification) ([]models.Notification, error) {
	if len(ns) == 0 {
		return nil, nil
	}
	now := time.Now()
	docs := make([]any, len(ns))
	for i := range ns {
		if ns[i].ID.IsZero() {
			ns[i].ID = primitive.NewObjectID()
		}
		if ns[i].CreatedAt.IsZero() {
			ns[i].CreatedAt = now
		}
		docs[i] = ns[i]
	}
	if _, err := s.c.InsertMany(ctx, docs); err != nil {
		return nil, err
	}
	return ns, nil
}

// ListByUser returns a user's notifications newest-first.
// unreadOnly narrows to unread; limit<=0 means a default of 50.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	q := bson.M{"user_id": userID}
	if unreadOnly {
		q["read"] = false
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ns []models.Notification
	if err := cur.All(ctx, &ns); err != nil {
		return nil, err
	}
	return ns, nil
}

// UnreadCount returns how many unread notifications the user has.
func (s *Store) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
}

// MarkRead flags one notification read, but only if userID owns it.
func (s *Store) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	now := time.Now()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"read": true, "read_at": now}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification for the user and returns
// how many were flipped.
func (s *Store) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	now := time.Now()
	res, err := s.c.UpdateMany(ctx,
		bson.M{"user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": now}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Delete removes one notification, but only if userID owns it.
func (s *Store) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
