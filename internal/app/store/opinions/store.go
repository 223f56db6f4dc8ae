// internal/app/store/opinions/store.go
package opinions

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

var (
	ErrNotFound  = errors.New("opinion not found")
	errEmptyBody = errors.New("opinion body is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("opinions")}
}

// Submit upserts the author's opinion for a case. One opinion per
// specialist per case; a resubmission replaces the body in place and
// preserves the original created_at.
func (s *Store) Submit(ctx context.Context, op models.Opinion) (models.Opinion, error) {
	if op.Body == "" {
		return models.Opinion{}, errEmptyBody
	}
	now := time.Now()

	filter := bson.M{"case_id": op.CaseID, "author_id": op.AuthorID}
	update := bson.M{
		"$set": bson.M{
			"body":           op.Body,
			"recommendation": op.Recommendation,
			"updated_at":     now,
		},
		"$setOnInsert": bson.M{
			"case_id":    op.CaseID,
			"author_id":  op.AuthorID,
			"created_at": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var out models.Opinion
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		return models.Opinion{}, err
	}
	return out, nil
}

// GetByCaseAndAuthor returns one specialist's opinion on a case.
func (s *Store) GetByCaseAndAuthor(ctx context.Context, caseID, authorID primitive.ObjectID) (*models.Opinion, error) {
	var op models.Opinion
	if err := s.c.FindOne(ctx, bson.M{"case_id": caseID, "author_id": authorID}).Decode(&op); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &op, nil
}

// ListByCase returns a case's opinions oldest-first.
func (s *Store) ListByCase(ctx context.Context, caseID primitive.ObjectID) ([]models.Opinion, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"case_id": caseID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Opinion
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByCase removes every opinion on a case (case deletion cascade).
func (s *Store) DeleteByCase(ctx context.Context, caseID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"case_id": caseID})
	return err
}
