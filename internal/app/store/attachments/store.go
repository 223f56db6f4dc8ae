// internal/app/store/attachments/store.go
package attachments

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

var ErrNotFound = errors.New("attachment not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("attachments")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Attachment, error) {
	var a models.Attachment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a models.Attachment) (models.Attachment, error) {
	a.ID = primitive.NewObjectID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Attachment{}, err
	}
	return a, nil
}

// SetPDFPath records the cached PDF rendition's storage key.
func (s *Store) SetPDFPath(ctx context.Context, id primitive.ObjectID, pdfPath string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"pdf_path": pdfPath}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByCase returns a case's attachments newest-first.
func (s *Store) ListByCase(ctx context.Context, caseID primitive.ObjectID) ([]models.Attachment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"case_id": caseID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Attachment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByCase removes a case's attachment records (case deletion cascade).
// Storage cleanup is the caller's concern.
func (s *Store) DeleteByCase(ctx context.Context, caseID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"case_id": caseID})
	return err
}
