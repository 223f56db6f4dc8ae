// internal/app/store/departments/store.go
package departments

import (
	"context"
	"errors"
	"time"

	"github.com/clarityhealth/claritymdt/internal/app/system/normalize"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound      = errors.New("department not found")
	ErrDuplicateName = errors.New("a department with this name already exists")
	errEmptyName     = errors.New("department name is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("departments")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Department, error) {
	var d models.Department
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Create inserts a department. Names are unique case-insensitively.
func (s *Store) Create(ctx context.Context, d models.Department) (models.Department, error) {
	d.ID = primitive.NewObjectID()
	d.Name = normalize.Name(d.Name)
	if d.Name == "" {
		return models.Department{}, errEmptyName
	}
	d.NameCI = text.Fold(d.Name)

	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, d); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Department{}, ErrDuplicateName
		}
		return models.Department{}, err
	}
	return d, nil
}

// Update rewrites name and description.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, name, description string) error {
	name = normalize.Name(name)
	if name == "" {
		return errEmptyName
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":        name,
		"name_ci":     text.Fold(name),
		"description": description,
		"updated_at":  time.Now(),
	}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateName
		}
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

// List returns all departments sorted by folded name.
func (s *Store) List(ctx context.Context) ([]models.Department, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ds []models.Department
	if err := cur.All(ctx, &ds); err != nil {
		return nil, err
	}
	return ds, nil
}
