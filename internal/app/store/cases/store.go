// internal/app/store/cases/store.go
package cases

import (
	"context"
	"errors"
	"time"

	"github.com/clarityhealth/claritymdt/internal/app/system/normalize"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound   = errors.New("case not found")
	ErrCaseClosed = errors.New("case is closed")

	errEmptyTitle    = errors.New("case title is required")
	errEmptyPatient  = errors.New("patient reference is required")
	errInvalidStatus = errors.New(`status must be "open"|"in_review"|"closed"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("cases")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Case, error) {
	var cs models.Case
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&cs); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cs, nil
}

// Create inserts a case. Summary is expected to be sanitized by the
// handler before it gets here.
func (s *Store) Create(ctx context.Context, cs models.Case) (models.Case, error) {
	cs.ID = primitive.NewObjectID()
	cs.Title = normalize.Name(cs.Title)
	if cs.Title == "" {
		return models.Case{}, errEmptyTitle
	}
	cs.TitleCI = text.Fold(cs.Title)
	if cs.PatientRef == "" {
		return models.Case{}, errEmptyPatient
	}
	if cs.Status == "" {
		cs.Status = models.CaseOpen
	}
	if !models.IsValidCaseStatus(cs.Status) {
		return models.Case{}, errInvalidStatus
	}

	now := time.Now()
	cs.CreatedAt = now
	cs.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, cs); err != nil {
		return models.Case{}, err
	}
	return cs, nil
}

// Update holds the editable case fields.
type Update struct {
	Title         string
	Summary       string
	Status        string
	DepartmentID  primitive.ObjectID
	SpecialistIDs []primitive.ObjectID
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	title := normalize.Name(upd.Title)
	if title == "" {
		return errEmptyTitle
	}
	if !models.IsValidCaseStatus(upd.Status) {
		return errInvalidStatus
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"title":          title,
		"title_ci":       text.Fold(title),
		"summary":        upd.Summary,
		"status":         upd.Status,
		"department_id":  upd.DepartmentID,
		"specialist_ids": upd.SpecialistIDs,
		"updated_at":     time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus moves a case between statuses.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, newStatus string) error {
	if !models.IsValidCaseStatus(newStatus) {
		return errInvalidStatus
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":     newStatus,
		"updated_at": time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignSpecialists replaces the case's specialist assignment list.
func (s *Store) AssignSpecialists(ctx context.Context, id primitive.ObjectID, specialistIDs []primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"specialist_ids": specialistIDs,
		"updated_at":     time.Now(),
	}})
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

// ListFilter narrows List results.
type ListFilter struct {
	Status       string
	DepartmentID *primitive.ObjectID
	SpecialistID *primitive.ObjectID
	Limit        int64
}

// List returns cases newest-first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]models.Case, error) {
	q := bson.M{}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.DepartmentID != nil {
		q["department_id"] = filter.DepartmentID
	}
	if filter.SpecialistID != nil {
		q["specialist_ids"] = filter.SpecialistID
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Case
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByIDs loads the given cases; missing IDs are skipped.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Case, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Case
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
