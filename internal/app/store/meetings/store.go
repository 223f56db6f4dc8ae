// internal/app/store/meetings/store.go
package meetings

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
	ErrNotFound = errors.New("meeting not found")

	errEmptyTitle = errors.New("meeting title is required")
	errNoSchedule = errors.New("meeting time is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("meetings")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Meeting, error) {
	var m models.Meeting
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *Store) Create(ctx context.Context, m models.Meeting) (models.Meeting, error) {
	m.ID = primitive.NewObjectID()
	m.Title = normalize.Name(m.Title)
	if m.Title == "" {
		return models.Meeting{}, errEmptyTitle
	}
	m.TitleCI = text.Fold(m.Title)
	if m.ScheduledAt.IsZero() {
		return models.Meeting{}, errNoSchedule
	}

	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Meeting{}, err
	}
	return m, nil
}

// Update holds the editable meeting fields.
type Update struct {
	Title          string
	ScheduledAt    time.Time
	Location       string
	CaseIDs        []primitive.ObjectID
	ParticipantIDs []primitive.ObjectID
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	title := normalize.Name(upd.Title)
	if title == "" {
		return errEmptyTitle
	}
	if upd.ScheduledAt.IsZero() {
		return errNoSchedule
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"title":           title,
		"title_ci":        text.Fold(title),
		"scheduled_at":    upd.ScheduledAt,
		"location":        upd.Location,
		"case_ids":        upd.CaseIDs,
		"participant_ids": upd.ParticipantIDs,
		"updated_at":      time.Now(),
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
	ParticipantID *primitive.ObjectID
	CaseID        *primitive.ObjectID
	From          *time.Time
	Limit         int64
}

// List returns meetings in schedule order.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]models.Meeting, error) {
	q := bson.M{}
	if filter.ParticipantID != nil {
		q["participant_ids"] = filter.ParticipantID
	}
	if filter.CaseID != nil {
		q["case_ids"] = filter.CaseID
	}
	if filter.From != nil {
		q["scheduled_at"] = bson.M{"$gte": *filter.From}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Meeting
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
