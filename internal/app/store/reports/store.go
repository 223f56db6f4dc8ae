// internal/app/store/reports/store.go
package reports

import (
	"context"
	"errors"
	"time"

	"github.com/clarityhealth/claritymdt/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound      = errors.New("consensus report not found")
	ErrAlreadyExists = errors.New("case already has a consensus report")
	// ErrFinalized guards the immutability of finalized reports.
	ErrFinalized = errors.New("consensus report is finalized")

	errEmptyBody = errors.New("report body is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("consensus_reports")}
}

// GetByCase returns the case's consensus report, if any.
func (s *Store) GetByCase(ctx context.Context, caseID primitive.ObjectID) (*models.ConsensusReport, error) {
	var r models.ConsensusReport
	if err := s.c.FindOne(ctx, bson.M{"case_id": caseID}).Decode(&r); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// Create inserts a draft report for a case. The unique index on case_id
// enforces at most one report per case.
func (s *Store) Create(ctx context.Context, r models.ConsensusReport) (models.ConsensusReport, error) {
	if r.Body == "" {
		return models.ConsensusReport{}, errEmptyBody
	}
	r.ID = primitive.NewObjectID()
	r.Finalized = false
	r.FinalizedBy = nil
	r.FinalizedAt = nil

	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, r); err != nil {
		if wafflemongo.IsDup(err) {
			return models.ConsensusReport{}, ErrAlreadyExists
		}
		return models.ConsensusReport{}, err
	}
	return r, nil
}

// UpdateDraft rewrites body and decision, refusing finalized reports.
func (s *Store) UpdateDraft(ctx context.Context, caseID primitive.ObjectID, body, decision string) error {
	if body == "" {
		return errEmptyBody
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"case_id": caseID, "finalized": false},
		bson.M{"$set": bson.M{"body": body, "decision": decision, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Distinguish "no report" from "finalized".
		if err := s.c.FindOne(ctx, bson.M{"case_id": caseID}).Err(); err == nil {
			return ErrFinalized
		}
		return ErrNotFound
	}
	return nil
}

// Finalize stamps the report immutable. The finalized:false filter makes
// a double-finalize visible as ErrFinalized rather than silently updating.
func (s *Store) Finalize(ctx context.Context, caseID, finalizedBy primitive.ObjectID) (*models.ConsensusReport, error) {
	now := time.Now()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"case_id": caseID, "finalized": false},
		bson.M{"$set": bson.M{
			"finalized":    true,
			"finalized_by": finalizedBy,
			"finalized_at": now,
			"updated_at":   now,
		}})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		if err := s.c.FindOne(ctx, bson.M{"case_id": caseID}).Err(); err == nil {
			return nil, ErrFinalized
		}
		return nil, ErrNotFound
	}
	return s.GetByCase(ctx, caseID)
}

// DeleteByCase removes the case's report (case deletion cascade).
func (s *Store) DeleteByCase(ctx context.Context, caseID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"case_id": caseID})
	return err
}
