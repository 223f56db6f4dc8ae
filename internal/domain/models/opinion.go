// internal/domain/models/opinion.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Opinion is one specialist's written assessment of a case.
// A specialist has at most one opinion per case (unique index on
// case_id + author_id); re-submitting updates it.
type Opinion struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CaseID         primitive.ObjectID `bson:"case_id" json:"case_id"`
	AuthorID       primitive.ObjectID `bson:"author_id" json:"author_id"`
	Body           string             `bson:"body" json:"body"`
	Recommendation string             `bson:"recommendation,omitempty" json:"recommendation,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}
