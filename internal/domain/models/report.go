// internal/domain/models/report.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConsensusReport is the board's agreed outcome for a case. One per case.
// Once finalized it can no longer be edited.
type ConsensusReport struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CaseID      primitive.ObjectID  `bson:"case_id" json:"case_id"`
	Body        string              `bson:"body" json:"body"`
	Decision    string              `bson:"decision,omitempty" json:"decision,omitempty"`
	Finalized   bool                `bson:"finalized" json:"finalized"`
	FinalizedBy *primitive.ObjectID `bson:"finalized_by,omitempty" json:"finalized_by,omitempty"`
	FinalizedAt *time.Time          `bson:"finalized_at,omitempty" json:"finalized_at,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}
