// internal/domain/models/meeting.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Meeting is a scheduled MDT session covering one or more cases.
type Meeting struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title          string               `bson:"title" json:"title"`
	TitleCI        string               `bson:"title_ci" json:"-"`
	ScheduledAt    time.Time            `bson:"scheduled_at" json:"scheduled_at"`
	Location       string               `bson:"location,omitempty" json:"location,omitempty"`
	CaseIDs        []primitive.ObjectID `bson:"case_ids,omitempty" json:"case_ids,omitempty"`
	ParticipantIDs []primitive.ObjectID `bson:"participant_ids,omitempty" json:"participant_ids,omitempty"`
	CreatedBy      primitive.ObjectID   `bson:"created_by" json:"created_by"`
	CreatedAt      time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updated_at"`
}
