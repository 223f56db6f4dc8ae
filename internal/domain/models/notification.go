// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types.
const (
	NotifyMeetingScheduled = "meeting_scheduled"
	NotifyMeetingUpdated   = "meeting_updated"
	NotifyOpinionSubmitted = "opinion_submitted"
	NotifyReportFinalized  = "report_finalized"
	NotifyCaseAssigned     = "case_assigned"
	NotifySystem           = "system"
)

// Notification is an in-app message addressed to exactly one user.
// UserID is immutable after creation; only the owner may toggle the read
// state or delete the row.
type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Type      string              `bson:"type" json:"type"`
	Title     string              `bson:"title" json:"title"`
	Message   string              `bson:"message,omitempty" json:"message,omitempty"`
	MeetingID *primitive.ObjectID `bson:"meeting_id,omitempty" json:"meeting_id,omitempty"`
	CaseID    *primitive.ObjectID `bson:"case_id,omitempty" json:"case_id,omitempty"`
	Read      bool                `bson:"read" json:"read"`
	ReadAt    *time.Time          `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}
