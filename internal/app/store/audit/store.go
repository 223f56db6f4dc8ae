// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth     = "auth"
	CategoryAdmin    = "admin"
	CategoryClinical = "clinical"
	CategoryTelegram = "telegram"
)

// Auth event types
const (
	EventLoginSuccess             = "login_success"
	EventLoginFailedUserNotFound  = "login_failed_user_not_found"
	EventLoginFailedWrongPassword = "login_failed_wrong_password"
	EventLoginFailedUserDisabled  = "login_failed_user_disabled"
	EventLoginFailedRateLimit     = "login_failed_rate_limit"
	EventLogout                   = "logout"
)

// Admin event types
const (
	EventUserCreated       = "user_created"
	EventUserUpdated       = "user_updated"
	EventUserDeleted       = "user_deleted"
	EventDepartmentCreated = "department_created"
	EventDepartmentUpdated = "department_updated"
	EventDepartmentDeleted = "department_deleted"
)

// Clinical event types
const (
	EventCaseCreated        = "case_created"
	EventCaseUpdated        = "case_updated"
	EventCaseClosed         = "case_closed"
	EventOpinionSubmitted   = "opinion_submitted"
	EventReportFinalized    = "report_finalized"
	EventMeetingScheduled   = "meeting_scheduled"
	EventAttachmentUploaded = "attachment_uploaded"
)

// Telegram event types
const (
	EventTelegramLinkRequested = "telegram_link_requested"
	EventTelegramLinked        = "telegram_linked"
	EventTelegramLinkFailed    = "telegram_link_failed"
	EventTelegramUnlinked      = "telegram_unlinked"
)

// Event is one audit record.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// UserID is the affected user; ActorID is who performed the action.
	UserID  *primitive.ObjectID `bson:"user_id,omitempty"`
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty"`

	// SubjectID points at the case, meeting, or other record the event is about.
	SubjectID *primitive.ObjectID `bson:"subject_id,omitempty"`

	IP        string `bson:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty"`

	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter narrows an audit query.
type QueryFilter struct {
	ActorID   *primitive.ObjectID
	UserID    *primitive.ObjectID
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
	Offset    int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func (f QueryFilter) query() bson.M {
	q := bson.M{}
	if f.ActorID != nil {
		q["actor_id"] = f.ActorID
	}
	if f.UserID != nil {
		q["user_id"] = f.UserID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if f.StartTime != nil || f.EndTime != nil {
		tq := bson.M{}
		if f.StartTime != nil {
			tq["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			tq["$lte"] = *f.EndTime
		}
		q["created_at"] = tq
	}
	return q
}

// Query retrieves audit events matching the filter, most recent first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns how many events match the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.query())
}

// GetRecent retrieves the most recent audit events.
func (s *Store) GetRecent(ctx context.Context, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{Limit: limit})
}

// GetByUser retrieves recent events affecting a specific user.
func (s *Store) GetByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{UserID: &userID, Limit: limit})
}
