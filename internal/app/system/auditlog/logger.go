// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strings"

	"github.com/clarityhealth/claritymdt/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config controls where each event category goes.
// Values: "all" (MongoDB + zap), "db", "log", "off".
type Config struct {
	Auth     string
	Admin    string
	Clinical string
	Telegram string
}

// Logger writes audit events to MongoDB and/or structured logs.
// A nil *Logger is a valid no-op, so handlers never need to guard calls.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.SubjectID != nil {
		fields = append(fields, zap.String("subject_id", event.SubjectID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event per the category's configured destination.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategoryClinical:
		setting = l.config.Clinical
	case audit.CategoryTelegram:
		setting = l.config.Telegram
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}
	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

// --- Authentication events ---

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod, loginID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"auth_method": authMethod,
			"login_id":    loginID,
		},
	})
}

func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, attemptedLoginID string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		IP:            clientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "user not found",
		Details:       map[string]string{"attempted_login_id": attemptedLoginID},
	})
}

func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, userID primitive.ObjectID, loginID string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        &userID,
		IP:            clientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "wrong password",
		Details:       map[string]string{"login_id": loginID},
	})
}

func (l *Logger) LoginFailedUserDisabled(ctx context.Context, r *http.Request, userID primitive.ObjectID, loginID string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserDisabled,
		UserID:        &userID,
		IP:            clientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "user disabled",
		Details:       map[string]string{"login_id": loginID},
	})
}

func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, loginID string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedRateLimit,
		IP:            clientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: "rate limit exceeded",
		Details:       map[string]string{"login_id": loginID},
	})
}

// Logout accepts the string ID from the session and converts it.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// --- Admin events ---

func (l *Logger) UserCreated(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, actorRole, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserCreated,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"actor_role": actorRole,
			"role":       role,
		},
	})
}

func (l *Logger) UserUpdated(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, actorRole, fieldsChanged string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserUpdated,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"actor_role":     actorRole,
			"fields_changed": fieldsChanged,
		},
	})
}

func (l *Logger) UserDeleted(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, actorRole, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserDeleted,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"actor_role": actorRole,
			"role":       role,
		},
	})
}

func (l *Logger) DepartmentCreated(ctx context.Context, r *http.Request, actorID, departmentID primitive.ObjectID, actorRole, name string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventDepartmentCreated,
		ActorID:   &actorID,
		SubjectID: &departmentID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"actor_role":      actorRole,
			"department_name": name,
		},
	})
}

func (l *Logger) DepartmentUpdated(ctx context.Context, r *http.Request, actorID, departmentID primitive.ObjectID, actorRole, fieldsChanged string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventDepartmentUpdated,
		ActorID:   &actorID,
		SubjectID: &departmentID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"actor_role":     actorRole,
			"fields_changed": fieldsChanged,
		},
	})
}

func (l *Logger) DepartmentDeleted(ctx context.Context, r *http.Request, actorID, departmentID primitive.ObjectID, actorRole, name string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventDepartmentDeleted,
		ActorID:   &actorID,
		SubjectID: &departmentID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"actor_role":      actorRole,
			"department_name": name,
		},
	})
}

// --- Clinical events ---

func (l *Logger) CaseCreated(ctx context.Context, r *http.Request, actorID, caseID primitive.ObjectID, actorRole string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryClinical,
		EventType: audit.EventCaseCreated,
		ActorID:   &actorID,
		SubjectID: &caseID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"actor_role": actorRole},
	})
}

func (l *Logger) CaseUpdated(ctx context.Context, r *http.Request, actorID, caseID primitive.ObjectID, actorRole, fieldsChanged string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryClinical,
		EventType: audit.EventCaseUpdated,
		ActorID:   &actorID,
		SubjectID: &caseID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details: map[string]string{
			"actor_role":     actorRole,
			"fields_changed": fieldsChanged,
		},
	})
}

func (l *Logger) CaseClosed(ctx context.Context, r *http.Request, actorID, caseID primitive.ObjectID, actorRole string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryClinical,
		EventType: audit.EventCaseClosed,
		ActorID:   &actorID,
		SubjectID: &caseID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"actor_role": actorRole},
	})
}

func (l *Logger) OpinionSubmitted(ctx context.Context, r *http.Request, actorID, caseID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryClinical,
		EventType: audit.EventOpinionSubmitted,
		ActorID:   &actorID,
		SubjectID: &caseID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

func (l *Logger) ReportFinalized(ctx context.Context, r *http.Request, actorID, caseID primitive.ObjectID, actorRole string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryClinical,
		EventType: audit.EventReportFinalized,
		ActorID:   &actorID,
		SubjectID: &caseID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"actor_role": actorRole},
	})
}

func (l *Logger) MeetingScheduled(ctx context.Context, r *http.Request, actorID, meetingID primitive.ObjectID, actorRole string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryClinical,
		EventType: audit.EventMeetingScheduled,
		ActorID:   &actorID,
		SubjectID: &meetingID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"actor_role": actorRole},
	})
}

func (l *Logger) AttachmentUploaded(ctx context.Context, r *http.Request, actorID, caseID primitive.ObjectID, fileName string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryClinical,
		EventType: audit.EventAttachmentUploaded,
		ActorID:   &actorID,
		SubjectID: &caseID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"file_name": fileName},
	})
}

// --- Telegram events ---

func (l *Logger) TelegramLinkRequested(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryTelegram,
		EventType: audit.EventTelegramLinkRequested,
		UserID:    &userID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// TelegramLinked has no request context: the link is committed from the
// bot webhook path, not a browser session.
func (l *Logger) TelegramLinked(ctx context.Context, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryTelegram,
		EventType: audit.EventTelegramLinked,
		UserID:    &userID,
		Success:   true,
	})
}

func (l *Logger) TelegramLinkFailed(ctx context.Context, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryTelegram,
		EventType:     audit.EventTelegramLinkFailed,
		Success:       false,
		FailureReason: reason,
	})
}

func (l *Logger) TelegramUnlinked(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryTelegram,
		EventType: audit.EventTelegramUnlinked,
		UserID:    &userID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}
