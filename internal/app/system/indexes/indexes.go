// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Errors are aggregated so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureDepartments(ctx, db); err != nil {
		problems = append(problems, "departments: "+err.Error())
	}
	if err := ensureCases(ctx, db); err != nil {
		problems = append(problems, "cases: "+err.Error())
	}
	if err := ensureOpinions(ctx, db); err != nil {
		problems = append(problems, "opinions: "+err.Error())
	}
	if err := ensureConsensusReports(ctx, db); err != nil {
		problems = append(problems, "consensus_reports: "+err.Error())
	}
	if err := ensureMeetings(ctx, db); err != nil {
		problems = append(problems, "meetings: "+err.Error())
	}
	if err := ensureAttachments(ctx, db); err != nil {
		problems = append(problems, "attachments: "+err.Error())
	}
	if err := ensureNotifications(ctx, db); err != nil {
		problems = append(problems, "notifications: "+err.Error())
	}
	if err := ensureVerificationCodes(ctx, db); err != nil {
		problems = append(problems, "verification_codes: "+err.Error())
	}
	if err := ensureAuditEvents(ctx, db); err != nil {
		problems = append(problems, "audit_events: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile desired indexes for one collection                   */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := a != nil && *a
	bv := b != nil && *b
	return av == bv
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing := map[string]existingIndex{} // key signature -> index
	cur, err := coll.Indexes().List(ctx)
	if err == nil {
		defer cur.Close(ctx)
		for cur.Next(ctx) {
			var idx existingIndex
			if err := cur.Decode(&idx); err != nil {
				zap.L().Warn("failed to decode existing index",
					zap.String("collection", coll.Name()),
					zap.Error(err))
				continue
			}
			existing[keySig(idx.Key)] = idx
		}
	}

	var errs []string
	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if sameBoolPtr(desiredUnique, ex.Unique) {
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}
			// Options changed (e.g. upgrading to unique): drop and recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", sig),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", sig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Login IDs must be unique across all users (case/diacritics folded).
		{
			Keys:    bson.D{{Key: "login_id_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_loginidci"),
		},
		// One user per Telegram chat. Sparse: most users never link.
		{
			Keys:    bson.D{{Key: "telegram_chat_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_users_tgchat"),
		},
		// Role-segmented lists with stable name sort.
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_role_nameci__id"),
		},
		// Department rosters.
		{
			Keys:    bson.D{{Key: "department_id", Value: 1}},
			Options: options.Index().SetName("idx_users_department"),
		},
	})
}

func ensureDepartments(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("departments")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_departments_nameci"),
		},
	})
}

func ensureCases(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("cases")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Board views: open cases newest-first.
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_cases_status_created"),
		},
		{
			Keys:    bson.D{{Key: "department_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_cases_department_created"),
		},
		// "My cases" for specialists (multikey over the assignment array).
		{
			Keys:    bson.D{{Key: "specialist_ids", Value: 1}},
			Options: options.Index().SetName("idx_cases_specialists"),
		},
	})
}

func ensureOpinions(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("opinions")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One opinion per specialist per case; resubmission updates in place.
		{
			Keys:    bson.D{{Key: "case_id", Value: 1}, {Key: "author_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_opinions_case_author"),
		},
		{
			Keys:    bson.D{{Key: "case_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_opinions_case_created"),
		},
	})
}

func ensureConsensusReports(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("consensus_reports")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one consensus report per case.
		{
			Keys:    bson.D{{Key: "case_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_reports_case"),
		},
	})
}

func ensureMeetings(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("meetings")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Agenda views: upcoming meetings in time order.
		{
			Keys:    bson.D{{Key: "scheduled_at", Value: 1}},
			Options: options.Index().SetName("idx_meetings_scheduled"),
		},
		{
			Keys:    bson.D{{Key: "case_ids", Value: 1}},
			Options: options.Index().SetName("idx_meetings_cases"),
		},
		{
			Keys:    bson.D{{Key: "participant_ids", Value: 1}, {Key: "scheduled_at", Value: 1}},
			Options: options.Index().SetName("idx_meetings_participant_scheduled"),
		},
	})
}

func ensureAttachments(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("attachments")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "case_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_attachments_case_created"),
		},
	})
}

func ensureNotifications(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("notifications")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Inbox: a user's notifications newest-first.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_notifications_user_created"),
		},
		// Unread badge counts.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}},
			Options: options.Index().SetName("idx_notifications_user_read"),
		},
	})
}

func ensureVerificationCodes(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("verification_codes")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One pending code per user; issuing again replaces it.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_vcodes_user"),
		},
		// Webhook lookup path is by code value.
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_vcodes_code"),
		},
		// TTL backstop. Expiry is enforced at read time; Mongo's sweep only
		// keeps the collection from accumulating dead codes.
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_vcodes_expires"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("audit_events")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_created"),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_created"),
		},
	})
}
