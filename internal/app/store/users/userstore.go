package userstore

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"errors"
	"time"

	"github.com/clarityhealth/claritymdt/internal/app/system/normalize"
	"github.com/clarityhealth/claritymdt/internal/app/system/status"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no user matches the query.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateLoginID is returned when a login ID is already taken.
	ErrDuplicateLoginID = errors.New("a user with this login ID already exists")
	// ErrChatAlreadyLinked is returned when a Telegram chat is already bound
	// to another account.
	ErrChatAlreadyLinked = errors.New("telegram chat is already linked to another user")

	errBadRole   = errors.New(`role must be "admin"|"coordinator"|"specialist"|"viewer"`)
	errBadStatus = errors.New(`status must be "active"|"disabled"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByLoginID looks up a user by case-insensitive login ID.
func (s *Store) GetByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"login_id_ci": text.Fold(normalize.LoginID(loginID))}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByTelegramChatID finds the user linked to a Telegram chat.
func (s *Store) GetByTelegramChatID(ctx context.Context, chatID int64) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"telegram_chat_id": chatID}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.LoginID = normalize.LoginID(u.LoginID)
	u.LoginIDCI = text.Fold(u.LoginID)
	if u.Status == "" {
		u.Status = status.Active
	}

	switch u.Role {
	case "admin", "coordinator", "specialist", "viewer":
		// ok
	default:
		return models.User{}, errBadRole
	}
	if !status.IsValid(u.Status) {
		return models.User{}, errBadStatus
	}

	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateLoginID
		}
		return models.User{}, err
	}
	return u, nil
}

// Update holds the fields an admin may change on a user.
type Update struct {
	FullName     string
	LoginID      string
	Role         string
	Status       string
	DepartmentID *primitive.ObjectID
}

// Update rewrites a user's editable fields.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) error {
	switch upd.Role {
	case "admin", "coordinator", "specialist", "viewer":
		// ok
	default:
		return errBadRole
	}
	if !status.IsValid(upd.Status) {
		return errBadStatus
	}

	fullName := normalize.Name(upd.FullName)
	loginID := normalize.LoginID(upd.LoginID)
	set := bson.M{
		"full_name":     fullName,
		"full_name_ci":  text.Fold(fullName),
		"login_id":      loginID,
		"login_id_ci":   text.Fold(loginID),
		"role":          upd.Role,
		"status":        upd.Status,
		"department_id": upd.DepartmentID,
		"updated_at":    time.Now(),
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateLoginID
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPasswordHash replaces a user's password hash.
func (s *Store) SetPasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"password_hash": hash, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user by ID.
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

// SetTelegramChatID binds a Telegram chat to the user. The unique sparse
// index on telegram_chat_id rejects a chat already held by someone else;
// that surfaces as ErrChatAlreadyLinked so callers can report the conflict.
func (s *Store) SetTelegramChatID(ctx context.Context, id primitive.ObjectID, chatID int64) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"telegram_chat_id": chatID, "updated_at": time.Now()}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrChatAlreadyLinked
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearTelegramChatID unlinks the user's Telegram chat, if any.
func (s *Store) ClearTelegramChatID(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$unset": bson.M{"telegram_chat_id": ""}, "$set": bson.M{"updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Role         string
	DepartmentID *primitive.ObjectID
	Status       string
}

// List returns users matching the filter, sorted by folded name.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]models.User, error) {
	q := bson.M{}
	if filter.Role != "" {
		q["role"] = filter.Role
	}
	if filter.DepartmentID != nil {
		q["department_id"] = filter.DepartmentID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "full_name_ci", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListByIDs loads the given users in one query. Missing IDs are skipped.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// LoginIDExistsForOther checks whether a login ID is held by a different user.
func (s *Store) LoginIDExistsForOther(ctx context.Context, loginID string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"login_id_ci": text.Fold(normalize.LoginID(loginID)),
		"_id":         bson.M{"$ne": excludeID},
	}).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}
