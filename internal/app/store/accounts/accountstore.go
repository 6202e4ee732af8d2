package accountstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"github.com/lamnbh/verihub/internal/app/system/normalize"
	"github.com/lamnbh/verihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("accounts")}
}

var (
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("an account with this email already exists")
	// ErrDuplicateUsername is returned when the username is already taken.
	ErrDuplicateUsername = errors.New("an account with this username already exists")
	errBadRole           = errors.New(`role must be "admin"|"business"|"user"`)
	errOwnerNeeded       = errors.New("user accounts must have owner_business_id")
	errOwnerForbidden    = errors.New("only user accounts may have owner_business_id")
)

// Create inserts a new account after normalizing & validating fields.
// The role/owner invariant is enforced here: user accounts require an
// owning business, other roles must not carry one.
func (s *Store) Create(ctx context.Context, a models.Account) (models.Account, error) {
	a.ID = primitive.NewObjectID()
	a.Username = normalize.Username(a.Username)
	a.Email = normalize.Email(a.Email)

	switch a.Role {
	case models.RoleAdmin, models.RoleBusiness, models.RoleUser:
		// ok
	default:
		return models.Account{}, errBadRole
	}

	if a.Role == models.RoleUser && a.OwnerBusinessID == nil {
		return models.Account{}, errOwnerNeeded
	}
	if a.Role != models.RoleUser && a.OwnerBusinessID != nil {
		return models.Account{}, errOwnerForbidden
	}

	// Uniqueness is checked up front so callers get a precise Conflict
	// rather than a constraint violation; the unique indexes still catch
	// two racing creates.
	if existing, err := s.GetByEmail(ctx, a.Email); err == nil && existing != nil {
		return models.Account{}, ErrDuplicateEmail
	}
	if existing, err := s.GetByUsername(ctx, a.Username); err == nil && existing != nil {
		return models.Account{}, ErrDuplicateUsername
	}

	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Account{}, ErrDuplicateEmail
		}
		return models.Account{}, err
	}
	return a, nil
}

// GetByID loads an account by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	var a models.Account
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByEmail looks up an account by case-insensitive email.
// Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByUsername looks up an account by username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	var a models.Account
	if err := s.c.FindOne(ctx, bson.M{"username": normalize.Username(username)}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByAPIKey looks up a business/admin account by its API key.
func (s *Store) GetByAPIKey(ctx context.Context, apiKey string) (*models.Account, error) {
	var a models.Account
	if err := s.c.FindOne(ctx, bson.M{"api_key": apiKey}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListOwned returns the user-role accounts owned by the given business,
// newest first.
func (s *Store) ListOwned(ctx context.Context, businessID primitive.ObjectID, limit, offset int64) ([]models.Account, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := s.c.Find(ctx, bson.M{
		"role":              models.RoleUser,
		"owner_business_id": businessID,
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var accounts []models.Account
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// OwnedUserIDs returns the IDs of every user the business currently owns.
// Resolved at query time on each request; ownership is never cached.
func (s *Store) OwnedUserIDs(ctx context.Context, businessID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := s.c.Find(ctx, bson.M{
		"role":              models.RoleUser,
		"owner_business_id": businessID,
	}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// List returns accounts of any role, newest first. Admin use.
func (s *Store) List(ctx context.Context, limit, offset int64) ([]models.Account, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var accounts []models.Account
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// RotateAPIKey assigns a fresh API key to the account and returns it.
// The previous key stops working immediately.
func (s *Store) RotateAPIKey(ctx context.Context, id primitive.ObjectID) (string, error) {
	key := uuid.NewString()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"api_key": key, "updated_at": time.Now()}},
	)
	if err != nil {
		return "", err
	}
	if res.MatchedCount == 0 {
		return "", mongo.ErrNoDocuments
	}
	return key, nil
}

// SetBanned toggles the ban flag. Banned accounts fail login and token use.
func (s *Store) SetBanned(ctx context.Context, id primitive.ObjectID, banned bool) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_banned": banned, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
