// Package attemptstore persists verification attempts.
//
// The collection is append-only: records are inserted and read, never
// updated or removed. The store deliberately exposes no mutation beyond
// Append so that the history stays trustworthy.
package attemptstore

import (
	"context"
	"time"

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
	return &Store{c: db.Collection("verification_attempts")}
}

// Append records a verification attempt. The ID and Timestamp are
// assigned here if unset.
func (s *Store) Append(ctx context.Context, a *models.VerificationAttempt) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	_, err := s.c.InsertOne(ctx, a)
	return err
}

// ListForUsers returns attempts for any of the given users, newest first.
// An empty userIDs slice yields an empty result rather than a full scan.
func (s *Store) ListForUsers(ctx context.Context, userIDs []primitive.ObjectID, limit, offset int64) ([]models.VerificationAttempt, error) {
	if len(userIDs) == 0 {
		return []models.VerificationAttempt{}, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)
	cur, err := s.c.Find(ctx, bson.M{"user_id": bson.M{"$in": userIDs}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.VerificationAttempt{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountForUsers returns the total number of attempts across the given users.
func (s *Store) CountForUsers(ctx context.Context, userIDs []primitive.ObjectID) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	return s.c.CountDocuments(ctx, bson.M{"user_id": bson.M{"$in": userIDs}})
}

// LatestForUser returns the most recent attempt of the given type for a
// user, or mongo.ErrNoDocuments when none exists.
func (s *Store) LatestForUser(ctx context.Context, userID primitive.ObjectID, attemptType string) (*models.VerificationAttempt, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	var a models.VerificationAttempt
	err := s.c.FindOne(ctx, bson.M{"user_id": userID, "type": attemptType}, opts).Decode(&a)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
