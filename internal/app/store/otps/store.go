// Package otpstore manages the one-time codes that gate registration.
package otpstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/lamnbh/verihub/internal/app/system/normalize"
	"github.com/lamnbh/verihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CodeLength is the length of the one-time code (6 digits).
	CodeLength = 6
	// DefaultExpiry is how long a code is valid.
	DefaultExpiry = 10 * time.Minute
	// BcryptCost for hashing codes.
	BcryptCost = 10
	// MaxVerifyAttempts is the maximum number of verification attempts
	// before the code is invalidated.
	MaxVerifyAttempts = 5
	// ResendInterval is the minimum wait between send requests for the
	// same email.
	ResendInterval = 30 * time.Second
)

var (
	// ErrNotFound is returned when no code exists for the email or it
	// has expired.
	ErrNotFound = errors.New("verification code not found or expired")
	// ErrInvalidCode is returned when the code doesn't match.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrTooManyAttempts is returned after too many failed attempts.
	ErrTooManyAttempts = errors.New("too many verification attempts")
	// ErrResendTooSoon is returned when a new code is requested before
	// the resend interval has elapsed.
	ErrResendTooSoon = errors.New("a code was sent recently; wait before requesting another")
)

// Store manages one-time code records.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
}

// New creates a Store with the specified expiry duration.
// If expiry is 0 or negative, DefaultExpiry is used.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{c: db.Collection("one_time_codes"), expiry: expiry}
}

// Expiry returns the configured code lifetime.
func (s *Store) Expiry() time.Duration { return s.expiry }

// Issue creates a fresh 6-digit code for the email, replacing any previous
// one (one record per email), and returns the plaintext code for delivery.
// Only the bcrypt hash is stored.
func (s *Store) Issue(ctx context.Context, email string) (string, error) {
	email = normalize.Email(email)

	var last models.OneTimeCode
	err := s.c.FindOne(ctx, bson.M{"email": email}).Decode(&last)
	if err == nil && time.Since(last.CreatedAt) < ResendInterval {
		return "", ErrResendTooSoon
	}

	code, err := generateCode()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), BcryptCost)
	if err != nil {
		return "", err
	}

	now := time.Now()
	_, err = s.c.ReplaceOne(ctx,
		bson.M{"email": email},
		models.OneTimeCode{
			ID:        primitive.NewObjectID(),
			Email:     email,
			CodeHash:  string(hash),
			ExpiresAt: now.Add(s.expiry),
			CreatedAt: now,
		},
		// Upsert: each send overwrites the previous code for this email.
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks the code for the email and consumes the record on success.
// Failed attempts are counted; the record is removed once the cap is hit.
func (s *Store) Verify(ctx context.Context, email, code string) error {
	email = normalize.Email(email)

	var rec models.OneTimeCode
	if err := s.c.FindOne(ctx, bson.M{"email": email}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}

	// The TTL sweep is lazy; reject expired codes explicitly.
	if time.Now().After(rec.ExpiresAt) {
		_, _ = s.c.DeleteOne(ctx, bson.M{"_id": rec.ID})
		return ErrNotFound
	}

	if rec.Attempts >= MaxVerifyAttempts {
		_, _ = s.c.DeleteOne(ctx, bson.M{"_id": rec.ID})
		return ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(code)) != nil {
		_, _ = s.c.UpdateOne(ctx, bson.M{"_id": rec.ID}, bson.M{"$inc": bson.M{"attempts": 1}})
		return ErrInvalidCode
	}

	// Consumed via deletion: a code is single-use.
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": rec.ID})
	return err
}

// generateCode produces a uniform 6-digit code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
