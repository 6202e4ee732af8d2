package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OneTimeCode is a short-lived capability token gating registration.
// One record per email (unique index); each send upserts, successful
// verification deletes, and a TTL index on ExpiresAt sweeps the rest.
type OneTimeCode struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	CodeHash  string             `bson:"code_hash"` // bcrypt hash of the 6-digit code
	ExpiresAt time.Time          `bson:"expires_at"`
	CreatedAt time.Time          `bson:"created_at"`
	Attempts  int                `bson:"attempts"` // failed verification attempts
}
