package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles an Account can hold.
const (
	RoleAdmin    = "admin"
	RoleBusiness = "business"
	RoleUser     = "user"
)

// Account represents one principal: platform admins, business tenants,
// and the end users a business owns.
//
// Invariant: a user-role account always carries a non-nil OwnerBusinessID
// referencing a business-role account; admin and business accounts never do.
// The accounts store enforces this on create.
type Account struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         string             `bson:"role" json:"role"` // admin | business | user

	// APIKey is present only for business/admin accounts and only after a
	// key has been issued (unique sparse index).
	APIKey string `bson:"api_key,omitempty" json:"-"`

	OwnerBusinessID *primitive.ObjectID `bson:"owner_business_id,omitempty" json:"owner_business_id,omitempty"`

	IsBanned bool `bson:"is_banned" json:"is_banned"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
