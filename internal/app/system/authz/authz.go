// Package authz provides role helpers over the authenticated principal.
// Ownership decisions live in policy/tenantpolicy; this package only answers
// "who is calling and what role do they hold".
package authz

import (
	"net/http"
	"strings"

	"github.com/lamnbh/verihub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the caller's role (lowercased), Mongo ObjectID, and a
// found flag. If no principal is present or the account ID is malformed, it
// returns "visitor", NilObjectID, false. ok=true means a valid, authenticated
// principal with a valid ObjectID.
func UserCtx(r *http.Request) (role string, accountID primitive.ObjectID, ok bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", primitive.NilObjectID, false
	}
	accountID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		// Malformed ID in session - fail closed.
		return "visitor", primitive.NilObjectID, false
	}
	return strings.ToLower(u.Role), accountID, true
}

// IsAdmin reports whether the caller is a platform admin.
func IsAdmin(r *http.Request) bool {
	role, _, ok := UserCtx(r)
	return ok && role == "admin"
}

// IsBusiness reports whether the caller is a business tenant.
func IsBusiness(r *http.Request) bool {
	role, _, ok := UserCtx(r)
	return ok && role == "business"
}

// IsUser reports whether the caller is an end user.
func IsUser(r *http.Request) bool {
	role, _, ok := UserCtx(r)
	return ok && role == "user"
}

// HasAnyRole reports whether the caller holds any of the given roles.
func HasAnyRole(r *http.Request, roles ...string) bool {
	role, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if role == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

// OwnerBusinessID returns the owning business of a user-role caller.
// Returns NilObjectID for other roles or unauthenticated requests.
func OwnerBusinessID(r *http.Request) primitive.ObjectID {
	u, ok := auth.CurrentUser(r)
	if !ok || u.OwnerBusinessID == "" {
		return primitive.NilObjectID
	}
	oid, err := primitive.ObjectIDFromHex(u.OwnerBusinessID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}
