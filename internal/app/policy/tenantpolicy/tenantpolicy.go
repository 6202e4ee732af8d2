// Package tenantpolicy provides authorization policies for the
// business-to-user tenancy model.
//
// Authorization rules:
//   - Admins can view all user accounts across all businesses
//   - Businesses can view and verify only users they own
//   - Users can act only on their own record
//
// Ownership is resolved from the accounts collection at query time,
// never cached, so a re-homed user is visible to its new owner on the
// next request.
package tenantpolicy

import (
	"context"
	"net/http"

	accountstore "github.com/lamnbh/verihub/internal/app/store/accounts"
	"github.com/lamnbh/verihub/internal/app/system/apperr"
	"github.com/lamnbh/verihub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Scope represents the set of users the caller may read.
type Scope struct {
	// CanList indicates whether the caller can list users at all.
	CanList bool
	// AllUsers indicates the caller sees every user (admins).
	AllUsers bool
	// BusinessID restricts the view to users owned by this business.
	BusinessID primitive.ObjectID
}

// OwnedScope determines what scope of users the current caller can list.
//
// Authorization:
//   - Admin: all users
//   - Business: users owned by that business
//   - Others: cannot list
func OwnedScope(r *http.Request) Scope {
	role, accountID, ok := authz.UserCtx(r)
	if !ok {
		return Scope{CanList: false}
	}

	switch role {
	case "admin":
		return Scope{CanList: true, AllUsers: true}
	case "business":
		return Scope{CanList: true, BusinessID: accountID}
	default:
		return Scope{CanList: false}
	}
}

// AssertOwnership returns a Forbidden error unless the caller may run
// verification operations against the given user account. The lookup
// happens on every call; ownership is never cached.
func AssertOwnership(ctx context.Context, accounts *accountstore.Store, r *http.Request, userID primitive.ObjectID) error {
	ok, err := CanActOnUser(ctx, accounts, r, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.Forbidden("user does not belong to this business")
	}
	return nil
}

// CanActOnUser reports whether the current caller may run verification
// operations against the given user account.
//
// Authorization:
//   - Admin: any user
//   - Business: only users whose owner_business_id matches the caller
//   - User: only themselves
//
// Returns an error only if the ownership lookup fails.
func CanActOnUser(ctx context.Context, accounts *accountstore.Store, r *http.Request, userID primitive.ObjectID) (bool, error) {
	role, accountID, ok := authz.UserCtx(r)
	if !ok {
		return false, nil
	}

	switch role {
	case "admin":
		return true, nil
	case "user":
		return accountID == userID, nil
	case "business":
		acct, err := accounts.GetByID(ctx, userID)
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if acct.OwnerBusinessID == nil {
			return false, nil
		}
		return *acct.OwnerBusinessID == accountID, nil
	default:
		return false, nil
	}
}
