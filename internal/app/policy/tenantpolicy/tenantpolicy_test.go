package tenantpolicy_test

import (
	"net/http"
	"testing"

	"github.com/lamnbh/verihub/internal/app/policy/tenantpolicy"
	accountstore "github.com/lamnbh/verihub/internal/app/store/accounts"
	"github.com/lamnbh/verihub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOwnedScope_Admin(t *testing.T) {
	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/users", testutil.AdminUser())
	scope := tenantpolicy.OwnedScope(req)

	if !scope.CanList {
		t.Fatal("admin should be able to list users")
	}
	if !scope.AllUsers {
		t.Error("admin scope should cover all users")
	}
}

func TestOwnedScope_Business(t *testing.T) {
	biz := testutil.BusinessUser()
	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/users", biz)
	scope := tenantpolicy.OwnedScope(req)

	if !scope.CanList {
		t.Fatal("business should be able to list its users")
	}
	if scope.AllUsers {
		t.Error("business scope should not cover all users")
	}
	if scope.BusinessID.Hex() != biz.ID {
		t.Errorf("scope business: got %s, want %s", scope.BusinessID.Hex(), biz.ID)
	}
}

func TestOwnedScope_UserAndAnonymous(t *testing.T) {
	bizID := primitive.NewObjectID()
	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/users", testutil.EndUser(bizID))
	if scope := tenantpolicy.OwnedScope(req); scope.CanList {
		t.Error("end user should not be able to list users")
	}

	anon := testutil.NewRequest(http.MethodGet, "/users")
	if scope := tenantpolicy.OwnedScope(anon); scope.CanList {
		t.Error("anonymous caller should not be able to list users")
	}
}

func TestCanActOnUser_Ownership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fix := testutil.NewFixtures(t, db)
	accounts := accountstore.New(db)

	owner := fix.CreateBusiness(ctx, "owner-biz", "owner@test.com")
	other := fix.CreateBusiness(ctx, "other-biz", "other@test.com")
	user := fix.CreateUser(ctx, "owned-user", "owned@test.com", owner.ID)

	ownerReq := testutil.NewAuthenticatedRequest(http.MethodPost, "/business/verify-face",
		testutil.FromAccount(owner.ID, owner.Username, owner.Email, owner.Role, nil))
	ok, err := tenantpolicy.CanActOnUser(ctx, accounts, ownerReq, user.ID)
	if err != nil {
		t.Fatalf("CanActOnUser failed: %v", err)
	}
	if !ok {
		t.Error("owning business should be able to act on its user")
	}

	otherReq := testutil.NewAuthenticatedRequest(http.MethodPost, "/business/verify-face",
		testutil.FromAccount(other.ID, other.Username, other.Email, other.Role, nil))
	ok, err = tenantpolicy.CanActOnUser(ctx, accounts, otherReq, user.ID)
	if err != nil {
		t.Fatalf("CanActOnUser failed: %v", err)
	}
	if ok {
		t.Error("non-owning business should not be able to act on another tenant's user")
	}
}

func TestCanActOnUser_RehomedUserVisibleImmediately(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fix := testutil.NewFixtures(t, db)
	accounts := accountstore.New(db)

	oldOwner := fix.CreateBusiness(ctx, "old-biz", "old@test.com")
	newOwner := fix.CreateBusiness(ctx, "new-biz", "new@test.com")
	user := fix.CreateUser(ctx, "moving-user", "moving@test.com", oldOwner.ID)

	newReq := testutil.NewAuthenticatedRequest(http.MethodPost, "/business/verify-face",
		testutil.FromAccount(newOwner.ID, newOwner.Username, newOwner.Email, newOwner.Role, nil))
	ok, err := tenantpolicy.CanActOnUser(ctx, accounts, newReq, user.ID)
	if err != nil {
		t.Fatalf("CanActOnUser failed: %v", err)
	}
	if ok {
		t.Fatal("new owner should not see the user before re-homing")
	}

	// Re-home the user; ownership is resolved per request, so the change
	// must be visible without any cache invalidation.
	if _, err := db.Collection("accounts").UpdateOne(ctx,
		map[string]any{"_id": user.ID},
		map[string]any{"$set": map[string]any{"owner_business_id": newOwner.ID}},
	); err != nil {
		t.Fatalf("re-home update failed: %v", err)
	}

	ok, err = tenantpolicy.CanActOnUser(ctx, accounts, newReq, user.ID)
	if err != nil {
		t.Fatalf("CanActOnUser failed: %v", err)
	}
	if !ok {
		t.Error("new owner should see the user immediately after re-homing")
	}
}

func TestCanActOnUser_SelfAndAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fix := testutil.NewFixtures(t, db)
	accounts := accountstore.New(db)

	biz := fix.CreateBusiness(ctx, "biz", "biz@test.com")
	user := fix.CreateUser(ctx, "self-user", "self@test.com", biz.ID)

	selfReq := testutil.NewAuthenticatedRequest(http.MethodPost, "/ekyc/face-verify",
		testutil.FromAccount(user.ID, user.Username, user.Email, user.Role, user.OwnerBusinessID))
	ok, err := tenantpolicy.CanActOnUser(ctx, accounts, selfReq, user.ID)
	if err != nil {
		t.Fatalf("CanActOnUser failed: %v", err)
	}
	if !ok {
		t.Error("user should be able to act on their own record")
	}

	otherID := primitive.NewObjectID()
	ok, _ = tenantpolicy.CanActOnUser(ctx, accounts, selfReq, otherID)
	if ok {
		t.Error("user should not be able to act on another user's record")
	}

	adminReq := testutil.NewAuthenticatedRequest(http.MethodPost, "/business/verify-face", testutil.AdminUser())
	ok, err = tenantpolicy.CanActOnUser(ctx, accounts, adminReq, user.ID)
	if err != nil {
		t.Fatalf("CanActOnUser failed: %v", err)
	}
	if !ok {
		t.Error("admin should be able to act on any user")
	}
}
