package admin_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lamnbh/verihub/internal/app/features/admin"
	accountstore "github.com/lamnbh/verihub/internal/app/store/accounts"
	"github.com/lamnbh/verihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/lamnbh/verihub/internal/testutil"
)

func newTestHandler(t *testing.T) (*admin.Handler, *accountstore.Store, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	accounts := accountstore.New(db)
	return admin.NewHandler(accounts, zap.NewNop()), accounts, testutil.NewFixtures(t, db)
}

func TestHandleListAccounts(t *testing.T) {
	handler, _, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateAdmin(ctx, "root", "root@example.com")
	biz := fixtures.CreateBusiness(ctx, "acme", "acme@example.com")
	fixtures.CreateUser(ctx, "enduser", "enduser@example.com", biz.ID)

	req := testutil.NewAuthenticatedRequest("GET", "/admin/accounts", testutil.AdminUser())
	rec := httptest.NewRecorder()
	handler.HandleListAccounts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var resp struct {
		Accounts []models.Account `json:"accounts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Accounts) != 3 {
		t.Errorf("expected 3 accounts, got %d", len(resp.Accounts))
	}
}

func TestHandleSetBanned(t *testing.T) {
	handler, accounts, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	biz := fixtures.CreateBusiness(ctx, "acme", "acme@example.com")
	target := fixtures.CreateUser(ctx, "enduser", "enduser@example.com", biz.ID)

	req := httptest.NewRequest("PATCH", "/admin/accounts/"+target.ID.Hex()+"/ban", strings.NewReader(`{"banned":true}`))
	req = testutil.WithUser(req, testutil.AdminUser())
	req = testutil.WithChiURLParam(req, "id", target.ID.Hex())
	rec := httptest.NewRecorder()
	handler.HandleSetBanned(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	got, err := accounts.GetByID(ctx, target.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.IsBanned {
		t.Error("expected account to be banned")
	}
}

func TestHandleSetBanned_InvalidID(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest("PATCH", "/admin/accounts/not-an-id/ban", strings.NewReader(`{"banned":true}`))
	req = testutil.WithChiURLParam(req, "id", "not-an-id")
	rec := httptest.NewRecorder()
	handler.HandleSetBanned(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleSetBanned_MissingBody(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	id := primitive.NewObjectID().Hex()

	req := httptest.NewRequest("PATCH", "/admin/accounts/"+id+"/ban", strings.NewReader(`{}`))
	req = testutil.WithChiURLParam(req, "id", id)
	rec := httptest.NewRecorder()
	handler.HandleSetBanned(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleSetBanned_NotFound(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	id := primitive.NewObjectID().Hex()

	req := httptest.NewRequest("PATCH", "/admin/accounts/"+id+"/ban", strings.NewReader(`{"banned":true}`))
	req = testutil.WithChiURLParam(req, "id", id)
	rec := httptest.NewRecorder()
	handler.HandleSetBanned(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestHandleCreateBusiness(t *testing.T) {
	handler, accounts, _ := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	body := `{"username":"acme","email":"acme@example.com","password":"password123"}`
	req := httptest.NewRequest("POST", "/admin/businesses", strings.NewReader(body))
	req = testutil.WithUser(req, testutil.AdminUser())
	rec := httptest.NewRecorder()
	handler.HandleCreateBusiness(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var resp struct {
		ID     string `json:"id"`
		Role   string `json:"role"`
		APIKey string `json:"api_key"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Role != models.RoleBusiness {
		t.Errorf("expected role %q, got %q", models.RoleBusiness, resp.Role)
	}
	if resp.APIKey == "" {
		t.Fatal("expected the first api key in the response")
	}

	// The returned key resolves to the new account
	got, err := accounts.GetByAPIKey(ctx, resp.APIKey)
	if err != nil {
		t.Fatalf("api key lookup failed: %v", err)
	}
	if got.ID.Hex() != resp.ID {
		t.Errorf("expected key to resolve the new business")
	}
}

func TestHandleCreateBusiness_ShortPassword(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	body := `{"username":"acme","email":"acme@example.com","password":"short"}`
	req := httptest.NewRequest("POST", "/admin/businesses", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleCreateBusiness(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleCreateBusiness_DuplicateEmail(t *testing.T) {
	handler, _, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateBusiness(ctx, "acme", "acme@example.com")

	body := `{"username":"other","email":"acme@example.com","password":"password123"}`
	req := httptest.NewRequest("POST", "/admin/businesses", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleCreateBusiness(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d: %s", http.StatusConflict, rec.Code, rec.Body.String())
	}
}
