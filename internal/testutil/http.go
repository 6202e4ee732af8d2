package testutil

import (
	"net/http"
	"net/http/httptest"

	"github.com/lamnbh/verihub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser represents principal data for testing HTTP handlers.
type TestUser struct {
	ID              string
	Username        string
	Email           string
	Role            string
	OwnerBusinessID string
}

// AdminUser returns a TestUser with the admin role.
func AdminUser() TestUser {
	return TestUser{
		ID:       primitive.NewObjectID().Hex(),
		Username: "test-admin",
		Email:    "admin@test.com",
		Role:     "admin",
	}
}

// BusinessUser returns a TestUser with the business role.
func BusinessUser() TestUser {
	return TestUser{
		ID:       primitive.NewObjectID().Hex(),
		Username: "test-business",
		Email:    "business@test.com",
		Role:     "business",
	}
}

// EndUser returns a TestUser with the user role, owned by the given business.
func EndUser(businessID primitive.ObjectID) TestUser {
	return TestUser{
		ID:              primitive.NewObjectID().Hex(),
		Username:        "test-user",
		Email:           "user@test.com",
		Role:            "user",
		OwnerBusinessID: businessID.Hex(),
	}
}

// FromAccount builds a TestUser from a fixture account so the principal's
// ID matches a real database record.
func FromAccount(id primitive.ObjectID, username, email, role string, owner *primitive.ObjectID) TestUser {
	u := TestUser{
		ID:       id.Hex(),
		Username: username,
		Email:    email,
		Role:     role,
	}
	if owner != nil {
		u.OwnerBusinessID = owner.Hex()
	}
	return u
}

// WithUser adds a principal to the request context for testing authenticated
// handlers. This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	sessionUser := &auth.SessionUser{
		ID:              user.ID,
		Username:        user.Username,
		Email:           user.Email,
		Role:            user.Role,
		OwnerBusinessID: user.OwnerBusinessID,
	}
	return auth.WithTestUser(r, sessionUser)
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewAuthenticatedRequest creates an HTTP request with a principal in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return WithUser(req, user)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	body := r.Body.String()
	if !contains(body, expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 || findSubstring(s, substr))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
