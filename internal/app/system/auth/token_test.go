package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lamnbh/verihub/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTokenService() *auth.TokenService {
	return auth.NewTokenService("test-jwt-secret-0123456789abcdef", "verihub-test", zap.NewNop())
}

func TestTokenService_IssueVerify(t *testing.T) {
	ts := newTokenService()

	u := &auth.SessionUser{
		ID:              "64f000000000000000000001",
		Role:            "user",
		OwnerBusinessID: "64f000000000000000000099",
	}
	token, err := ts.Issue(u, time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	got, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("ID: got %q, want %q", got.ID, u.ID)
	}
	if got.Role != u.Role {
		t.Errorf("Role: got %q, want %q", got.Role, u.Role)
	}
	if got.OwnerBusinessID != u.OwnerBusinessID {
		t.Errorf("OwnerBusinessID: got %q, want %q", got.OwnerBusinessID, u.OwnerBusinessID)
	}
}

func TestTokenService_Expired(t *testing.T) {
	ts := newTokenService()

	token, err := ts.Issue(&auth.SessionUser{ID: "abc", Role: "user"}, -time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := ts.Verify(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestTokenService_BadSignature(t *testing.T) {
	other := auth.NewTokenService("a-completely-different-secret-key!", "verihub-test", zap.NewNop())
	token, err := other.Issue(&auth.SessionUser{ID: "abc", Role: "user"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	ts := newTokenService()
	if _, err := ts.Verify(token); err == nil {
		t.Error("expected token signed with another key to be rejected")
	}
}

func TestTokenService_Malformed(t *testing.T) {
	ts := newTokenService()
	for _, raw := range []string{"", "garbage", "a.b", "a.b.c"} {
		if _, err := ts.Verify(raw); err == nil {
			t.Errorf("expected malformed token %q to be rejected", raw)
		}
	}
}

func TestTokenService_MissingRoleClaim(t *testing.T) {
	// A token without a role claim must not converge on a usable principal.
	secret := []byte("test-jwt-secret-0123456789abcdef")
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "64f000000000000000000001",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	ts := newTokenService()
	if _, err := ts.Verify(raw); err == nil {
		t.Error("expected token without role claim to be rejected")
	}
}
