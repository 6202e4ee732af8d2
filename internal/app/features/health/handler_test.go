package health_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lamnbh/verihub/internal/app/features/health"
	"go.uber.org/zap"

	"github.com/lamnbh/verihub/internal/testutil"
)

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := health.NewHandler(db.Client(), zap.NewNop())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.Serve(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !contains(body, `"status":"ok"`) || !contains(body, `"database":"connected"`) {
		t.Errorf("unexpected health body: %s", body)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
