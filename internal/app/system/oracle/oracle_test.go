package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lamnbh/verihub/internal/app/system/apperr"
	"go.uber.org/zap"
)

func newTestConfig(url string) Config {
	return Config{BaseURL: url, APIKey: "test-key", Timeout: 2 * time.Second}
}

func TestFaceCompare_ParsesVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/face/compare" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header: got %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipart parse: %v", err)
		}
		for _, field := range []string{"reference", "candidate"} {
			if len(r.MultipartForm.File[field]) != 1 {
				t.Errorf("missing file part %q", field)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"is_match": true, "similarity": 91.2}`))
	}))
	defer srv.Close()

	fm := NewHTTPFaceMatcher(newTestConfig(srv.URL), zap.NewNop())
	res, err := fm.Compare(context.Background(), []byte("ref"), []byte("cand"))
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if !res.IsMatch || res.Similarity != 91.2 {
		t.Errorf("verdict: got %+v", res)
	}
}

func TestFaceCompare_FailVerdictIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"is_match": false, "similarity": 72}`))
	}))
	defer srv.Close()

	fm := NewHTTPFaceMatcher(newTestConfig(srv.URL), zap.NewNop())
	res, err := fm.Compare(context.Background(), []byte("ref"), []byte("cand"))
	if err != nil {
		t.Fatalf("a below-threshold verdict is a completed check, got error: %v", err)
	}
	if res.IsMatch || res.Similarity != 72 {
		t.Errorf("verdict: got %+v", res)
	}
}

func TestOracle_Non2xxIsExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"провайдер": "internal stack trace"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	fm := NewHTTPFaceMatcher(newTestConfig(srv.URL), zap.NewNop())
	_, err := fm.Compare(context.Background(), []byte("a"), []byte("b"))
	if err == nil {
		t.Fatal("expected error on 502")
	}
	if !apperr.Is(err, apperr.CodeExternal) {
		t.Errorf("expected external_service_error, got %v", err)
	}
	ae := apperr.From(err)
	if ae.Message != "verification provider unavailable" {
		t.Errorf("client-facing message leaked detail: %q", ae.Message)
	}
}

func TestOracle_MalformedPayloadIsExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"is_match": "not-a-bool"`))
	}))
	defer srv.Close()

	fm := NewHTTPFaceMatcher(newTestConfig(srv.URL), zap.NewNop())
	_, err := fm.Compare(context.Background(), []byte("a"), []byte("b"))
	if !apperr.Is(err, apperr.CodeExternal) {
		t.Errorf("expected external_service_error, got %v", err)
	}
}

func TestOracle_TimeoutIsExternal(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	cfg := Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}
	fm := NewHTTPFaceMatcher(cfg, zap.NewNop())
	_, err := fm.Compare(context.Background(), []byte("a"), []byte("b"))
	if !apperr.Is(err, apperr.CodeExternal) {
		t.Errorf("expected external_service_error on timeout, got %v", err)
	}
}

func TestOCR_RequiresIDNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"full_name": "Nguyen Van A", "date_of_birth": "1990-01-01"}`))
	}))
	defer srv.Close()

	ocr := NewHTTPOCR(newTestConfig(srv.URL), zap.NewNop())
	_, err := ocr.ReadDocument(context.Background(), []byte("f"), []byte("b"))
	if !apperr.Is(err, apperr.CodeExternal) {
		t.Errorf("payload without id_number should be external_service_error, got %v", err)
	}
}

func TestSpeaker_ProfileLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/speaker/profiles":
			w.Write([]byte(`{"profile_id": "prof-abc123"}`))
		case "/speaker/profiles/enroll":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("multipart parse: %v", err)
			}
			if got := r.MultipartForm.Value["profile_id"]; len(got) != 1 || got[0] != "prof-abc123" {
				t.Errorf("profile_id field: got %v", got)
			}
			w.Write([]byte(`{}`))
		case "/speaker/verify":
			w.Write([]byte(`{"is_match": true, "score": 0.87}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	sp := NewHTTPSpeaker(newTestConfig(srv.URL), zap.NewNop())
	ctx := context.Background()

	ref, err := sp.CreateProfile(ctx)
	if err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}
	if ref != "prof-abc123" {
		t.Errorf("profile ref: got %q", ref)
	}
	if err := sp.EnrollSample(ctx, ref, []byte("audio")); err != nil {
		t.Fatalf("EnrollSample failed: %v", err)
	}
	res, err := sp.Verify(ctx, ref, []byte("audio"))
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !res.IsMatch || res.Score != 0.87 {
		t.Errorf("verdict: got %+v", res)
	}
}
