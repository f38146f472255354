package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyMiddleware_DisabledWhenEmpty(t *testing.T) {
	handler := APIKeyMiddleware("", okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/stats", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected passthrough without a configured key, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_RejectsMissingKey(t *testing.T) {
	handler := APIKeyMiddleware("secret", okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/stats", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without the header, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_RejectsWrongKey(t *testing.T) {
	handler := APIKeyMiddleware("secret", okHandler())

	req := httptest.NewRequest("GET", "/api/stats", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a wrong key, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_AcceptsCorrectKey(t *testing.T) {
	handler := APIKeyMiddleware("secret", okHandler())

	req := httptest.NewRequest("GET", "/api/stats", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with the correct key, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_ExemptPaths(t *testing.T) {
	handler := APIKeyMiddleware("secret", okHandler())

	for _, path := range []string{"/api/health", "/results/detection_1.jpg"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("Expected %s to be reachable without a key, got %d", path, rec.Code)
		}
	}
}
