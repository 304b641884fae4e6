package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestIPRateLimiterAllow(t *testing.T) {
	l := NewIPRateLimiter(2, 0)
	if !l.Allow("k") || !l.Allow("k") {
		t.Fatalf("first two requests should pass")
	}
	if l.Allow("k") {
		t.Fatalf("third request should be blocked")
	}
}

func adminHandler(t *testing.T, tokenBcrypt, appEnv string) http.Handler {
	t.Helper()
	return RequireAdmin(tokenBcrypt, appEnv)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireAdminAcceptsValidToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sekrit"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/sync/finalize", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w := httptest.NewRecorder()
	adminHandler(t, string(hash), "production").ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireAdminRejectsBadToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sekrit"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}

	tests := []struct {
		name string
		auth string
	}{
		{name: "missing header", auth: ""},
		{name: "wrong scheme", auth: "Basic sekrit"},
		{name: "wrong token", auth: "Bearer nope"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/sync/finalize", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			w := httptest.NewRecorder()
			adminHandler(t, string(hash), "production").ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestRequireAdminUnconfigured(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/sync/finalize", nil)
	w := httptest.NewRecorder()
	adminHandler(t, "", "development").ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("development without a hash stays open, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/sync/finalize", nil)
	w = httptest.NewRecorder()
	adminHandler(t, "", "production").ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("production without a hash is locked, got %d", w.Code)
	}
}
