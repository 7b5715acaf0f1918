package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"apparel-studio/handlers/auth"
	"apparel-studio/stores/memory"
)

func issueToken(t *testing.T) string {
	t.Helper()
	auth.InitAuth("middleware-secret")
	store := memory.NewStore()
	if err := auth.SeedDemoUser(context.Background(), store); err != nil {
		t.Fatalf("SeedDemoUser() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		bytes.NewBufferString(`{"email":"test@example.com","password":"password123"}`))
	w := httptest.NewRecorder()
	auth.HandleLogin(store)(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login failed with %d", w.Code)
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	return resp.Token
}

func TestAuthJWT(t *testing.T) {
	token := issueToken(t)

	var seen string
	h := AuthJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, w.Code)
			}
			if tt.want == http.StatusOK && seen == "" {
				t.Error("expected user id in context")
			}
		})
	}
}

func TestUserID(t *testing.T) {
	if got := UserID(context.Background()); got != "" {
		t.Errorf("UserID() on empty context = %q", got)
	}
	if got := UserID(WithUser(context.Background(), "user-1")); got != "user-1" {
		t.Errorf("UserID() = %q, want user-1", got)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	if do("10.0.0.1:1000") != http.StatusOK || do("10.0.0.1:1001") != http.StatusOK {
		t.Fatal("burst requests were rejected")
	}
	if code := do("10.0.0.1:1002"); code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", code)
	}
	if code := do("10.0.0.2:1000"); code != http.StatusOK {
		t.Errorf("other client was throttled: %d", code)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.getLimiter("a")
	now = now.Add(time.Hour)
	rl.getLimiter("b")
	rl.Cleanup(30 * time.Minute)

	if _, ok := rl.visitors["a"]; ok {
		t.Error("stale visitor was not removed")
	}
	if _, ok := rl.visitors["b"]; !ok {
		t.Error("recent visitor was removed")
	}
}
