package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func userInfoServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			http.NotFound(w, r)
			return
		}
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			w.Write([]byte(`{"sub":"clinician-7","email":"c7@example.org"}`))
		case "Bearer anonymous":
			w.Write([]byte(`{"email":"nobody@example.org"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
}

func TestValidateToken(t *testing.T) {
	server := userInfoServer(t, nil)
	defer server.Close()

	a, err := NewOIDCAuthenticator(server.URL+"/", 0, server.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := a.ValidateToken(context.Background(), "good")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims["sub"] != "clinician-7" {
		t.Fatalf("unexpected claims %v", claims)
	}

	for _, token := range []string{"bad", "anonymous"} {
		if _, err := a.ValidateToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", token, err)
		}
	}
	if _, err := a.ValidateToken(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestValidateTokenCachesAcceptedTokens(t *testing.T) {
	var hits int32
	server := userInfoServer(t, &hits)
	defer server.Close()

	a, err := NewOIDCAuthenticator(server.URL, time.Minute, server.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		claims, err := a.ValidateToken(context.Background(), "good")
		if err != nil || claims["sub"] != "clinician-7" {
			t.Fatalf("call %d: unexpected result %v %v", i, claims, err)
		}
		claims["sub"] = "tampered"
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected one userinfo call within the TTL, got %d", got)
	}

	for i := 0; i < 2; i++ {
		if _, err := a.ValidateToken(context.Background(), "bad"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("rejected tokens must not be cached, got %d calls", got)
	}

	clock = clock.Add(time.Minute)
	if _, err := a.ValidateToken(context.Background(), "good"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 4 {
		t.Fatalf("expired entry must be revalidated, got %d calls", got)
	}
}

func TestNewOIDCAuthenticatorRequiresIssuer(t *testing.T) {
	if _, err := NewOIDCAuthenticator("", time.Minute, nil); err == nil {
		t.Fatal("expected error without issuer")
	}
}
