package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestExpiresWithin(t *testing.T) {
	now := time.Now()
	if !expiresWithin(signedToken(t, now.Add(10*time.Second)), now, 30*time.Second) {
		t.Fatalf("token expiring in 10s should be considered expiring with 30s skew")
	}
	if expiresWithin(signedToken(t, now.Add(time.Hour)), now, 30*time.Second) {
		t.Fatalf("token valid for an hour should not be expiring")
	}
	if expiresWithin("opaque-token", now, 30*time.Second) {
		t.Fatalf("opaque tokens are treated as long lived")
	}
}

func TestRefreshingTokenSource_RefreshesExpiredJWT(t *testing.T) {
	fresh := signedToken(t, time.Now().Add(time.Hour))
	var gotRefresh string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req refreshReq
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotRefresh = req.RefreshToken
		json.NewEncoder(w).Encode(map[string]string{"access": fresh, "refresh_token": "r2"})
	}))
	defer srv.Close()

	src := NewRefreshingTokenSource(signedToken(t, time.Now().Add(-time.Minute)), "r1", srv.URL)
	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok != fresh {
		t.Fatalf("expected refreshed token")
	}
	if gotRefresh != "r1" {
		t.Fatalf("expected refresh token r1 to be sent, got %q", gotRefresh)
	}
	if src.refresh != "r2" {
		t.Fatalf("expected rotated refresh token, got %q", src.refresh)
	}

	// still valid: no second round trip
	tok2, err := src.Token(context.Background())
	if err != nil || tok2 != fresh {
		t.Fatalf("expected cached token, got %q err=%v", tok2, err)
	}
}

func TestStaticToken_CannotRefresh(t *testing.T) {
	if _, err := StaticToken("x").Refresh(context.Background()); err != ErrNoRefresh {
		t.Fatalf("expected ErrNoRefresh, got %v", err)
	}
}
