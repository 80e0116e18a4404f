package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoRefresh = errors.New("backend: token refresh not configured")

// TokenSource supplies bearer tokens. Issuance lives outside this client.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// StaticToken never refreshes.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

func (s StaticToken) Refresh(context.Context) (string, error) { return "", ErrNoRefresh }

// RefreshingTokenSource exchanges a refresh token for a new access token at RefreshURL.
// When the access token is a JWT its exp claim is checked before use, so most
// requests never see a 401.
type RefreshingTokenSource struct {
	RefreshURL string
	Skew       time.Duration
	Client     *http.Client

	mu      sync.Mutex
	access  string
	refresh string
	now     func() time.Time
}

func NewRefreshingTokenSource(access, refresh, refreshURL string) *RefreshingTokenSource {
	return &RefreshingTokenSource{
		RefreshURL: refreshURL,
		Skew:       30 * time.Second,
		Client:     &http.Client{Timeout: 15 * time.Second},
		access:     access,
		refresh:    refresh,
		now:        time.Now,
	}
}

func (s *RefreshingTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	access := s.access
	s.mu.Unlock()

	if access != "" && !expiresWithin(access, s.now(), s.Skew) {
		return access, nil
	}
	if s.RefreshURL == "" {
		return access, nil
	}
	return s.Refresh(ctx)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResp struct {
	AccessToken  string `json:"access_token"`
	Access       string `json:"access"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

func (s *RefreshingTokenSource) Refresh(ctx context.Context) (string, error) {
	if s.RefreshURL == "" {
		return "", ErrNoRefresh
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refresh == "" {
		return "", errors.New("backend: refresh token is required")
	}

	b, err := json.Marshal(refreshReq{RefreshToken: s.refresh})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.RefreshURL, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("backend: token refresh: status %d", resp.StatusCode)
	}

	var decoded refreshResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	token := firstNonEmpty(decoded.AccessToken, decoded.Access, decoded.Token)
	if token == "" {
		return "", errors.New("backend: token refresh: empty access token")
	}
	s.access = token
	if decoded.RefreshToken != "" {
		s.refresh = decoded.RefreshToken
	}
	return token, nil
}

// expiresWithin reports whether a JWT access token expires before now+skew.
// Opaque (non-JWT) tokens and tokens without exp are treated as long lived.
func expiresWithin(token string, now time.Time, skew time.Duration) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Add(skew).Before(exp.Time)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
