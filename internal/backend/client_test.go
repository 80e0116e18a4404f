package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

type countingTokens struct {
	token     string
	refreshed string
	refreshes int32
}

func (c *countingTokens) Token(context.Context) (string, error) { return c.token, nil }

func (c *countingTokens) Refresh(context.Context) (string, error) {
	atomic.AddInt32(&c.refreshes, 1)
	return c.refreshed, nil
}

func TestDo_DecodesObjectAndSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("page_size"); got != "10" {
			t.Errorf("unexpected page_size %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer abc" {
			t.Errorf("unexpected auth header %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("expected request id header")
		}
		w.Write([]byte(`{"sessions":[],"total_pages":0}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/", StaticToken("abc"), time.Second, nil)
	out, err := c.Do(context.Background(), http.MethodGet, "sessions", url.Values{"page_size": {"10"}}, nil)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if _, ok := out["sessions"]; !ok {
		t.Fatalf("expected sessions key, got %v", out)
	}
}

func TestDo_NonSuccessReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail":"not your session"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, time.Second, nil)
	_, err := c.Do(context.Background(), http.MethodPost, "sessions/x/message", nil, map[string]string{"message": "hi"})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode() != http.StatusForbidden {
		t.Fatalf("unexpected status %d", se.StatusCode())
	}
	if se.Detail() != "not your session" {
		t.Fatalf("unexpected detail %q", se.Detail())
	}
}

func TestDo_RefreshesOnceOn401(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tokens := &countingTokens{token: "stale", refreshed: "fresh"}
	c := NewClient(srv.URL, tokens, time.Second, nil)
	out, err := c.Do(context.Background(), http.MethodGet, "sessions", nil, nil)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if out["ok"] != true {
		t.Fatalf("unexpected payload %v", out)
	}
	if tokens.refreshes != 1 || calls != 2 {
		t.Fatalf("expected 1 refresh and 2 calls, got refreshes=%d calls=%d", tokens.refreshes, calls)
	}
}

func TestDo_WrapsNonObjectAndEmptyBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Write([]byte(`[{"id":"a"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, time.Second, nil)
	out, err := c.Do(context.Background(), http.MethodGet, "sessions", nil, nil)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if list, ok := out["data"].([]any); !ok || len(list) != 1 {
		t.Fatalf("expected wrapped list, got %v", out)
	}

	out, err = c.Do(context.Background(), http.MethodDelete, "sessions/a", nil, nil)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty map, got %v", out)
	}
}

func TestDo_TimeoutIsDeadlineExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, 50*time.Millisecond, nil)
	_, err := c.Do(context.Background(), http.MethodGet, "sessions", nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
