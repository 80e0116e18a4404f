package app

import (
	"context"
	"testing"
	"time"

	"github.com/suPer8Hu/assessment-client/internal/backend"
	"github.com/suPer8Hu/assessment-client/internal/config"
)

func TestTokenSource(t *testing.T) {
	cfg := config.Config{APIToken: "abc"}
	if _, ok := tokenSource(cfg).(backend.StaticToken); !ok {
		t.Fatalf("expected a static token without refresh settings")
	}

	cfg.APIRefreshToken = "r"
	if _, ok := tokenSource(cfg).(backend.StaticToken); !ok {
		t.Fatalf("expected a static token without a refresh url")
	}

	cfg.AuthRefreshURL = "http://auth.local/refresh"
	if _, ok := tokenSource(cfg).(*backend.RefreshingTokenSource); !ok {
		t.Fatalf("expected a refreshing token source")
	}
}

func TestNew_WithSQLiteMirror(t *testing.T) {
	cfg := config.Config{
		APIBaseURL:      "http://127.0.0.1:1",
		RequestTimeout:  time.Second,
		DefaultPageSize: 20,
		MirrorBackend:   "sqlite",
		MirrorDSN:       "file:app_test?mode=memory&cache=shared",
	}
	a, err := New(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	if a.Mirror == nil || a.Orch == nil {
		t.Fatalf("expected orchestrator and mirror, got %+v", a)
	}
	if got := a.Orch.View().Pagination.PageSize; got != 20 {
		t.Fatalf("expected page size 20, got %d", got)
	}
}

func TestNew_UnknownMirror(t *testing.T) {
	cfg := config.Config{APIBaseURL: "http://127.0.0.1:1", MirrorBackend: "cassandra"}
	if _, err := New(context.Background(), cfg, nil, nil); err == nil {
		t.Fatalf("expected an error for an unknown mirror backend")
	}
}
