package store

import (
	"context"
	"errors"
	"testing"

	"github.com/suPer8Hu/assessment-client/internal/assessment"
	"github.com/suPer8Hu/assessment-client/internal/config"
)

func TestOpen_NoneIsNil(t *testing.T) {
	for _, name := range []string{"", "none", " NONE "} {
		m, err := DefaultRegistry().Open(context.Background(), name, config.Config{})
		if err != nil || m != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", name, m, err)
		}
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := DefaultRegistry().Open(context.Background(), "cassandra", config.Config{}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestOpen_SQLiteMirror(t *testing.T) {
	cfg := config.Config{MirrorDSN: "file:registry_test?mode=memory&cache=shared"}
	m, err := DefaultRegistry().Open(context.Background(), "SQLite", cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer m.Close()

	ctx := context.Background()
	if err := m.SaveSession(ctx, assessment.Session{ID: "s1", Title: "t", Status: assessment.StatusInProgress}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := m.GetSession(ctx, "missing"); !errors.Is(err, assessment.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRegister_Overrides(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register(" Custom ", func(ctx context.Context, cfg config.Config) (Mirror, error) {
		called = true
		return nil, nil
	})
	if _, err := r.Open(context.Background(), "custom", config.Config{}); err != nil || !called {
		t.Fatalf("expected custom factory to run, err=%v", err)
	}
}
