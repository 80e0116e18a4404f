package config

import (
	"os"
	"testing"
	"time"
)

// chdirTemp keeps godotenv from picking up a stray .env in the package directory.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"API_BASE_URL", "API_TOKEN", "API_REFRESH_TOKEN", "AUTH_REFRESH_URL", "REQUEST_TIMEOUT_SECONDS",
		"DEFAULT_PAGE_SIZE", "LOG_MODE", "HTTP_ADDR", "MIRROR_BACKEND", "MIRROR_DSN", "REDIS_ADDR",
		"REDIS_PASSWORD", "REDIS_DB", "MIRROR_TTL_MINUTES", "EVENTS_ENABLED", "RABBIT_URL", "RABBIT_QUEUE",
		"WORKER_CONCURRENCY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)

	cfg := Load()
	if cfg.APIBaseURL != "http://localhost:8000/api/assessment" {
		t.Fatalf("unexpected base url %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 60*time.Second || cfg.DefaultPageSize != 10 {
		t.Fatalf("unexpected timeout/page size %v/%d", cfg.RequestTimeout, cfg.DefaultPageSize)
	}
	if cfg.MirrorBackend != "none" || cfg.MirrorDSN != "" || cfg.MirrorTTL != 24*time.Hour {
		t.Fatalf("unexpected mirror config %+v", cfg)
	}
	if cfg.EventsEnabled || cfg.RabbitQueue != "assessment_events" || cfg.WorkerConcurrency != 2 {
		t.Fatalf("unexpected events config %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "15")
	t.Setenv("MIRROR_BACKEND", " SQLite ")
	t.Setenv("EVENTS_ENABLED", "yes")
	t.Setenv("WORKER_CONCURRENCY", "500")
	t.Setenv("MIRROR_TTL_MINUTES", "30")

	cfg := Load()
	if cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %v", cfg.RequestTimeout)
	}
	if cfg.MirrorBackend != "sqlite" || cfg.MirrorDSN == "" {
		t.Fatalf("expected sqlite with a default dsn, got %q %q", cfg.MirrorBackend, cfg.MirrorDSN)
	}
	if !cfg.EventsEnabled {
		t.Fatalf("expected events enabled")
	}
	if cfg.WorkerConcurrency != 50 {
		t.Fatalf("expected concurrency capped at 50, got %d", cfg.WorkerConcurrency)
	}
	if cfg.MirrorTTL != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %v", cfg.MirrorTTL)
	}
}

func TestLoad_IgnoresBadNumbers(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "-3")
	t.Setenv("WORKER_CONCURRENCY", "abc")

	cfg := Load()
	if cfg.RequestTimeout != 60*time.Second || cfg.WorkerConcurrency != 2 {
		t.Fatalf("expected defaults, got %v/%d", cfg.RequestTimeout, cfg.WorkerConcurrency)
	}
}
