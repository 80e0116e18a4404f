package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/suPer8Hu/assessment-client/internal/assessment"
	"github.com/suPer8Hu/assessment-client/internal/config"
	"github.com/suPer8Hu/assessment-client/internal/store/gormstore"
	"github.com/suPer8Hu/assessment-client/internal/store/redisstore"
)

// Mirror is a local mirror that can also be read back offline.
type Mirror interface {
	assessment.Mirror
	ListSessions(ctx context.Context, limit int) ([]assessment.Session, error)
	GetSession(ctx context.Context, sessionID string) (*assessment.Session, error)
	Messages(ctx context.Context, sessionID string) ([]assessment.Message, error)
	Close() error
}

type Factory func(ctx context.Context, cfg config.Config) (Mirror, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, f Factory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Open builds the mirror registered under name. "none" (or empty) yields nil, nil.
func (r *Registry) Open(ctx context.Context, name string, cfg config.Config) (Mirror, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "none" {
		return nil, nil
	}
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown mirror backend: %s", name)
	}
	return f(ctx, cfg)
}

// DefaultRegistry knows the sqlite, mysql and redis mirrors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	sql := func(driver string) Factory {
		return func(ctx context.Context, cfg config.Config) (Mirror, error) {
			db, err := gormstore.Open(driver, cfg.MirrorDSN)
			if err != nil {
				return nil, err
			}
			if err := gormstore.Migrate(db.WithContext(ctx)); err != nil {
				return nil, fmt.Errorf("migrate %s mirror: %w", driver, err)
			}
			return gormstore.New(db), nil
		}
	}
	r.Register("sqlite", sql("sqlite"))
	r.Register("mysql", sql("mysql"))
	r.Register("redis", func(ctx context.Context, cfg config.Config) (Mirror, error) {
		rdb, err := redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return redisstore.New(rdb, cfg.MirrorTTL), nil
	})
	return r
}
