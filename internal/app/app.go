package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/suPer8Hu/assessment-client/internal/assessment"
	"github.com/suPer8Hu/assessment-client/internal/backend"
	"github.com/suPer8Hu/assessment-client/internal/config"
	"github.com/suPer8Hu/assessment-client/internal/logger"
	"github.com/suPer8Hu/assessment-client/internal/store"
	"github.com/suPer8Hu/assessment-client/internal/store/rabbitmq"
)

// App holds everything a front-end needs: the orchestrator plus the optional mirror and
// event publisher it was wired with.
type App struct {
	Cfg    config.Config
	Log    *logger.Logger
	Orch   *assessment.Orchestrator
	Mirror store.Mirror

	publisher *rabbitmq.Publisher
}

// New wires an App from cfg. confirm is asked before every delete.
func New(ctx context.Context, cfg config.Config, log *logger.Logger, confirm assessment.Confirmer) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	client := backend.NewClient(cfg.APIBaseURL, tokenSource(cfg), cfg.RequestTimeout, log)

	mirror, err := store.DefaultRegistry().Open(ctx, cfg.MirrorBackend, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s mirror: %w", cfg.MirrorBackend, err)
	}

	a := &App{Cfg: cfg, Log: log, Mirror: mirror}
	opts := assessment.Options{
		PageSize: cfg.DefaultPageSize,
		Confirm:  confirm,
		Log:      log,
	}
	if mirror != nil {
		opts.Mirror = mirror
	}

	if cfg.EventsEnabled {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("rabbit publisher: %w", err)
		}
		a.publisher = pub
		opts.Events = pub
	}

	a.Orch = assessment.NewOrchestrator(client, opts)
	log.Info("assessment client ready",
		"api", cfg.APIBaseURL,
		"mirror", cfg.MirrorBackend,
		"events", cfg.EventsEnabled,
		"page_size", cfg.DefaultPageSize,
	)
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.Mirror != nil {
		errs = append(errs, a.Mirror.Close())
	}
	return errors.Join(errs...)
}

// tokenSource refreshes only when both a refresh token and a refresh URL are configured.
func tokenSource(cfg config.Config) backend.TokenSource {
	if cfg.APIRefreshToken != "" && cfg.AuthRefreshURL != "" {
		return backend.NewRefreshingTokenSource(cfg.APIToken, cfg.APIRefreshToken, cfg.AuthRefreshURL)
	}
	return backend.StaticToken(cfg.APIToken)
}
