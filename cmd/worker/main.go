package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/suPer8Hu/assessment-client/internal/config"
	"github.com/suPer8Hu/assessment-client/internal/logger"
	"github.com/suPer8Hu/assessment-client/internal/store/gormstore"
	"github.com/suPer8Hu/assessment-client/internal/store/rabbitmq"
)

const defaultEventDSN = "file:assessment_events.db?_pragma=busy_timeout(5000)"

// eventStore picks the database for the event log: the relational mirror when one is
// configured, a local sqlite file otherwise.
func eventStore(cfg config.Config) (driver, dsn string) {
	switch cfg.MirrorBackend {
	case "sqlite", "mysql":
		if cfg.MirrorDSN != "" {
			return cfg.MirrorBackend, cfg.MirrorDSN
		}
	}
	return "sqlite", defaultEventDSN
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log = log.With("service", "worker")

	driver, dsn := eventStore(cfg)
	gdb, err := gormstore.Open(driver, dsn)
	if err != nil {
		log.Fatal("open event store", "driver", driver, "error", err)
	}
	if err := gormstore.Migrate(gdb); err != nil {
		log.Fatal("migrate event store", "error", err)
	}
	events := gormstore.New(gdb)
	defer events.Close()

	consumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, cfg.RabbitQueue, log)
	if err != nil {
		log.Fatal("rabbit consumer", "error", err)
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("worker started", "queue", cfg.RabbitQueue, "concurrency", cfg.WorkerConcurrency, "store", driver)
	if err := consumer.Run(ctx, cfg.WorkerConcurrency, events.RecordEvent); err != nil {
		log.Error("worker stopped", "error", err)
	}
}
