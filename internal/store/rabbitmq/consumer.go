package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/assessment-client/internal/assessment"
	"github.com/suPer8Hu/assessment-client/internal/logger"
)

var errBadMessage = errors.New("malformed event message")

type Handler func(ctx context.Context, e assessment.Event) error

// Consumer runs a bounded worker pool over the event queue. Failed events are retried
// through the retry queue up to MaxAttempts, then dead-lettered.
type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	log   *logger.Logger

	MaxAttempts int
	RetryDelay  time.Duration
}

func NewConsumer(url, queue string, log *logger.Logger) (*Consumer, error) {
	if log == nil {
		log = logger.Nop()
	}
	conn, ch, err := dial(url, queue)
	if err != nil {
		return nil, err
	}
	return &Consumer{
		conn:        conn,
		ch:          ch,
		queue:       queue,
		log:         log.With("queue", queue),
		MaxAttempts: 3,
		RetryDelay:  5 * time.Second,
	}, nil
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Run consumes until ctx is done, with at most concurrency events in flight.
func (c *Consumer) Run(ctx context.Context, concurrency int, handle Handler) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	if err := c.ch.Qos(concurrency, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.log.Info("event worker started", "concurrency", concurrency)

	jobs := make(chan amqp.Delivery, concurrency*2)
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				c.handle(ctx, workerID, d, handle)
			}
		}(i)
	}

	defer func() {
		close(jobs)
		wg.Wait()
	}()
	for {
		select {
		case <-ctx.Done():
			c.log.Info("event worker shutting down")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			jobs <- d
		}
	}
}

func (c *Consumer) handle(ctx context.Context, workerID int, d amqp.Delivery, handle Handler) {
	start := time.Now()
	e, err := decodeEvent(d.Body)
	if err != nil {
		c.log.Warn("bad event message", "worker", workerID, "error", err)
		_ = d.Nack(false, false)
		return
	}

	if err := handle(ctx, e); err != nil {
		attempt := attemptOf(d.Headers) + 1
		if attempt >= c.MaxAttempts {
			c.log.Error("event failed, dead-lettering", "worker", workerID, "event_id", e.ID,
				"attempt", attempt, "error", err)
			_ = d.Nack(false, false)
			return
		}
		msg := amqp.Publishing{
			ContentType:  d.ContentType,
			DeliveryMode: amqp.Persistent,
			MessageId:    d.MessageId,
			Type:         d.Type,
			Body:         d.Body,
			Timestamp:    time.Now(),
		}
		if perr := publishRetry(ctx, c.ch, c.queue, msg, attempt, c.RetryDelay); perr != nil {
			c.log.Error("retry publish failed", "worker", workerID, "event_id", e.ID, "error", perr)
			_ = d.Nack(false, false)
			return
		}
		c.log.Warn("event failed, scheduled retry", "worker", workerID, "event_id", e.ID,
			"attempt", attempt, "error", err)
		_ = d.Ack(false)
		return
	}

	if err := d.Ack(false); err != nil {
		c.log.Warn("ack failed", "worker", workerID, "event_id", e.ID, "error", err)
	}
	if cost := time.Since(start); cost > 500*time.Millisecond {
		c.log.Info("slow event", "worker", workerID, "event_id", e.ID, "type", e.Type, "cost", cost.String())
	}
}

func decodeEvent(body []byte) (assessment.Event, error) {
	var e assessment.Event
	if err := json.Unmarshal(body, &e); err != nil {
		return e, fmt.Errorf("%w: %v", errBadMessage, err)
	}
	if e.ID == "" || e.Type == "" {
		return e, fmt.Errorf("%w: missing id or type", errBadMessage)
	}
	return e, nil
}

func attemptOf(h amqp.Table) int {
	switch v := h[attemptHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
