package rabbitmq

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/assessment-client/internal/assessment"
)

const attemptHeader = "x-attempt"

// Publisher sends lifecycle events to the event queue. It satisfies assessment.EventSink.
type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, ch, err := dial(url, queue)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) Publish(ctx context.Context, e assessment.Event) error {
	msg, err := eventPublishing(e, 0)
	if err != nil {
		return err
	}
	return publish(ctx, p.ch, p.queue, msg)
}

func eventPublishing(e assessment.Event, attempt int) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Type:         e.Type,
		Body:         body,
		Timestamp:    time.Now(),
		Headers:      amqp.Table{attemptHeader: int32(attempt)},
	}, nil
}

// publishRetry parks msg in the retry queue for delay before it returns to the main queue.
func publishRetry(ctx context.Context, ch *amqp.Channel, queue string, msg amqp.Publishing, attempt int, delay time.Duration) error {
	msg.Headers = amqp.Table{attemptHeader: int32(attempt)}
	msg.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)
	return publish(ctx, ch, retryQueue(queue), msg)
}

func publish(ctx context.Context, ch *amqp.Channel, routingKey string, msg amqp.Publishing) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ch.PublishWithContext(cctx,
		"",         // default exchange
		routingKey, // routing key = queue
		false,
		false,
		msg,
	)
}
