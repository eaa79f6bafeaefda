package queue

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSQueue publishes to a subject and consumes through a queue group so
// that each message reaches one worker.
type NATSQueue struct {
	conn    *nats.Conn
	subject string
	group   string
	logger  zerolog.Logger
}

// NewNATSQueue wraps an established connection.
func NewNATSQueue(conn *nats.Conn, subject, group string, logger zerolog.Logger) *NATSQueue {
	if subject == "" {
		subject = "attendance.scans"
	}
	if group == "" {
		group = "attendance-workers"
	}
	return &NATSQueue{
		conn:    conn,
		subject: subject,
		group:   group,
		logger:  logger.With().Str("component", "nats_queue").Str("subject", subject).Logger(),
	}
}

// Publish sends a message to the subject.
func (q *NATSQueue) Publish(_ context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.conn.Publish(q.subject, payload)
}

// Consume subscribes within the queue group until ctx is done, then drains.
func (q *NATSQueue) Consume(ctx context.Context) (<-chan Message, error) {
	inbox := make(chan *nats.Msg, 64)
	sub, err := q.conn.ChanQueueSubscribe(q.subject, q.group, inbox)
	if err != nil {
		return nil, err
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		defer func() {
			if err := sub.Drain(); err != nil {
				q.logger.Warn().Err(err).Msg("failed to drain subscription")
			}
		}()
		for {
			select {
			case raw := <-inbox:
				var msg Message
				if err := json.Unmarshal(raw.Data, &msg); err != nil {
					q.logger.Warn().Err(err).Msg("dropping malformed message")
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
