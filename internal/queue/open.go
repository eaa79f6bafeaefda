package queue

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ScanEventsKey names the redis list and NATS subject carrying scan events.
const ScanEventsKey = "attendance:scans"

// Backend selects the queue implementation.
type Backend struct {
	Kind    string // "redis", "nats" or "memory"
	Redis   *redis.Client
	NATSURL string
}

// Open builds the configured queue. The returned close func releases any
// connection Open created.
func Open(b Backend, logger zerolog.Logger) (Queue, func(), error) {
	switch b.Kind {
	case "memory":
		return NewInMemory(64), func() {}, nil
	case "redis":
		if b.Redis == nil {
			return nil, nil, fmt.Errorf("redis queue requires a redis client")
		}
		return NewRedisQueue(b.Redis, ScanEventsKey, logger), func() {}, nil
	case "nats":
		conn, err := nats.Connect(b.NATSURL,
			nats.Name("beaconattend"),
			nats.Timeout(5*time.Second),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					logger.Warn().Err(err).Msg("nats disconnected")
				}
			}),
			nats.ReconnectHandler(func(c *nats.Conn) {
				logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
			}),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("connect nats: %w", err)
		}
		q := NewNATSQueue(conn, "attendance.scans", "attendance-workers", logger)
		return q, func() {
			if err := conn.Drain(); err != nil {
				logger.Warn().Err(err).Msg("nats drain failed")
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown queue backend %q", b.Kind)
	}
}
