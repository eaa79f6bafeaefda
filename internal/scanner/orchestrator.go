package scanner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"beaconattend/internal/apperr"
	"beaconattend/internal/observability"
	"beaconattend/internal/queue"
)

// Device starts a scan on the external scanning device.
type Device interface {
	StartScan(ctx context.Context, seconds int) (Ack, error)
}

// Event is published after the device acknowledged a scan request.
type Event struct {
	Seconds      int       `json:"scanTime"`
	DeviceStatus int       `json:"deviceStatus"`
	RequestedAt  time.Time `json:"requestedAt"`
}

// Orchestrator relays scan requests to the device. It never scans by itself
// and never creates attendance entries; the device reports its findings later
// through the attendance endpoint.
type Orchestrator struct {
	device         Device
	events         queue.Publisher
	defaultSeconds int
	logger         zerolog.Logger
	now            func() time.Time
}

// NewOrchestrator creates an orchestrator. events may be nil.
func NewOrchestrator(device Device, events queue.Publisher, defaultSeconds int, logger zerolog.Logger) *Orchestrator {
	if defaultSeconds <= 0 {
		defaultSeconds = 5
	}
	return &Orchestrator{
		device:         device,
		events:         events,
		defaultSeconds: defaultSeconds,
		logger:         logger.With().Str("component", "scan_orchestrator").Logger(),
		now:            time.Now,
	}
}

// DefaultSeconds is the duration used when a request does not name one.
func (o *Orchestrator) DefaultSeconds() int {
	return o.defaultSeconds
}

// StartScan validates seconds and issues exactly one request to the device.
func (o *Orchestrator) StartScan(ctx context.Context, seconds int) (Ack, error) {
	if seconds <= 0 {
		observability.ScanTriggers().WithLabelValues("invalid").Inc()
		return Ack{}, apperr.Validation("scanTime must be a positive integer",
			apperr.FieldError{Field: "scanTime", Message: "must be greater than zero"})
	}

	requestedAt := o.now().UTC()
	ack, err := o.device.StartScan(ctx, seconds)
	if err != nil {
		observability.ScanTriggers().WithLabelValues("unreachable").Inc()
		o.logger.Warn().Err(err).Int("scan_time", seconds).Msg("scanner did not acknowledge")
		return Ack{}, err
	}
	observability.ScanTriggers().WithLabelValues("relayed").Inc()
	o.logger.Info().Int("scan_time", seconds).Int("device_status", ack.StatusCode).Msg("scan request relayed")

	o.publish(ctx, Event{Seconds: seconds, DeviceStatus: ack.StatusCode, RequestedAt: requestedAt})
	return ack, nil
}

// publish failures are logged only; they never alter the relayed reply.
func (o *Orchestrator) publish(ctx context.Context, evt Event) {
	if o.events == nil {
		return
	}
	body, err := json.Marshal(evt)
	if err != nil {
		o.logger.Warn().Err(err).Msg("encode scan event")
		return
	}
	if err := o.events.Publish(ctx, queue.Message{Type: queue.TypeScanStarted, Body: body}); err != nil {
		o.logger.Warn().Err(err).Msg("queue publish failed")
	}
}
