package scanner

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"beaconattend/internal/observability"
	"beaconattend/internal/queue"
)

// Recorder drains scan events from a queue into the scan log.
type Recorder struct {
	log    Log
	logger zerolog.Logger
}

func NewRecorder(log Log, logger zerolog.Logger) *Recorder {
	return &Recorder{log: log, logger: logger.With().Str("component", "scan_recorder").Logger()}
}

// Run consumes messages until the channel closes. Messages of other types and
// malformed bodies are skipped.
func (r *Recorder) Run(ctx context.Context, messages <-chan queue.Message) {
	r.logger.Info().Msg("waiting for scan events")
	for msg := range messages {
		if msg.Type != queue.TypeScanStarted {
			continue
		}
		var evt Event
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			r.logger.Warn().Err(err).Msg("malformed scan event")
			continue
		}
		rec, err := r.log.Append(ctx, Record{
			Seconds:      evt.Seconds,
			DeviceStatus: evt.DeviceStatus,
			RequestedAt:  evt.RequestedAt,
		})
		if err != nil {
			r.logger.Error().Err(err).Msg("persist scan record failed")
			continue
		}
		observability.ScanRecordsPersisted().Inc()
		r.logger.Info().Str("id", rec.ID).Int("scan_time", rec.Seconds).Int("device_status", rec.DeviceStatus).Msg("scan recorded")
	}
	r.logger.Info().Msg("scan recorder stopped")
}
