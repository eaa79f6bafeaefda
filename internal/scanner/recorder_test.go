package scanner

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"beaconattend/internal/queue"
)

func TestRecorderPersistsScanEvents(t *testing.T) {
	log := NewMemoryLog()
	rec := NewRecorder(log, zerolog.Nop())
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	body, err := json.Marshal(Event{Seconds: 5, DeviceStatus: 200, RequestedAt: at})
	require.NoError(t, err)

	msgs := make(chan queue.Message, 4)
	msgs <- queue.Message{Type: queue.TypeScanStarted, Body: body}
	msgs <- queue.Message{Type: "something_else", Body: json.RawMessage(`{}`)}
	msgs <- queue.Message{Type: queue.TypeScanStarted, Body: json.RawMessage(`not json`)}
	msgs <- queue.Message{Type: queue.TypeScanStarted, Body: body}
	close(msgs)

	rec.Run(context.Background(), msgs)

	records, err := log.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		require.Equal(t, 5, r.Seconds)
		require.Equal(t, 200, r.DeviceStatus)
		require.True(t, at.Equal(r.RequestedAt))
		require.NotEmpty(t, r.ID)
		require.False(t, r.RecordedAt.IsZero())
	}
}

func TestRecorderThroughInMemoryQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemory(4)
	log := NewMemoryLog()
	o := NewOrchestrator(&fakeDevice{ack: Ack{StatusCode: 200, Body: json.RawMessage(`{}`)}}, q, 5, zerolog.Nop())

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		NewRecorder(log, zerolog.Nop()).Run(ctx, msgs)
		close(done)
	}()

	_, err = o.StartScan(ctx, 9)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		records, _ := log.List(context.Background(), 0)
		return len(records) == 1 && records[0].Seconds == 9
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestMemoryLogNewestFirst(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_, err := log.Append(ctx, Record{Seconds: i})
		require.NoError(t, err)
	}

	records, err := log.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, 3, records[0].Seconds)
	require.Equal(t, 2, records[1].Seconds)
}
