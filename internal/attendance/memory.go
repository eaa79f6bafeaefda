package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is a slice-backed Ledger for dev and testing.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) Append(_ context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CapturedAt.IsZero() {
		e.CapturedAt = time.Now().UTC()
	}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return e, nil
}

func (l *MemoryLedger) List(_ context.Context, limit int) ([]Entry, error) {
	l.mu.RLock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	l.mu.RUnlock()

	// newest first, insertion order breaks ties
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CapturedAt.After(out[j].CapturedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *MemoryLedger) Count(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}

func (l *MemoryLedger) CountSince(_ context.Context, since time.Time) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, e := range l.entries {
		if !e.CapturedAt.Before(since) {
			n++
		}
	}
	return n, nil
}
