package attendance

import (
	"context"
	"time"
)

// Entry is one immutable presence record. CapturedName is the identity's
// display name at capture time and is never refreshed.
type Entry struct {
	ID           string
	IdentityID   string
	CapturedName string
	CapturedAt   time.Time
}

// Ledger is the append-only store of attendance entries. There is no update
// or delete.
type Ledger interface {
	// Append stores e and returns it with its id assigned.
	Append(ctx context.Context, e Entry) (Entry, error)
	// List returns entries newest first; limit <= 0 returns all of them.
	List(ctx context.Context, limit int) ([]Entry, error)
	Count(ctx context.Context) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}
