package scanner

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"beaconattend/internal/apperr"
)

// Record is one entry of the scan log.
type Record struct {
	ID           string    `json:"_id"`
	Seconds      int       `json:"scanTime"`
	DeviceStatus int       `json:"deviceStatus"`
	RequestedAt  time.Time `json:"requestedAt"`
	RecordedAt   time.Time `json:"recordedAt"`
}

// Log stores acknowledged scan requests.
type Log interface {
	Append(ctx context.Context, rec Record) (Record, error)
	// List returns records newest first; limit <= 0 returns all of them.
	List(ctx context.Context, limit int) ([]Record, error)
}

// PostgresLog persists the scan log in Postgres.
type PostgresLog struct {
	db *sql.DB
}

func NewPostgresLog(db *sql.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

func (l *PostgresLog) Append(ctx context.Context, rec Record) (Record, error) {
	rec = stamp(rec)
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO scan_log (id, duration_seconds, device_status, requested_at, recorded_at)
		VALUES ($1,$2,$3,$4,$5)
	`, rec.ID, rec.Seconds, rec.DeviceStatus, rec.RequestedAt, rec.RecordedAt)
	if err != nil {
		return Record{}, apperr.Storage("insert scan record", err)
	}
	return rec, nil
}

func (l *PostgresLog) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT id, duration_seconds, device_status, requested_at, recorded_at FROM scan_log ORDER BY requested_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("list scan records", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Seconds, &rec.DeviceStatus, &rec.RequestedAt, &rec.RecordedAt); err != nil {
			return nil, apperr.Storage("list scan records", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list scan records", err)
	}
	return out, nil
}

// MemoryLog is an in-process Log for dev and testing.
type MemoryLog struct {
	mu      sync.RWMutex
	records []Record
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Append(_ context.Context, rec Record) (Record, error) {
	rec = stamp(rec)
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
	return rec, nil
}

func (l *MemoryLog) List(_ context.Context, limit int) ([]Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, 0, len(l.records))
	for i := len(l.records) - 1; i >= 0; i-- {
		out = append(out, l.records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func stamp(rec Record) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	return rec
}
