package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"beaconattend/internal/apperr"
)

// PostgresLedger persists attendance entries in Postgres.
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger creates a ledger.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Append writes a new entry.
func (l *PostgresLedger) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CapturedAt.IsZero() {
		e.CapturedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO attendance_entries (id, identity_id, captured_name, captured_at)
		VALUES ($1,$2,$3,$4)
	`, e.ID, e.IdentityID, e.CapturedName, e.CapturedAt)
	if err != nil {
		return Entry{}, apperr.Storage("insert attendance entry", err)
	}
	return e, nil
}

// List returns entries newest first.
func (l *PostgresLedger) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, identity_id, captured_name, captured_at FROM attendance_entries ORDER BY captured_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("list attendance entries", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.IdentityID, &e.CapturedName, &e.CapturedAt); err != nil {
			return nil, apperr.Storage("list attendance entries", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list attendance entries", err)
	}
	return out, nil
}

// Count returns the total number of entries.
func (l *PostgresLedger) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance_entries`).Scan(&n); err != nil {
		return 0, apperr.Storage("count attendance entries", err)
	}
	return n, nil
}

// CountSince returns the number of entries captured at or after since.
func (l *PostgresLedger) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance_entries WHERE captured_at >= $1`, since).Scan(&n); err != nil {
		return 0, apperr.Storage("count attendance entries", err)
	}
	return n, nil
}
