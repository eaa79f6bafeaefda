package store

import (
	"context"
	"fmt"
)

// Identities are unique per kind only; the same beacon may be registered
// once as a student and once as a teacher. Attendance entries keep no foreign
// key so that deleting an identity leaves its history intact.
const schema = `
CREATE TABLE IF NOT EXISTS identities (
	id            TEXT PRIMARY KEY,
	kind          TEXT NOT NULL CHECK (kind IN ('student', 'teacher')),
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	beacon_id     TEXT NOT NULL,
	subject       TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (kind, email),
	UNIQUE (kind, beacon_id)
);

CREATE TABLE IF NOT EXISTS attendance_entries (
	id            TEXT PRIMARY KEY,
	identity_id   TEXT NOT NULL,
	captured_name TEXT NOT NULL,
	captured_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attendance_entries_identity ON attendance_entries(identity_id);
CREATE INDEX IF NOT EXISTS idx_attendance_entries_time     ON attendance_entries(captured_at);

CREATE TABLE IF NOT EXISTS scan_log (
	id               TEXT PRIMARY KEY,
	duration_seconds INTEGER NOT NULL,
	device_status    INTEGER NOT NULL,
	requested_at     TIMESTAMPTZ NOT NULL,
	recorded_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_scan_log_requested ON scan_log(requested_at);
`

// Migrate creates the tables the service needs if they do not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.Client.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
