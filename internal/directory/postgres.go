package directory

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"beaconattend/internal/apperr"
)

const identityColumns = `id, kind, name, email, beacon_id, subject, password_hash, created_at, updated_at`

// PostgresRepository persists identities in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new identity and assigns its id.
func (r *PostgresRepository) Create(ctx context.Context, ident *Identity) error {
	now := time.Now().UTC()
	ident.ID = uuid.NewString()
	ident.CreatedAt = now
	ident.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (`+identityColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, ident.ID, ident.Kind, ident.Name, ident.Email, ident.BeaconID, ident.Subject, ident.PasswordHash, ident.CreatedAt, ident.UpdatedAt)
	return classify("create identity", err)
}

// Get returns a single identity of kind.
func (r *PostgresRepository) Get(ctx context.Context, kind Kind, id string) (*Identity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE kind = $1 AND id = $2`, kind, id)
	ident, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Storage("get identity", err)
	}
	return &ident, nil
}

// List returns all identities of kind, oldest first.
func (r *PostgresRepository) List(ctx context.Context, kind Kind) ([]Identity, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE kind = $1 ORDER BY created_at, id`, kind)
	if err != nil {
		return nil, apperr.Storage("list identities", err)
	}
	return collect(rows, "list identities")
}

// Update overwrites the mutable fields of an existing identity.
func (r *PostgresRepository) Update(ctx context.Context, ident *Identity) error {
	ident.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE identities
		SET name = $3, email = $4, beacon_id = $5, subject = $6, password_hash = $7, updated_at = $8
		WHERE kind = $1 AND id = $2
	`, ident.Kind, ident.ID, ident.Name, ident.Email, ident.BeaconID, ident.Subject, ident.PasswordHash, ident.UpdatedAt)
	if err != nil {
		return classify("update identity", err)
	}
	return expectOne(res, "update identity")
}

// Delete removes an identity. Attendance entries referencing it are kept.
func (r *PostgresRepository) Delete(ctx context.Context, kind Kind, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE kind = $1 AND id = $2`, kind, id)
	if err != nil {
		return apperr.Storage("delete identity", err)
	}
	return expectOne(res, "delete identity")
}

// Count returns the number of identities of kind.
func (r *PostgresRepository) Count(ctx context.Context, kind Kind) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM identities WHERE kind = $1`, kind).Scan(&n); err != nil {
		return 0, apperr.Storage("count identities", err)
	}
	return n, nil
}

// FindByBeaconIDs resolves a set of beacon ids within one sub-directory.
func (r *PostgresRepository) FindByBeaconIDs(ctx context.Context, kind Kind, ids []string) ([]Identity, error) {
	if len(ids) == 0 {
		return []Identity{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE kind = $1 AND beacon_id = ANY($2)
		ORDER BY beacon_id
	`, kind, ids)
	if err != nil {
		return nil, apperr.Storage("find by beacon ids", err)
	}
	return collect(rows, "find by beacon ids")
}

// FindByIDs resolves identities by primary key.
func (r *PostgresRepository) FindByIDs(ctx context.Context, ids []string) ([]Identity, error) {
	if len(ids) == 0 {
		return []Identity{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, apperr.Storage("find by ids", err)
	}
	return collect(rows, "find by ids")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row scanner) (Identity, error) {
	var ident Identity
	err := row.Scan(&ident.ID, &ident.Kind, &ident.Name, &ident.Email, &ident.BeaconID, &ident.Subject, &ident.PasswordHash, &ident.CreatedAt, &ident.UpdatedAt)
	return ident, err
}

func collect(rows *sql.Rows, op string) ([]Identity, error) {
	defer rows.Close()
	out := []Identity{}
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, apperr.Storage(op, err)
		}
		out = append(out, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(op, err)
	}
	return out, nil
}

func expectOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage(op, err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// classify maps unique violations to ErrConflict.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.ErrConflict
	}
	return apperr.Storage(op, err)
}
