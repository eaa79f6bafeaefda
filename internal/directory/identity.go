package directory

import (
	"context"
	"time"
)

// Kind separates the student and teacher sub-directories.
type Kind string

const (
	KindStudent Kind = "student"
	KindTeacher Kind = "teacher"
)

// Valid reports whether k names a known sub-directory.
func (k Kind) Valid() bool {
	return k == KindStudent || k == KindTeacher
}

// Identity is a person eligible for attendance tracking. BeaconID is unique
// within its Kind only.
type Identity struct {
	ID           string    `json:"_id"`
	Kind         Kind      `json:"kind"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	BeaconID     string    `json:"bluetoothId"`
	Subject      string    `json:"subject,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Repository persists identities.
type Repository interface {
	Create(ctx context.Context, ident *Identity) error
	Get(ctx context.Context, kind Kind, id string) (*Identity, error)
	List(ctx context.Context, kind Kind) ([]Identity, error)
	Update(ctx context.Context, ident *Identity) error
	Delete(ctx context.Context, kind Kind, id string) error
	Count(ctx context.Context, kind Kind) (int, error)

	// FindByBeaconIDs returns the identities of kind whose beacon id is in ids,
	// ordered by beacon id.
	FindByBeaconIDs(ctx context.Context, kind Kind, ids []string) ([]Identity, error)
	// FindByIDs returns identities of any kind by primary key.
	FindByIDs(ctx context.Context, ids []string) ([]Identity, error)
}
