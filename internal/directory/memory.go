package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"beaconattend/internal/apperr"
)

// MemoryRepository is a map-backed Repository for dev and testing. It
// enforces the same per-kind uniqueness rules as the Postgres schema.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]Identity
	order []string
	now   func() time.Time
}

// NewMemoryRepository creates an empty in-memory directory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]Identity), now: time.Now}
}

func (r *MemoryRepository) Create(_ context.Context, ident *Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflicts(*ident, "") {
		return apperr.ErrConflict
	}
	now := r.now().UTC()
	ident.ID = uuid.NewString()
	ident.CreatedAt = now
	ident.UpdatedAt = now
	r.byID[ident.ID] = *ident
	r.order = append(r.order, ident.ID)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, kind Kind, id string) (*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ident, ok := r.byID[id]
	if !ok || ident.Kind != kind {
		return nil, apperr.ErrNotFound
	}
	return &ident, nil
}

func (r *MemoryRepository) List(_ context.Context, kind Kind) ([]Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Identity{}
	for _, id := range r.order {
		if ident := r.byID[id]; ident.Kind == kind {
			out = append(out, ident)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, ident *Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[ident.ID]
	if !ok || existing.Kind != ident.Kind {
		return apperr.ErrNotFound
	}
	if r.conflicts(*ident, ident.ID) {
		return apperr.ErrConflict
	}
	ident.CreatedAt = existing.CreatedAt
	ident.UpdatedAt = r.now().UTC()
	r.byID[ident.ID] = *ident
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, kind Kind, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.byID[id]
	if !ok || ident.Kind != kind {
		return apperr.ErrNotFound
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRepository) Count(_ context.Context, kind Kind) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, ident := range r.byID {
		if ident.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) FindByBeaconIDs(_ context.Context, kind Kind, ids []string) ([]Identity, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Identity{}
	for _, ident := range r.byID {
		if _, ok := want[ident.BeaconID]; ok && ident.Kind == kind {
			out = append(out, ident)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BeaconID < out[j].BeaconID })
	return out, nil
}

func (r *MemoryRepository) FindByIDs(_ context.Context, ids []string) ([]Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Identity{}
	for _, id := range ids {
		if ident, ok := r.byID[id]; ok {
			out = append(out, ident)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// conflicts must be called with the lock held.
func (r *MemoryRepository) conflicts(ident Identity, skipID string) bool {
	for id, other := range r.byID {
		if id == skipID || other.Kind != ident.Kind {
			continue
		}
		if other.Email == ident.Email || other.BeaconID == ident.BeaconID {
			return true
		}
	}
	return false
}
