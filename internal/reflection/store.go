package reflection

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
)

// Store persists reflections.
type Store interface {
	// Create inserts a reflection.
	Create(ctx context.Context, r *Reflection) error

	// List returns the user's reflections newest first. limit <= 0 means all.
	List(ctx context.Context, userID string, limit int) ([]*Reflection, error)

	// Delete removes a reflection owned by userID. A missing or foreign id
	// is errs.ErrNotFound.
	Delete(ctx context.Context, userID, id string) error

	// CreateStart inserts a start marker unless the user already has a
	// reflection for the same quest created in [from, to). The check and the
	// insert are one atomic step. It reports whether the marker was stored.
	CreateStart(ctx context.Context, r *Reflection, from, to time.Time) (bool, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	items []*Reflection
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Create(_ context.Context, r *Reflection) error {
	if r == nil || r.ID == "" || r.UserID == "" {
		return errs.Invalid("reflection id and user id are required")
	}
	cp := *r
	m.mu.Lock()
	m.items = append(m.items, &cp)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(_ context.Context, userID string, limit int) ([]*Reflection, error) {
	m.mu.RLock()
	out := make([]*Reflection, 0)
	for _, r := range m.items {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	m.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b *Reflection) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.items {
		if r.ID == id && r.UserID == userID {
			m.items = slices.Delete(m.items, i, i+1)
			return nil
		}
	}
	return errs.NotFound("reflection", id)
}

func (m *MemoryStore) CreateStart(_ context.Context, r *Reflection, from, to time.Time) (bool, error) {
	if r == nil || r.ID == "" || r.UserID == "" {
		return false, errs.Invalid("reflection id and user id are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.UserID == r.UserID && it.QuestTitle == r.QuestTitle &&
			!it.CreatedAt.Before(from) && it.CreatedAt.Before(to) {
			return false, nil
		}
	}
	cp := *r
	cp.Kind = KindStart
	m.items = append(m.items, &cp)
	return true, nil
}
