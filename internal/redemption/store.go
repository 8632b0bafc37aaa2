package redemption

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
)

// Store persists redemption records.
type Store interface {
	// Create inserts a new record.
	Create(ctx context.Context, r *Redemption) error

	// List returns the user's records ordered by RedeemedAt descending,
	// optionally filtered by status. limit <= 0 means no limit.
	List(ctx context.Context, userID string, status Status, limit int) ([]*Redemption, error)

	// ExpireDue sets status=expired on active records whose expiry is before
	// now and returns how many changed.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Redemption
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Create(_ context.Context, r *Redemption) error {
	if r == nil || r.ID == "" || r.UserID == "" {
		return errs.Invalid("redemption id and user id are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.records = append(m.records, &cp)
	return nil
}

func (m *MemoryStore) List(_ context.Context, userID string, status Status, limit int) ([]*Redemption, error) {
	m.mu.RLock()
	out := make([]*Redemption, 0)
	for _, r := range m.records {
		if r.UserID != userID || (status != "" && r.Status != status) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	m.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b *Redemption) int {
		return b.RedeemedAt.Compare(a.RedeemedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.records {
		if r.Status == StatusActive && r.Expired(now) {
			r.Status = StatusExpired
			n++
		}
	}
	return n, nil
}
