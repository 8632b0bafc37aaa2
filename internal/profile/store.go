package profile

import (
	"context"
	"sync"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
)

// Store persists profile snapshots.
type Store interface {
	// Get returns the user's profile or an error wrapping errs.ErrNotFound.
	Get(ctx context.Context, userID string) (*Snapshot, error)

	// Save creates or replaces the user's profile.
	Save(ctx context.Context, s *Snapshot) error

	// Update applies fn to the user's profile, or to a fresh empty one, and
	// stores the result. Concurrent updates of one user are serialized, so
	// fn always sees the latest stored sections. fn must not call the store.
	// An error from fn leaves the stored profile untouched.
	Update(ctx context.Context, userID string, fn func(*Snapshot) error) (*Snapshot, error)

	// AppendMood appends one entry to the mood log, creating the profile if
	// needed. Existing entries are never rewritten.
	AppendMood(ctx context.Context, userID string, entry MoodEntry) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Snapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*Snapshot)}
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.profiles[userID]
	if !ok {
		return nil, errs.NotFound("profile", userID)
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Snapshot) error {
	if s == nil || s.UserID == "" {
		return errs.Invalid("profile user id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[s.UserID] = s.Clone()
	return nil
}

func (m *MemoryStore) Update(_ context.Context, userID string, fn func(*Snapshot) error) (*Snapshot, error) {
	if userID == "" {
		return nil, errs.Invalid("profile user id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := NewSnapshot(userID)
	if cur, ok := m.profiles[userID]; ok {
		snap = cur.Clone()
	}
	if err := fn(snap); err != nil {
		return nil, err
	}
	snap.UserID = userID
	m.profiles[userID] = snap.Clone()
	return snap, nil
}

func (m *MemoryStore) AppendMood(_ context.Context, userID string, entry MoodEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.profiles[userID]
	if !ok {
		s = &Snapshot{UserID: userID, CompletedSteps: []string{}}
		m.profiles[userID] = s
	}
	s.MoodLog = append(s.MoodLog, MoodEntry{Date: entry.Date, Mood: entry.Mood.clone()})
	return nil
}
