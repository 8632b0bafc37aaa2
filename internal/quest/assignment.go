package quest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
)

// AssignmentStore records which quest a user was assigned on a day.
type AssignmentStore interface {
	// Record stores the assignment for (userID, day) unless one exists.
	// It reports whether this call created it. day is a DayKey.
	Record(ctx context.Context, userID, day, title string) (bool, error)

	// Release forgets the assignment for (userID, day) so the next Record
	// creates it again. Releasing a missing assignment is not an error.
	Release(ctx context.Context, userID, day string) error
}

// MemoryAssignmentStore is an in-process AssignmentStore.
type MemoryAssignmentStore struct {
	mu   sync.Mutex
	seen map[string]string
}

// NewMemoryAssignmentStore creates an empty store.
func NewMemoryAssignmentStore() *MemoryAssignmentStore {
	return &MemoryAssignmentStore{seen: make(map[string]string)}
}

func (m *MemoryAssignmentStore) Record(_ context.Context, userID, day, title string) (bool, error) {
	key := userID + "/" + day
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = title
	return true, nil
}

func (m *MemoryAssignmentStore) Release(_ context.Context, userID, day string) error {
	m.mu.Lock()
	delete(m.seen, userID+"/"+day)
	m.mu.Unlock()
	return nil
}

// RedisAssignmentStore deduplicates assignments with SETNX so several sparkd
// replicas agree on the first assignment of the day.
type RedisAssignmentStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisAssignmentStore creates a store. Keys expire after ttl, which
// must outlive a calendar day.
func NewRedisAssignmentStore(client redis.UniversalClient, ttl time.Duration) (*RedisAssignmentStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if ttl < 24*time.Hour {
		return nil, fmt.Errorf("assignment ttl %s is shorter than a day", ttl)
	}
	return &RedisAssignmentStore{client: client, ttl: ttl, prefix: "sparkd:quest:assigned:"}, nil
}

// Key returns the redis key for a user and day.
func (r *RedisAssignmentStore) Key(userID, day string) string {
	return r.prefix + day + ":" + userID
}

func (r *RedisAssignmentStore) Record(ctx context.Context, userID, day, title string) (bool, error) {
	created, err := r.client.SetNX(ctx, r.Key(userID, day), title, r.ttl).Result()
	if err != nil {
		return false, errs.Upstream("redis setnx assignment", err)
	}
	return created, nil
}

func (r *RedisAssignmentStore) Release(ctx context.Context, userID, day string) error {
	if err := r.client.Del(ctx, r.Key(userID, day)).Err(); err != nil {
		return errs.Upstream("redis del assignment", err)
	}
	return nil
}

// NewRedisClient dials redis and pings it.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errs.Upstream("redis ping "+addr, err)
	}
	return client, nil
}
