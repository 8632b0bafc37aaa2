package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
	"github.com/fyrsmithlabs/sparkd/internal/profile"
	"github.com/fyrsmithlabs/sparkd/internal/quest"
	"github.com/fyrsmithlabs/sparkd/internal/reflection"
)

func openTestDB(t *testing.T) *Ledger {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}
	db, err := Open(context.Background(), dsn, Options{MaxOpenConns: 8})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db.DB, nil))
	return NewLedger(db)
}

func TestIntegration_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	l := openTestDB(t)
	ctx := context.Background()
	user := "it-" + uuid.NewString()

	_, err := l.Credit(ctx, user, 100)
	require.NoError(t, err)

	var ok, short int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Debit(ctx, user, 30)
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case errors.Is(err, errs.ErrInsufficientBalance):
				atomic.AddInt64(&short, 1)
			default:
				t.Errorf("unexpected debit error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(3), ok)
	assert.Equal(t, int64(7), short)
	a, err := l.Account(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(10), a.SparkPoints)
}

func TestIntegration_ProfileMoodLogSurvivesSave(t *testing.T) {
	l := openTestDB(t)
	ctx := context.Background()
	s := NewProfileStore(l.db)
	user := "it-" + uuid.NewString()

	require.NoError(t, s.AppendMood(ctx, user, profile.MoodEntry{Date: time.Now().UTC(), Mood: profile.Mood{General: "calm"}}))
	require.NoError(t, s.Save(ctx, &profile.Snapshot{UserID: user, CompletedSteps: []string{"mood"}}))
	require.NoError(t, s.AppendMood(ctx, user, profile.MoodEntry{Date: time.Now().UTC(), Mood: profile.Mood{General: "tired"}}))

	snap, err := s.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, snap.MoodLog, 2)
	assert.Equal(t, "calm", snap.MoodLog[0].General)
	assert.Equal(t, "tired", snap.MoodLog[1].General)
	assert.Equal(t, []string{"mood"}, snap.CompletedSteps)
}

func TestIntegration_ConcurrentStartsStoreOne(t *testing.T) {
	l := openTestDB(t)
	ctx := context.Background()
	s := NewReflectionStore(l.db)
	user := "it-" + uuid.NewString()
	from := time.Now().UTC().Truncate(24 * time.Hour)

	var stored atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.CreateStart(ctx, &reflection.Reflection{
				ID: uuid.NewString(), UserID: user, QuestTitle: "Mindful Walk", QuestType: quest.TypeDaily,
				Kind: reflection.KindStart, CreatedAt: from.Add(time.Hour),
			}, from, from.AddDate(0, 0, 1))
			assert.NoError(t, err)
			if ok {
				stored.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), stored.Load())

	list, err := s.List(ctx, user, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestIntegration_ConcurrentProfileUpdates(t *testing.T) {
	l := openTestDB(t)
	ctx := context.Background()
	s := NewProfileStore(l.db)
	user := "it-" + uuid.NewString()

	steps := []string{profile.StepMood, profile.StepPersonalityTraits, profile.StepEmotionalNeeds}
	var wg sync.WaitGroup
	for _, step := range steps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, user, func(snap *profile.Snapshot) error {
				snap.CompletedSteps = append(snap.CompletedSteps, step)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := s.Get(ctx, user)
	require.NoError(t, err)
	assert.ElementsMatch(t, steps, snap.CompletedSteps)
}
