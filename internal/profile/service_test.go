package profile

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	svc, err := NewService(store, nil, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return svc, store
}

func TestNewService_RequiresStore(t *testing.T) {
	_, err := NewService(nil, nil)
	assert.Error(t, err)
}

func TestService_GetCreatesProfile(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "u1")
	require.ErrorIs(t, err, errs.ErrNotFound)

	snap, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", snap.UserID)
	assert.Empty(t, snap.CompletedSteps)
	assert.False(t, snap.IsOnboardingComplete)

	_, err = store.Get(ctx, "u1")
	assert.NoError(t, err)
}

func TestService_LookupDoesNotCreate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	snap, err := svc.Lookup(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, snap)

	_, err = store.Get(ctx, "ghost")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestService_UpdateStep(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	snap, err := svc.UpdateStep(ctx, "u1", StepMood, json.RawMessage(
		`{"general":"Stressed","frequency":"often","copingMechanisms":["walking"]}`))
	require.NoError(t, err)
	assert.Equal(t, "Stressed", snap.Mood.General)
	assert.Equal(t, FrequencyOften, snap.Mood.Frequency)
	assert.Equal(t, []string{StepMood}, snap.CompletedSteps)
	assert.Equal(t, fixedNow, snap.LastUpdated)

	// Updating the same step twice does not duplicate it and replaces the section.
	snap, err = svc.UpdateStep(ctx, "u1", StepMood, json.RawMessage(`{"general":"Calm"}`))
	require.NoError(t, err)
	assert.Equal(t, "Calm", snap.Mood.General)
	assert.Empty(t, snap.Mood.CopingMechanisms)
	assert.Equal(t, []string{StepMood}, snap.CompletedSteps)
}

func TestService_UpdateStep_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		step    string
		payload string
	}{
		{name: "unknown step", step: "favouriteColour", payload: `{}`},
		{name: "unknown field", step: StepSelfPerception, payload: `{"hobbies":["chess"]}`},
		{name: "bad frequency", step: StepMood, payload: `{"general":"ok","frequency":"hourly"}`},
		{name: "malformed json", step: StepEmotionalNeeds, payload: `{"primary":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateStep(ctx, "u1", tt.step, json.RawMessage(tt.payload))
			assert.ErrorIs(t, err, errs.ErrValidation)
		})
	}
}

func TestService_OnboardingCompletion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateStep(ctx, "u1", StepMood, json.RawMessage(`{"general":"Happy"}`))
	require.NoError(t, err)
	_, err = svc.UpdateStep(ctx, "u1", StepEmotionalNeeds, json.RawMessage(`{"primary":["Connection"]}`))
	require.NoError(t, err)
	_, err = svc.SkipStep(ctx, "u1", StepPersonalityTraits)
	require.NoError(t, err)
	snap, err := svc.SkipStep(ctx, "u1", StepQuestResponses)
	require.NoError(t, err)
	assert.False(t, snap.IsOnboardingComplete)

	snap, err = svc.UpdateStep(ctx, "u1", StepSelfPerception, json.RawMessage(`{"growthAreas":["Gratitude"]}`))
	require.NoError(t, err)
	assert.True(t, snap.IsOnboardingComplete)
	assert.Len(t, snap.CompletedSteps, 5)
	assert.Equal(t, []string{"Connection"}, snap.EmotionalNeeds.Primary)
}

func TestService_ConcurrentStepsKeepEverySection(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	payloads := map[string]string{
		StepMood:              `{"general":"Happy"}`,
		StepPersonalityTraits: `{"mbti":"INFP"}`,
		StepEmotionalNeeds:    `{"primary":["Connection"]}`,
		StepSelfPerception:    `{"growthAreas":["Gratitude"]}`,
		StepQuestResponses:    `{"futureGoals":["run"]}`,
	}
	var wg sync.WaitGroup
	for step, body := range payloads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UpdateStep(ctx, "u1", step, json.RawMessage(body))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, snap.IsOnboardingComplete)
	assert.Len(t, snap.CompletedSteps, 5)
	assert.Equal(t, "Happy", snap.Mood.General)
	assert.Equal(t, "INFP", snap.PersonalityTraits.MBTI)
	assert.Equal(t, []string{"Connection"}, snap.EmotionalNeeds.Primary)
	assert.Equal(t, []string{"Gratitude"}, snap.SelfPerception.GrowthAreas)
	assert.Equal(t, []string{"run"}, snap.QuestResponses.FutureGoals)
}

func TestMemoryStore_UpdateErrorKeepsProfile(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Update(ctx, "u1", func(s *Snapshot) error {
		s.Mood.General = "Calm"
		return nil
	})
	require.NoError(t, err)

	_, err = store.Update(ctx, "u1", func(s *Snapshot) error {
		s.Mood.General = "Lost"
		return errs.Invalid("nope")
	})
	require.ErrorIs(t, err, errs.ErrValidation)

	snap, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Calm", snap.Mood.General)

	_, err = store.Update(ctx, "", func(*Snapshot) error { return nil })
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestService_SkipStepUnknown(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.SkipStep(context.Background(), "u1", "bogus")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestService_AppendMood(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AppendMood(ctx, "u1", Mood{General: "Tired", Frequency: FrequencySometimes}))
	require.NoError(t, svc.AppendMood(ctx, "u1", Mood{General: "Better"}))

	snap, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, snap.MoodLog, 2)
	assert.Equal(t, "Tired", snap.MoodLog[0].General)
	assert.Equal(t, fixedNow, snap.MoodLog[0].Date)
	assert.Equal(t, "Better", snap.MoodLog[1].General)

	assert.ErrorIs(t, svc.AppendMood(ctx, "u1", Mood{Frequency: "hourly"}), errs.ErrValidation)
	assert.ErrorIs(t, svc.AppendMood(ctx, "", Mood{}), errs.ErrValidation)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Snapshot{
		UserID:         "u1",
		EmotionalNeeds: EmotionalNeeds{Primary: []string{"Connection"}},
	}))

	snap, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	snap.EmotionalNeeds.Primary[0] = "Mutated"

	again, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Connection", again.EmotionalNeeds.Primary[0])

	assert.ErrorIs(t, store.Save(ctx, &Snapshot{}), errs.ErrValidation)
}
