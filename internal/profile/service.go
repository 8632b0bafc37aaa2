package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
	"github.com/fyrsmithlabs/sparkd/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/sparkd/internal/profile"

// Service manages onboarding and the mood log.
type Service interface {
	// Get returns the user's profile, creating an empty one on first access.
	Get(ctx context.Context, userID string) (*Snapshot, error)

	// Lookup returns the stored profile or nil when the user has none.
	// Unlike Get it never creates one.
	Lookup(ctx context.Context, userID string) (*Snapshot, error)

	// UpdateStep replaces one onboarding section with the JSON payload and
	// marks the step completed.
	UpdateStep(ctx context.Context, userID, step string, payload json.RawMessage) (*Snapshot, error)

	// SkipStep marks a step completed without data.
	SkipStep(ctx context.Context, userID, step string) (*Snapshot, error)

	// AppendMood stamps the entry with the current time and appends it.
	AppendMood(ctx context.Context, userID string, mood Mood) error
}

// Option configures the service.
type Option func(*service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	store  Store
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewService creates a profile service.
func NewService(store Store, logger *zap.Logger, opts ...Option) (Service, error) {
	if store == nil {
		return nil, errors.New("profile store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &service{
		store:  store,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) Get(ctx context.Context, userID string) (*Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "profile.get")
	defer span.End()

	snap, err := s.load(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, err
	}
	return snap, nil
}

func (s *service) Lookup(ctx context.Context, userID string) (*Snapshot, error) {
	snap, err := s.store.Get(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	return snap, err
}

// load fetches the profile or saves a fresh empty one.
func (s *service) load(ctx context.Context, userID string) (*Snapshot, error) {
	if userID == "" {
		return nil, errs.Invalid("user id is required")
	}
	snap, err := s.store.Get(ctx, userID)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	snap = NewSnapshot(userID)
	if err := s.store.Save(ctx, snap); err != nil {
		return nil, err
	}
	logging.For(ctx, s.logger).Info("profile created", zap.String("user_id", userID))
	return snap, nil
}

func (s *service) UpdateStep(ctx context.Context, userID, step string, payload json.RawMessage) (*Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "profile.update_step", trace.WithAttributes(
		attribute.String("step", step),
	))
	defer span.End()

	if !IsKnownStep(step) {
		return nil, errs.Invalid("unknown onboarding step %q", step)
	}
	return s.complete(ctx, userID, step, func(snap *Snapshot) error {
		return applyStep(snap, step, payload)
	})
}

func (s *service) SkipStep(ctx context.Context, userID, step string) (*Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "profile.skip_step", trace.WithAttributes(
		attribute.String("step", step),
	))
	defer span.End()

	if !IsKnownStep(step) {
		return nil, errs.Invalid("unknown onboarding step %q", step)
	}
	return s.complete(ctx, userID, step, nil)
}

// complete applies change and marks step completed in one store update.
func (s *service) complete(ctx context.Context, userID, step string, change func(*Snapshot) error) (*Snapshot, error) {
	if userID == "" {
		return nil, errs.Invalid("user id is required")
	}
	var wasComplete bool
	snap, err := s.store.Update(ctx, userID, func(snap *Snapshot) error {
		wasComplete = snap.IsOnboardingComplete
		if change != nil {
			if err := change(snap); err != nil {
				return err
			}
		}
		snap.markCompleted(step)
		snap.LastUpdated = s.now().UTC()
		return nil
	})
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		return nil, err
	}
	if !wasComplete && snap.IsOnboardingComplete {
		logging.For(ctx, s.logger).Info("onboarding completed", zap.String("user_id", snap.UserID))
	}
	return snap, nil
}

func (s *service) AppendMood(ctx context.Context, userID string, mood Mood) error {
	if userID == "" {
		return errs.Invalid("user id is required")
	}
	if !mood.Frequency.Valid() {
		return errs.Invalid("unknown mood frequency %q", mood.Frequency)
	}
	return s.store.AppendMood(ctx, userID, MoodEntry{Date: s.now().UTC(), Mood: mood})
}

// applyStep decodes payload into the section named by step. The section is
// replaced wholesale, never merged.
func applyStep(snap *Snapshot, step string, payload json.RawMessage) error {
	var err error
	switch step {
	case StepMood:
		var v Mood
		if v, err = decodeSection[Mood](step, payload); err == nil {
			if !v.Frequency.Valid() {
				return errs.Invalid("unknown mood frequency %q", v.Frequency)
			}
			snap.Mood = v
		}
	case StepPersonalityTraits:
		snap.PersonalityTraits, err = decodeSection[PersonalityTraits](step, payload)
	case StepEmotionalNeeds:
		snap.EmotionalNeeds, err = decodeSection[EmotionalNeeds](step, payload)
	case StepSelfPerception:
		snap.SelfPerception, err = decodeSection[SelfPerception](step, payload)
	case StepQuestResponses:
		snap.QuestResponses, err = decodeSection[QuestResponses](step, payload)
	}
	return err
}

func decodeSection[T any](step string, payload json.RawMessage) (T, error) {
	var v T
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, errs.Invalid("decoding %s: %v", step, err)
	}
	return v, nil
}
