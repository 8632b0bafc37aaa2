package quest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sparkd/internal/events"
	"github.com/fyrsmithlabs/sparkd/internal/logging"
	"github.com/fyrsmithlabs/sparkd/internal/profile"
)

const instrumentationName = "github.com/fyrsmithlabs/sparkd/internal/quest"

// historyScan bounds how many activity records History inspects.
const historyScan = 50

// ProfileSource loads profile snapshots. A user without a profile yields
// (nil, nil).
type ProfileSource interface {
	Lookup(ctx context.Context, userID string) (*profile.Snapshot, error)
}

// AssignmentCounter bumps the questsAssigned counter.
type AssignmentCounter interface {
	IncrementAssigned(ctx context.Context, userID string) error
}

// ActivityLog lists a user's quest activity newest first.
type ActivityLog interface {
	Activity(ctx context.Context, userID string, limit int) ([]Activity, error)
}

// Assignment is today's quest for a user.
type Assignment struct {
	Quest Quest  `json:"quest"`
	Day   string `json:"day"`
	Rule  string `json:"rule"`
}

// HistoryEntry is one distinct quest the user has engaged with.
type HistoryEntry struct {
	Title  string    `json:"title"`
	Type   Type      `json:"type"`
	LastAt time.Time `json:"lastAt"`
}

// Service answers quest queries.
type Service interface {
	// Today returns the user's quest for the day of now and records the
	// assignment. Only the first call per user per day counts it.
	Today(ctx context.Context, userID string, now time.Time) (*Assignment, error)

	// Active returns today's quest unless the user already has activity for
	// it today, in which case the list is empty.
	Active(ctx context.Context, userID string, now time.Time) ([]Assignment, error)

	// History returns distinct quest titles from the user's activity, most
	// recent first. limit <= 0 means all found.
	History(ctx context.Context, userID string, limit int) ([]HistoryEntry, error)
}

// Option configures the service.
type Option func(*service)

// WithPublisher sets the event publisher. Defaults to events.Nop.
func WithPublisher(p events.Publisher) Option {
	return func(s *service) {
		if p != nil {
			s.publisher = p
		}
	}
}

type service struct {
	selector    *Selector
	profiles    ProfileSource
	assignments AssignmentStore
	counter     AssignmentCounter
	activity    ActivityLog
	publisher   events.Publisher
	logger      *zap.Logger

	tracer        trace.Tracer
	meter         metric.Meter
	assignCounter metric.Int64Counter
}

// NewService creates a quest service.
func NewService(
	selector *Selector,
	profiles ProfileSource,
	assignments AssignmentStore,
	counter AssignmentCounter,
	activity ActivityLog,
	logger *zap.Logger,
	opts ...Option,
) (Service, error) {
	switch {
	case selector == nil:
		return nil, errors.New("quest selector is required")
	case profiles == nil:
		return nil, errors.New("profile source is required")
	case assignments == nil:
		return nil, errors.New("assignment store is required")
	case counter == nil:
		return nil, errors.New("assignment counter is required")
	case activity == nil:
		return nil, errors.New("activity log is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &service{
		selector:    selector,
		profiles:    profiles,
		assignments: assignments,
		counter:     counter,
		activity:    activity,
		publisher:   events.Nop{},
		logger:      logger,
		tracer:      otel.Tracer(instrumentationName),
		meter:       otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	s.assignCounter, err = s.meter.Int64Counter(
		"sparkd.quest.assignments_recorded",
		metric.WithDescription("Daily quest assignments recorded"),
		metric.WithUnit("{assignment}"),
	)
	if err != nil {
		s.logger.Warn("failed to create assignment counter", zap.Error(err))
	}
	return s, nil
}

func (s *service) Today(ctx context.Context, userID string, now time.Time) (*Assignment, error) {
	ctx, span := s.tracer.Start(ctx, "quest.today")
	defer span.End()

	a, err := s.today(ctx, userID, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "today failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("quest.title", a.Quest.Title),
		attribute.String("quest.rule", a.Rule),
	)
	return a, nil
}

func (s *service) today(ctx context.Context, userID string, now time.Time) (*Assignment, error) {
	snap, err := s.profiles.Lookup(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	sel := s.selector.Explain(snap, now)
	a := &Assignment{Quest: sel.Quest, Day: DayKey(now), Rule: sel.Rule}

	created, err := s.assignments.Record(ctx, userID, a.Day, a.Quest.Title)
	if err != nil {
		return nil, fmt.Errorf("recording assignment: %w", err)
	}
	if !created {
		assignmentsTotal.WithLabelValues("duplicate").Inc()
		return a, nil
	}

	if err := s.counter.IncrementAssigned(ctx, userID); err != nil {
		// Release so the next read records and counts the day again.
		if rerr := s.assignments.Release(ctx, userID, a.Day); rerr != nil {
			logging.For(ctx, s.logger).Error("assignment recorded but not counted",
				zap.String("user_id", userID),
				zap.String("day", a.Day),
				zap.Error(rerr))
		}
		return nil, fmt.Errorf("counting assignment: %w", err)
	}

	assignmentsTotal.WithLabelValues("recorded").Inc()
	if s.assignCounter != nil {
		s.assignCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", a.Rule)))
	}

	logging.For(ctx, s.logger).Info("quest assigned",
		zap.String("user_id", userID),
		zap.String("day", a.Day),
		zap.String("title", a.Quest.Title),
		zap.String("rule", a.Rule))

	if err := s.publisher.Publish(ctx, events.New(ctx, events.QuestAssigned, userID, a)); err != nil {
		logging.For(ctx, s.logger).Warn("failed to publish quest assignment", zap.Error(err))
	}
	return a, nil
}

func (s *service) Active(ctx context.Context, userID string, now time.Time) ([]Assignment, error) {
	ctx, span := s.tracer.Start(ctx, "quest.active")
	defer span.End()

	a, err := s.today(ctx, userID, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	recent, err := s.activity.Activity(ctx, userID, historyScan)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("loading activity: %w", err)
	}
	for _, act := range recent {
		if act.QuestTitle == a.Quest.Title && sameDay(act.At, now) {
			return []Assignment{}, nil
		}
	}
	return []Assignment{*a}, nil
}

func (s *service) History(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	ctx, span := s.tracer.Start(ctx, "quest.history")
	defer span.End()

	recent, err := s.activity.Activity(ctx, userID, historyScan)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("loading activity: %w", err)
	}

	seen := make(map[string]bool, len(recent))
	out := make([]HistoryEntry, 0)
	for _, act := range recent {
		if seen[act.QuestTitle] {
			continue
		}
		seen[act.QuestTitle] = true
		typ := act.QuestType
		if typ == "" {
			typ = TypeDaily
		}
		out = append(out, HistoryEntry{Title: act.QuestTitle, Type: typ, LastAt: act.At})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
