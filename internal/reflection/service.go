package reflection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
	"github.com/fyrsmithlabs/sparkd/internal/events"
	"github.com/fyrsmithlabs/sparkd/internal/logging"
	"github.com/fyrsmithlabs/sparkd/internal/profile"
	"github.com/fyrsmithlabs/sparkd/internal/quest"
)

const instrumentationName = "github.com/fyrsmithlabs/sparkd/internal/reflection"

// ErrAlreadyStarted is returned by Start when the user already has activity
// for the quest today. It also matches errs.ErrValidation.
var ErrAlreadyStarted = errors.New("quest already started today")

// PointsLedger is the part of the ledger reflections pay into.
type PointsLedger interface {
	Credit(ctx context.Context, userID string, amount int64) (int64, error)
	IncrementCompleted(ctx context.Context, userID string) error
}

// MoodRecorder appends to the profile mood log.
type MoodRecorder interface {
	AppendMood(ctx context.Context, userID string, mood profile.Mood) error
}

// Service manages reflections.
type Service interface {
	// Submit scores and stores a reflection, then credits its points.
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error)

	// Start records that the user began q on the day of now. At most one
	// per quest per day.
	Start(ctx context.Context, userID string, q quest.Quest, now time.Time) (*Reflection, error)

	// List returns the user's reflections newest first.
	List(ctx context.Context, userID string) ([]*Reflection, error)

	// Delete removes the user's own reflection. Points are not clawed back.
	Delete(ctx context.Context, userID, id string) error

	// Activity lists quest activity newest first for quest.Service.
	Activity(ctx context.Context, userID string, limit int) ([]quest.Activity, error)
}

// Option configures the service.
type Option func(*service)

// WithClock overrides time.Now for Submit.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithPublisher sets the event publisher. Defaults to events.Nop.
func WithPublisher(p events.Publisher) Option {
	return func(s *service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithMoodRecorder enables mood log appends on Submit.
func WithMoodRecorder(m MoodRecorder) Option {
	return func(s *service) { s.moods = m }
}

type service struct {
	store     Store
	ledger    PointsLedger
	moods     MoodRecorder
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time

	tracer        trace.Tracer
	meter         metric.Meter
	submitCounter metric.Int64Counter
	pointsCounter metric.Int64Counter
}

// NewService creates a reflection service.
func NewService(store Store, l PointsLedger, logger *zap.Logger, opts ...Option) (Service, error) {
	if store == nil {
		return nil, errors.New("reflection store is required")
	}
	if l == nil {
		return nil, errors.New("points ledger is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &service{
		store:     store,
		ledger:    l,
		publisher: events.Nop{},
		logger:    logger,
		now:       time.Now,
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.initMetrics()
	return s, nil
}

func (s *service) initMetrics() {
	var err error

	s.submitCounter, err = s.meter.Int64Counter(
		"sparkd.reflection.submissions_total",
		metric.WithDescription("Total number of reflections submitted"),
		metric.WithUnit("{reflection}"),
	)
	if err != nil {
		s.logger.Warn("failed to create submission counter", zap.Error(err))
	}

	s.pointsCounter, err = s.meter.Int64Counter(
		"sparkd.reflection.points_awarded_total",
		metric.WithDescription("Spark points awarded for reflections"),
		metric.WithUnit("{point}"),
	)
	if err != nil {
		s.logger.Warn("failed to create points counter", zap.Error(err))
	}
}

func (s *service) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "reflection.submit")
	defer span.End()

	res, err := s.submit(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("quest.type", string(res.Reflection.QuestType)),
		attribute.Int("points", res.PointsAwarded),
		attribute.Float64("quality", res.QualityScore),
	)
	return res, nil
}

func (s *service) submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	if req == nil {
		return nil, errs.Invalid("request is required")
	}
	qt, err := req.Validate()
	if err != nil {
		return nil, err
	}

	points := CalculatePoints(qt, req.Text, req.ImageURL, req.AudioURL)
	r := &Reflection{
		ID:           uuid.New().String(),
		UserID:       req.UserID,
		QuestTitle:   req.QuestTitle,
		QuestType:    qt,
		Text:         req.Text,
		ImageURL:     req.ImageURL,
		AudioURL:     req.AudioURL,
		QualityScore: CalculateQualityScore(req.Text, req.ImageURL, req.AudioURL),
		Kind:         KindSubmission,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.store.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("storing reflection: %w", err)
	}

	balance, err := s.ledger.Credit(ctx, req.UserID, int64(points))
	if err != nil {
		s.withdraw(ctx, r, points, err)
		return nil, fmt.Errorf("crediting points: %w", err)
	}
	if err := s.ledger.IncrementCompleted(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("counting completion: %w", err)
	}

	if req.Mood != nil && s.moods != nil {
		if err := s.moods.AppendMood(ctx, req.UserID, *req.Mood); err != nil {
			return nil, fmt.Errorf("appending mood: %w", err)
		}
	}

	if s.submitCounter != nil {
		s.submitCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("quest_type", string(qt))))
	}
	if s.pointsCounter != nil {
		s.pointsCounter.Add(ctx, int64(points))
	}

	logging.For(ctx, s.logger).Info("reflection submitted",
		zap.String("user_id", req.UserID),
		zap.String("reflection_id", r.ID),
		zap.String("quest", r.QuestTitle),
		zap.Int("points", points),
		zap.Float64("quality", r.QualityScore))

	if err := s.publisher.Publish(ctx, events.New(ctx, events.ReflectionSubmitted, req.UserID, map[string]interface{}{
		"reflection_id":  r.ID,
		"quest_title":    r.QuestTitle,
		"points_awarded": points,
		"quality_score":  r.QualityScore,
	})); err != nil {
		logging.For(ctx, s.logger).Warn("failed to publish reflection event", zap.Error(err))
	}

	return &SubmitResult{
		Reflection:    r,
		PointsAwarded: points,
		QualityScore:  r.QualityScore,
		Balance:       balance,
	}, nil
}

// withdraw removes a reflection whose points could not be credited.
func (s *service) withdraw(ctx context.Context, r *Reflection, points int, cause error) {
	logger := logging.For(ctx, s.logger).With(
		zap.String("reflection_id", r.ID),
		zap.String("user_id", r.UserID),
		zap.Int("points", points),
		zap.Error(cause))

	if err := s.store.Delete(context.WithoutCancel(ctx), r.UserID, r.ID); err != nil {
		logger.Error("reflection stored but points not credited", zap.NamedError("withdraw_error", err))
		return
	}
	logger.Warn("points not credited, reflection withdrawn")
}

func (s *service) Start(ctx context.Context, userID string, q quest.Quest, now time.Time) (*Reflection, error) {
	ctx, span := s.tracer.Start(ctx, "reflection.start", trace.WithAttributes(
		attribute.String("quest.title", q.Title),
	))
	defer span.End()

	if userID == "" {
		return nil, errs.Invalid("user id is required")
	}
	if q.Title == "" {
		return nil, errs.Invalid("quest title is required")
	}

	r := &Reflection{
		ID:         uuid.New().String(),
		UserID:     userID,
		QuestTitle: q.Title,
		QuestType:  q.Type,
		Text:       "Started quest: " + q.Title,
		Kind:       KindStart,
		CreatedAt:  now.UTC(),
	}
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	created, err := s.store.CreateStart(ctx, r, from, from.AddDate(0, 0, 1))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("storing quest start: %w", err)
	}
	if !created {
		return nil, fmt.Errorf("%w: %w", ErrAlreadyStarted, errs.ErrValidation)
	}
	logging.For(ctx, s.logger).Info("quest started", zap.String("user_id", userID), zap.String("quest", q.Title))
	return r, nil
}

func (s *service) List(ctx context.Context, userID string) ([]*Reflection, error) {
	ctx, span := s.tracer.Start(ctx, "reflection.list")
	defer span.End()

	items, err := s.store.List(ctx, userID, 0)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("listing reflections: %w", err)
	}
	return items, nil
}

func (s *service) Delete(ctx context.Context, userID, id string) error {
	ctx, span := s.tracer.Start(ctx, "reflection.delete")
	defer span.End()

	if id == "" {
		return errs.Invalid("reflection id is required")
	}
	if err := s.store.Delete(ctx, userID, id); err != nil {
		span.RecordError(err)
		return err
	}
	logging.For(ctx, s.logger).Info("reflection deleted", zap.String("user_id", userID), zap.String("reflection_id", id))
	return nil
}

func (s *service) Activity(ctx context.Context, userID string, limit int) ([]quest.Activity, error) {
	items, err := s.store.List(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing reflections: %w", err)
	}
	out := make([]quest.Activity, len(items))
	for i, r := range items {
		out[i] = quest.Activity{QuestTitle: r.QuestTitle, QuestType: r.QuestType, At: r.CreatedAt}
	}
	return out, nil
}
