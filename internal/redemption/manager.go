package redemption

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
	"github.com/fyrsmithlabs/sparkd/internal/events"
	"github.com/fyrsmithlabs/sparkd/internal/ledger"
	"github.com/fyrsmithlabs/sparkd/internal/logging"
	"github.com/fyrsmithlabs/sparkd/internal/rewards"
)

const instrumentationName = "github.com/fyrsmithlabs/sparkd/internal/redemption"

// ErrInvalidReward is returned when the reward id is not in the catalog.
// It also matches errs.ErrNotFound.
var ErrInvalidReward = errors.New("invalid reward")

// Catalog is the subset of the reward catalog the manager reads.
type Catalog interface {
	ByID(id string) (rewards.Definition, bool)
}

// Manager redeems rewards and answers redemption queries.
type Manager interface {
	// Redeem debits the reward's cost and records the redemption.
	Redeem(ctx context.Context, userID, rewardID string) (*Receipt, error)

	// History lists redemptions newest first. An empty status matches all;
	// limit defaults to DefaultHistoryLimit and is capped at MaxHistoryLimit.
	History(ctx context.Context, userID string, status Status, limit int) ([]*Redemption, error)

	// Active lists redemptions whose stored status is active, each annotated
	// with IsExpired.
	Active(ctx context.Context, userID string) ([]*Redemption, error)

	// Points returns the user's balance and quest counters.
	Points(ctx context.Context, userID string) (*Points, error)
}

// Option configures the manager.
type Option func(*manager)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *manager) { m.now = now }
}

// WithPublisher sets the event publisher. Defaults to events.Nop.
func WithPublisher(p events.Publisher) Option {
	return func(m *manager) {
		if p != nil {
			m.publisher = p
		}
	}
}

type manager struct {
	catalog   Catalog
	ledger    ledger.Ledger
	store     Store
	publisher events.Publisher
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewManager creates a redemption manager.
func NewManager(catalog Catalog, l ledger.Ledger, store Store, logger *zap.Logger, opts ...Option) (Manager, error) {
	if catalog == nil {
		return nil, errors.New("reward catalog is required")
	}
	if l == nil {
		return nil, errors.New("ledger is required")
	}
	if store == nil {
		return nil, errors.New("redemption store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &manager{
		catalog:   catalog,
		ledger:    l,
		store:     store,
		publisher: events.Nop{},
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *manager) Redeem(ctx context.Context, userID, rewardID string) (*Receipt, error) {
	ctx, span := m.tracer.Start(ctx, "redemption.redeem", trace.WithAttributes(
		attribute.String("reward.id", rewardID),
	))
	defer span.End()

	receipt, result, err := m.redeem(ctx, userID, rewardID)
	redemptionsTotal.WithLabelValues(result).Inc()
	span.SetAttributes(attribute.String("result", result))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		return nil, err
	}
	return receipt, nil
}

func (m *manager) redeem(ctx context.Context, userID, rewardID string) (*Receipt, string, error) {
	if userID == "" {
		return nil, "invalid", errs.Invalid("user id is required")
	}
	if rewardID == "" {
		return nil, "invalid", errs.Invalid("reward id is required")
	}

	reward, ok := m.catalog.ByID(rewardID)
	if !ok {
		return nil, "invalid_reward", fmt.Errorf("%w %q: %w", ErrInvalidReward, rewardID, errs.ErrNotFound)
	}

	balance, err := m.ledger.Debit(ctx, userID, reward.Cost)
	if err != nil {
		if errors.Is(err, errs.ErrInsufficientBalance) {
			logging.For(ctx, m.logger).Info("redeem rejected: insufficient balance",
				zap.String("user_id", userID),
				zap.String("reward_id", rewardID),
				zap.Int64("cost", reward.Cost),
				zap.Int64("balance", balance))
			return nil, "insufficient", fmt.Errorf("redeem %s: %w", rewardID, err)
		}
		return nil, "error", fmt.Errorf("debit for %s: %w", rewardID, err)
	}

	now := m.now().UTC()
	r := &Redemption{
		ID:                uuid.New().String(),
		UserID:            userID,
		RewardID:          reward.ID,
		RewardName:        reward.Name,
		RewardDescription: reward.Description,
		Cost:              reward.Cost,
		RedeemedAt:        now,
		Status:            StatusActive,
		ExpiresAt:         reward.ExpiresAt(now),
	}

	if err := m.store.Create(ctx, r); err != nil {
		m.refund(ctx, userID, reward.Cost, err)
		return nil, "error", fmt.Errorf("recording redemption: %w", err)
	}

	logging.For(ctx, m.logger).Info("reward redeemed",
		zap.String("user_id", userID),
		zap.String("reward_id", reward.ID),
		zap.String("redemption_id", r.ID),
		zap.Int64("cost", reward.Cost),
		zap.Int64("remaining", balance))

	if err := m.publisher.Publish(ctx, events.New(ctx, events.RedemptionCreated, userID, r)); err != nil {
		logging.For(ctx, m.logger).Warn("failed to publish redemption event",
			zap.String("redemption_id", r.ID), zap.Error(err))
	}

	return &Receipt{Redemption: r, RemainingBalance: balance}, "ok", nil
}

// refund returns points debited for a redemption whose record could not be
// written. A failed refund is logged at error level for manual repair.
func (m *manager) refund(ctx context.Context, userID string, amount int64, cause error) {
	if _, err := m.ledger.Credit(ctx, userID, amount); err != nil {
		logging.For(ctx, m.logger).Error("refund after failed redemption write failed",
			zap.String("user_id", userID),
			zap.Int64("amount", amount),
			zap.NamedError("cause", cause),
			zap.Error(err))
		return
	}
	logging.For(ctx, m.logger).Warn("refunded debit after failed redemption write",
		zap.String("user_id", userID),
		zap.Int64("amount", amount),
		zap.Error(cause))
}

func (m *manager) History(ctx context.Context, userID string, status Status, limit int) ([]*Redemption, error) {
	ctx, span := m.tracer.Start(ctx, "redemption.history")
	defer span.End()

	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}
	records, err := m.store.List(ctx, userID, status, clampLimit(limit))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("listing redemptions: %w", err)
	}
	return m.annotate(records), nil
}

func (m *manager) Active(ctx context.Context, userID string) ([]*Redemption, error) {
	ctx, span := m.tracer.Start(ctx, "redemption.active")
	defer span.End()

	records, err := m.store.List(ctx, userID, StatusActive, 0)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("listing active redemptions: %w", err)
	}
	return m.annotate(records), nil
}

func (m *manager) annotate(records []*Redemption) []*Redemption {
	now := m.now()
	for _, r := range records {
		r.IsExpired = r.Expired(now)
	}
	return records
}

func (m *manager) Points(ctx context.Context, userID string) (*Points, error) {
	acct, err := m.ledger.Open(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Points{
		SparkPoints:     acct.SparkPoints,
		QuestsAssigned:  acct.QuestsAssigned,
		QuestsCompleted: acct.QuestsCompleted,
	}, nil
}
