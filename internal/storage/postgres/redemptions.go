package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
	"github.com/fyrsmithlabs/sparkd/internal/redemption"
)

// RedemptionStore is a redemption.Store on the redemptions table.
type RedemptionStore struct {
	db *sqlx.DB
}

var _ redemption.Store = (*RedemptionStore)(nil)

// NewRedemptionStore creates a RedemptionStore.
func NewRedemptionStore(db *sqlx.DB) *RedemptionStore {
	return &RedemptionStore{db: db}
}

func (s *RedemptionStore) Create(ctx context.Context, r *redemption.Redemption) error {
	if r == nil || r.ID == "" || r.UserID == "" {
		return errs.Invalid("redemption id and user id are required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO redemptions (id, user_id, reward_id, reward_name, reward_description, cost, redeemed_at, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.UserID, r.RewardID, r.RewardName, r.RewardDescription, r.Cost, r.RedeemedAt, r.Status, r.ExpiresAt)
	return storeErr("redemptions.create", err)
}

func (s *RedemptionStore) List(ctx context.Context, userID string, status redemption.Status, limit int) ([]*redemption.Redemption, error) {
	var b strings.Builder
	b.WriteString(`SELECT id, user_id, reward_id, reward_name, reward_description, cost, redeemed_at, status, expires_at FROM redemptions WHERE user_id = $1`)
	args := []interface{}{userID}
	if status != "" {
		args = append(args, status)
		b.WriteString(` AND status = $` + strconv.Itoa(len(args)))
	}
	b.WriteString(` ORDER BY redeemed_at DESC`)
	if limit > 0 {
		args = append(args, limit)
		b.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	}

	out := make([]*redemption.Redemption, 0)
	if err := s.db.SelectContext(ctx, &out, b.String(), args...); err != nil {
		return nil, storeErr("redemptions.list", err)
	}
	return out, nil
}

func (s *RedemptionStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE redemptions SET status = 'expired'
		WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, storeErr("redemptions.expire", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("redemptions.expire", err)
	}
	return n, nil
}
