package redemption

import (
	"time"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
)

// Status is the persisted lifecycle state of a redemption.
type Status string

const (
	StatusActive  Status = "active"
	StatusUsed    Status = "used"
	StatusExpired Status = "expired"
)

// ParseStatus validates an optional status filter. Empty means any status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "", StatusActive, StatusUsed, StatusExpired:
		return Status(s), nil
	}
	return "", errs.Invalid("unknown redemption status %q", s)
}

// Redemption is a record of points spent on a reward.
type Redemption struct {
	ID                string     `json:"id" db:"id"`
	UserID            string     `json:"userId" db:"user_id"`
	RewardID          string     `json:"rewardId" db:"reward_id"`
	RewardName        string     `json:"rewardName" db:"reward_name"`
	RewardDescription string     `json:"rewardDescription" db:"reward_description"`
	Cost              int64      `json:"cost" db:"cost"`
	RedeemedAt        time.Time  `json:"redeemedAt" db:"redeemed_at"`
	Status            Status     `json:"status" db:"status"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty" db:"expires_at"`

	// IsExpired is derived on read and never stored.
	IsExpired bool `json:"isExpired" db:"-"`
}

// Expired reports whether r has an expiry and now is past it.
func (r *Redemption) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// Points is the user's economy summary.
type Points struct {
	SparkPoints     int64 `json:"sparkPoints"`
	QuestsAssigned  int64 `json:"questsAssigned"`
	QuestsCompleted int64 `json:"questsCompleted"`
}

// Receipt is the outcome of a successful Redeem.
type Receipt struct {
	Redemption       *Redemption `json:"redemption"`
	RemainingBalance int64       `json:"remainingPoints"`
}

// History limits.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// clampLimit applies the default and cap to a caller-supplied limit.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}
