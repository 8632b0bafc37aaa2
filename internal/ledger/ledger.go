package ledger

import (
	"context"
	"time"
)

// Account is a user's economy record.
type Account struct {
	UserID          string    `json:"userId" db:"user_id"`
	SparkPoints     int64     `json:"sparkPoints" db:"spark_points"`
	QuestsAssigned  int64     `json:"questsAssigned" db:"quests_assigned"`
	QuestsCompleted int64     `json:"questsCompleted" db:"quests_completed"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// Ledger is the points and counters store.
//
// Credit and the counter increments create the account when it does not
// exist yet. Debit and Account never do: an unknown user is errs.ErrNotFound.
type Ledger interface {
	// Open returns the account, creating an empty one if needed.
	Open(ctx context.Context, userID string) (*Account, error)

	// Account returns the account or errs.ErrNotFound.
	Account(ctx context.Context, userID string) (*Account, error)

	// Credit adds amount and returns the new balance. amount must be positive.
	Credit(ctx context.Context, userID string, amount int64) (int64, error)

	// Debit subtracts amount iff the balance covers it, returning the new
	// balance. Otherwise it returns errs.ErrInsufficientBalance and the
	// balance is unchanged.
	Debit(ctx context.Context, userID string, amount int64) (int64, error)

	// IncrementAssigned bumps questsAssigned by one.
	IncrementAssigned(ctx context.Context, userID string) error

	// IncrementCompleted bumps questsCompleted by one.
	IncrementCompleted(ctx context.Context, userID string) error
}
