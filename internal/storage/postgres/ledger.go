package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
	"github.com/fyrsmithlabs/sparkd/internal/ledger"
)

const accountColumns = `user_id, spark_points, quests_assigned, quests_completed, created_at, updated_at`

// Ledger is a ledger.Ledger on the accounts table.
type Ledger struct {
	db *sqlx.DB
}

var _ ledger.Ledger = (*Ledger)(nil)

// NewLedger creates a Ledger.
func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Open(ctx context.Context, userID string) (*ledger.Account, error) {
	if userID == "" {
		return nil, errs.Invalid("user id is required")
	}
	var a ledger.Account
	err := l.db.GetContext(ctx, &a, `
		INSERT INTO accounts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING `+accountColumns, userID)
	if err != nil {
		return nil, storeErr("ledger.open", err)
	}
	return &a, nil
}

func (l *Ledger) Account(ctx context.Context, userID string) (*ledger.Account, error) {
	var a ledger.Account
	err := l.db.GetContext(ctx, &a, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("user", userID)
	}
	if err != nil {
		return nil, storeErr("ledger.account", err)
	}
	return &a, nil
}

func (l *Ledger) Credit(ctx context.Context, userID string, amount int64) (int64, error) {
	if err := ledger.ValidateAmount(userID, amount); err != nil {
		return 0, err
	}
	var balance int64
	err := l.db.GetContext(ctx, &balance, `
		INSERT INTO accounts (user_id, spark_points) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET spark_points = accounts.spark_points + EXCLUDED.spark_points, updated_at = now()
		RETURNING spark_points`, userID, amount)
	if err != nil {
		return 0, storeErr("ledger.credit", err)
	}
	ledger.RecordCredit(amount)
	return balance, nil
}

// Debit relies on a single conditional UPDATE, so concurrent debits can
// never take the balance below zero.
func (l *Ledger) Debit(ctx context.Context, userID string, amount int64) (int64, error) {
	if err := ledger.ValidateAmount(userID, amount); err != nil {
		return 0, err
	}
	var balance int64
	err := l.db.GetContext(ctx, &balance, `
		UPDATE accounts SET spark_points = spark_points - $2, updated_at = now()
		WHERE user_id = $1 AND spark_points >= $2
		RETURNING spark_points`, userID, amount)
	if err == nil {
		ledger.RecordDebit(amount, true)
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, storeErr("ledger.debit", err)
	}

	// No row matched: either the user is unknown or the balance is short.
	err = l.db.GetContext(ctx, &balance, `SELECT spark_points FROM accounts WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errs.NotFound("user", userID)
	}
	if err != nil {
		return 0, storeErr("ledger.debit", err)
	}
	ledger.RecordDebit(amount, false)
	return balance, errs.ErrInsufficientBalance
}

func (l *Ledger) IncrementAssigned(ctx context.Context, userID string) error {
	return l.bump(ctx, "ledger.increment_assigned", userID, `
		INSERT INTO accounts (user_id, quests_assigned) VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE SET quests_assigned = accounts.quests_assigned + 1, updated_at = now()`)
}

func (l *Ledger) IncrementCompleted(ctx context.Context, userID string) error {
	return l.bump(ctx, "ledger.increment_completed", userID, `
		INSERT INTO accounts (user_id, quests_completed) VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE SET quests_completed = accounts.quests_completed + 1, updated_at = now()`)
}

func (l *Ledger) bump(ctx context.Context, op, userID, query string) error {
	if userID == "" {
		return errs.Invalid("user id is required")
	}
	if _, err := l.db.ExecContext(ctx, query, userID); err != nil {
		return storeErr(op, err)
	}
	return nil
}
