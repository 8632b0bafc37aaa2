package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
)

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu       sync.Mutex
	accounts map[string]*Account
	now      func() time.Time
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		accounts: make(map[string]*Account),
		now:      time.Now,
	}
}

// account returns the user's account, creating it when create is set.
// Callers hold mu.
func (m *MemoryLedger) account(userID string, create bool) (*Account, bool) {
	a, ok := m.accounts[userID]
	if ok || !create {
		return a, ok
	}
	now := m.now().UTC()
	a = &Account{UserID: userID, CreatedAt: now, UpdatedAt: now}
	m.accounts[userID] = a
	return a, true
}

func (m *MemoryLedger) Open(_ context.Context, userID string) (*Account, error) {
	if userID == "" {
		return nil, errs.Invalid("user id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, _ := m.account(userID, true)
	cp := *a
	return &cp, nil
}

func (m *MemoryLedger) Account(_ context.Context, userID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.account(userID, false)
	if !ok {
		return nil, errs.NotFound("user", userID)
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryLedger) Credit(_ context.Context, userID string, amount int64) (int64, error) {
	if err := ValidateAmount(userID, amount); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, _ := m.account(userID, true)
	a.SparkPoints += amount
	a.UpdatedAt = m.now().UTC()
	RecordCredit(amount)
	return a.SparkPoints, nil
}

func (m *MemoryLedger) Debit(_ context.Context, userID string, amount int64) (int64, error) {
	if err := ValidateAmount(userID, amount); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.account(userID, false)
	if !ok {
		return 0, errs.NotFound("user", userID)
	}
	if a.SparkPoints < amount {
		RecordDebit(amount, false)
		return a.SparkPoints, errs.ErrInsufficientBalance
	}
	a.SparkPoints -= amount
	a.UpdatedAt = m.now().UTC()
	RecordDebit(amount, true)
	return a.SparkPoints, nil
}

func (m *MemoryLedger) IncrementAssigned(_ context.Context, userID string) error {
	return m.bump(userID, func(a *Account) { a.QuestsAssigned++ })
}

func (m *MemoryLedger) IncrementCompleted(_ context.Context, userID string) error {
	return m.bump(userID, func(a *Account) { a.QuestsCompleted++ })
}

func (m *MemoryLedger) bump(userID string, fn func(*Account)) error {
	if userID == "" {
		return errs.Invalid("user id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, _ := m.account(userID, true)
	fn(a)
	a.UpdatedAt = m.now().UTC()
	return nil
}

// ValidateAmount checks the arguments of Credit and Debit.
func ValidateAmount(userID string, amount int64) error {
	if userID == "" {
		return errs.Invalid("user id is required")
	}
	if amount <= 0 {
		return errs.Invalid("amount must be positive, got %d", amount)
	}
	return nil
}
