package ledger

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
)

func TestMemoryLedger_CreditDebit(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	bal, err := l.Credit(ctx, "u1", 80)
	require.NoError(t, err)
	assert.Equal(t, int64(80), bal)

	t.Run("insufficient leaves balance unchanged", func(t *testing.T) {
		_, err := l.Debit(ctx, "u1", 100)
		assert.ErrorIs(t, err, errs.ErrInsufficientBalance)

		acct, err := l.Account(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(80), acct.SparkPoints)
	})

	t.Run("exact balance", func(t *testing.T) {
		bal, err := l.Debit(ctx, "u1", 80)
		require.NoError(t, err)
		assert.Equal(t, int64(0), bal)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := l.Debit(ctx, "ghost", 1)
		assert.ErrorIs(t, err, errs.ErrNotFound)
		_, err = l.Account(ctx, "ghost")
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("non-positive amounts", func(t *testing.T) {
		_, err := l.Credit(ctx, "u1", 0)
		assert.ErrorIs(t, err, errs.ErrValidation)
		_, err = l.Debit(ctx, "u1", -5)
		assert.ErrorIs(t, err, errs.ErrValidation)
	})
}

func TestMemoryLedger_Counters(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	require.NoError(t, l.IncrementAssigned(ctx, "u1"))
	require.NoError(t, l.IncrementAssigned(ctx, "u1"))
	require.NoError(t, l.IncrementCompleted(ctx, "u1"))

	acct, err := l.Account(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), acct.QuestsAssigned)
	assert.Equal(t, int64(1), acct.QuestsCompleted)
	assert.Equal(t, int64(0), acct.SparkPoints)

	assert.ErrorIs(t, l.IncrementCompleted(ctx, ""), errs.ErrValidation)
}

func TestMemoryLedger_Open(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	acct, err := l.Open(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", acct.UserID)
	assert.Zero(t, acct.SparkPoints)

	// Returned accounts are copies.
	acct.SparkPoints = 1000
	again, err := l.Open(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, again.SparkPoints)
}

func TestMemoryLedger_ConcurrentDebits(t *testing.T) {
	const (
		balance  = 250
		cost     = 30
		attempts = 50
	)
	l := NewMemoryLedger()
	ctx := context.Background()
	_, err := l.Credit(ctx, "u1", balance)
	require.NoError(t, err)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Debit(ctx, "u1", cost)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, errs.ErrInsufficientBalance):
				insufficient++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, balance/cost, succeeded)
	assert.Equal(t, attempts-balance/cost, insufficient)

	acct, err := l.Account(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(balance-(balance/cost)*cost), acct.SparkPoints)
	assert.GreaterOrEqual(t, acct.SparkPoints, int64(0))
}

func TestMetrics_Debits(t *testing.T) {
	okBefore := testutil.ToFloat64(debitsTotal.WithLabelValues(resultOK))
	rejectedBefore := testutil.ToFloat64(debitsTotal.WithLabelValues(resultInsufficient))
	debitedBefore := testutil.ToFloat64(pointsDebited)

	l := NewMemoryLedger()
	ctx := context.Background()
	_, err := l.Credit(ctx, "u1", 10)
	require.NoError(t, err)
	_, err = l.Debit(ctx, "u1", 7)
	require.NoError(t, err)
	_, err = l.Debit(ctx, "u1", 7)
	require.Error(t, err)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(debitsTotal.WithLabelValues(resultOK)))
	assert.Equal(t, rejectedBefore+1, testutil.ToFloat64(debitsTotal.WithLabelValues(resultInsufficient)))
	assert.Equal(t, debitedBefore+7, testutil.ToFloat64(pointsDebited))
}

func TestMemoryLedger_BalanceInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	l := NewMemoryLedger()
	ctx := context.Background()

	var credited, debited int64
	for i := 0; i < 2000; i++ {
		amount := rng.Int63n(120) + 1
		if rng.Intn(3) == 0 {
			_, err := l.Credit(ctx, "u1", amount)
			require.NoError(t, err)
			credited += amount
			continue
		}
		bal, err := l.Debit(ctx, "u1", amount)
		if err == nil {
			debited += amount
		}
		require.GreaterOrEqual(t, bal, int64(0))
	}

	acct, err := l.Account(ctx, "u1")
	require.NoError(t, err)
	assert.LessOrEqual(t, debited, credited)
	assert.Equal(t, credited-debited, acct.SparkPoints)
}
