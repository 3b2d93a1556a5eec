package services

import (
	"errors"
	"sync"
	"testing"

	"earnlink/internal/locks"
	"earnlink/internal/models"
	"earnlink/internal/store"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*LedgerService, store.Store) {
	t.Helper()
	st := store.NewMemory()
	return NewLedgerService(st, locks.NewKeyedMutex(), zerolog.Nop()), st
}

// failingStore wraps a real store and makes AppendTransaction fail on demand,
// to exercise the rollback paths.
type failingStore struct {
	store.Store
	mu         sync.Mutex
	failAppend bool
}

func (f *failingStore) setFailAppend(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAppend = v
}

func (f *failingStore) AppendTransaction(tx *models.Transaction) error {
	f.mu.Lock()
	fail := f.failAppend
	f.mu.Unlock()
	if fail {
		return errors.New("append failed")
	}
	return f.Store.AppendTransaction(tx)
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestLedgerCredit(t *testing.T) {
	t.Run("creates balance lazily and records transaction", func(t *testing.T) {
		ledger, st := newTestLedger(t)

		tx, err := ledger.Credit("u1", dec(t, "0.25"), models.KindOfferwall, "test credit", nil)
		require.NoError(t, err)
		assert.True(t, tx.Amount.Equal(dec(t, "0.25")))
		assert.Equal(t, models.KindOfferwall, tx.Kind)

		balance, err := st.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "0.25")))
		assert.True(t, balance.TotalEarned.Equal(dec(t, "0.25")))
		assert.True(t, balance.TotalWithdrawn.IsZero())

		txs, err := st.TransactionsByUser("u1")
		require.NoError(t, err)
		require.Len(t, txs, 1)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		ledger, _ := newTestLedger(t)

		_, err := ledger.Credit("u1", decimal.Zero, models.KindOfferwall, "zero", nil)
		assert.Error(t, err)

		_, err = ledger.Credit("u1", dec(t, "-1"), models.KindOfferwall, "negative", nil)
		assert.Error(t, err)
	})

	t.Run("stores offerwall metadata on the transaction", func(t *testing.T) {
		ledger, st := newTestLedger(t)

		_, err := ledger.Credit("u1", dec(t, "0.10"), models.KindOfferwall, "offer", &CreditMeta{
			Network:  "cpx",
			OfferID:  "offer-9",
			SourceIP: "10.0.0.1",
		})
		require.NoError(t, err)

		txs, err := st.TransactionsByUser("u1")
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, "cpx", txs[0].Network)
		assert.Equal(t, "offer-9", txs[0].OfferID)
		assert.Equal(t, "10.0.0.1", txs[0].SourceIP)
	})

	t.Run("rolls balance back when the transaction append fails", func(t *testing.T) {
		fs := &failingStore{Store: store.NewMemory()}
		ledger := NewLedgerService(fs, locks.NewKeyedMutex(), zerolog.Nop())

		_, err := ledger.Credit("u1", dec(t, "5.00"), models.KindOfferwall, "seed", nil)
		require.NoError(t, err)

		fs.setFailAppend(true)
		_, err = ledger.Credit("u1", dec(t, "1.00"), models.KindOfferwall, "failing", nil)
		require.Error(t, err)

		balance, err := fs.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "5.00")), "balance must be restored after append failure")
		assert.True(t, balance.TotalEarned.Equal(dec(t, "5.00")))

		txs, err := fs.TransactionsByUser("u1")
		require.NoError(t, err)
		assert.Len(t, txs, 1)
	})
}

func TestLedgerDebit(t *testing.T) {
	t.Run("subtracts and tracks total withdrawn", func(t *testing.T) {
		ledger, st := newTestLedger(t)

		_, err := ledger.Credit("u1", dec(t, "10.00"), models.KindOfferwall, "seed", nil)
		require.NoError(t, err)

		tx, err := ledger.Debit("u1", dec(t, "4.00"), models.KindWithdrawal, "withdrawal")
		require.NoError(t, err)
		assert.True(t, tx.Amount.Equal(dec(t, "-4.00")), "debit transactions are negative")

		balance, err := st.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "6.00")))
		assert.True(t, balance.TotalEarned.Equal(dec(t, "10.00")))
		assert.True(t, balance.TotalWithdrawn.Equal(dec(t, "4.00")))
	})

	t.Run("insufficient funds leaves no trace", func(t *testing.T) {
		ledger, st := newTestLedger(t)

		_, err := ledger.Credit("u1", dec(t, "1.00"), models.KindOfferwall, "seed", nil)
		require.NoError(t, err)

		_, err = ledger.Debit("u1", dec(t, "2.00"), models.KindWithdrawal, "too much")
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		balance, err := st.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "1.00")))
		assert.True(t, balance.TotalWithdrawn.IsZero())

		txs, err := st.TransactionsByUser("u1")
		require.NoError(t, err)
		assert.Len(t, txs, 1, "the failed debit must not append a transaction")
	})

	t.Run("missing balance row is ErrNoBalance", func(t *testing.T) {
		ledger, _ := newTestLedger(t)

		_, err := ledger.Debit("ghost", dec(t, "1.00"), models.KindWithdrawal, "no row")
		assert.ErrorIs(t, err, ErrNoBalance)
	})
}

func TestLedgerConcurrency(t *testing.T) {
	t.Run("concurrent credits all land", func(t *testing.T) {
		ledger, st := newTestLedger(t)

		const n = 50
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				_, err := ledger.Credit("u1", dec(t, "0.01"), models.KindOfferwall, "tick", nil)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		balance, err := st.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "0.50")), "got %s", balance.Balance)

		txs, err := st.TransactionsByUser("u1")
		require.NoError(t, err)
		assert.Len(t, txs, n)
	})

	t.Run("two simultaneous credits on a fresh user both land", func(t *testing.T) {
		ledger, st := newTestLedger(t)

		var wg sync.WaitGroup
		wg.Add(2)
		for i := 0; i < 2; i++ {
			go func() {
				defer wg.Done()
				_, err := ledger.Credit("u1", dec(t, "0.05"), models.KindOfferwall, "race", nil)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		balance, err := st.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "0.10")), "got %s", balance.Balance)

		txs, err := st.TransactionsByUser("u1")
		require.NoError(t, err)
		assert.Len(t, txs, 2)
	})

	t.Run("concurrent debits never overdraw", func(t *testing.T) {
		ledger, st := newTestLedger(t)

		_, err := ledger.Credit("u1", dec(t, "1.00"), models.KindOfferwall, "seed", nil)
		require.NoError(t, err)

		const n = 10
		var wg sync.WaitGroup
		wg.Add(n)
		var succeeded int32
		var mu sync.Mutex
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				if _, err := ledger.Debit("u1", dec(t, "0.30"), models.KindWithdrawal, "race"); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, ErrInsufficientFunds)
				}
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 3, succeeded, "only three 0.30 debits fit in 1.00")

		balance, err := st.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "0.10")), "got %s", balance.Balance)
		assert.False(t, balance.Balance.IsNegative())
	})
}

func TestLedgerPayoutAddress(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.SetPayoutAddress("u1", "addr")
	assert.ErrorIs(t, err, ErrNoBalance)

	_, err = ledger.Credit("u1", dec(t, "0.01"), models.KindOfferwall, "seed", nil)
	require.NoError(t, err)

	balance, err := ledger.SetPayoutAddress("u1", "bc1qxyz")
	require.NoError(t, err)
	assert.Equal(t, "bc1qxyz", balance.PayoutAddress)
}
