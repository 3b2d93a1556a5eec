package services

import (
	"sync"
	"testing"

	"earnlink/internal/locks"
	"earnlink/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOfferwall(t *testing.T) (*OfferwallService, store.Store) {
	t.Helper()
	st := store.NewMemory()
	km := locks.NewKeyedMutex()
	ledger := NewLedgerService(st, km, zerolog.Nop())
	return NewOfferwallService(st, km, ledger, zerolog.Nop(), "0.50"), st
}

func TestRecordCompletion(t *testing.T) {
	t.Run("credits the revenue share and records the gross payout", func(t *testing.T) {
		svc, st := newTestOfferwall(t)

		result, err := svc.RecordCompletion("u1", "cpx", "offer-1", dec(t, "1.00"), "net-tx-1", "10.0.0.1")
		require.NoError(t, err)
		require.True(t, result.Credited)
		assert.True(t, result.UserReward.Equal(dec(t, "0.50")))

		balance, err := st.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "0.50")))

		record, err := st.GetCompletion("u1", "cpx", "offer-1")
		require.NoError(t, err)
		assert.True(t, record.Payout.Equal(dec(t, "1.00")), "the record keeps the gross payout")
		assert.Equal(t, "net-tx-1", record.TransactionID)
	})

	t.Run("duplicate delivery is a no-op success", func(t *testing.T) {
		svc, st := newTestOfferwall(t)

		first, err := svc.RecordCompletion("u1", "cpx", "offer-1", dec(t, "1.00"), "", "")
		require.NoError(t, err)
		require.True(t, first.Credited)

		second, err := svc.RecordCompletion("u1", "cpx", "offer-1", dec(t, "1.00"), "", "")
		require.NoError(t, err)
		assert.False(t, second.Credited)

		balance, err := st.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "0.50")), "the duplicate must not credit again")

		txs, err := st.TransactionsByUser("u1")
		require.NoError(t, err)
		assert.Len(t, txs, 1)
	})

	t.Run("distinct offers credit independently", func(t *testing.T) {
		svc, st := newTestOfferwall(t)

		_, err := svc.RecordCompletion("u1", "cpx", "offer-1", dec(t, "1.00"), "", "")
		require.NoError(t, err)
		_, err = svc.RecordCompletion("u1", "cpx", "offer-2", dec(t, "1.00"), "", "")
		require.NoError(t, err)
		_, err = svc.RecordCompletion("u1", "ayet", "offer-1", dec(t, "1.00"), "", "")
		require.NoError(t, err)

		balance, err := st.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "1.50")))
	})

	t.Run("concurrent deliveries of one completion credit exactly once", func(t *testing.T) {
		svc, st := newTestOfferwall(t)

		const n = 10
		var wg sync.WaitGroup
		wg.Add(n)
		credited := 0
		var mu sync.Mutex
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				result, err := svc.RecordCompletion("u1", "cpx", "offer-1", dec(t, "2.00"), "", "")
				assert.NoError(t, err)
				if result != nil && result.Credited {
					mu.Lock()
					credited++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, credited)

		balance, err := st.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "1.00")), "got %s", balance.Balance)
	})

	t.Run("honors the revenue share setting over the default", func(t *testing.T) {
		svc, st := newTestOfferwall(t)

		require.NoError(t, st.SetSetting(store.SettingRevenueShare, "0.70"))

		result, err := svc.RecordCompletion("u1", "cpx", "offer-1", dec(t, "1.00"), "", "")
		require.NoError(t, err)
		assert.True(t, result.UserReward.Equal(dec(t, "0.70")))
	})

	t.Run("failed credit removes the completion record", func(t *testing.T) {
		fs := &failingStore{Store: store.NewMemory()}
		km := locks.NewKeyedMutex()
		ledger := NewLedgerService(fs, km, zerolog.Nop())
		svc := NewOfferwallService(fs, km, ledger, zerolog.Nop(), "0.50")

		fs.setFailAppend(true)
		_, err := svc.RecordCompletion("u1", "cpx", "offer-1", dec(t, "1.00"), "", "")
		require.Error(t, err)

		done, err := svc.Completed("u1", "cpx", "offer-1")
		require.NoError(t, err)
		assert.False(t, done, "the reservation must be rolled back so a retry can credit")

		fs.setFailAppend(false)
		result, err := svc.RecordCompletion("u1", "cpx", "offer-1", dec(t, "1.00"), "", "")
		require.NoError(t, err)
		assert.True(t, result.Credited)
	})
}

func TestCompleted(t *testing.T) {
	svc, _ := newTestOfferwall(t)

	done, err := svc.Completed("u1", "cpx", "offer-1")
	require.NoError(t, err)
	assert.False(t, done)

	_, err = svc.RecordCompletion("u1", "cpx", "offer-1", dec(t, "1.00"), "", "")
	require.NoError(t, err)

	done, err = svc.Completed("u1", "cpx", "offer-1")
	require.NoError(t, err)
	assert.True(t, done)
}
