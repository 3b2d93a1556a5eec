package services

import (
	"testing"

	"earnlink/internal/locks"
	"earnlink/internal/models"
	"earnlink/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWithdrawals(t *testing.T) (*WithdrawalService, *LedgerService, store.Store) {
	t.Helper()
	st := store.NewMemory()
	km := locks.NewKeyedMutex()
	ledger := NewLedgerService(st, km, zerolog.Nop())
	svc := NewWithdrawalService(st, ledger, zerolog.Nop(), "1.00", "BTC,ETH,DOGE,LTC,USDT,TRX")
	return svc, ledger, st
}

func fundUser(t *testing.T, ledger *LedgerService, userID, amount string) {
	t.Helper()
	_, err := ledger.Credit(userID, dec(t, amount), models.KindOfferwall, "seed", nil)
	require.NoError(t, err)
	_, err = ledger.SetPayoutAddress(userID, "bc1qtest")
	require.NoError(t, err)
}

func TestWithdrawalRequest(t *testing.T) {
	t.Run("debits at request time", func(t *testing.T) {
		svc, ledger, st := newTestWithdrawals(t)
		fundUser(t, ledger, "u1", "10.00")

		request, err := svc.Request("u1", dec(t, "4.00"), "BTC")
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawalStatusPending, request.Status)
		assert.Equal(t, "bc1qtest", request.PayoutAddress)

		balance, err := st.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "6.00")))
		assert.True(t, balance.TotalWithdrawn.Equal(dec(t, "4.00")))
	})

	t.Run("requires a payout address", func(t *testing.T) {
		svc, ledger, _ := newTestWithdrawals(t)
		_, err := ledger.Credit("u1", dec(t, "10.00"), models.KindOfferwall, "seed", nil)
		require.NoError(t, err)

		_, err = svc.Request("u1", dec(t, "4.00"), "BTC")
		assert.ErrorIs(t, err, ErrNoPayoutAddress)
	})

	t.Run("enforces the minimum", func(t *testing.T) {
		svc, ledger, _ := newTestWithdrawals(t)
		fundUser(t, ledger, "u1", "10.00")

		_, err := svc.Request("u1", dec(t, "0.50"), "BTC")
		assert.ErrorIs(t, err, ErrBelowMinimum)
	})

	t.Run("minimum follows the stored setting", func(t *testing.T) {
		svc, ledger, st := newTestWithdrawals(t)
		fundUser(t, ledger, "u1", "10.00")
		require.NoError(t, st.SetSetting(store.SettingMinWithdrawal, "5.00"))

		_, err := svc.Request("u1", dec(t, "4.00"), "BTC")
		assert.ErrorIs(t, err, ErrBelowMinimum)

		_, err = svc.Request("u1", dec(t, "5.00"), "BTC")
		assert.NoError(t, err)
	})

	t.Run("rejects unsupported coins", func(t *testing.T) {
		svc, ledger, _ := newTestWithdrawals(t)
		fundUser(t, ledger, "u1", "10.00")

		_, err := svc.Request("u1", dec(t, "4.00"), "XMR")
		assert.ErrorIs(t, err, ErrUnsupportedCoin)
	})

	t.Run("coin matching is case insensitive", func(t *testing.T) {
		svc, ledger, _ := newTestWithdrawals(t)
		fundUser(t, ledger, "u1", "10.00")

		_, err := svc.Request("u1", dec(t, "4.00"), "btc")
		assert.NoError(t, err)
	})

	t.Run("one pending request per user", func(t *testing.T) {
		svc, ledger, _ := newTestWithdrawals(t)
		fundUser(t, ledger, "u1", "10.00")

		_, err := svc.Request("u1", dec(t, "2.00"), "BTC")
		require.NoError(t, err)

		_, err = svc.Request("u1", dec(t, "2.00"), "ETH")
		assert.ErrorIs(t, err, ErrPendingExists)
	})

	t.Run("insufficient balance leaves nothing behind", func(t *testing.T) {
		svc, ledger, st := newTestWithdrawals(t)
		fundUser(t, ledger, "u1", "2.00")

		_, err := svc.Request("u1", dec(t, "5.00"), "BTC")
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		pending, err := st.PendingWithdrawals()
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

func TestWithdrawalProcess(t *testing.T) {
	t.Run("rejection refunds the debit", func(t *testing.T) {
		svc, ledger, st := newTestWithdrawals(t)
		fundUser(t, ledger, "u1", "10.00")

		request, err := svc.Request("u1", dec(t, "4.00"), "BTC")
		require.NoError(t, err)

		processed, err := svc.Process(request.ID, models.WithdrawalStatusRejected, "", "address invalid")
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawalStatusRejected, processed.Status)
		require.NotNil(t, processed.ProcessedAt)

		balance, err := st.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "10.00")), "the rejected amount must come back")

		txs, err := st.TransactionsByUser("u1")
		require.NoError(t, err)
		require.Len(t, txs, 3, "seed credit, debit and refund")
		assert.Equal(t, models.KindRefund, txs[0].Kind, "listing is newest first")
		assert.True(t, txs[0].Amount.Equal(dec(t, "4.00")))

		// With the pending request gone the user can request again.
		_, err = svc.Request("u1", dec(t, "4.00"), "BTC")
		assert.NoError(t, err)
	})

	t.Run("approval and payment never touch the balance", func(t *testing.T) {
		svc, ledger, st := newTestWithdrawals(t)
		fundUser(t, ledger, "u1", "10.00")

		request, err := svc.Request("u1", dec(t, "4.00"), "BTC")
		require.NoError(t, err)

		_, err = svc.Process(request.ID, models.WithdrawalStatusApproved, "", "")
		require.NoError(t, err)

		paid, err := svc.Process(request.ID, models.WithdrawalStatusPaid, "0xabc123", "")
		require.NoError(t, err)
		assert.Equal(t, "0xabc123", paid.TxHash)

		balance, err := st.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "6.00")))
	})

	t.Run("paid is terminal", func(t *testing.T) {
		svc, ledger, st := newTestWithdrawals(t)
		fundUser(t, ledger, "u1", "10.00")

		request, err := svc.Request("u1", dec(t, "4.00"), "BTC")
		require.NoError(t, err)

		_, err = svc.Process(request.ID, models.WithdrawalStatusPaid, "0xabc", "")
		require.NoError(t, err)

		_, err = svc.Process(request.ID, models.WithdrawalStatusRejected, "", "oops")
		assert.ErrorIs(t, err, ErrAlreadyProcessed)

		balance, err := st.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "6.00")), "a paid request must never refund")
	})

	t.Run("rejecting an approved request does not refund", func(t *testing.T) {
		svc, ledger, st := newTestWithdrawals(t)
		fundUser(t, ledger, "u1", "10.00")

		request, err := svc.Request("u1", dec(t, "4.00"), "BTC")
		require.NoError(t, err)

		_, err = svc.Process(request.ID, models.WithdrawalStatusApproved, "", "")
		require.NoError(t, err)

		_, err = svc.Process(request.ID, models.WithdrawalStatusRejected, "", "")
		require.NoError(t, err)

		balance, err := st.GetBalance("u1")
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "6.00")), "only pending requests refund on rejection")
	})

	t.Run("unknown request is ErrNotFound", func(t *testing.T) {
		svc, _, _ := newTestWithdrawals(t)

		_, err := svc.Process("missing", models.WithdrawalStatusRejected, "", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		svc, _, _ := newTestWithdrawals(t)

		_, err := svc.Process("whatever", models.WithdrawalStatus("pending"), "", "")
		assert.Error(t, err)
	})
}
