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

func newTestReferrals(t *testing.T) (*ReferralService, *UserService, store.Store) {
	t.Helper()
	st := store.NewMemory()
	km := locks.NewKeyedMutex()
	ledger := NewLedgerService(st, km, zerolog.Nop())
	referrals := NewReferralService(st, ledger, zerolog.Nop(), "0.10")
	users := NewUserService(st, ledger, referrals, zerolog.Nop(), "admin@example.com")
	return referrals, users, st
}

func registerUser(t *testing.T, users *UserService, email, code string) *models.User {
	t.Helper()
	user, err := users.Register(&models.RegisterRequest{
		Email:        email,
		Password:     "hunter22",
		ReferralCode: code,
	}, "10.0.0.1")
	require.NoError(t, err)
	return user
}

func TestApplyReferral(t *testing.T) {
	t.Run("registration with a code links the users", func(t *testing.T) {
		_, users, st := newTestReferrals(t)

		referrer := registerUser(t, users, "alice@example.com", "")
		require.NotEmpty(t, referrer.ReferralCode)

		referred := registerUser(t, users, "bob@example.com", referrer.ReferralCode)

		referral, err := st.ReferralByReferred(referred.ID)
		require.NoError(t, err)
		assert.Equal(t, referrer.ID, referral.ReferrerID)
		assert.Equal(t, models.ReferralStatusPending, referral.Status)

		rereadUser, err := st.GetUser(referred.ID)
		require.NoError(t, err)
		assert.Equal(t, referrer.ID, rereadUser.ReferredBy)
	})

	t.Run("unknown code is ignored", func(t *testing.T) {
		referrals, users, st := newTestReferrals(t)

		user := registerUser(t, users, "bob@example.com", "NOSUCH00")

		_, err := st.ReferralByReferred(user.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		referral, err := referrals.Apply(user.ID, "NOSUCH00", "")
		require.NoError(t, err)
		assert.Nil(t, referral)
	})

	t.Run("self referral is rejected", func(t *testing.T) {
		referrals, users, _ := newTestReferrals(t)

		user := registerUser(t, users, "alice@example.com", "")

		_, err := referrals.Apply(user.ID, user.ReferralCode, "")
		assert.Error(t, err)
	})

	t.Run("a user can only be referred once", func(t *testing.T) {
		referrals, users, _ := newTestReferrals(t)

		a := registerUser(t, users, "a@example.com", "")
		b := registerUser(t, users, "b@example.com", "")
		c := registerUser(t, users, "c@example.com", a.ReferralCode)

		_, err := referrals.Apply(c.ID, b.ReferralCode, "")
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
	})
}

func TestReviewReferral(t *testing.T) {
	t.Run("crediting pays the referrer once", func(t *testing.T) {
		referrals, users, st := newTestReferrals(t)

		referrer := registerUser(t, users, "alice@example.com", "")
		referred := registerUser(t, users, "bob@example.com", referrer.ReferralCode)

		referral, err := st.ReferralByReferred(referred.ID)
		require.NoError(t, err)

		credited, err := referrals.Review(referral.ID, models.ReferralStatusCredited)
		require.NoError(t, err)
		assert.Equal(t, models.ReferralStatusCredited, credited.Status)

		balance, err := st.GetBalance(referrer.ID)
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "0.10")))

		_, err = referrals.Review(referral.ID, models.ReferralStatusCredited)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)

		balance, err = st.GetBalance(referrer.ID)
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "0.10")), "the bonus must only be paid once")
	})

	t.Run("marking invalid pays nothing", func(t *testing.T) {
		referrals, users, st := newTestReferrals(t)

		referrer := registerUser(t, users, "alice@example.com", "")
		referred := registerUser(t, users, "bob@example.com", referrer.ReferralCode)

		referral, err := st.ReferralByReferred(referred.ID)
		require.NoError(t, err)

		_, err = referrals.Review(referral.ID, models.ReferralStatusInvalid)
		require.NoError(t, err)

		balance, err := st.GetBalance(referrer.ID)
		require.NoError(t, err)
		assert.True(t, balance.Balance.IsZero())
	})

	t.Run("reward follows the stored setting", func(t *testing.T) {
		referrals, users, st := newTestReferrals(t)
		require.NoError(t, st.SetSetting(store.SettingReferralReward, "0.25"))

		referrer := registerUser(t, users, "alice@example.com", "")
		referred := registerUser(t, users, "bob@example.com", referrer.ReferralCode)

		referral, err := st.ReferralByReferred(referred.ID)
		require.NoError(t, err)

		_, err = referrals.Review(referral.ID, models.ReferralStatusCredited)
		require.NoError(t, err)

		balance, err := st.GetBalance(referrer.ID)
		require.NoError(t, err)
		assert.True(t, balance.Balance.Equal(dec(t, "0.25")))
	})
}

func TestReferralStats(t *testing.T) {
	referrals, users, st := newTestReferrals(t)

	referrer := registerUser(t, users, "alice@example.com", "")
	b := registerUser(t, users, "b@example.com", referrer.ReferralCode)
	registerUser(t, users, "c@example.com", referrer.ReferralCode)

	referralB, err := st.ReferralByReferred(b.ID)
	require.NoError(t, err)
	_, err = referrals.Review(referralB.ID, models.ReferralStatusCredited)
	require.NoError(t, err)

	stats, err := referrals.StatsFor(referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Credited)
	assert.Equal(t, 1, stats.Pending)
	assert.True(t, stats.TotalEarned.Equal(dec(t, "0.10")))
}

func TestRegister(t *testing.T) {
	t.Run("admin email gets the admin flag", func(t *testing.T) {
		_, users, _ := newTestReferrals(t)

		admin := registerUser(t, users, "admin@example.com", "")
		assert.True(t, admin.IsAdmin)

		normal := registerUser(t, users, "user@example.com", "")
		assert.False(t, normal.IsAdmin)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		_, users, _ := newTestReferrals(t)

		registerUser(t, users, "alice@example.com", "")
		_, err := users.Register(&models.RegisterRequest{Email: "alice@example.com", Password: "pw123456"}, "")
		assert.Error(t, err)
	})

	t.Run("registration creates a zero balance", func(t *testing.T) {
		_, users, st := newTestReferrals(t)

		user := registerUser(t, users, "alice@example.com", "")

		balance, err := st.GetBalance(user.ID)
		require.NoError(t, err)
		assert.True(t, balance.Balance.IsZero())
	})

	t.Run("login verifies the password", func(t *testing.T) {
		_, users, _ := newTestReferrals(t)

		registerUser(t, users, "alice@example.com", "")

		_, err := users.Authenticate(&models.LoginRequest{Email: "alice@example.com", Password: "hunter22"})
		assert.NoError(t, err)

		_, err = users.Authenticate(&models.LoginRequest{Email: "alice@example.com", Password: "wrong"})
		assert.Error(t, err)
	})
}
