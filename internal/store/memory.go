package store

import (
	"sort"
	"strings"
	"sync"

	"earnlink/internal/models"
)

// Memory keeps everything in process-local maps. It is the default store and
// the one the service tests run against. A single RWMutex guards the maps;
// cross-entity consistency comes from the services' keyed locks, not from
// here.
type Memory struct {
	mu sync.RWMutex

	users        map[string]*models.User
	balances     map[string]*models.UserBalance // by userID
	transactions []*models.Transaction
	txByID       map[string]*models.Transaction
	completions  map[string]*models.CompletionRecord // by userID:network:offerID
	tasks        map[string]*models.Task
	submissions  map[string]*models.TaskSubmission
	withdrawals  map[string]*models.WithdrawalRequest
	referrals    map[string]*models.Referral
	settings     map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		users:       make(map[string]*models.User),
		balances:    make(map[string]*models.UserBalance),
		txByID:      make(map[string]*models.Transaction),
		completions: make(map[string]*models.CompletionRecord),
		tasks:       make(map[string]*models.Task),
		submissions: make(map[string]*models.TaskSubmission),
		withdrawals: make(map[string]*models.WithdrawalRequest),
		referrals:   make(map[string]*models.Referral),
		settings: map[string]string{
			SettingMinWithdrawal:  "1.00",
			SettingSupportedCoins: "BTC,ETH,DOGE,LTC,USDT,TRX",
			SettingRevenueShare:   "0.50",
			SettingReferralReward: "0.10",
		},
	}
}

func completionKey(userID, network, offerID string) string {
	return userID + ":" + network + ":" + offerID
}

// Users

func (m *Memory) GetUser(id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) GetUserByEmail(email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetUserByReferralCode(code string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ReferralCode == code {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateUser(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *Memory) UpdateUser(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

// Balances

func (m *Memory) GetBalance(userID string) (*models.UserBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.balances[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) CreateBalance(b *models.UserBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.balances[b.UserID] = &cp
	return nil
}

func (m *Memory) PutBalance(b *models.UserBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.balances[b.UserID] = &cp
	return nil
}

// Transactions

func (m *Memory) AppendTransaction(tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tx
	m.transactions = append(m.transactions, &cp)
	m.txByID[tx.ID] = &cp
	return nil
}

func (m *Memory) GetTransaction(id string) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *Memory) TransactionsByUser(userID string) ([]*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Transaction
	for _, tx := range m.transactions {
		if tx.UserID == userID {
			cp := *tx
			out = append(out, &cp)
		}
	}
	// Append order is mutation order; newest first for listing.
	reverseTransactions(out)
	return out, nil
}

func (m *Memory) AllTransactions() ([]*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		cp := *tx
		out = append(out, &cp)
	}
	reverseTransactions(out)
	return out, nil
}

func reverseTransactions(txs []*models.Transaction) {
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}
}

// Offerwall completions

func (m *Memory) GetCompletion(userID, network, offerID string) (*models.CompletionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.completions[completionKey(userID, network, offerID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) PutCompletion(c *models.CompletionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.completions[completionKey(c.UserID, c.Network, c.OfferID)] = &cp
	return nil
}

func (m *Memory) DeleteCompletion(userID, network, offerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.completions, completionKey(userID, network, offerID))
	return nil
}

// Tasks

func (m *Memory) GetTask(id string) (*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *Memory) CreateTask(t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *Memory) PutTask(t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *Memory) ActiveTasks() ([]*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Task
	for _, t := range m.tasks {
		if t.IsActive {
			cp := *t
			out = append(out, &cp)
		}
	}
	sortTasksNewestFirst(out)
	return out, nil
}

func (m *Memory) AllTasks() ([]*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		cp := *t
		out = append(out, &cp)
	}
	sortTasksNewestFirst(out)
	return out, nil
}

func sortTasksNewestFirst(tasks []*models.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
}

// Task submissions

func (m *Memory) GetSubmission(id string) (*models.TaskSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) CreateSubmission(s *models.TaskSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.submissions[s.ID] = &cp
	return nil
}

func (m *Memory) PutSubmission(s *models.TaskSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.submissions[s.ID]; !ok {
		return ErrNotFound
	}
	cp := *s
	m.submissions[s.ID] = &cp
	return nil
}

func (m *Memory) SubmissionsByUser(userID string) ([]*models.TaskSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.TaskSubmission
	for _, s := range m.submissions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortSubmissionsNewestFirst(out)
	return out, nil
}

func (m *Memory) PendingSubmissions() ([]*models.TaskSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.TaskSubmission
	for _, s := range m.submissions {
		if s.Status == models.SubmissionStatusPending {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortSubmissionsNewestFirst(out)
	return out, nil
}

func (m *Memory) HasUserSubmitted(userID, taskID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.submissions {
		if s.UserID == userID && s.TaskID == taskID {
			return true, nil
		}
	}
	return false, nil
}

func sortSubmissionsNewestFirst(subs []*models.TaskSubmission) {
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].SubmittedAt.After(subs[j].SubmittedAt)
	})
}

// Withdrawal requests

func (m *Memory) GetWithdrawal(id string) (*models.WithdrawalRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.withdrawals[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *Memory) CreateWithdrawal(w *models.WithdrawalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.withdrawals[w.ID] = &cp
	return nil
}

func (m *Memory) PutWithdrawal(w *models.WithdrawalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.withdrawals[w.ID]; !ok {
		return ErrNotFound
	}
	cp := *w
	m.withdrawals[w.ID] = &cp
	return nil
}

func (m *Memory) WithdrawalsByUser(userID string) ([]*models.WithdrawalRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.WithdrawalRequest
	for _, w := range m.withdrawals {
		if w.UserID == userID {
			cp := *w
			out = append(out, &cp)
		}
	}
	sortWithdrawalsNewestFirst(out)
	return out, nil
}

func (m *Memory) PendingWithdrawals() ([]*models.WithdrawalRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.WithdrawalRequest
	for _, w := range m.withdrawals {
		if w.Status == models.WithdrawalStatusPending {
			cp := *w
			out = append(out, &cp)
		}
	}
	sortWithdrawalsNewestFirst(out)
	return out, nil
}

func sortWithdrawalsNewestFirst(ws []*models.WithdrawalRequest) {
	sort.Slice(ws, func(i, j int) bool {
		return ws[i].RequestedAt.After(ws[j].RequestedAt)
	})
}

// Referrals

func (m *Memory) GetReferral(id string) (*models.Referral, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.referrals[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) CreateReferral(r *models.Referral) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.referrals[r.ID] = &cp
	return nil
}

func (m *Memory) PutReferral(r *models.Referral) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.referrals[r.ID]; !ok {
		return ErrNotFound
	}
	cp := *r
	m.referrals[r.ID] = &cp
	return nil
}

func (m *Memory) ReferralsByReferrer(referrerID string) ([]*models.Referral, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Referral
	for _, r := range m.referrals {
		if r.ReferrerID == referrerID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) ReferralByReferred(referredID string) (*models.Referral, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.referrals {
		if r.ReferredID == referredID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) AllReferrals() ([]*models.Referral, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Referral, 0, len(m.referrals))
	for _, r := range m.referrals {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

// Earning settings

func (m *Memory) GetSetting(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.settings[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) SetSetting(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *Memory) AllSettings() (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}
