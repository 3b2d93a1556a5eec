package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"earnlink/internal/models"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

// MySQL implements Store over database/sql. Amounts are DECIMAL(20,6)
// columns, scanned through strings into decimal.Decimal.
type MySQL struct {
	db *sql.DB
}

func OpenMySQL(dbURL string) (*MySQL, error) {
	db, err := sql.Open("mysql", dbURL+"?parseTime=true")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("database not responding: %w", err)
	}
	return &MySQL{db: db}, nil
}

func (m *MySQL) Close() error {
	return m.db.Close()
}

func (m *MySQL) RunMigrations() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			is_admin BOOLEAN DEFAULT FALSE,
			is_banned BOOLEAN DEFAULT FALSE,
			referral_code VARCHAR(16) NOT NULL UNIQUE,
			referred_by VARCHAR(36),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS user_balances (
			id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) PRIMARY KEY,
			balance DECIMAL(20,6) NOT NULL DEFAULT 0,
			total_earned DECIMAL(20,6) NOT NULL DEFAULT 0,
			total_withdrawn DECIMAL(20,6) NOT NULL DEFAULT 0,
			payout_address VARCHAR(255),
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			kind VARCHAR(32) NOT NULL,
			amount DECIMAL(20,6) NOT NULL,
			description TEXT,
			network VARCHAR(64),
			offer_id VARCHAR(128),
			source_ip VARCHAR(64),
			status VARCHAR(32) NOT NULL,
			created_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_tx_user_id (user_id),
			INDEX idx_tx_created_at (created_at)
		);`,
		`CREATE TABLE IF NOT EXISTS offerwall_completions (
			id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			network VARCHAR(64) NOT NULL,
			offer_id VARCHAR(128) NOT NULL,
			transaction_id VARCHAR(128),
			payout DECIMAL(20,6) NOT NULL,
			source_ip VARCHAR(64),
			completed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, network, offer_id)
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id VARCHAR(36) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			instructions TEXT,
			proof_instructions TEXT,
			reward_amount DECIMAL(20,6) NOT NULL,
			proof_type VARCHAR(32) DEFAULT 'screenshot',
			is_active BOOLEAN DEFAULT TRUE,
			max_completions INT,
			completed_count INT NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS task_submissions (
			id VARCHAR(36) PRIMARY KEY,
			task_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(36) NOT NULL,
			proof_data TEXT,
			proof_url TEXT,
			proof_text TEXT,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			admin_notes TEXT,
			submitted_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			reviewed_at DATETIME,
			INDEX idx_sub_task_id (task_id),
			INDEX idx_sub_user_id (user_id),
			INDEX idx_sub_status (status)
		);`,
		`CREATE TABLE IF NOT EXISTS withdrawal_requests (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			amount DECIMAL(20,6) NOT NULL,
			coin_type VARCHAR(16) NOT NULL,
			payout_address VARCHAR(255) NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			admin_notes TEXT,
			tx_hash VARCHAR(128),
			requested_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			processed_at DATETIME,
			INDEX idx_wd_user_id (user_id),
			INDEX idx_wd_status (status)
		);`,
		`CREATE TABLE IF NOT EXISTS referrals (
			id VARCHAR(36) PRIMARY KEY,
			referrer_id VARCHAR(36) NOT NULL,
			referred_id VARCHAR(36) NOT NULL,
			code VARCHAR(16) NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			ip VARCHAR(64),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			validated_at DATETIME,
			INDEX idx_ref_referrer (referrer_id),
			INDEX idx_ref_referred (referred_id)
		);`,
		`CREATE TABLE IF NOT EXISTS earning_settings (
			setting_key VARCHAR(64) PRIMARY KEY,
			setting_value TEXT NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := m.db.Exec(q); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	defaults := map[string]string{
		SettingMinWithdrawal:  "1.00",
		SettingSupportedCoins: "BTC,ETH,DOGE,LTC,USDT,TRX",
		SettingRevenueShare:   "0.50",
		SettingReferralReward: "0.10",
	}
	for k, v := range defaults {
		_, err := m.db.Exec(
			"INSERT IGNORE INTO earning_settings (setting_key, setting_value) VALUES (?, ?)", k, v)
		if err != nil {
			return fmt.Errorf("seeding settings failed: %w", err)
		}
	}

	log.Println("migrations completed")
	return nil
}

func scanDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Users

func (m *MySQL) GetUser(id string) (*models.User, error) {
	return m.scanUser("SELECT id, email, password_hash, is_admin, is_banned, referral_code, referred_by, created_at FROM users WHERE id = ?", id)
}

func (m *MySQL) GetUserByEmail(email string) (*models.User, error) {
	return m.scanUser("SELECT id, email, password_hash, is_admin, is_banned, referral_code, referred_by, created_at FROM users WHERE LOWER(email) = LOWER(?)", email)
}

func (m *MySQL) GetUserByReferralCode(code string) (*models.User, error) {
	return m.scanUser("SELECT id, email, password_hash, is_admin, is_banned, referral_code, referred_by, created_at FROM users WHERE referral_code = ?", code)
}

func (m *MySQL) scanUser(query string, arg any) (*models.User, error) {
	var u models.User
	var referredBy sql.NullString
	err := m.db.QueryRow(query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.IsBanned,
		&u.ReferralCode, &referredBy, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	u.ReferredBy = referredBy.String
	return &u, nil
}

func (m *MySQL) CreateUser(u *models.User) error {
	_, err := m.db.Exec(
		"INSERT INTO users (id, email, password_hash, is_admin, is_banned, referral_code, referred_by, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		u.ID, u.Email, u.PasswordHash, u.IsAdmin, u.IsBanned, u.ReferralCode, nullStr(u.ReferredBy), u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (m *MySQL) UpdateUser(u *models.User) error {
	res, err := m.db.Exec(
		"UPDATE users SET email = ?, password_hash = ?, is_admin = ?, is_banned = ?, referral_code = ?, referred_by = ? WHERE id = ?",
		u.Email, u.PasswordHash, u.IsAdmin, u.IsBanned, u.ReferralCode, nullStr(u.ReferredBy), u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRow(res)
}

// Balances

func (m *MySQL) GetBalance(userID string) (*models.UserBalance, error) {
	var b models.UserBalance
	var balance, earned, withdrawn string
	var payout sql.NullString
	err := m.db.QueryRow(
		"SELECT id, user_id, balance, total_earned, total_withdrawn, payout_address, updated_at FROM user_balances WHERE user_id = ?",
		userID,
	).Scan(&b.ID, &b.UserID, &balance, &earned, &withdrawn, &payout, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	b.Balance = scanDecimal(balance)
	b.TotalEarned = scanDecimal(earned)
	b.TotalWithdrawn = scanDecimal(withdrawn)
	b.PayoutAddress = payout.String
	return &b, nil
}

func (m *MySQL) CreateBalance(b *models.UserBalance) error {
	_, err := m.db.Exec(
		"INSERT INTO user_balances (id, user_id, balance, total_earned, total_withdrawn, payout_address, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		b.ID, b.UserID, b.Balance.String(), b.TotalEarned.String(), b.TotalWithdrawn.String(), nullStr(b.PayoutAddress), b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create balance: %w", err)
	}
	return nil
}

func (m *MySQL) PutBalance(b *models.UserBalance) error {
	_, err := m.db.Exec(
		`INSERT INTO user_balances (id, user_id, balance, total_earned, total_withdrawn, payout_address, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE balance = VALUES(balance), total_earned = VALUES(total_earned),
		 total_withdrawn = VALUES(total_withdrawn), payout_address = VALUES(payout_address), updated_at = VALUES(updated_at)`,
		b.ID, b.UserID, b.Balance.String(), b.TotalEarned.String(), b.TotalWithdrawn.String(), nullStr(b.PayoutAddress), b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to persist balance: %w", err)
	}
	return nil
}

// Transactions

func (m *MySQL) AppendTransaction(tx *models.Transaction) error {
	_, err := m.db.Exec(
		"INSERT INTO transactions (id, user_id, kind, amount, description, network, offer_id, source_ip, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		tx.ID, tx.UserID, string(tx.Kind), tx.Amount.String(), tx.Description,
		nullStr(tx.Network), nullStr(tx.OfferID), nullStr(tx.SourceIP), string(tx.Status), tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (m *MySQL) GetTransaction(id string) (*models.Transaction, error) {
	rows, err := m.db.Query(
		"SELECT id, user_id, kind, amount, description, network, offer_id, source_ip, status, created_at FROM transactions WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, ErrNotFound
	}
	return txs[0], nil
}

func (m *MySQL) TransactionsByUser(userID string) ([]*models.Transaction, error) {
	rows, err := m.db.Query(
		"SELECT id, user_id, kind, amount, description, network, offer_id, source_ip, status, created_at FROM transactions WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (m *MySQL) AllTransactions() ([]*models.Transaction, error) {
	rows, err := m.db.Query(
		"SELECT id, user_id, kind, amount, description, network, offer_id, source_ip, status, created_at FROM transactions ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var amount string
		var network, offerID, sourceIP sql.NullString
		err := rows.Scan(&tx.ID, &tx.UserID, &tx.Kind, &amount, &tx.Description,
			&network, &offerID, &sourceIP, &tx.Status, &tx.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction: %w", err)
		}
		tx.Amount = scanDecimal(amount)
		tx.Network = network.String
		tx.OfferID = offerID.String
		tx.SourceIP = sourceIP.String
		out = append(out, &tx)
	}
	return out, rows.Err()
}

// Offerwall completions

func (m *MySQL) GetCompletion(userID, network, offerID string) (*models.CompletionRecord, error) {
	var c models.CompletionRecord
	var payout string
	var txID, sourceIP sql.NullString
	err := m.db.QueryRow(
		"SELECT id, user_id, network, offer_id, transaction_id, payout, source_ip, completed_at FROM offerwall_completions WHERE user_id = ? AND network = ? AND offer_id = ?",
		userID, network, offerID,
	).Scan(&c.ID, &c.UserID, &c.Network, &c.OfferID, &txID, &payout, &sourceIP, &c.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	c.TransactionID = txID.String
	c.Payout = scanDecimal(payout)
	c.SourceIP = sourceIP.String
	return &c, nil
}

func (m *MySQL) PutCompletion(c *models.CompletionRecord) error {
	_, err := m.db.Exec(
		"INSERT INTO offerwall_completions (id, user_id, network, offer_id, transaction_id, payout, source_ip, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.UserID, c.Network, c.OfferID, nullStr(c.TransactionID), c.Payout.String(), nullStr(c.SourceIP), c.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return nil
}

func (m *MySQL) DeleteCompletion(userID, network, offerID string) error {
	_, err := m.db.Exec(
		"DELETE FROM offerwall_completions WHERE user_id = ? AND network = ? AND offer_id = ?",
		userID, network, offerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete completion: %w", err)
	}
	return nil
}

// Tasks

func (m *MySQL) GetTask(id string) (*models.Task, error) {
	rows, err := m.db.Query(taskSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, ErrNotFound
	}
	return tasks[0], nil
}

const taskSelect = "SELECT id, title, description, instructions, proof_instructions, reward_amount, proof_type, is_active, max_completions, completed_count, created_at FROM tasks"

func (m *MySQL) CreateTask(t *models.Task) error {
	var maxC sql.NullInt64
	if t.MaxCompletions != nil {
		maxC = sql.NullInt64{Int64: int64(*t.MaxCompletions), Valid: true}
	}
	_, err := m.db.Exec(
		"INSERT INTO tasks (id, title, description, instructions, proof_instructions, reward_amount, proof_type, is_active, max_completions, completed_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		t.ID, t.Title, t.Description, nullStr(t.Instructions), nullStr(t.ProofInstructions),
		t.RewardAmount.String(), t.ProofType, t.IsActive, maxC, t.CompletedCount, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (m *MySQL) PutTask(t *models.Task) error {
	var maxC sql.NullInt64
	if t.MaxCompletions != nil {
		maxC = sql.NullInt64{Int64: int64(*t.MaxCompletions), Valid: true}
	}
	res, err := m.db.Exec(
		"UPDATE tasks SET title = ?, description = ?, instructions = ?, proof_instructions = ?, reward_amount = ?, proof_type = ?, is_active = ?, max_completions = ?, completed_count = ? WHERE id = ?",
		t.Title, t.Description, nullStr(t.Instructions), nullStr(t.ProofInstructions),
		t.RewardAmount.String(), t.ProofType, t.IsActive, maxC, t.CompletedCount, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireRow(res)
}

func (m *MySQL) ActiveTasks() ([]*models.Task, error) {
	rows, err := m.db.Query(taskSelect + " WHERE is_active = TRUE ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (m *MySQL) AllTasks() ([]*models.Task, error) {
	rows, err := m.db.Query(taskSelect + " ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]*models.Task, error) {
	var out []*models.Task
	for rows.Next() {
		var t models.Task
		var reward string
		var instructions, proofInstructions sql.NullString
		var maxC sql.NullInt64
		err := rows.Scan(&t.ID, &t.Title, &t.Description, &instructions, &proofInstructions,
			&reward, &t.ProofType, &t.IsActive, &maxC, &t.CompletedCount, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning task: %w", err)
		}
		t.Instructions = instructions.String
		t.ProofInstructions = proofInstructions.String
		t.RewardAmount = scanDecimal(reward)
		if maxC.Valid {
			v := int(maxC.Int64)
			t.MaxCompletions = &v
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// Task submissions

const submissionSelect = "SELECT id, task_id, user_id, proof_data, proof_url, proof_text, status, admin_notes, submitted_at, reviewed_at FROM task_submissions"

func (m *MySQL) GetSubmission(id string) (*models.TaskSubmission, error) {
	rows, err := m.db.Query(submissionSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	subs, err := scanSubmissions(rows)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ErrNotFound
	}
	return subs[0], nil
}

func (m *MySQL) CreateSubmission(s *models.TaskSubmission) error {
	_, err := m.db.Exec(
		"INSERT INTO task_submissions (id, task_id, user_id, proof_data, proof_url, proof_text, status, admin_notes, submitted_at, reviewed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		s.ID, s.TaskID, s.UserID, s.ProofData, nullStr(s.ProofURL), nullStr(s.ProofText),
		string(s.Status), nullStr(s.AdminNotes), s.SubmittedAt, nullTime(s.ReviewedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (m *MySQL) PutSubmission(s *models.TaskSubmission) error {
	res, err := m.db.Exec(
		"UPDATE task_submissions SET status = ?, admin_notes = ?, reviewed_at = ? WHERE id = ?",
		string(s.Status), nullStr(s.AdminNotes), nullTime(s.ReviewedAt), s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	return requireRow(res)
}

func (m *MySQL) SubmissionsByUser(userID string) ([]*models.TaskSubmission, error) {
	rows, err := m.db.Query(submissionSelect+" WHERE user_id = ? ORDER BY submitted_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (m *MySQL) PendingSubmissions() ([]*models.TaskSubmission, error) {
	rows, err := m.db.Query(submissionSelect + " WHERE status = 'pending' ORDER BY submitted_at DESC")
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (m *MySQL) HasUserSubmitted(userID, taskID string) (bool, error) {
	var n int
	err := m.db.QueryRow(
		"SELECT COUNT(*) FROM task_submissions WHERE user_id = ? AND task_id = ?",
		userID, taskID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("database error: %w", err)
	}
	return n > 0, nil
}

func scanSubmissions(rows *sql.Rows) ([]*models.TaskSubmission, error) {
	var out []*models.TaskSubmission
	for rows.Next() {
		var s models.TaskSubmission
		var proofURL, proofText, adminNotes sql.NullString
		var reviewedAt sql.NullTime
		err := rows.Scan(&s.ID, &s.TaskID, &s.UserID, &s.ProofData, &proofURL, &proofText,
			&s.Status, &adminNotes, &s.SubmittedAt, &reviewedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning submission: %w", err)
		}
		s.ProofURL = proofURL.String
		s.ProofText = proofText.String
		s.AdminNotes = adminNotes.String
		if reviewedAt.Valid {
			t := reviewedAt.Time
			s.ReviewedAt = &t
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Withdrawal requests

const withdrawalSelect = "SELECT id, user_id, amount, coin_type, payout_address, status, admin_notes, tx_hash, requested_at, processed_at FROM withdrawal_requests"

func (m *MySQL) GetWithdrawal(id string) (*models.WithdrawalRequest, error) {
	rows, err := m.db.Query(withdrawalSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	ws, err := scanWithdrawals(rows)
	if err != nil {
		return nil, err
	}
	if len(ws) == 0 {
		return nil, ErrNotFound
	}
	return ws[0], nil
}

func (m *MySQL) CreateWithdrawal(w *models.WithdrawalRequest) error {
	_, err := m.db.Exec(
		"INSERT INTO withdrawal_requests (id, user_id, amount, coin_type, payout_address, status, admin_notes, tx_hash, requested_at, processed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		w.ID, w.UserID, w.Amount.String(), w.CoinType, w.PayoutAddress,
		string(w.Status), nullStr(w.AdminNotes), nullStr(w.TxHash), w.RequestedAt, nullTime(w.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return nil
}

func (m *MySQL) PutWithdrawal(w *models.WithdrawalRequest) error {
	res, err := m.db.Exec(
		"UPDATE withdrawal_requests SET status = ?, admin_notes = ?, tx_hash = ?, processed_at = ? WHERE id = ?",
		string(w.Status), nullStr(w.AdminNotes), nullStr(w.TxHash), nullTime(w.ProcessedAt), w.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal request: %w", err)
	}
	return requireRow(res)
}

func (m *MySQL) WithdrawalsByUser(userID string) ([]*models.WithdrawalRequest, error) {
	rows, err := m.db.Query(withdrawalSelect+" WHERE user_id = ? ORDER BY requested_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	return scanWithdrawals(rows)
}

func (m *MySQL) PendingWithdrawals() ([]*models.WithdrawalRequest, error) {
	rows, err := m.db.Query(withdrawalSelect + " WHERE status = 'pending' ORDER BY requested_at DESC")
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	return scanWithdrawals(rows)
}

func scanWithdrawals(rows *sql.Rows) ([]*models.WithdrawalRequest, error) {
	var out []*models.WithdrawalRequest
	for rows.Next() {
		var w models.WithdrawalRequest
		var amount string
		var adminNotes, txHash sql.NullString
		var processedAt sql.NullTime
		err := rows.Scan(&w.ID, &w.UserID, &amount, &w.CoinType, &w.PayoutAddress,
			&w.Status, &adminNotes, &txHash, &w.RequestedAt, &processedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning withdrawal: %w", err)
		}
		w.Amount = scanDecimal(amount)
		w.AdminNotes = adminNotes.String
		w.TxHash = txHash.String
		if processedAt.Valid {
			t := processedAt.Time
			w.ProcessedAt = &t
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}

// Referrals

const referralSelect = "SELECT id, referrer_id, referred_id, code, status, ip, created_at, validated_at FROM referrals"

func (m *MySQL) GetReferral(id string) (*models.Referral, error) {
	rows, err := m.db.Query(referralSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	refs, err := scanReferrals(rows)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, ErrNotFound
	}
	return refs[0], nil
}

func (m *MySQL) CreateReferral(r *models.Referral) error {
	_, err := m.db.Exec(
		"INSERT INTO referrals (id, referrer_id, referred_id, code, status, ip, created_at, validated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.ReferrerID, r.ReferredID, r.Code, string(r.Status), nullStr(r.IP), r.CreatedAt, nullTime(r.ValidatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create referral: %w", err)
	}
	return nil
}

func (m *MySQL) PutReferral(r *models.Referral) error {
	res, err := m.db.Exec(
		"UPDATE referrals SET status = ?, validated_at = ? WHERE id = ?",
		string(r.Status), nullTime(r.ValidatedAt), r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update referral: %w", err)
	}
	return requireRow(res)
}

func (m *MySQL) ReferralsByReferrer(referrerID string) ([]*models.Referral, error) {
	rows, err := m.db.Query(referralSelect+" WHERE referrer_id = ? ORDER BY created_at DESC", referrerID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	return scanReferrals(rows)
}

func (m *MySQL) ReferralByReferred(referredID string) (*models.Referral, error) {
	rows, err := m.db.Query(referralSelect+" WHERE referred_id = ?", referredID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	refs, err := scanReferrals(rows)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, ErrNotFound
	}
	return refs[0], nil
}

func (m *MySQL) AllReferrals() ([]*models.Referral, error) {
	rows, err := m.db.Query(referralSelect + " ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	return scanReferrals(rows)
}

func scanReferrals(rows *sql.Rows) ([]*models.Referral, error) {
	var out []*models.Referral
	for rows.Next() {
		var r models.Referral
		var ip sql.NullString
		var validatedAt sql.NullTime
		err := rows.Scan(&r.ID, &r.ReferrerID, &r.ReferredID, &r.Code, &r.Status, &ip, &r.CreatedAt, &validatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning referral: %w", err)
		}
		r.IP = ip.String
		if validatedAt.Valid {
			t := validatedAt.Time
			r.ValidatedAt = &t
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Earning settings

func (m *MySQL) GetSetting(key string) (string, error) {
	var v string
	err := m.db.QueryRow("SELECT setting_value FROM earning_settings WHERE setting_key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("database error: %w", err)
	}
	return v, nil
}

func (m *MySQL) SetSetting(key, value string) error {
	_, err := m.db.Exec(
		"INSERT INTO earning_settings (setting_key, setting_value) VALUES (?, ?) ON DUPLICATE KEY UPDATE setting_value = VALUES(setting_value)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

func (m *MySQL) AllSettings() (map[string]string, error) {
	rows, err := m.db.Query("SELECT setting_key, setting_value FROM earning_settings")
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("error scanning setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
