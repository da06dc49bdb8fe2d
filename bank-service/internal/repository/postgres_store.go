package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Vashist1110/AVS-Bank/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const schema = `
CREATE SEQUENCE IF NOT EXISTS account_number_seq START WITH 1001;

CREATE TABLE IF NOT EXISTS accounts (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	email           TEXT,
	phone           TEXT NOT NULL,
	gender          TEXT NOT NULL,
	dob             TEXT NOT NULL,
	adhaar          TEXT NOT NULL,
	pan             TEXT NOT NULL,
	account_number  TEXT NOT NULL,
	account_type    TEXT NOT NULL,
	type_of_account TEXT NOT NULL DEFAULT '',
	balance         BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
	kyc_status      TEXT NOT NULL DEFAULT 'not_submitted',
	password_hash   TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	CONSTRAINT accounts_phone_key UNIQUE (phone),
	CONSTRAINT accounts_email_key UNIQUE (email),
	CONSTRAINT accounts_adhaar_key UNIQUE (adhaar),
	CONSTRAINT accounts_pan_key UNIQUE (pan),
	CONSTRAINT accounts_account_number_key UNIQUE (account_number)
);

CREATE TABLE IF NOT EXISTS admins (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
ALTER TABLE admins DROP CONSTRAINT IF EXISTS admins_username_key;
CREATE UNIQUE INDEX IF NOT EXISTS admins_username_lower_key ON admins (LOWER(username));

CREATE TABLE IF NOT EXISTS transactions (
	id            BIGINT PRIMARY KEY,
	account_id    TEXT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
	amount        BIGINT NOT NULL CHECK (amount > 0),
	type          TEXT NOT NULL,
	kind          TEXT NOT NULL,
	counterparty  TEXT NOT NULL DEFAULT '',
	balance_after BIGINT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS transactions_account_idx ON transactions (account_id, id DESC);

CREATE TABLE IF NOT EXISTS kyc_requests (
	id             TEXT PRIMARY KEY,
	account_id     TEXT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
	pancard_path   TEXT NOT NULL,
	photo_path     TEXT NOT NULL,
	signature_path TEXT NOT NULL,
	status         TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	resolved_at    TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS kyc_requests_one_pending ON kyc_requests (account_id) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS update_requests (
	id          TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
	changes     JSONB NOT NULL,
	previous    JSONB NOT NULL,
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	resolved_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS update_requests_one_pending ON update_requests (account_id) WHERE status = 'pending';
`

const accountColumns = `id, name, COALESCE(email, '') AS email, phone, gender, dob, adhaar, pan,
	account_number, account_type, type_of_account, balance, kyc_status, password_hash,
	created_at, updated_at`

const kycColumns = `id, account_id, pancard_path, photo_path, signature_path, status, created_at, resolved_at`

const updateColumns = `id, account_id, changes, previous, status, created_at, resolved_at`

// PostgresStore is the Store backed by PostgreSQL. Row locks serialize work
// per account; partial unique indexes back the one-pending-request rule.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&pgTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapConstraintError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (id, name, email, phone, gender, dob, adhaar, pan, account_number,
			account_type, type_of_account, balance, kyc_status, password_hash, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, 'AVS' || nextval('account_number_seq'),
			$9, $10, $11, $12, $13, $14, $15)
		RETURNING account_number
	`
	err := s.db.QueryRowxContext(ctx, query,
		a.ID, a.Name, a.Email, a.Phone, a.Gender, a.DOB, a.Adhaar, a.PAN,
		a.AccountType, a.TypeOfAccount, a.Balance, a.KYCStatus, a.PasswordHash,
		a.CreatedAt, a.UpdatedAt,
	).Scan(&a.AccountNumber)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to create account: %w", err))
	}
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (s *PostgresStore) GetAccountByPhone(ctx context.Context, phone string) (*models.Account, error) {
	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE phone = $1`, phone)
}

func (s *PostgresStore) GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, accountNumber)
}

func (s *PostgresStore) getAccount(ctx context.Context, query string, arg any) (*models.Account, error) {
	var account models.Account
	err := s.db.GetContext(ctx, &account, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (s *PostgresStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	accounts := []models.Account{}
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at, account_number`
	if err := s.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, accountID string, limit int) ([]models.Transaction, error) {
	rows := []models.Transaction{}
	query := `
		SELECT id, account_id, amount, type, kind, counterparty, balance_after, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY id DESC
	`
	args := []any{accountID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return rows, nil
}

func (s *PostgresStore) ListPendingKYC(ctx context.Context) ([]models.KYCRequestView, error) {
	views := []models.KYCRequestView{}
	query := `
		SELECT k.id, k.account_id, k.pancard_path, k.photo_path, k.signature_path, k.status,
			k.created_at, k.resolved_at, a.account_number, a.name AS account_name
		FROM kyc_requests k
		JOIN accounts a ON a.id = k.account_id
		WHERE k.status = 'pending'
		ORDER BY k.created_at
	`
	if err := s.db.SelectContext(ctx, &views, query); err != nil {
		return nil, fmt.Errorf("failed to list kyc requests: %w", err)
	}
	return views, nil
}

func (s *PostgresStore) ListPendingUpdates(ctx context.Context) ([]models.UpdateRequestView, error) {
	views := []models.UpdateRequestView{}
	query := `
		SELECT u.id, u.account_id, u.changes, u.previous, u.status, u.created_at, u.resolved_at,
			a.account_number, a.name AS account_name
		FROM update_requests u
		JOIN accounts a ON a.id = u.account_id
		WHERE u.status = 'pending'
		ORDER BY u.created_at
	`
	if err := s.db.SelectContext(ctx, &views, query); err != nil {
		return nil, fmt.Errorf("failed to list update requests: %w", err)
	}
	return views, nil
}

func (s *PostgresStore) HasPendingKYC(ctx context.Context, accountID string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM kyc_requests WHERE account_id = $1 AND status = 'pending')`, accountID)
}

func (s *PostgresStore) HasPendingUpdate(ctx context.Context, accountID string) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM update_requests WHERE account_id = $1 AND status = 'pending')`, accountID)
}

func (s *PostgresStore) exists(ctx context.Context, query string, arg any) (bool, error) {
	var found bool
	if err := s.db.GetContext(ctx, &found, query, arg); err != nil {
		return false, fmt.Errorf("failed to check pending request: %w", err)
	}
	return found, nil
}

type statsRow struct {
	Gender      string `db:"gender"`
	AccountType string `db:"account_type"`
	Accounts    int    `db:"accounts"`
	Balance     int64  `db:"balance"`
}

// Stats runs as one statement so every partition comes from the same snapshot.
func (s *PostgresStore) Stats(ctx context.Context) (*models.DashboardStats, error) {
	rows := []statsRow{}
	query := `
		SELECT gender, account_type, COUNT(*) AS accounts, COALESCE(SUM(balance), 0)::BIGINT AS balance
		FROM accounts
		GROUP BY gender, account_type
	`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	stats := models.NewDashboardStats()
	for _, r := range rows {
		stats.AddGroup(r.Gender, r.AccountType, r.Accounts, r.Balance)
	}
	return stats, nil
}

func (s *PostgresStore) CreateAdmin(ctx context.Context, a *models.Admin) error {
	query := `
		INSERT INTO admins (id, username, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query, a.ID, a.Username, a.Name, a.PasswordHash, a.CreatedAt); err != nil {
		return mapConstraintError(fmt.Errorf("failed to create admin: %w", err))
	}
	return nil
}

func (s *PostgresStore) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	query := `SELECT id, username, name, password_hash, created_at FROM admins WHERE LOWER(username) = LOWER($1)`
	err := s.db.GetContext(ctx, &admin, query, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return &admin, nil
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) LockAccount(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	err := t.tx.GetContext(ctx, &account, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return &account, nil
}

func (t *pgTx) FindAccountIDByNumber(ctx context.Context, accountNumber string) (string, error) {
	var id string
	err := t.tx.GetContext(ctx, &id, `SELECT id FROM accounts WHERE account_number = $1`, accountNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrAccountNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find account: %w", err)
	}
	return id, nil
}

func (t *pgTx) SaveAccount(ctx context.Context, a *models.Account) error {
	query := `
		UPDATE accounts
		SET name = $2, email = NULLIF($3, ''), phone = $4, gender = $5, dob = $6, adhaar = $7, pan = $8,
			account_type = $9, type_of_account = $10, balance = $11, kyc_status = $12, updated_at = $13
		WHERE id = $1
	`
	result, err := t.tx.ExecContext(ctx, query,
		a.ID, a.Name, a.Email, a.Phone, a.Gender, a.DOB, a.Adhaar, a.PAN,
		a.AccountType, a.TypeOfAccount, a.Balance, a.KYCStatus, a.UpdatedAt,
	)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to update account: %w", err))
	}
	return expectOneRow(result, ErrAccountNotFound)
}

func (t *pgTx) DeleteAccount(ctx context.Context, id string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return expectOneRow(result, ErrAccountNotFound)
}

func (t *pgTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, account_id, amount, type, kind, counterparty, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := t.tx.ExecContext(ctx, query,
		txn.ID, txn.AccountID, txn.Amount, txn.Type, txn.Kind, txn.Counterparty, txn.BalanceAfter, txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

func (t *pgTx) PendingKYC(ctx context.Context, accountID string) (*models.KYCRequest, error) {
	var req models.KYCRequest
	query := `SELECT ` + kycColumns + ` FROM kyc_requests WHERE account_id = $1 AND status = 'pending'`
	err := t.tx.GetContext(ctx, &req, query, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending kyc request: %w", err)
	}
	return &req, nil
}

func (t *pgTx) InsertKYCRequest(ctx context.Context, r *models.KYCRequest) error {
	query := `
		INSERT INTO kyc_requests (id, account_id, pancard_path, photo_path, signature_path, status, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := t.tx.ExecContext(ctx, query,
		r.ID, r.AccountID, r.PancardPath, r.PhotoPath, r.SignaturePath, r.Status, r.CreatedAt, r.ResolvedAt,
	)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to create kyc request: %w", err))
	}
	return nil
}

func (t *pgTx) LockKYCRequest(ctx context.Context, id string) (*models.KYCRequest, error) {
	var req models.KYCRequest
	err := t.tx.GetContext(ctx, &req, `SELECT `+kycColumns+` FROM kyc_requests WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock kyc request: %w", err)
	}
	return &req, nil
}

func (t *pgTx) SaveKYCRequest(ctx context.Context, r *models.KYCRequest) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE kyc_requests SET status = $2, resolved_at = $3 WHERE id = $1`,
		r.ID, r.Status, r.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update kyc request: %w", err)
	}
	return expectOneRow(result, ErrRequestNotFound)
}

func (t *pgTx) PendingUpdate(ctx context.Context, accountID string) (*models.UpdateRequest, error) {
	var req models.UpdateRequest
	query := `SELECT ` + updateColumns + ` FROM update_requests WHERE account_id = $1 AND status = 'pending'`
	err := t.tx.GetContext(ctx, &req, query, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending update request: %w", err)
	}
	return &req, nil
}

func (t *pgTx) InsertUpdateRequest(ctx context.Context, r *models.UpdateRequest) error {
	query := `
		INSERT INTO update_requests (id, account_id, changes, previous, status, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := t.tx.ExecContext(ctx, query,
		r.ID, r.AccountID, r.Changes, r.Previous, r.Status, r.CreatedAt, r.ResolvedAt,
	)
	if err != nil {
		return mapConstraintError(fmt.Errorf("failed to create update request: %w", err))
	}
	return nil
}

func (t *pgTx) LockUpdateRequest(ctx context.Context, id string) (*models.UpdateRequest, error) {
	var req models.UpdateRequest
	err := t.tx.GetContext(ctx, &req, `SELECT `+updateColumns+` FROM update_requests WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock update request: %w", err)
	}
	return &req, nil
}

func (t *pgTx) SaveUpdateRequest(ctx context.Context, r *models.UpdateRequest) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE update_requests SET status = $2, resolved_at = $3 WHERE id = $1`,
		r.ID, r.Status, r.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update update request: %w", err)
	}
	return expectOneRow(result, ErrRequestNotFound)
}

func expectOneRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// mapConstraintError turns unique violations into the matching domain error.
func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return err
	}
	switch pqErr.Constraint {
	case "accounts_phone_key":
		return ErrPhoneTaken
	case "accounts_email_key":
		return ErrEmailTaken
	case "accounts_adhaar_key":
		return ErrAdhaarTaken
	case "accounts_pan_key":
		return ErrPANTaken
	case "admins_username_key", "admins_username_lower_key":
		return ErrUsernameTaken
	case "kyc_requests_one_pending":
		return ErrKYCPending
	case "update_requests_one_pending":
		return ErrUpdatePending
	}
	return err
}
