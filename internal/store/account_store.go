package store

import (
	"context"

	"smsgateway/internal/models"

	"github.com/google/uuid"
)

type AccountStore struct {
	db DB
}

type AccountBalanceSummary struct {
	ID                string  `db:"id" json:"id"`
	UserID            *string `db:"user_id" json:"user_id,omitempty"`
	SystemCode        *string `db:"system_code" json:"system_code,omitempty"`
	Currency          string  `db:"currency" json:"currency"`
	StoredBalance     int64   `db:"stored_balance" json:"stored_balance"`
	CalculatedBalance int64   `db:"calculated_balance" json:"calculated_balance"`
	Difference        int64   `db:"difference" json:"difference"`
	IsSystem          bool    `db:"is_system" json:"is_system"`
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) CreateWallet(ctx context.Context, tx Execer, id, userID, currency string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, currency, balance, is_system)
		VALUES ($1, $2, $3, 0, FALSE)
	`, id, userID, currency)
	return err
}

// EnsureSystemAccount creates the counter-account for code/currency if missing and returns its id.
func (s *AccountStore) EnsureSystemAccount(ctx context.Context, code, currency string) (string, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, system_code, currency, balance, is_system)
		VALUES ($1, $2, $3, 0, TRUE)
		ON CONFLICT (system_code, currency) DO NOTHING
	`, uuid.NewString(), code, currency); err != nil {
		return "", err
	}
	return s.GetSystemAccount(ctx, s.db, code, currency)
}

func (s *AccountStore) GetSystemAccount(ctx context.Context, q Getter, code, currency string) (string, error) {
	var id string
	err := q.GetContext(ctx, &id, `
		SELECT id
		FROM accounts
		WHERE is_system = TRUE AND system_code = $1 AND currency = $2
	`, code, currency)
	return id, err
}

func (s *AccountStore) GetWallet(ctx context.Context, userID, currency string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, system_code, currency, balance, is_system, created_at
		FROM accounts
		WHERE user_id = $1 AND currency = $2
	`, userID, currency)
	return row, err
}

func (s *AccountStore) GetWalletForUpdate(ctx context.Context, tx Getter, userID, currency string) (models.Account, error) {
	var row models.Account
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, system_code, currency, balance, is_system, created_at
		FROM accounts
		WHERE user_id = $1 AND currency = $2
		FOR UPDATE
	`, userID, currency)
	return row, err
}

// AdjustBalance applies delta only if a non-system balance stays non-negative.
// Zero affected rows means the guard rejected the change.
func (s *AccountStore) AdjustBalance(ctx context.Context, tx Execer, accountID string, delta int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND (is_system OR balance + $1 >= 0)
	`, delta, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const balanceSummarySelect = `
	SELECT a.id,
	       a.user_id,
	       a.system_code,
	       a.currency,
	       a.balance AS stored_balance,
	       COALESCE(SUM(l.amount), 0) AS calculated_balance,
	       (a.balance - COALESCE(SUM(l.amount), 0)) AS difference,
	       a.is_system
	FROM accounts a
	LEFT JOIN ledger_entries l ON l.account_id = a.id
`

func (s *AccountStore) BalanceSummary(ctx context.Context, userID string) ([]AccountBalanceSummary, error) {
	var rows []AccountBalanceSummary
	err := s.db.SelectContext(ctx, &rows, balanceSummarySelect+`
		WHERE a.user_id = $1
		GROUP BY a.id, a.user_id, a.system_code, a.currency, a.balance, a.is_system
		ORDER BY a.currency
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListMismatched returns every account whose stored balance differs from its ledger.
func (s *AccountStore) ListMismatched(ctx context.Context) ([]AccountBalanceSummary, error) {
	var rows []AccountBalanceSummary
	err := s.db.SelectContext(ctx, &rows, balanceSummarySelect+`
		GROUP BY a.id, a.user_id, a.system_code, a.currency, a.balance, a.is_system
		HAVING a.balance <> COALESCE(SUM(l.amount), 0)
		ORDER BY a.is_system DESC, a.id
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReleaseUserEntries reverses a user's contribution to system account balances.
// It runs before the user's rows cascade away so system accounts keep reconciling.
func (s *AccountStore) ReleaseUserEntries(ctx context.Context, tx Execer, userID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts a
		SET balance = a.balance - s.total, updated_at = NOW()
		FROM (
			SELECT l.account_id, SUM(l.amount) AS total
			FROM ledger_entries l
			JOIN transactions t ON t.id = l.transaction_id
			WHERE t.user_id = $1
			GROUP BY l.account_id
		) s
		WHERE a.id = s.account_id AND a.is_system
	`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
