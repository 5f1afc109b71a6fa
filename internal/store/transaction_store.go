package store

import (
	"context"
	"strconv"

	"smsgateway/internal/models"
)

type TransactionStore struct {
	db DB
}

type TransactionInput struct {
	ID        string
	UserID    string
	Type      string
	Amount    int64
	Currency  string
	Reference *string
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input TransactionInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, currency, reference)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, input.ID, input.UserID, input.Type, input.Amount, input.Currency, input.Reference)
	return err
}

func (s *TransactionStore) ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error) {
	query := `
		SELECT id, user_id, type, amount, currency, reference, created_at
		FROM transactions
		WHERE user_id = $1
	`
	args := []any{userID}
	if txType != "" {
		args = append(args, txType)
		query += " AND type = $" + strconv.Itoa(len(args))
	}
	args = append(args, limit, offset)
	query += " ORDER BY created_at DESC, id LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))
	rows := []models.Transaction{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) SumByUser(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1`, userID)
	return sum, err
}
