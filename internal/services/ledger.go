package services

import (
	"context"
	"errors"

	"smsgateway/internal/models"
	"smsgateway/internal/store"

	"github.com/google/uuid"
)

// ledger writes balance changes. Every change is one transaction row, a guarded
// wallet update and two balanced ledger entries against a system account.
type ledger struct {
	accounts     AccountStore
	entries      LedgerStore
	transactions TransactionStore
	currency     string
}

type walletChange struct {
	UserID      string
	WalletID    string
	Amount      int64
	Type        string
	SystemCode  string
	Reference   *string
	Description string
}

func (l ledger) apply(ctx context.Context, tx store.Tx, c walletChange) (string, error) {
	systemID, err := l.accounts.GetSystemAccount(ctx, tx, c.SystemCode, l.currency)
	if err != nil {
		return "", err
	}
	rows, err := l.accounts.AdjustBalance(ctx, tx, c.WalletID, c.Amount)
	if err != nil {
		return "", err
	}
	if rows == 0 {
		return "", ErrInsufficientFunds
	}
	if _, err := l.accounts.AdjustBalance(ctx, tx, systemID, -c.Amount); err != nil {
		return "", err
	}
	transactionID := uuid.NewString()
	if err := l.transactions.Create(ctx, tx, store.TransactionInput{
		ID:        transactionID,
		UserID:    c.UserID,
		Type:      c.Type,
		Amount:    c.Amount,
		Currency:  l.currency,
		Reference: c.Reference,
	}); err != nil {
		return "", err
	}
	entries := []store.LedgerEntryInput{
		{
			ID:            uuid.NewString(),
			TransactionID: transactionID,
			AccountID:     c.WalletID,
			Amount:        c.Amount,
			Currency:      l.currency,
			Description:   c.Description,
		},
		{
			ID:            uuid.NewString(),
			TransactionID: transactionID,
			AccountID:     systemID,
			Amount:        -c.Amount,
			Currency:      l.currency,
			Description:   c.Description,
		},
	}
	if err := ensureBalanced(entries); err != nil {
		return "", err
	}
	if err := l.entries.InsertEntries(ctx, tx, entries); err != nil {
		return "", err
	}
	return transactionID, nil
}

func (l ledger) lockWallet(ctx context.Context, tx store.Getter, userID string) (models.Account, error) {
	wallet, err := l.accounts.GetWalletForUpdate(ctx, tx, userID, l.currency)
	if err != nil {
		return models.Account{}, notFound(err, ErrWalletNotFound)
	}
	return wallet, nil
}

func ensureBalanced(entries []store.LedgerEntryInput) error {
	var sum int64
	for _, entry := range entries {
		sum += entry.Amount
	}
	if sum != 0 {
		return errors.New("ledger entries are not balanced")
	}
	return nil
}

// notFound swaps sql.ErrNoRows for a domain error and passes anything else through.
func notFound(err, replacement error) error {
	if isNoRows(err) {
		return replacement
	}
	return err
}
