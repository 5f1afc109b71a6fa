package store

import (
	"context"
	"fmt"
	"strings"
)

// LedgerStore appends ledger entries. Entries are never updated; cleanup and
// account deletion only re-point or keep them.
type LedgerStore struct {
	db DB
}

type LedgerEntryInput struct {
	ID            string
	TransactionID string
	AccountID     string
	Amount        int64
	Currency      string
	Description   string
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

const ledgerEntryFields = 6

// InsertEntries writes all legs of a transaction in one statement.
func (s *LedgerStore) InsertEntries(ctx context.Context, tx Execer, entries []LedgerEntryInput) error {
	if len(entries) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO ledger_entries (id, transaction_id, account_id, amount, currency, description) VALUES `)
	args := make([]any, 0, len(entries)*ledgerEntryFields)
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * ledgerEntryFields
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6)
		args = append(args, e.ID, e.TransactionID, e.AccountID, e.Amount, e.Currency, e.Description)
	}
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}
