package services

import (
	"context"
	"log/slog"

	"smsgateway/internal/db"
	"smsgateway/internal/store"

	"github.com/jmoiron/sqlx"
)

type AccountService struct {
	txRunner db.TxRunner
	users    UserStore
	accounts AccountReleaser
	audit    AuditStore
	logger   *slog.Logger
}

func NewAccountService(txRunner db.TxRunner, users UserStore, accounts AccountReleaser, audit AuditStore, logger *slog.Logger) *AccountService {
	return &AccountService{
		txRunner: txRunner,
		users:    users,
		accounts: accounts,
		audit:    audit,
		logger:   logger,
	}
}

// DeleteUser removes a user and everything it owns. The user's ledger effect
// on system accounts is reversed first so the remaining accounts still reconcile.
func (s *AccountService) DeleteUser(ctx context.Context, userID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.accounts.ReleaseUserEntries(ctx, tx, userID); err != nil {
			return err
		}
		rows, err := s.users.Delete(ctx, tx, userID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrUserNotFound
		}
		return s.audit.Log(ctx, tx, store.AuditEntry{
			ActorID:    userID,
			Action:     "account_delete",
			EntityType: "user",
			EntityID:   userID,
		})
	})
	if err != nil {
		return err
	}
	s.logger.Info("user account deleted", "user_id", userID)
	return nil
}
