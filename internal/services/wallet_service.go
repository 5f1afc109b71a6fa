package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"smsgateway/internal/db"
	"smsgateway/internal/metrics"
	"smsgateway/internal/models"
	"smsgateway/internal/money"
	"smsgateway/internal/store"
	"smsgateway/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type WalletService struct {
	txRunner db.TxRunner
	ledger   ledger
	audit    AuditStore
	hub      BalanceHub
	logger   *slog.Logger
}

type Balance struct {
	UserID   string `json:"user_id"`
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

type SelfCheckResult struct {
	UserID           string `json:"user_id"`
	Currency         string `json:"currency"`
	StoredBalance    int64  `json:"stored_balance"`
	LedgerBalance    int64  `json:"ledger_balance"`
	TransactionTotal int64  `json:"transaction_total"`
	Consistent       bool   `json:"consistent"`
}

func NewWalletService(txRunner db.TxRunner, accounts AccountStore, entries LedgerStore, transactions TransactionStore, audit AuditStore, hub BalanceHub, currency string, logger *slog.Logger) *WalletService {
	return &WalletService{
		txRunner: txRunner,
		ledger:   ledger{accounts: accounts, entries: entries, transactions: transactions, currency: currency},
		audit:    audit,
		hub:      hub,
		logger:   logger,
	}
}

func (s *WalletService) Currency() string {
	return s.ledger.currency
}

// OpenWallet creates the user's wallet inside the registration unit of work.
// A positive opening balance is booked as a regular topup.
func (s *WalletService) OpenWallet(ctx context.Context, tx store.Tx, userID string, opening int64) error {
	walletID := uuid.NewString()
	if err := s.ledger.accounts.CreateWallet(ctx, tx, walletID, userID, s.ledger.currency); err != nil {
		return err
	}
	if opening <= 0 {
		return nil
	}
	_, err := s.ledger.apply(ctx, tx, walletChange{
		UserID:      userID,
		WalletID:    walletID,
		Amount:      opening,
		Type:        models.TxTypeTopup,
		SystemCode:  models.SystemTopupClearing,
		Description: "Opening balance",
	})
	return err
}

func (s *WalletService) GetBalance(ctx context.Context, userID string) (Balance, error) {
	wallet, err := s.ledger.accounts.GetWallet(ctx, userID, s.ledger.currency)
	if err != nil {
		return Balance{}, notFound(err, ErrUserNotFound)
	}
	return Balance{UserID: userID, Balance: wallet.Balance, Currency: wallet.Currency}, nil
}

func (s *WalletService) Topup(ctx context.Context, userID string, amount int64) (Balance, error) {
	if amount <= 0 {
		return Balance{}, ErrInvalidAmount
	}
	var balance int64
	var transactionID string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		wallet, err := s.ledger.lockWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		transactionID, err = s.ledger.apply(ctx, tx, walletChange{
			UserID:      userID,
			WalletID:    wallet.ID,
			Amount:      amount,
			Type:        models.TxTypeTopup,
			SystemCode:  models.SystemTopupClearing,
			Description: "Wallet topup",
		})
		if err != nil {
			return err
		}
		balance = wallet.Balance + amount
		return s.audit.Log(ctx, tx, store.AuditEntry{
			ActorID:    userID,
			Action:     "topup",
			EntityType: "transaction",
			EntityID:   transactionID,
			Data:       map[string]any{"amount": money.FormatMinor(amount)},
		})
	})
	if err != nil {
		return Balance{}, err
	}
	metrics.WalletTopups.Inc()
	s.logger.Info("wallet topped up", "user_id", userID, "transaction_id", transactionID, "amount", amount)
	s.broadcast(userID, balance)
	return Balance{UserID: userID, Balance: balance, Currency: s.ledger.currency}, nil
}

func (s *WalletService) ListTransactions(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error) {
	if txType != "" && txType != models.TxTypeTopup && txType != models.TxTypeSMSDeduction {
		return nil, ErrInvalidTransactionType
	}
	return s.ledger.transactions.ListByUser(ctx, userID, txType, limit, offset)
}

// SelfCheck compares the stored wallet balance with its ledger and its transaction history.
func (s *WalletService) SelfCheck(ctx context.Context, userID string) (SelfCheckResult, error) {
	summaries, err := s.ledger.accounts.BalanceSummary(ctx, userID)
	if err != nil {
		return SelfCheckResult{}, err
	}
	var summary *store.AccountBalanceSummary
	for i := range summaries {
		if summaries[i].Currency == s.ledger.currency {
			summary = &summaries[i]
			break
		}
	}
	if summary == nil {
		return SelfCheckResult{}, ErrUserNotFound
	}
	total, err := s.ledger.transactions.SumByUser(ctx, userID)
	if err != nil {
		return SelfCheckResult{}, err
	}
	return SelfCheckResult{
		UserID:           userID,
		Currency:         summary.Currency,
		StoredBalance:    summary.StoredBalance,
		LedgerBalance:    summary.CalculatedBalance,
		TransactionTotal: total,
		Consistent:       summary.StoredBalance == summary.CalculatedBalance && summary.StoredBalance == total,
	}, nil
}

// Reconcile lists every account whose stored balance drifted from its ledger.
func (s *WalletService) Reconcile(ctx context.Context) ([]store.AccountBalanceSummary, error) {
	rows, err := s.ledger.accounts.ListMismatched(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		s.logger.Error("ledger mismatch detected", "accounts", len(rows))
	}
	return rows, nil
}

func (s *WalletService) broadcast(userID string, balance int64) {
	s.hub.BroadcastBalance(userID, balanceUpdate(balance, s.ledger.currency))
}

func balanceUpdate(balance int64, currency string) websocket.BalanceUpdate {
	return websocket.BalanceUpdate{
		Balance:      money.FormatMinor(balance),
		BalanceMinor: balance,
		Currency:     currency,
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
