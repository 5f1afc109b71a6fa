package services

import (
	"context"
	"log/slog"
	"time"

	"smsgateway/internal/db"
	"smsgateway/internal/store"

	"github.com/jmoiron/sqlx"
)

type RetentionStore interface {
	CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, tx store.Execer, cutoff time.Time) (int64, error)
}

// MaintenanceService prunes message history past the retention window.
// Transactions, ledger entries and promo usages are never pruned.
type MaintenanceService struct {
	txRunner  db.TxRunner
	messages  RetentionStore
	reports   RetentionStore
	audit     AuditStore
	retention time.Duration
	now       Clock
	logger    *slog.Logger
}

type MaintenanceStatus struct {
	Cutoff      time.Time `json:"cutoff"`
	Retention   string    `json:"retention"`
	MessagesDue int64     `json:"messages_due"`
	ReportsDue  int64     `json:"reports_due"`
}

type CleanupResult struct {
	Cutoff          time.Time `json:"cutoff"`
	MessagesDeleted int64     `json:"messages_deleted"`
	ReportsDeleted  int64     `json:"reports_deleted"`
}

func NewMaintenanceService(txRunner db.TxRunner, messages, reports RetentionStore, audit AuditStore, retention time.Duration, logger *slog.Logger) *MaintenanceService {
	return &MaintenanceService{
		txRunner:  txRunner,
		messages:  messages,
		reports:   reports,
		audit:     audit,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *MaintenanceService) cutoff() time.Time {
	return s.now().UTC().Add(-s.retention)
}

func (s *MaintenanceService) Status(ctx context.Context) (MaintenanceStatus, error) {
	cutoff := s.cutoff()
	messages, err := s.messages.CountOlderThan(ctx, cutoff)
	if err != nil {
		return MaintenanceStatus{}, err
	}
	reports, err := s.reports.CountOlderThan(ctx, cutoff)
	if err != nil {
		return MaintenanceStatus{}, err
	}
	return MaintenanceStatus{
		Cutoff:      cutoff,
		Retention:   s.retention.String(),
		MessagesDue: messages,
		ReportsDue:  reports,
	}, nil
}

// Cleanup deletes reports first, then messages, in one unit of work.
func (s *MaintenanceService) Cleanup(ctx context.Context) (CleanupResult, error) {
	result := CleanupResult{Cutoff: s.cutoff()}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		result.ReportsDeleted, err = s.reports.DeleteOlderThan(ctx, tx, result.Cutoff)
		if err != nil {
			return err
		}
		result.MessagesDeleted, err = s.messages.DeleteOlderThan(ctx, tx, result.Cutoff)
		if err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, store.AuditEntry{
			Action:     "retention_cleanup",
			EntityType: "system",
			EntityID:   "retention",
			Data: map[string]any{
				"messages": result.MessagesDeleted,
				"reports":  result.ReportsDeleted,
			},
		})
	})
	if err != nil {
		s.logger.Error("retention cleanup failed", "error", err)
		return CleanupResult{}, err
	}
	s.logger.Info("retention cleanup finished",
		"messages", result.MessagesDeleted, "reports", result.ReportsDeleted, "cutoff", result.Cutoff)
	return result, nil
}
