package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"smsgateway/internal/db"
	"smsgateway/internal/events"
	"smsgateway/internal/models"
	"smsgateway/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type DeliveryReporter struct {
	txRunner  db.TxRunner
	messages  MessageStore
	reports   DeliveryReportStore
	publisher EventPublisher
	logger    *slog.Logger
}

func NewDeliveryReporter(txRunner db.TxRunner, messages MessageStore, reports DeliveryReportStore, publisher EventPublisher, logger *slog.Logger) *DeliveryReporter {
	return &DeliveryReporter{
		txRunner:  txRunner,
		messages:  messages,
		reports:   reports,
		publisher: publisher,
		logger:    logger,
	}
}

// Record writes one report inside the caller's unit of work and returns its id.
func (r *DeliveryReporter) Record(ctx context.Context, tx store.Execer, smsID, status string) (string, error) {
	id := uuid.NewString()
	if err := r.reports.Create(ctx, tx, id, smsID, status); err != nil {
		return "", err
	}
	return id, nil
}

// Callback appends a provider delivery receipt to the matching message.
func (r *DeliveryReporter) Callback(ctx context.Context, providerMessageID, status string) (models.DeliveryReport, error) {
	providerMessageID = strings.TrimSpace(providerMessageID)
	status = strings.ToLower(strings.TrimSpace(status))
	if providerMessageID == "" || status == "" {
		return models.DeliveryReport{}, ErrInvalidCallback
	}
	msg, err := r.messages.GetByProviderID(ctx, providerMessageID)
	if err != nil {
		return models.DeliveryReport{}, notFound(err, ErrCallbackUnknownSMS)
	}
	var reportID string
	err = r.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		reportID, err = r.Record(ctx, tx, msg.ID, status)
		if err != nil {
			return err
		}
		return r.messages.UpdateProviderStatus(ctx, tx, msg.ID, status)
	})
	if err != nil {
		return models.DeliveryReport{}, err
	}
	now := time.Now().UTC()
	r.publish(events.DeliveryEvent{
		ReportID:          reportID,
		SMSID:             msg.ID,
		UserID:            msg.UserID,
		Recipient:         msg.Recipient,
		Status:            status,
		ProviderMessageID: providerMessageID,
		OccurredAt:        now,
	})
	return models.DeliveryReport{ID: reportID, SMSID: msg.ID, Status: status, UpdatedAt: now}, nil
}

func (r *DeliveryReporter) List(ctx context.Context, userID, smsID string) ([]models.DeliveryReport, error) {
	reports, err := r.reports.ListForUser(ctx, userID, smsID)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		if _, err := r.messages.GetForUser(ctx, userID, smsID); err != nil {
			return nil, notFound(err, ErrMessageNotFound)
		}
	}
	return reports, nil
}

func (r *DeliveryReporter) Delete(ctx context.Context, userID, reportID string) error {
	rows, err := r.reports.DeleteForUser(ctx, userID, reportID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *DeliveryReporter) publish(event events.DeliveryEvent) {
	if err := r.publisher.PublishDelivery(event); err != nil {
		r.logger.Warn("publish delivery event failed", "sms_id", event.SMSID, "error", err)
	}
}
