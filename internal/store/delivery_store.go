package store

import (
	"context"
	"time"

	"smsgateway/internal/models"
)

type DeliveryReportStore struct {
	db DB
}

func NewDeliveryReportStore(db DB) *DeliveryReportStore {
	return &DeliveryReportStore{db: db}
}

func (s *DeliveryReportStore) Create(ctx context.Context, tx Execer, id, smsID, status string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO delivery_reports (id, sms_id, status)
		VALUES ($1, $2, $3)
	`, id, smsID, status)
	return err
}

// ListForUser returns the reports of one message, newest first, only if the user owns it.
func (s *DeliveryReportStore) ListForUser(ctx context.Context, userID, smsID string) ([]models.DeliveryReport, error) {
	rows := []models.DeliveryReport{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT r.id, r.sms_id, r.status, r.updated_at
		FROM delivery_reports r
		JOIN sms_messages m ON m.id = r.sms_id
		WHERE r.sms_id = $1 AND m.user_id = $2
		ORDER BY r.updated_at DESC, r.id
	`, smsID, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *DeliveryReportStore) DeleteForUser(ctx context.Context, userID, reportID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM delivery_reports r
		USING sms_messages m
		WHERE r.id = $1 AND m.id = r.sms_id AND m.user_id = $2
	`, reportID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *DeliveryReportStore) CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM delivery_reports WHERE updated_at < $1`, cutoff)
	return count, err
}

func (s *DeliveryReportStore) DeleteOlderThan(ctx context.Context, tx Execer, cutoff time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM delivery_reports WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
