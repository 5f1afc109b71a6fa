package store

import (
	"context"
	"time"

	"smsgateway/internal/models"
)

type MessageStore struct {
	db DB
}

type MessageInput struct {
	ID                string
	UserID            string
	Recipient         string
	Message           string
	Status            string
	Cost              int64
	ProviderMessageID *string
	ProviderStatus    string
}

func NewMessageStore(db DB) *MessageStore {
	return &MessageStore{db: db}
}

const messageColumns = `id, user_id, recipient, message, status, cost, provider_message_id, provider_status, created_at`

func (s *MessageStore) Insert(ctx context.Context, tx Execer, in MessageInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sms_messages (id, user_id, recipient, message, status, cost, provider_message_id, provider_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, in.ID, in.UserID, in.Recipient, in.Message, in.Status, in.Cost, in.ProviderMessageID, in.ProviderStatus)
	return err
}

func (s *MessageStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.SMSMessage, error) {
	rows := []models.SMSMessage{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+messageColumns+`
		FROM sms_messages
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *MessageStore) GetForUser(ctx context.Context, userID, id string) (models.SMSMessage, error) {
	var row models.SMSMessage
	err := s.db.GetContext(ctx, &row, `SELECT `+messageColumns+` FROM sms_messages WHERE id = $1 AND user_id = $2`, id, userID)
	return row, err
}

func (s *MessageStore) GetByProviderID(ctx context.Context, providerMessageID string) (models.SMSMessage, error) {
	var row models.SMSMessage
	err := s.db.GetContext(ctx, &row, `SELECT `+messageColumns+` FROM sms_messages WHERE provider_message_id = $1`, providerMessageID)
	return row, err
}

func (s *MessageStore) UpdateProviderStatus(ctx context.Context, tx Execer, id, providerStatus string) error {
	_, err := tx.ExecContext(ctx, `UPDATE sms_messages SET provider_status = $1 WHERE id = $2`, providerStatus, id)
	return err
}

// DeleteForUser removes one history row; its delivery reports cascade.
func (s *MessageStore) DeleteForUser(ctx context.Context, userID, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sms_messages WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *MessageStore) CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM sms_messages WHERE created_at < $1`, cutoff)
	return count, err
}

func (s *MessageStore) DeleteOlderThan(ctx context.Context, tx Execer, cutoff time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM sms_messages WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
