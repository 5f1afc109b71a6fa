package store

import (
	"context"

	"smsgateway/internal/models"
)

type TemplateStore struct {
	db DB
}

func NewTemplateStore(db DB) *TemplateStore {
	return &TemplateStore{db: db}
}

const templateColumns = `id, user_id, name, content, created_at, updated_at`

func (s *TemplateStore) Create(ctx context.Context, id, userID, name, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sms_templates (id, user_id, name, content)
		VALUES ($1, $2, $3, $4)
	`, id, userID, name, content)
	return err
}

func (s *TemplateStore) List(ctx context.Context, userID string, limit, offset int) ([]models.SMSTemplate, error) {
	rows := []models.SMSTemplate{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+templateColumns+`
		FROM sms_templates
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TemplateStore) Get(ctx context.Context, userID, id string) (models.SMSTemplate, error) {
	var row models.SMSTemplate
	err := s.db.GetContext(ctx, &row, `SELECT `+templateColumns+` FROM sms_templates WHERE id = $1 AND user_id = $2`, id, userID)
	return row, err
}

func (s *TemplateStore) Update(ctx context.Context, userID, id, name, content string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sms_templates SET name = $1, content = $2, updated_at = NOW()
		WHERE id = $3 AND user_id = $4
	`, name, content, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *TemplateStore) Delete(ctx context.Context, userID, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sms_templates WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
