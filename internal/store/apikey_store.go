package store

import (
	"context"

	"smsgateway/internal/models"
)

type APIKeyStore struct {
	db DB
}

func NewAPIKeyStore(db DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

const apiKeyColumns = `id, user_id, key, name, is_active, created_at, last_used_at`

func (s *APIKeyStore) Create(ctx context.Context, id, userID, key, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, user_id, key, name)
		VALUES ($1, $2, $3, $4)
	`, id, userID, key, name)
	return err
}

func (s *APIKeyStore) KeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM api_keys WHERE key = $1)`, key)
	return exists, err
}

func (s *APIKeyStore) ListByUser(ctx context.Context, userID string) ([]models.APIKey, error) {
	rows := []models.APIKey{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *APIKeyStore) GetForUser(ctx context.Context, userID, id string) (models.APIKey, error) {
	var row models.APIKey
	err := s.db.GetContext(ctx, &row, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID)
	return row, err
}

// Deactivate only affects an active key, so zero rows on an existing key means it was already inactive.
func (s *APIKeyStore) Deactivate(ctx context.Context, userID, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE api_keys SET is_active = FALSE
		WHERE id = $1 AND user_id = $2 AND is_active = TRUE
	`, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *APIKeyStore) Delete(ctx context.Context, userID, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ResolveActive returns the owner of an active key and records the use.
func (s *APIKeyStore) ResolveActive(ctx context.Context, key string) (string, error) {
	var userID string
	err := s.db.GetContext(ctx, &userID, `
		UPDATE api_keys SET last_used_at = NOW()
		WHERE key = $1 AND is_active = TRUE
		RETURNING user_id
	`, key)
	return userID, err
}
