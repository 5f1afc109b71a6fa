package store

import (
	"context"

	"smsgateway/internal/models"
)

type ContactStore struct {
	db DB
}

type ContactInput struct {
	Name        string
	PhoneNumber string
	GroupName   string
}

func NewContactStore(db DB) *ContactStore {
	return &ContactStore{db: db}
}

const contactColumns = `id, user_id, name, phone_number, group_name, created_at`

func (s *ContactStore) Create(ctx context.Context, id, userID string, in ContactInput) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, user_id, name, phone_number, group_name)
		VALUES ($1, $2, $3, $4, $5)
	`, id, userID, in.Name, in.PhoneNumber, in.GroupName)
	return err
}

func (s *ContactStore) List(ctx context.Context, userID, group string, limit, offset int) ([]models.Contact, error) {
	rows := []models.Contact{}
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1`
	args := []any{userID}
	if group != "" {
		query += ` AND group_name = $2 ORDER BY name, id LIMIT $3 OFFSET $4`
		args = append(args, group, limit, offset)
	} else {
		query += ` ORDER BY name, id LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ContactStore) Get(ctx context.Context, userID, id string) (models.Contact, error) {
	var row models.Contact
	err := s.db.GetContext(ctx, &row, `SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	return row, err
}

func (s *ContactStore) Update(ctx context.Context, userID, id string, in ContactInput) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE contacts SET name = $1, phone_number = $2, group_name = $3
		WHERE id = $4 AND user_id = $5
	`, in.Name, in.PhoneNumber, in.GroupName, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *ContactStore) Delete(ctx context.Context, userID, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *ContactStore) PhonesByGroup(ctx context.Context, userID, group string) ([]string, error) {
	phones := []string{}
	err := s.db.SelectContext(ctx, &phones, `
		SELECT phone_number FROM contacts
		WHERE user_id = $1 AND group_name = $2
		ORDER BY name, id
	`, userID, group)
	if err != nil {
		return nil, err
	}
	return phones, nil
}
