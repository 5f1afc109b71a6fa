package store

import (
	"context"
	"encoding/json"

	"smsgateway/internal/models"

	"github.com/google/uuid"
)

type AuditStore struct {
	db DB
}

type AuditEntry struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Data       map[string]any
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Log(ctx context.Context, tx Execer, e AuditEntry) error {
	data := []byte("{}")
	if len(e.Data) > 0 {
		encoded, err := json.Marshal(e.Data)
		if err != nil {
			return err
		}
		data = encoded
	}
	var actor *string
	if e.ActorID != "" {
		actor = &e.ActorID
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_user_id, action, entity_type, entity_id, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.NewString(), actor, e.Action, e.EntityType, e.EntityID, string(data))
	return err
}

func (s *AuditStore) List(ctx context.Context, limit, offset int) ([]models.AuditLog, error) {
	rows := []models.AuditLog{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, actor_user_id, action, entity_type, entity_id, data, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
