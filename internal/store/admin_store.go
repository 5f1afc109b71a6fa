package store

import (
	"context"
	"database/sql"
	"errors"
)

type AdminStore struct {
	db DB
}

func NewAdminStore(db DB) *AdminStore {
	return &AdminStore{db: db}
}

type adminRow struct {
	IsSuper bool `db:"is_super"`
	HasRole bool `db:"has_role"`
}

// Authorize reports whether userID is an admin and whether it may act with role.
// Super admins and an empty role are always allowed.
func (s *AdminStore) Authorize(ctx context.Context, userID, role string) (bool, bool, error) {
	var row adminRow
	err := s.db.GetContext(ctx, &row, `
		SELECT a.is_super,
		       EXISTS(SELECT 1 FROM admin_roles r WHERE r.admin_user_id = a.user_id AND r.role = $2) AS has_role
		FROM admins a
		WHERE a.user_id = $1
	`, userID, role)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return true, row.IsSuper || role == "" || row.HasRole, nil
}

func (s *AdminStore) CreateAdmin(ctx context.Context, tx Execer, userID string, isSuper bool, createdBy *string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO admins (user_id, is_super, created_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, isSuper, createdBy)
	return err
}

func (s *AdminStore) GrantRole(ctx context.Context, tx Execer, adminUserID, role string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO admin_roles (admin_user_id, role)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, adminUserID, role)
	return err
}

// HasAnyAdmin runs inside the registration transaction so the first user becomes super admin exactly once.
func (s *AdminStore) HasAnyAdmin(ctx context.Context, q Getter) (bool, error) {
	var exists bool
	err := q.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM admins)`)
	return exists, err
}
