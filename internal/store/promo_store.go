package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"smsgateway/internal/models"
)

type PromoStore struct {
	db DB
}

type PromoCodeInput struct {
	ID                string
	Code              string
	DiscountType      string
	DiscountValue     int64
	ReferrerReward    *int64
	ValidFrom         time.Time
	ValidUntil        time.Time
	MaxUses           *int
	MinPurchaseAmount int64
	IsActive          bool
	IsReferral        bool
	ReferrerID        *string
}

// PromoCodeUpdate is a partial update. Nil fields are left untouched; the field
// set is fixed so callers cannot write columns such as current_uses.
type PromoCodeUpdate struct {
	DiscountType      *string
	DiscountValue     *int64
	ReferrerReward    *int64
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	MaxUses           *int
	MinPurchaseAmount *int64
	IsActive          *bool
}

func (u PromoCodeUpdate) Empty() bool {
	return u.DiscountType == nil && u.DiscountValue == nil && u.ReferrerReward == nil &&
		u.ValidFrom == nil && u.ValidUntil == nil && u.MaxUses == nil &&
		u.MinPurchaseAmount == nil && u.IsActive == nil
}

type PromoListOpts struct {
	ActiveOnly bool
	Limit      int
	Offset     int
}

func NewPromoStore(db DB) *PromoStore {
	return &PromoStore{db: db}
}

const promoColumns = `id, code, discount_type, discount_value, referrer_reward, valid_from, valid_until,
	max_uses, current_uses, min_purchase_amount, is_active, is_referral, referrer_id, created_at, updated_at`

func (s *PromoStore) Create(ctx context.Context, tx Execer, in PromoCodeInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO promo_codes (id, code, discount_type, discount_value, referrer_reward, valid_from, valid_until,
		                         max_uses, min_purchase_amount, is_active, is_referral, referrer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, in.ID, in.Code, in.DiscountType, in.DiscountValue, in.ReferrerReward, in.ValidFrom, in.ValidUntil,
		in.MaxUses, in.MinPurchaseAmount, in.IsActive, in.IsReferral, in.ReferrerID)
	return err
}

func (s *PromoStore) CodeExists(ctx context.Context, q Getter, code string) (bool, error) {
	var exists bool
	err := q.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM promo_codes WHERE code = $1)`, code)
	return exists, err
}

func (s *PromoStore) GetByCode(ctx context.Context, code string) (models.PromoCode, error) {
	var row models.PromoCode
	err := s.db.GetContext(ctx, &row, `SELECT `+promoColumns+` FROM promo_codes WHERE code = $1`, code)
	return row, err
}

// GetByCodeForUpdate locks the promo row so the cap check and the increment serialise.
func (s *PromoStore) GetByCodeForUpdate(ctx context.Context, tx Getter, code string) (models.PromoCode, error) {
	var row models.PromoCode
	err := tx.GetContext(ctx, &row, `SELECT `+promoColumns+` FROM promo_codes WHERE code = $1 FOR UPDATE`, code)
	return row, err
}

func (s *PromoStore) List(ctx context.Context, opts PromoListOpts) ([]models.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes`
	if opts.ActiveOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	rows := []models.PromoCode{}
	if err := s.db.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *PromoStore) ListByReferrer(ctx context.Context, referrerID string) ([]models.PromoCode, error) {
	rows := []models.PromoCode{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+promoColumns+`
		FROM promo_codes
		WHERE referrer_id = $1 AND is_referral = TRUE
		ORDER BY created_at DESC, id
	`, referrerID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Update writes the non-nil fields of u and returns the affected row count.
func (s *PromoStore) Update(ctx context.Context, tx Execer, id string, u PromoCodeUpdate) (int64, error) {
	sets := make([]string, 0, 9)
	args := make([]any, 0, 9)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if u.DiscountType != nil {
		add("discount_type", *u.DiscountType)
	}
	if u.DiscountValue != nil {
		add("discount_value", *u.DiscountValue)
	}
	if u.ReferrerReward != nil {
		add("referrer_reward", *u.ReferrerReward)
	}
	if u.ValidFrom != nil {
		add("valid_from", *u.ValidFrom)
	}
	if u.ValidUntil != nil {
		add("valid_until", *u.ValidUntil)
	}
	if u.MaxUses != nil {
		add("max_uses", *u.MaxUses)
	}
	if u.MinPurchaseAmount != nil {
		add("min_purchase_amount", *u.MinPurchaseAmount)
	}
	if u.IsActive != nil {
		add("is_active", *u.IsActive)
	}
	if len(sets) == 0 {
		return 0, nil
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	query := "UPDATE promo_codes SET " + strings.Join(sets, ", ") + " WHERE id = $" + strconv.Itoa(len(args))
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// IncrementUses bumps current_uses unless the cap is already reached.
func (s *PromoStore) IncrementUses(ctx context.Context, tx Execer, id string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE promo_codes
		SET current_uses = current_uses + 1, updated_at = NOW()
		WHERE id = $1 AND (max_uses IS NULL OR current_uses < max_uses)
	`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PromoStore) Deactivate(ctx context.Context, tx Execer, id string) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE promo_codes SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PromoStore) Delete(ctx context.Context, tx Execer, id string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM promo_codes WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
