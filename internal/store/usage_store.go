package store

import (
	"context"
	"errors"
	"time"

	"smsgateway/internal/models"
)

const (
	RewardReferrer = "referrer"
	RewardReferred = "referred"
)

var ErrUnknownReward = errors.New("unknown reward type")

type UsageStore struct {
	db DB
}

// ReferralReward is one redemption of a referrer's code.
type ReferralReward struct {
	UsageID            string    `db:"usage_id" json:"usage_id"`
	Code               string    `db:"code" json:"code"`
	ReferredUserID     string    `db:"referred_user_id" json:"referred_user_id"`
	ReferrerReward     int64     `db:"referrer_reward" json:"referrer_reward"`
	ReferredReward     int64     `db:"referred_reward" json:"referred_reward"`
	ReferrerRewardPaid bool      `db:"referrer_reward_paid" json:"referrer_reward_paid"`
	ReferredRewardPaid bool      `db:"referred_reward_paid" json:"referred_reward_paid"`
	UsedAt             time.Time `db:"used_at" json:"used_at"`
}

func NewUsageStore(db DB) *UsageStore {
	return &UsageStore{db: db}
}

func (s *UsageStore) Create(ctx context.Context, tx Execer, id, promoCodeID, userID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO promo_code_usages (id, promo_code_id, user_id)
		VALUES ($1, $2, $3)
	`, id, promoCodeID, userID)
	return err
}

func (s *UsageStore) ExistsForUser(ctx context.Context, q Getter, promoCodeID, userID string) (bool, error) {
	var exists bool
	err := q.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM promo_code_usages WHERE promo_code_id = $1 AND user_id = $2)
	`, promoCodeID, userID)
	return exists, err
}

func (s *UsageStore) CountByPromo(ctx context.Context, q Getter, promoCodeID string) (int64, error) {
	var count int64
	err := q.GetContext(ctx, &count, `SELECT COUNT(1) FROM promo_code_usages WHERE promo_code_id = $1`, promoCodeID)
	return count, err
}

func (s *UsageStore) GetByID(ctx context.Context, q Getter, id string) (models.PromoCodeUsage, error) {
	var row models.PromoCodeUsage
	err := q.GetContext(ctx, &row, `
		SELECT id, promo_code_id, user_id, referrer_reward_paid, referred_reward_paid, used_at
		FROM promo_code_usages
		WHERE id = $1
	`, id)
	return row, err
}

// MarkRewardPaid flips one paid flag from false to true. Zero rows means the
// usage is missing or the reward was already paid.
func (s *UsageStore) MarkRewardPaid(ctx context.Context, tx Execer, usageID, reward string) (int64, error) {
	var query string
	switch reward {
	case RewardReferrer:
		query = `UPDATE promo_code_usages SET referrer_reward_paid = TRUE WHERE id = $1 AND referrer_reward_paid = FALSE`
	case RewardReferred:
		query = `UPDATE promo_code_usages SET referred_reward_paid = TRUE WHERE id = $1 AND referred_reward_paid = FALSE`
	default:
		return 0, ErrUnknownReward
	}
	res, err := tx.ExecContext(ctx, query, usageID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *UsageStore) ListRewardsByReferrer(ctx context.Context, referrerID string) ([]ReferralReward, error) {
	rows := []ReferralReward{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT u.id AS usage_id,
		       p.code,
		       u.user_id AS referred_user_id,
		       COALESCE(p.referrer_reward, 0) AS referrer_reward,
		       p.discount_value AS referred_reward,
		       u.referrer_reward_paid,
		       u.referred_reward_paid,
		       u.used_at
		FROM promo_code_usages u
		JOIN promo_codes p ON p.id = u.promo_code_id
		WHERE p.referrer_id = $1 AND p.is_referral = TRUE
		ORDER BY u.used_at DESC, u.id
	`, referrerID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
