package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"smsgateway/internal/db"
	"smsgateway/internal/metrics"
	"smsgateway/internal/models"
	"smsgateway/internal/money"
	"smsgateway/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	maxPercent          = 10000
	referralValidity    = 1
	referralCodeRetries = 5
	msgPromoValid       = "Promo code applied successfully"
)

type PromoService struct {
	txRunner db.TxRunner
	reader   store.Getter
	promos   PromoStore
	usages   UsageStore
	audit    AuditStore
	now      Clock
	logger   *slog.Logger
}

func NewPromoService(txRunner db.TxRunner, reader store.Getter, promos PromoStore, usages UsageStore, audit AuditStore, logger *slog.Logger) *PromoService {
	return &PromoService{
		txRunner: txRunner,
		reader:   reader,
		promos:   promos,
		usages:   usages,
		audit:    audit,
		now:      time.Now,
		logger:   logger,
	}
}

type ValidateResult struct {
	Valid          bool   `json:"valid"`
	DiscountAmount int64  `json:"discount_amount"`
	ReferrerReward *int64 `json:"referrer_reward,omitempty"`
	IsReferral     bool   `json:"is_referral"`
	Message        string `json:"message"`
}

type ApplyResult struct {
	UsageID       string `json:"usage_id"`
	Code          string `json:"code"`
	DiscountType  string `json:"discount_type"`
	DiscountValue int64  `json:"discount_value"`
	IsReferral    bool   `json:"is_referral"`
}

type ReferralDeletion struct {
	Code        string `json:"code"`
	Deleted     bool   `json:"deleted"`
	Deactivated bool   `json:"deactivated"`
}

type ReferralRewards struct {
	Rewards      []store.ReferralReward `json:"rewards"`
	TotalPaid    int64                  `json:"total_paid"`
	TotalPending int64                  `json:"total_pending"`
}

// Discount returns what promo takes off cartTotal.
func Discount(promo models.PromoCode, cartTotal int64) int64 {
	if promo.DiscountType == models.DiscountPercentage {
		return money.PercentOf(cartTotal, promo.DiscountValue)
	}
	return money.Min(promo.DiscountValue, cartTotal)
}

// Validate reports whether userID could redeem code against cartTotal. Business
// rejections come back as Valid=false with the reason; only store failures are errors.
func (s *PromoService) Validate(ctx context.Context, code, userID string, cartTotal int64) (ValidateResult, error) {
	if cartTotal < 0 {
		return ValidateResult{}, ErrInvalidAmount
	}
	promo, err := s.promos.GetByCode(ctx, code)
	if isNoRows(err) {
		return ValidateResult{Message: ErrPromoNotFound.Error()}, nil
	}
	if err != nil {
		return ValidateResult{}, err
	}
	if err := s.checkRedeemable(ctx, s.reader, promo, userID); err != nil {
		if KindOf(err) == KindInternal {
			return ValidateResult{}, err
		}
		return ValidateResult{Message: capitalize(err.Error())}, nil
	}
	if cartTotal < promo.MinPurchaseAmount {
		return ValidateResult{
			Message: fmt.Sprintf("Minimum purchase of %s required to use this code", money.FormatMinor(promo.MinPurchaseAmount)),
		}, nil
	}
	result := ValidateResult{
		Valid:          true,
		DiscountAmount: Discount(promo, cartTotal),
		IsReferral:     promo.IsReferral,
		Message:        msgPromoValid,
	}
	if promo.IsReferral {
		result.ReferrerReward = promo.ReferrerReward
	}
	return result, nil
}

// checkRedeemable runs the ordered checks shared by Validate and Apply.
func (s *PromoService) checkRedeemable(ctx context.Context, q store.Getter, promo models.PromoCode, userID string) error {
	if !promo.IsActive {
		return ErrPromoNotFound
	}
	now := s.now()
	if now.Before(promo.ValidFrom) || now.After(promo.ValidUntil) {
		return ErrPromoExpired
	}
	if promo.MaxUses != nil && promo.CurrentUses >= *promo.MaxUses {
		return ErrPromoUsageLimit
	}
	used, err := s.usages.ExistsForUser(ctx, q, promo.ID, userID)
	if err != nil {
		return err
	}
	if used {
		return ErrPromoAlreadyUsed
	}
	return nil
}

// Apply redeems code for userID. The promo row is locked for the whole unit of
// work; the unique usage index and the guarded increment hold the invariants
// even if the lock is bypassed.
func (s *PromoService) Apply(ctx context.Context, code, userID string) (ApplyResult, error) {
	var result ApplyResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		promo, err := s.promos.GetByCodeForUpdate(ctx, tx, code)
		if err != nil {
			return notFound(err, ErrPromoNotFound)
		}
		if err := s.checkRedeemable(ctx, tx, promo, userID); err != nil {
			return err
		}
		usageID := uuid.NewString()
		if err := s.usages.Create(ctx, tx, usageID, promo.ID, userID); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrPromoConflict
			}
			return err
		}
		rows, err := s.promos.IncrementUses(ctx, tx, promo.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrPromoUsageLimit
		}
		result = ApplyResult{
			UsageID:       usageID,
			Code:          promo.Code,
			DiscountType:  promo.DiscountType,
			DiscountValue: promo.DiscountValue,
			IsReferral:    promo.IsReferral,
		}
		return s.audit.Log(ctx, tx, store.AuditEntry{
			ActorID:    userID,
			Action:     "promo_apply",
			EntityType: "promo_code_usage",
			EntityID:   usageID,
			Data:       map[string]any{"code": promo.Code},
		})
	})
	if err != nil {
		metrics.PromoApplications.WithLabelValues(KindOf(err).String()).Inc()
		return ApplyResult{}, err
	}
	metrics.PromoApplications.WithLabelValues("applied").Inc()
	s.logger.Info("promo code applied", "code", result.Code, "user_id", userID, "usage_id", result.UsageID)
	return result, nil
}

func (s *PromoService) Create(ctx context.Context, actorID string, in store.PromoCodeInput) (models.PromoCode, error) {
	in.Code = strings.TrimSpace(in.Code)
	if err := validatePromoInput(in); err != nil {
		return models.PromoCode{}, err
	}
	in.ID = uuid.NewString()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.insertPromo(ctx, tx, actorID, in)
	})
	if err != nil {
		return models.PromoCode{}, err
	}
	return s.Get(ctx, in.Code)
}

func (s *PromoService) insertPromo(ctx context.Context, tx store.Tx, actorID string, in store.PromoCodeInput) error {
	exists, err := s.promos.CodeExists(ctx, tx, in.Code)
	if err != nil {
		return err
	}
	if exists {
		return ErrPromoCodeExists
	}
	if err := s.promos.Create(ctx, tx, in); err != nil {
		if db.IsUniqueViolation(err) {
			return ErrPromoCodeExists
		}
		return err
	}
	return s.audit.Log(ctx, tx, store.AuditEntry{
		ActorID:    actorID,
		Action:     "promo_create",
		EntityType: "promo_code",
		EntityID:   in.ID,
		Data:       map[string]any{"code": in.Code, "discount_type": in.DiscountType},
	})
}

func validatePromoInput(in store.PromoCodeInput) error {
	if in.Code == "" || len(in.Code) > 64 {
		return fmt.Errorf("%w: code is required and at most 64 characters", ErrInvalidPromo)
	}
	if err := validateDiscount(in.DiscountType, in.DiscountValue); err != nil {
		return err
	}
	if !in.ValidUntil.After(in.ValidFrom) {
		return fmt.Errorf("%w: valid_until must be after valid_from", ErrInvalidPromo)
	}
	if in.MaxUses != nil && *in.MaxUses <= 0 {
		return fmt.Errorf("%w: max_uses must be positive", ErrInvalidPromo)
	}
	if in.MinPurchaseAmount < 0 || (in.ReferrerReward != nil && *in.ReferrerReward < 0) {
		return fmt.Errorf("%w: amounts must not be negative", ErrInvalidPromo)
	}
	return nil
}

func validateDiscount(discountType string, value int64) error {
	switch discountType {
	case models.DiscountPercentage:
		if value <= 0 || value > maxPercent {
			return fmt.Errorf("%w: percentage must be between 0.01 and 100.00", ErrInvalidPromo)
		}
	case models.DiscountFixed, models.DiscountReferral:
		if value <= 0 {
			return fmt.Errorf("%w: discount_value must be positive", ErrInvalidPromo)
		}
	default:
		return fmt.Errorf("%w: discount_type must be percentage, fixed or referral", ErrInvalidPromo)
	}
	return nil
}

func (s *PromoService) List(ctx context.Context, opts store.PromoListOpts) ([]models.PromoCode, error) {
	return s.promos.List(ctx, opts)
}

func (s *PromoService) Get(ctx context.Context, code string) (models.PromoCode, error) {
	promo, err := s.promos.GetByCode(ctx, code)
	if err != nil {
		return models.PromoCode{}, notFound(err, ErrPromoNotFound)
	}
	return promo, nil
}

// Update writes only the fields set in u. The merged result must still be a valid promo.
func (s *PromoService) Update(ctx context.Context, actorID, code string, u store.PromoCodeUpdate) (models.PromoCode, error) {
	if u.Empty() {
		return models.PromoCode{}, fmt.Errorf("%w: no fields to update", ErrInvalidPromo)
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		promo, err := s.promos.GetByCodeForUpdate(ctx, tx, code)
		if err != nil {
			return notFound(err, ErrPromoNotFound)
		}
		if err := validatePromoUpdate(promo, u); err != nil {
			return err
		}
		if _, err := s.promos.Update(ctx, tx, promo.ID, u); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, store.AuditEntry{
			ActorID:    actorID,
			Action:     "promo_update",
			EntityType: "promo_code",
			EntityID:   promo.ID,
			Data:       map[string]any{"code": promo.Code},
		})
	})
	if err != nil {
		return models.PromoCode{}, err
	}
	return s.Get(ctx, code)
}

func validatePromoUpdate(current models.PromoCode, u store.PromoCodeUpdate) error {
	merged := store.PromoCodeInput{
		Code:              current.Code,
		DiscountType:      current.DiscountType,
		DiscountValue:     current.DiscountValue,
		ReferrerReward:    current.ReferrerReward,
		ValidFrom:         current.ValidFrom,
		ValidUntil:        current.ValidUntil,
		MaxUses:           current.MaxUses,
		MinPurchaseAmount: current.MinPurchaseAmount,
	}
	if u.DiscountType != nil {
		merged.DiscountType = *u.DiscountType
	}
	if u.DiscountValue != nil {
		merged.DiscountValue = *u.DiscountValue
	}
	if u.ReferrerReward != nil {
		merged.ReferrerReward = u.ReferrerReward
	}
	if u.ValidFrom != nil {
		merged.ValidFrom = *u.ValidFrom
	}
	if u.ValidUntil != nil {
		merged.ValidUntil = *u.ValidUntil
	}
	if u.MaxUses != nil {
		if *u.MaxUses < current.CurrentUses {
			return fmt.Errorf("%w: max_uses is below current uses", ErrInvalidPromo)
		}
		merged.MaxUses = u.MaxUses
	}
	if u.MinPurchaseAmount != nil {
		merged.MinPurchaseAmount = *u.MinPurchaseAmount
	}
	return validatePromoInput(merged)
}

func (s *PromoService) Deactivate(ctx context.Context, actorID, code string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		promo, err := s.promos.GetByCodeForUpdate(ctx, tx, code)
		if err != nil {
			return notFound(err, ErrPromoNotFound)
		}
		if _, err := s.promos.Deactivate(ctx, tx, promo.ID); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, store.AuditEntry{
			ActorID:    actorID,
			Action:     "promo_deactivate",
			EntityType: "promo_code",
			EntityID:   promo.ID,
		})
	})
}

// CreateReferral issues a one-year referral code owned by referrerID.
func (s *PromoService) CreateReferral(ctx context.Context, referrerID string, discountValue, referrerReward int64) (models.PromoCode, error) {
	if discountValue <= 0 {
		return models.PromoCode{}, fmt.Errorf("%w: discount_value must be positive", ErrInvalidPromo)
	}
	if referrerReward < 0 {
		return models.PromoCode{}, fmt.Errorf("%w: referrer_reward must not be negative", ErrInvalidPromo)
	}
	now := s.now().UTC()
	base := "REF" + referrerID + now.Format("20060102150405")
	in := store.PromoCodeInput{
		ID:             uuid.NewString(),
		DiscountType:   models.DiscountReferral,
		DiscountValue:  discountValue,
		ReferrerReward: &referrerReward,
		ValidFrom:      now,
		ValidUntil:     now.AddDate(referralValidity, 0, 0),
		IsActive:       true,
		IsReferral:     true,
		ReferrerID:     &referrerID,
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		for attempt := 0; attempt < referralCodeRetries; attempt++ {
			candidate := base
			if attempt > 0 {
				candidate = base + "-" + strconv.Itoa(attempt)
			}
			exists, err := s.promos.CodeExists(ctx, tx, candidate)
			if err != nil {
				return err
			}
			if !exists {
				in.Code = candidate
				return s.insertPromo(ctx, tx, referrerID, in)
			}
		}
		return ErrReferralCodeTaken
	})
	if err != nil {
		return models.PromoCode{}, err
	}
	return s.Get(ctx, in.Code)
}

// DeleteReferral hard-deletes an unused code and only deactivates a redeemed one.
func (s *PromoService) DeleteReferral(ctx context.Context, referrerID, code string) (ReferralDeletion, error) {
	result := ReferralDeletion{Code: code}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		result.Deleted, result.Deactivated = false, false
		promo, err := s.promos.GetByCodeForUpdate(ctx, tx, code)
		if err != nil {
			return notFound(err, ErrReferralNotOwned)
		}
		if !promo.IsReferral || promo.ReferrerID == nil || *promo.ReferrerID != referrerID {
			return ErrReferralNotOwned
		}
		uses, err := s.usages.CountByPromo(ctx, tx, promo.ID)
		if err != nil {
			return err
		}
		action := "referral_delete"
		if uses == 0 {
			if _, err := s.promos.Delete(ctx, tx, promo.ID); err != nil {
				return err
			}
			result.Deleted = true
		} else {
			if _, err := s.promos.Deactivate(ctx, tx, promo.ID); err != nil {
				return err
			}
			result.Deactivated = true
			action = "referral_deactivate"
		}
		return s.audit.Log(ctx, tx, store.AuditEntry{
			ActorID:    referrerID,
			Action:     action,
			EntityType: "promo_code",
			EntityID:   promo.ID,
			Data:       map[string]any{"code": promo.Code, "usages": uses},
		})
	})
	if err != nil {
		return ReferralDeletion{}, err
	}
	return result, nil
}

func (s *PromoService) ListReferralCodes(ctx context.Context, referrerID string) ([]models.PromoCode, error) {
	return s.promos.ListByReferrer(ctx, referrerID)
}

// MarkRewardPaid flips one reward flag. A second call for the same reward
// returns ErrRewardAlreadyPaid.
func (s *PromoService) MarkRewardPaid(ctx context.Context, actorID, usageID, reward string) error {
	if reward != store.RewardReferrer && reward != store.RewardReferred {
		return ErrUnknownRewardType
	}
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.usages.MarkRewardPaid(ctx, tx, usageID, reward)
		if err != nil {
			return err
		}
		if rows == 0 {
			if _, err := s.usages.GetByID(ctx, tx, usageID); err != nil {
				return notFound(err, ErrUsageNotFound)
			}
			return ErrRewardAlreadyPaid
		}
		return s.audit.Log(ctx, tx, store.AuditEntry{
			ActorID:    actorID,
			Action:     "reward_paid",
			EntityType: "promo_code_usage",
			EntityID:   usageID,
			Data:       map[string]any{"reward": reward},
		})
	})
}

func (s *PromoService) GetReferralRewards(ctx context.Context, referrerID string) (ReferralRewards, error) {
	rows, err := s.usages.ListRewardsByReferrer(ctx, referrerID)
	if err != nil {
		return ReferralRewards{}, err
	}
	out := ReferralRewards{Rewards: rows}
	for _, r := range rows {
		if r.ReferrerRewardPaid {
			out.TotalPaid += r.ReferrerReward
		} else {
			out.TotalPending += r.ReferrerReward
		}
	}
	return out, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
