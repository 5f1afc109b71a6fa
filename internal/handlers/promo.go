package handlers

import (
	"net/http"
	"strings"
	"time"

	"smsgateway/internal/models"
	"smsgateway/internal/store"
	"smsgateway/internal/validator"

	"github.com/go-chi/chi/v5"
)

// Amounts in promo payloads are decimal strings. A percentage such as "12.5"
// is stored scaled by 100, the same way minor units are.

type validatePromoRequest struct {
	Code      string `json:"code" validate:"required"`
	CartTotal string `json:"cart_total"`
}

func (h *Handler) ValidatePromo(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req validatePromoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	cartTotal, err := parseOptionalMinor(req.CartTotal)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	result, err := h.promo.Validate(r.Context(), strings.TrimSpace(req.Code), userID, cartTotal)
	if err != nil {
		respondServiceError(w, err, "unable to validate promo code")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type applyPromoRequest struct {
	Code string `json:"code" validate:"required"`
}

func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req applyPromoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.promo.Apply(r.Context(), strings.TrimSpace(req.Code), userID)
	if err != nil {
		respondServiceError(w, err, "unable to apply promo code")
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (h *Handler) GetPromoCode(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	promo, err := h.promo.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondServiceError(w, err, "unable to load promo code")
		return
	}
	respondJSON(w, http.StatusOK, promo)
}

type createReferralRequest struct {
	DiscountValue  string `json:"discount_value" validate:"required"`
	ReferrerReward string `json:"referrer_reward"`
}

func (h *Handler) CreateReferral(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req createReferralRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	discount, err := parseAmountMinor(req.DiscountValue)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	reward, err := parseOptionalMinor(req.ReferrerReward)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	promo, err := h.promo.CreateReferral(r.Context(), userID, discount, reward)
	if err != nil {
		respondServiceError(w, err, "unable to create referral code")
		return
	}
	respondJSON(w, http.StatusCreated, promo)
}

func (h *Handler) ListReferrals(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	codes, err := h.promo.ListReferralCodes(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err, "unable to load referral codes")
		return
	}
	respondJSON(w, http.StatusOK, codes)
}

func (h *Handler) DeleteReferral(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	result, err := h.promo.DeleteReferral(r.Context(), userID, chi.URLParam(r, "code"))
	if err != nil {
		respondServiceError(w, err, "unable to delete referral code")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) ReferralRewards(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	rewards, err := h.promo.GetReferralRewards(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err, "unable to load referral rewards")
		return
	}
	respondJSON(w, http.StatusOK, rewards)
}

type createPromoRequest struct {
	Code              string  `json:"code" validate:"required,max=64"`
	DiscountType      string  `json:"discount_type" validate:"required,oneof=percentage fixed referral"`
	DiscountValue     string  `json:"discount_value" validate:"required"`
	ReferrerReward    *string `json:"referrer_reward"`
	ValidFrom         string  `json:"valid_from"`
	ValidUntil        string  `json:"valid_until" validate:"required"`
	MaxUses           *int    `json:"max_uses"`
	MinPurchaseAmount string  `json:"min_purchase_amount"`
	IsActive          *bool   `json:"is_active"`
}

func (req createPromoRequest) input(now time.Time) (store.PromoCodeInput, error) {
	in := store.PromoCodeInput{
		Code:         strings.TrimSpace(req.Code),
		DiscountType: req.DiscountType,
		MaxUses:      req.MaxUses,
		IsActive:     true,
		IsReferral:   req.DiscountType == models.DiscountReferral,
	}
	if req.MaxUses != nil && *req.MaxUses <= 0 {
		return in, errInvalidMaxUses
	}
	var err error
	if in.DiscountValue, err = parseAmountMinor(req.DiscountValue); err != nil {
		return in, err
	}
	if in.ReferrerReward, err = parseMinorPtr(req.ReferrerReward); err != nil {
		return in, err
	}
	if in.MinPurchaseAmount, err = parseOptionalMinor(req.MinPurchaseAmount); err != nil {
		return in, err
	}
	in.ValidFrom = now
	if req.ValidFrom != "" {
		if in.ValidFrom, err = parseTime(req.ValidFrom); err != nil {
			return in, err
		}
	}
	if in.ValidUntil, err = parseTime(req.ValidUntil); err != nil {
		return in, err
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}
	return in, nil
}

func (h *Handler) AdminCreatePromo(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req createPromoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.input(time.Now().UTC())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	promo, err := h.promo.Create(r.Context(), userID, in)
	if err != nil {
		respondServiceError(w, err, "unable to create promo code")
		return
	}
	respondJSON(w, http.StatusCreated, promo)
}

func (h *Handler) AdminListPromos(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r, 50)
	promos, err := h.promo.List(r.Context(), store.PromoListOpts{
		ActiveOnly: r.URL.Query().Get("active") == "true",
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		respondServiceError(w, err, "unable to load promo codes")
		return
	}
	respondJSON(w, http.StatusOK, promos)
}

type updatePromoRequest struct {
	DiscountType      *string `json:"discount_type" validate:"omitempty,oneof=percentage fixed referral"`
	DiscountValue     *string `json:"discount_value"`
	ReferrerReward    *string `json:"referrer_reward"`
	ValidFrom         *string `json:"valid_from"`
	ValidUntil        *string `json:"valid_until"`
	MaxUses           *int    `json:"max_uses"`
	MinPurchaseAmount *string `json:"min_purchase_amount"`
	IsActive          *bool   `json:"is_active"`
}

func (req updatePromoRequest) update() (store.PromoCodeUpdate, error) {
	u := store.PromoCodeUpdate{
		DiscountType: req.DiscountType,
		MaxUses:      req.MaxUses,
		IsActive:     req.IsActive,
	}
	if req.MaxUses != nil && *req.MaxUses <= 0 {
		return u, errInvalidMaxUses
	}
	var err error
	if req.DiscountValue != nil {
		value, err := parseAmountMinor(*req.DiscountValue)
		if err != nil {
			return u, err
		}
		u.DiscountValue = &value
	}
	if u.ReferrerReward, err = parseMinorPtr(req.ReferrerReward); err != nil {
		return u, err
	}
	if u.MinPurchaseAmount, err = parseMinorPtr(req.MinPurchaseAmount); err != nil {
		return u, err
	}
	if u.ValidFrom, err = parseTimePtr(req.ValidFrom); err != nil {
		return u, err
	}
	if u.ValidUntil, err = parseTimePtr(req.ValidUntil); err != nil {
		return u, err
	}
	return u, nil
}

func (h *Handler) AdminUpdatePromo(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req updatePromoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := req.update()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	promo, err := h.promo.Update(r.Context(), userID, chi.URLParam(r, "code"), u)
	if err != nil {
		respondServiceError(w, err, "unable to update promo code")
		return
	}
	respondJSON(w, http.StatusOK, promo)
}

func (h *Handler) AdminDeactivatePromo(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.promo.Deactivate(r.Context(), userID, chi.URLParam(r, "code")); err != nil {
		respondServiceError(w, err, "unable to deactivate promo code")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handler) AdminMarkRewardPaid(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.promo.MarkRewardPaid(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "type")); err != nil {
		respondServiceError(w, err, "unable to mark reward paid")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}
