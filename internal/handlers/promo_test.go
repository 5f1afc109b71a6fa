package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"smsgateway/internal/models"
	"smsgateway/internal/services"
	"smsgateway/internal/store"
)

func TestValidatePromoPassesCartTotal(t *testing.T) {
	var gotCode string
	var gotTotal int64
	h := newTestHandler(testConfig(), Deps{
		Promo: stubPromoService{validateFn: func(_ context.Context, code, _ string, cartTotal int64) (services.ValidateResult, error) {
			gotCode, gotTotal = code, cartTotal
			return services.ValidateResult{Message: "Promo code has expired"}, nil
		}},
	})
	rr := serve(t, h, http.MethodPost, "/promo/validate", `{"code":" SAVE10 ","cart_total":"200.00"}`, "user-1")
	expectStatus(t, rr, http.StatusOK)
	if gotCode != "SAVE10" || gotTotal != 20000 {
		t.Fatalf("unexpected validate call: %q %d", gotCode, gotTotal)
	}
	var body services.ValidateResult
	decodeBody(t, rr, &body)
	if body.Valid || body.Message != "Promo code has expired" {
		t.Fatalf("business rejections answer 200 with the reason: %#v", body)
	}

	rr = serve(t, h, http.MethodPost, "/promo/validate", `{"cart_total":"200.00"}`, "user-1")
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestApplyPromoErrorKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{nil, http.StatusCreated},
		{services.ErrPromoNotFound, http.StatusNotFound},
		{services.ErrPromoAlreadyUsed, http.StatusConflict},
		{services.ErrPromoUsageLimit, http.StatusConflict},
		{services.ErrPromoConflict, http.StatusConflict},
		{services.ErrPromoExpired, http.StatusGone},
	}
	for _, tc := range cases {
		h := newTestHandler(testConfig(), Deps{
			Promo: stubPromoService{applyFn: func(_ context.Context, code, _ string) (services.ApplyResult, error) {
				if tc.err != nil {
					return services.ApplyResult{}, tc.err
				}
				return services.ApplyResult{UsageID: "usage-1", Code: code}, nil
			}},
		})
		rr := serve(t, h, http.MethodPost, "/promo/apply", `{"code":"SAVE10"}`, "user-1")
		expectStatus(t, rr, tc.status)
	}
}

func TestCreateReferral(t *testing.T) {
	var gotDiscount, gotReward int64
	h := newTestHandler(testConfig(), Deps{
		Promo: stubPromoService{createReferralFn: func(_ context.Context, referrerID string, discount, reward int64) (models.PromoCode, error) {
			gotDiscount, gotReward = discount, reward
			return models.PromoCode{Code: "REF-1", ReferrerID: &referrerID, IsReferral: true}, nil
		}},
	})
	rr := serve(t, h, http.MethodPost, "/referrals", `{"discount_value":"5","referrer_reward":"2.50"}`, "user-1")
	expectStatus(t, rr, http.StatusCreated)
	if gotDiscount != 500 || gotReward != 250 {
		t.Fatalf("unexpected amounts: %d %d", gotDiscount, gotReward)
	}

	rr = serve(t, h, http.MethodPost, "/referrals", `{"discount_value":"0"}`, "user-1")
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestDeleteReferralNotOwned(t *testing.T) {
	h := newTestHandler(testConfig(), Deps{
		Promo: stubPromoService{deleteReferralFn: func(context.Context, string, string) (services.ReferralDeletion, error) {
			return services.ReferralDeletion{}, services.ErrReferralNotOwned
		}},
	})
	rr := serve(t, h, http.MethodDelete, "/referrals/REF-9", "", "user-1")
	expectStatus(t, rr, http.StatusNotFound)
}

func TestAdminCreatePromo(t *testing.T) {
	var got store.PromoCodeInput
	var actor string
	h := newTestHandler(testConfig(), Deps{
		Admins: superAdmins("admin-1"),
		Promo: stubPromoService{createFn: func(_ context.Context, actorID string, in store.PromoCodeInput) (models.PromoCode, error) {
			got, actor = in, actorID
			return models.PromoCode{Code: in.Code}, nil
		}},
	})
	body := `{"code":"SAVE12","discount_type":"percentage","discount_value":"12.5","valid_from":"2026-01-01T00:00:00Z","valid_until":"2026-12-31T00:00:00Z","max_uses":100,"min_purchase_amount":"50"}`
	rr := serve(t, h, http.MethodPost, "/admin/promo/codes", body, "admin-1")
	expectStatus(t, rr, http.StatusCreated)
	if actor != "admin-1" || got.Code != "SAVE12" || got.DiscountValue != 1250 || got.MinPurchaseAmount != 5000 {
		t.Fatalf("unexpected promo input: %#v", got)
	}
	if !got.IsActive || got.IsReferral || got.MaxUses == nil || *got.MaxUses != 100 {
		t.Fatalf("unexpected flags: %#v", got)
	}
	if !got.ValidUntil.Equal(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected valid_until: %v", got.ValidUntil)
	}
}

func TestAdminCreatePromoValidation(t *testing.T) {
	cases := []string{
		`{"discount_type":"percentage","discount_value":"10","valid_until":"2026-12-31T00:00:00Z"}`,
		`{"code":"X","discount_type":"bogus","discount_value":"10","valid_until":"2026-12-31T00:00:00Z"}`,
		`{"code":"X","discount_type":"fixed","discount_value":"10","valid_until":"tomorrow"}`,
		`{"code":"X","discount_type":"fixed","discount_value":"10","valid_until":"2026-12-31T00:00:00Z","max_uses":0}`,
	}
	h := newTestHandler(testConfig(), Deps{Admins: superAdmins("admin-1")})
	for _, body := range cases {
		rr := serve(t, h, http.MethodPost, "/admin/promo/codes", body, "admin-1")
		expectStatus(t, rr, http.StatusBadRequest)
	}
}

func TestAdminPromoRoutesRequireRole(t *testing.T) {
	h := newTestHandler(testConfig(), Deps{
		Admins: stubAdminStore{authorizeFn: func(_ context.Context, userID, role string) (bool, bool, error) {
			if userID == "ops-admin" {
				return true, role == RoleOps, nil
			}
			return false, false, nil
		}},
	})
	expectStatus(t, serve(t, h, http.MethodGet, "/admin/promo/codes", "", "user-1"), http.StatusForbidden)
	expectStatus(t, serve(t, h, http.MethodGet, "/admin/promo/codes", "", "ops-admin"), http.StatusForbidden)
	expectStatus(t, serve(t, h, http.MethodGet, "/admin/analytics", "", "ops-admin"), http.StatusOK)
}

func TestAdminUpdatePromo(t *testing.T) {
	var got store.PromoCodeUpdate
	h := newTestHandler(testConfig(), Deps{
		Admins: superAdmins("admin-1"),
		Promo: stubPromoService{updateFn: func(_ context.Context, _, code string, u store.PromoCodeUpdate) (models.PromoCode, error) {
			got = u
			return models.PromoCode{Code: code}, nil
		}},
	})
	rr := serve(t, h, http.MethodPut, "/admin/promo/codes/SAVE10", `{"discount_value":"15","is_active":false}`, "admin-1")
	expectStatus(t, rr, http.StatusOK)
	if got.DiscountValue == nil || *got.DiscountValue != 1500 || got.IsActive == nil || *got.IsActive {
		t.Fatalf("unexpected update: %#v", got)
	}
	if got.ValidUntil != nil || got.MaxUses != nil || got.MinPurchaseAmount != nil {
		t.Fatalf("unset fields must stay nil: %#v", got)
	}
}

func TestAdminMarkRewardPaid(t *testing.T) {
	h := newTestHandler(testConfig(), Deps{
		Admins: superAdmins("admin-1"),
		Promo: stubPromoService{markRewardPaidFn: func(_ context.Context, _, usageID, reward string) error {
			switch {
			case reward != store.RewardReferrer && reward != store.RewardReferred:
				return services.ErrUnknownRewardType
			case usageID == "paid":
				return services.ErrRewardAlreadyPaid
			}
			return nil
		}},
	})
	expectStatus(t, serve(t, h, http.MethodPost, "/admin/promo/usages/u-1/rewards/referrer/paid", "", "admin-1"), http.StatusOK)
	expectStatus(t, serve(t, h, http.MethodPost, "/admin/promo/usages/paid/rewards/referred/paid", "", "admin-1"), http.StatusConflict)
	expectStatus(t, serve(t, h, http.MethodPost, "/admin/promo/usages/u-1/rewards/bonus/paid", "", "admin-1"), http.StatusBadRequest)
}
