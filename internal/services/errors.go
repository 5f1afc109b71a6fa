package services

import (
	"database/sql"
	"errors"

	"smsgateway/internal/db"
	"smsgateway/internal/gateway"
	"smsgateway/internal/money"
	"smsgateway/internal/store"
)

// Kind classifies a failure for callers that need to react to it.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidRequest
	KindInsufficientFunds
	KindDispatchFailed
	KindAlreadyUsed
	KindUsageLimitReached
	KindExpired
	KindConflict
)

var kindCodes = map[Kind]string{
	KindInternal:          "internal_error",
	KindNotFound:          "not_found",
	KindInvalidRequest:    "invalid_request",
	KindInsufficientFunds: "insufficient_funds",
	KindDispatchFailed:    "dispatch_failed",
	KindAlreadyUsed:       "already_used",
	KindUsageLimitReached: "usage_limit_reached",
	KindExpired:           "expired",
	KindConflict:          "conflict",
}

func (k Kind) String() string {
	return kindCodes[k]
}

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInsufficientFunds = errors.New("insufficient balance")

	ErrInvalidTransactionType = errors.New("transaction type must be topup or sms_deduction")

	ErrNoRecipients      = errors.New("at least one recipient is required")
	ErrInvalidRecipient  = errors.New("invalid recipient phone number")
	ErrEmptyMessage      = errors.New("message is required")
	ErrMessageTooLong    = errors.New("message exceeds 160 characters")
	ErrDispatchFailed    = errors.New("sms dispatch failed")
	ErrMessageNotFound   = errors.New("sms message not found")
	ErrReportNotFound    = errors.New("delivery report not found")
	ErrTemplateNotFound  = errors.New("sms template not found")
	ErrEmptyContactGroup = errors.New("contact group has no members")

	ErrPromoNotFound      = errors.New("invalid promo code")
	ErrPromoExpired       = errors.New("promo code has expired")
	ErrPromoUsageLimit    = errors.New("promo code usage limit reached")
	ErrPromoAlreadyUsed   = errors.New("you have already used this promo code")
	ErrPromoConflict      = errors.New("promo code is being applied concurrently, retry")
	ErrPromoCodeExists    = errors.New("promo code already exists")
	ErrInvalidPromo       = errors.New("invalid promo code definition")
	ErrUsageNotFound      = errors.New("promo code usage not found")
	ErrRewardAlreadyPaid  = errors.New("reward already paid")
	ErrUnknownRewardType  = errors.New("reward type must be referrer or referred")
	ErrReferralNotOwned   = errors.New("referral code not found")
	ErrReferralCodeTaken  = errors.New("could not allocate a unique referral code")
	ErrCallbackUnknownSMS = errors.New("no message for provider message id")
	ErrInvalidCallback    = errors.New("invalid delivery callback")
)

var errorKinds = []struct {
	err  error
	kind Kind
}{
	{ErrUserNotFound, KindNotFound},
	{ErrWalletNotFound, KindNotFound},
	{ErrMessageNotFound, KindNotFound},
	{ErrReportNotFound, KindNotFound},
	{ErrTemplateNotFound, KindNotFound},
	{ErrPromoNotFound, KindNotFound},
	{ErrUsageNotFound, KindNotFound},
	{ErrReferralNotOwned, KindNotFound},
	{ErrCallbackUnknownSMS, KindNotFound},
	{sql.ErrNoRows, KindNotFound},

	{ErrInvalidAmount, KindInvalidRequest},
	{ErrInvalidTransactionType, KindInvalidRequest},
	{ErrNoRecipients, KindInvalidRequest},
	{ErrInvalidRecipient, KindInvalidRequest},
	{ErrEmptyMessage, KindInvalidRequest},
	{ErrMessageTooLong, KindInvalidRequest},
	{ErrEmptyContactGroup, KindInvalidRequest},
	{ErrInvalidPromo, KindInvalidRequest},
	{ErrUnknownRewardType, KindInvalidRequest},
	{ErrInvalidCallback, KindInvalidRequest},
	{store.ErrUnknownReward, KindInvalidRequest},
	{gateway.ErrInvalidPhone, KindInvalidRequest},
	{money.ErrInvalidAmount, KindInvalidRequest},
	{money.ErrTooManyDecimals, KindInvalidRequest},

	{ErrInsufficientFunds, KindInsufficientFunds},

	{ErrDispatchFailed, KindDispatchFailed},
	{gateway.ErrDispatch, KindDispatchFailed},
	{gateway.ErrMissingPayload, KindDispatchFailed},
	{gateway.ErrUnparseableResponse, KindDispatchFailed},

	{ErrPromoAlreadyUsed, KindAlreadyUsed},
	{ErrRewardAlreadyPaid, KindAlreadyUsed},
	{ErrPromoUsageLimit, KindUsageLimitReached},
	{ErrPromoExpired, KindExpired},

	{ErrPromoConflict, KindConflict},
	{ErrPromoCodeExists, KindConflict},
	{ErrReferralCodeTaken, KindConflict},
}

// KindOf classifies err. Anything unrecognised is KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, ek := range errorKinds {
		if errors.Is(err, ek.err) {
			return ek.kind
		}
	}
	if db.IsUniqueViolation(err) {
		return KindConflict
	}
	return KindInternal
}
