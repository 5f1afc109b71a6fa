package models

import "time"

const (
	TxTypeTopup        = "topup"
	TxTypeSMSDeduction = "sms_deduction"
)

const (
	SMSStatusPending = "pending"
	SMSStatusSent    = "sent"
	SMSStatusFailed  = "failed"
)

const DeliveryStatusDelivered = "delivered"

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
	DiscountReferral   = "referral"
)

const (
	SystemTopupClearing = "topup_clearing"
	SystemSMSRevenue    = "sms_revenue"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Account is a user's wallet, or a system counter-account when IsSystem is set.
type Account struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	SystemCode *string   `db:"system_code" json:"system_code,omitempty"`
	Currency   string    `db:"currency" json:"currency"`
	Balance    int64     `db:"balance" json:"balance"`
	IsSystem   bool      `db:"is_system" json:"is_system"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type Transaction struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	Amount    int64     `db:"amount" json:"amount"`
	Currency  string    `db:"currency" json:"currency"`
	Reference *string   `db:"reference" json:"reference,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type LedgerEntry struct {
	ID            string `db:"id" json:"id"`
	TransactionID string `db:"transaction_id" json:"transaction_id"`
	AccountID     string `db:"account_id" json:"account_id"`
	Amount        int64  `db:"amount" json:"amount"`
	Currency      string `db:"currency" json:"currency"`
	Description   string `db:"description" json:"description"`
}

type SMSMessage struct {
	ID                string    `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"user_id"`
	Recipient         string    `db:"recipient" json:"recipient"`
	Message           string    `db:"message" json:"message"`
	Status            string    `db:"status" json:"status"`
	Cost              int64     `db:"cost" json:"cost"`
	ProviderMessageID *string   `db:"provider_message_id" json:"provider_message_id,omitempty"`
	ProviderStatus    string    `db:"provider_status" json:"provider_status"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

type DeliveryReport struct {
	ID        string    `db:"id" json:"id"`
	SMSID     string    `db:"sms_id" json:"sms_id"`
	Status    string    `db:"status" json:"status"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PromoCode amounts are minor units. For percentage codes DiscountValue is the
// percent scaled by 100.
type PromoCode struct {
	ID                string    `db:"id" json:"id"`
	Code              string    `db:"code" json:"code"`
	DiscountType      string    `db:"discount_type" json:"discount_type"`
	DiscountValue     int64     `db:"discount_value" json:"discount_value"`
	ReferrerReward    *int64    `db:"referrer_reward" json:"referrer_reward,omitempty"`
	ValidFrom         time.Time `db:"valid_from" json:"valid_from"`
	ValidUntil        time.Time `db:"valid_until" json:"valid_until"`
	MaxUses           *int      `db:"max_uses" json:"max_uses,omitempty"`
	CurrentUses       int       `db:"current_uses" json:"current_uses"`
	MinPurchaseAmount int64     `db:"min_purchase_amount" json:"min_purchase_amount"`
	IsActive          bool      `db:"is_active" json:"is_active"`
	IsReferral        bool      `db:"is_referral" json:"is_referral"`
	ReferrerID        *string   `db:"referrer_id" json:"referrer_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

type PromoCodeUsage struct {
	ID                 string    `db:"id" json:"id"`
	PromoCodeID        string    `db:"promo_code_id" json:"promo_code_id"`
	UserID             string    `db:"user_id" json:"user_id"`
	ReferrerRewardPaid bool      `db:"referrer_reward_paid" json:"referrer_reward_paid"`
	ReferredRewardPaid bool      `db:"referred_reward_paid" json:"referred_reward_paid"`
	UsedAt             time.Time `db:"used_at" json:"used_at"`
}

type APIKey struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"user_id"`
	Key        string     `db:"key" json:"-"`
	Name       string     `db:"name" json:"name"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
}

type Contact struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Name        string    `db:"name" json:"name"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	GroupName   string    `db:"group_name" json:"group_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type SMSTemplate struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type AuditLog struct {
	ID          string    `db:"id" json:"id"`
	ActorUserID *string   `db:"actor_user_id" json:"actor_user_id,omitempty"`
	Action      string    `db:"action" json:"action"`
	EntityType  string    `db:"entity_type" json:"entity_type"`
	EntityID    string    `db:"entity_id" json:"entity_id"`
	Data        string    `db:"data" json:"data"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
