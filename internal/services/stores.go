package services

import (
	"context"
	"time"

	"smsgateway/internal/events"
	"smsgateway/internal/models"
	"smsgateway/internal/store"
	"smsgateway/internal/websocket"
)

type AccountStore interface {
	CreateWallet(ctx context.Context, tx store.Execer, id, userID, currency string) error
	GetWallet(ctx context.Context, userID, currency string) (models.Account, error)
	GetWalletForUpdate(ctx context.Context, tx store.Getter, userID, currency string) (models.Account, error)
	GetSystemAccount(ctx context.Context, q store.Getter, code, currency string) (string, error)
	AdjustBalance(ctx context.Context, tx store.Execer, accountID string, delta int64) (int64, error)
	BalanceSummary(ctx context.Context, userID string) ([]store.AccountBalanceSummary, error)
	ListMismatched(ctx context.Context) ([]store.AccountBalanceSummary, error)
}

type LedgerStore interface {
	InsertEntries(ctx context.Context, tx store.Execer, entries []store.LedgerEntryInput) error
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error)
	SumByUser(ctx context.Context, userID string) (int64, error)
}

type MessageStore interface {
	Insert(ctx context.Context, tx store.Execer, in store.MessageInput) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.SMSMessage, error)
	GetForUser(ctx context.Context, userID, id string) (models.SMSMessage, error)
	GetByProviderID(ctx context.Context, providerMessageID string) (models.SMSMessage, error)
	UpdateProviderStatus(ctx context.Context, tx store.Execer, id, providerStatus string) error
	DeleteForUser(ctx context.Context, userID, id string) (int64, error)
}

type DeliveryReportStore interface {
	Create(ctx context.Context, tx store.Execer, id, smsID, status string) error
	ListForUser(ctx context.Context, userID, smsID string) ([]models.DeliveryReport, error)
	DeleteForUser(ctx context.Context, userID, reportID string) (int64, error)
}

type PromoStore interface {
	Create(ctx context.Context, tx store.Execer, in store.PromoCodeInput) error
	CodeExists(ctx context.Context, q store.Getter, code string) (bool, error)
	GetByCode(ctx context.Context, code string) (models.PromoCode, error)
	GetByCodeForUpdate(ctx context.Context, tx store.Getter, code string) (models.PromoCode, error)
	List(ctx context.Context, opts store.PromoListOpts) ([]models.PromoCode, error)
	ListByReferrer(ctx context.Context, referrerID string) ([]models.PromoCode, error)
	Update(ctx context.Context, tx store.Execer, id string, u store.PromoCodeUpdate) (int64, error)
	IncrementUses(ctx context.Context, tx store.Execer, id string) (int64, error)
	Deactivate(ctx context.Context, tx store.Execer, id string) (int64, error)
	Delete(ctx context.Context, tx store.Execer, id string) (int64, error)
}

type UsageStore interface {
	Create(ctx context.Context, tx store.Execer, id, promoCodeID, userID string) error
	ExistsForUser(ctx context.Context, q store.Getter, promoCodeID, userID string) (bool, error)
	CountByPromo(ctx context.Context, q store.Getter, promoCodeID string) (int64, error)
	GetByID(ctx context.Context, q store.Getter, id string) (models.PromoCodeUsage, error)
	MarkRewardPaid(ctx context.Context, tx store.Execer, usageID, reward string) (int64, error)
	ListRewardsByReferrer(ctx context.Context, referrerID string) ([]store.ReferralReward, error)
}

type UserStore interface {
	Delete(ctx context.Context, tx store.Execer, userID string) (int64, error)
}

type AccountReleaser interface {
	ReleaseUserEntries(ctx context.Context, tx store.Execer, userID string) (int64, error)
}

type TemplateStore interface {
	Get(ctx context.Context, userID, id string) (models.SMSTemplate, error)
}

type ContactStore interface {
	PhonesByGroup(ctx context.Context, userID, group string) ([]string, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, e store.AuditEntry) error
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

type EventPublisher interface {
	PublishDelivery(event events.DeliveryEvent) error
}

// Clock is swapped in tests that depend on promo validity windows.
type Clock func() time.Time
