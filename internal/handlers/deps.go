package handlers

import (
	"context"

	"smsgateway/internal/jobs"
	"smsgateway/internal/models"
	"smsgateway/internal/services"
	"smsgateway/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
}

type AdminStore interface {
	Authorize(ctx context.Context, userID, role string) (bool, bool, error)
	CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	GrantRole(ctx context.Context, tx store.Execer, adminUserID, role string) error
	HasAnyAdmin(ctx context.Context, q store.Getter) (bool, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, e store.AuditEntry) error
	List(ctx context.Context, limit, offset int) ([]models.AuditLog, error)
}

type APIKeyStore interface {
	Create(ctx context.Context, id, userID, key, name string) error
	KeyExists(ctx context.Context, key string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.APIKey, error)
	GetForUser(ctx context.Context, userID, id string) (models.APIKey, error)
	Deactivate(ctx context.Context, userID, id string) (int64, error)
	Delete(ctx context.Context, userID, id string) (int64, error)
	ResolveActive(ctx context.Context, key string) (string, error)
}

type ContactStore interface {
	Create(ctx context.Context, id, userID string, in store.ContactInput) error
	List(ctx context.Context, userID, group string, limit, offset int) ([]models.Contact, error)
	Get(ctx context.Context, userID, id string) (models.Contact, error)
	Update(ctx context.Context, userID, id string, in store.ContactInput) (int64, error)
	Delete(ctx context.Context, userID, id string) (int64, error)
}

type TemplateStore interface {
	Create(ctx context.Context, id, userID, name, content string) error
	List(ctx context.Context, userID string, limit, offset int) ([]models.SMSTemplate, error)
	Get(ctx context.Context, userID, id string) (models.SMSTemplate, error)
	Update(ctx context.Context, userID, id, name, content string) (int64, error)
	Delete(ctx context.Context, userID, id string) (int64, error)
}

type WalletService interface {
	OpenWallet(ctx context.Context, tx store.Tx, userID string, opening int64) error
	GetBalance(ctx context.Context, userID string) (services.Balance, error)
	Topup(ctx context.Context, userID string, amount int64) (services.Balance, error)
	ListTransactions(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error)
	SelfCheck(ctx context.Context, userID string) (services.SelfCheckResult, error)
	Reconcile(ctx context.Context) ([]store.AccountBalanceSummary, error)
}

type SMSService interface {
	Send(ctx context.Context, req services.SendRequest) (services.SendResult, error)
	History(ctx context.Context, userID string, limit, offset int) ([]models.SMSMessage, error)
	DeleteHistory(ctx context.Context, userID, smsID string) error
}

type DeliveryService interface {
	Callback(ctx context.Context, providerMessageID, status string) (models.DeliveryReport, error)
	List(ctx context.Context, userID, smsID string) ([]models.DeliveryReport, error)
	Delete(ctx context.Context, userID, reportID string) error
}

type PromoService interface {
	Validate(ctx context.Context, code, userID string, cartTotal int64) (services.ValidateResult, error)
	Apply(ctx context.Context, code, userID string) (services.ApplyResult, error)
	Create(ctx context.Context, actorID string, in store.PromoCodeInput) (models.PromoCode, error)
	List(ctx context.Context, opts store.PromoListOpts) ([]models.PromoCode, error)
	Get(ctx context.Context, code string) (models.PromoCode, error)
	Update(ctx context.Context, actorID, code string, u store.PromoCodeUpdate) (models.PromoCode, error)
	Deactivate(ctx context.Context, actorID, code string) error
	CreateReferral(ctx context.Context, referrerID string, discountValue, referrerReward int64) (models.PromoCode, error)
	DeleteReferral(ctx context.Context, referrerID, code string) (services.ReferralDeletion, error)
	ListReferralCodes(ctx context.Context, referrerID string) ([]models.PromoCode, error)
	MarkRewardPaid(ctx context.Context, actorID, usageID, reward string) error
	GetReferralRewards(ctx context.Context, referrerID string) (services.ReferralRewards, error)
}

type MaintenanceService interface {
	Status(ctx context.Context) (services.MaintenanceStatus, error)
}

type CleanupTrigger interface {
	TriggerCleanup()
}

type DeletionQueue interface {
	Enqueue(userID string) (jobs.Job, error)
	Get(userID, jobID string) (jobs.Job, error)
	Cancel(userID, jobID string) (jobs.Job, error)
}
