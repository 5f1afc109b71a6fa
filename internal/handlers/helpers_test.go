package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smsgateway/internal/auth"
	"smsgateway/internal/config"
	"smsgateway/internal/jobs"
	"smsgateway/internal/models"
	"smsgateway/internal/services"
	"smsgateway/internal/store"
	"smsgateway/internal/websocket"

	"github.com/jmoiron/sqlx"
)

const testSecret = "secret"

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn        func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	getByEmailFn    func(ctx context.Context, email string) (models.User, error)
	getByUsernameFn func(ctx context.Context, username string) (models.User, error)
	getByIDFn       func(ctx context.Context, userID string) (models.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	if s.getByUsernameFn == nil {
		return models.User{}, nil
	}
	return s.getByUsernameFn(ctx, username)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{}, nil
	}
	return s.getByIDFn(ctx, userID)
}

type stubAdminStore struct {
	authorizeFn   func(ctx context.Context, userID, role string) (bool, bool, error)
	createAdminFn func(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	grantRoleFn   func(ctx context.Context, tx store.Execer, adminUserID, role string) error
	hasAnyAdminFn func(ctx context.Context, q store.Getter) (bool, error)
}

func (s stubAdminStore) Authorize(ctx context.Context, userID, role string) (bool, bool, error) {
	if s.authorizeFn == nil {
		return false, false, nil
	}
	return s.authorizeFn(ctx, userID, role)
}

func (s stubAdminStore) CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error {
	if s.createAdminFn == nil {
		return nil
	}
	return s.createAdminFn(ctx, tx, userID, isSuper, createdBy)
}

func (s stubAdminStore) GrantRole(ctx context.Context, tx store.Execer, adminUserID, role string) error {
	if s.grantRoleFn == nil {
		return nil
	}
	return s.grantRoleFn(ctx, tx, adminUserID, role)
}

func (s stubAdminStore) HasAnyAdmin(ctx context.Context, q store.Getter) (bool, error) {
	if s.hasAnyAdminFn == nil {
		return true, nil
	}
	return s.hasAnyAdminFn(ctx, q)
}

// superAdmins treats the listed users as super admins and everyone else as a regular user.
func superAdmins(ids ...string) stubAdminStore {
	return stubAdminStore{authorizeFn: func(_ context.Context, userID, _ string) (bool, bool, error) {
		for _, id := range ids {
			if id == userID {
				return true, true, nil
			}
		}
		return false, false, nil
	}}
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, e store.AuditEntry) error
	listFn func(ctx context.Context, limit, offset int) ([]models.AuditLog, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, e store.AuditEntry) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, e)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]models.AuditLog, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubAPIKeyStore struct {
	createFn        func(ctx context.Context, id, userID, key, name string) error
	keyExistsFn     func(ctx context.Context, key string) (bool, error)
	listByUserFn    func(ctx context.Context, userID string) ([]models.APIKey, error)
	getForUserFn    func(ctx context.Context, userID, id string) (models.APIKey, error)
	deactivateFn    func(ctx context.Context, userID, id string) (int64, error)
	deleteFn        func(ctx context.Context, userID, id string) (int64, error)
	resolveActiveFn func(ctx context.Context, key string) (string, error)
}

func (s stubAPIKeyStore) Create(ctx context.Context, id, userID, key, name string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, id, userID, key, name)
}

func (s stubAPIKeyStore) KeyExists(ctx context.Context, key string) (bool, error) {
	if s.keyExistsFn == nil {
		return false, nil
	}
	return s.keyExistsFn(ctx, key)
}

func (s stubAPIKeyStore) ListByUser(ctx context.Context, userID string) ([]models.APIKey, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

func (s stubAPIKeyStore) GetForUser(ctx context.Context, userID, id string) (models.APIKey, error) {
	if s.getForUserFn == nil {
		return models.APIKey{}, nil
	}
	return s.getForUserFn(ctx, userID, id)
}

func (s stubAPIKeyStore) Deactivate(ctx context.Context, userID, id string) (int64, error) {
	if s.deactivateFn == nil {
		return 1, nil
	}
	return s.deactivateFn(ctx, userID, id)
}

func (s stubAPIKeyStore) Delete(ctx context.Context, userID, id string) (int64, error) {
	if s.deleteFn == nil {
		return 1, nil
	}
	return s.deleteFn(ctx, userID, id)
}

func (s stubAPIKeyStore) ResolveActive(ctx context.Context, key string) (string, error) {
	if s.resolveActiveFn == nil {
		return "", nil
	}
	return s.resolveActiveFn(ctx, key)
}

type stubContactStore struct {
	createFn func(ctx context.Context, id, userID string, in store.ContactInput) error
	listFn   func(ctx context.Context, userID, group string, limit, offset int) ([]models.Contact, error)
	getFn    func(ctx context.Context, userID, id string) (models.Contact, error)
	updateFn func(ctx context.Context, userID, id string, in store.ContactInput) (int64, error)
	deleteFn func(ctx context.Context, userID, id string) (int64, error)
}

func (s stubContactStore) Create(ctx context.Context, id, userID string, in store.ContactInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, id, userID, in)
}

func (s stubContactStore) List(ctx context.Context, userID, group string, limit, offset int) ([]models.Contact, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, userID, group, limit, offset)
}

func (s stubContactStore) Get(ctx context.Context, userID, id string) (models.Contact, error) {
	if s.getFn == nil {
		return models.Contact{ID: id, UserID: userID}, nil
	}
	return s.getFn(ctx, userID, id)
}

func (s stubContactStore) Update(ctx context.Context, userID, id string, in store.ContactInput) (int64, error) {
	if s.updateFn == nil {
		return 1, nil
	}
	return s.updateFn(ctx, userID, id, in)
}

func (s stubContactStore) Delete(ctx context.Context, userID, id string) (int64, error) {
	if s.deleteFn == nil {
		return 1, nil
	}
	return s.deleteFn(ctx, userID, id)
}

type stubTemplateStore struct {
	createFn func(ctx context.Context, id, userID, name, content string) error
	listFn   func(ctx context.Context, userID string, limit, offset int) ([]models.SMSTemplate, error)
	getFn    func(ctx context.Context, userID, id string) (models.SMSTemplate, error)
	updateFn func(ctx context.Context, userID, id, name, content string) (int64, error)
	deleteFn func(ctx context.Context, userID, id string) (int64, error)
}

func (s stubTemplateStore) Create(ctx context.Context, id, userID, name, content string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, id, userID, name, content)
}

func (s stubTemplateStore) List(ctx context.Context, userID string, limit, offset int) ([]models.SMSTemplate, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, userID, limit, offset)
}

func (s stubTemplateStore) Get(ctx context.Context, userID, id string) (models.SMSTemplate, error) {
	if s.getFn == nil {
		return models.SMSTemplate{ID: id, UserID: userID}, nil
	}
	return s.getFn(ctx, userID, id)
}

func (s stubTemplateStore) Update(ctx context.Context, userID, id, name, content string) (int64, error) {
	if s.updateFn == nil {
		return 1, nil
	}
	return s.updateFn(ctx, userID, id, name, content)
}

func (s stubTemplateStore) Delete(ctx context.Context, userID, id string) (int64, error) {
	if s.deleteFn == nil {
		return 1, nil
	}
	return s.deleteFn(ctx, userID, id)
}

type stubWalletService struct {
	openWalletFn       func(ctx context.Context, tx store.Tx, userID string, opening int64) error
	getBalanceFn       func(ctx context.Context, userID string) (services.Balance, error)
	topupFn            func(ctx context.Context, userID string, amount int64) (services.Balance, error)
	listTransactionsFn func(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error)
	selfCheckFn        func(ctx context.Context, userID string) (services.SelfCheckResult, error)
	reconcileFn        func(ctx context.Context) ([]store.AccountBalanceSummary, error)
}

func (s stubWalletService) OpenWallet(ctx context.Context, tx store.Tx, userID string, opening int64) error {
	if s.openWalletFn == nil {
		return nil
	}
	return s.openWalletFn(ctx, tx, userID, opening)
}

func (s stubWalletService) GetBalance(ctx context.Context, userID string) (services.Balance, error) {
	if s.getBalanceFn == nil {
		return services.Balance{UserID: userID}, nil
	}
	return s.getBalanceFn(ctx, userID)
}

func (s stubWalletService) Topup(ctx context.Context, userID string, amount int64) (services.Balance, error) {
	if s.topupFn == nil {
		return services.Balance{UserID: userID, Balance: amount}, nil
	}
	return s.topupFn(ctx, userID, amount)
}

func (s stubWalletService) ListTransactions(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error) {
	if s.listTransactionsFn == nil {
		return nil, nil
	}
	return s.listTransactionsFn(ctx, userID, txType, limit, offset)
}

func (s stubWalletService) SelfCheck(ctx context.Context, userID string) (services.SelfCheckResult, error) {
	if s.selfCheckFn == nil {
		return services.SelfCheckResult{UserID: userID, Consistent: true}, nil
	}
	return s.selfCheckFn(ctx, userID)
}

func (s stubWalletService) Reconcile(ctx context.Context) ([]store.AccountBalanceSummary, error) {
	if s.reconcileFn == nil {
		return nil, nil
	}
	return s.reconcileFn(ctx)
}

type stubSMSService struct {
	sendFn          func(ctx context.Context, req services.SendRequest) (services.SendResult, error)
	historyFn       func(ctx context.Context, userID string, limit, offset int) ([]models.SMSMessage, error)
	deleteHistoryFn func(ctx context.Context, userID, smsID string) error
}

func (s stubSMSService) Send(ctx context.Context, req services.SendRequest) (services.SendResult, error) {
	if s.sendFn == nil {
		return services.SendResult{}, nil
	}
	return s.sendFn(ctx, req)
}

func (s stubSMSService) History(ctx context.Context, userID string, limit, offset int) ([]models.SMSMessage, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(ctx, userID, limit, offset)
}

func (s stubSMSService) DeleteHistory(ctx context.Context, userID, smsID string) error {
	if s.deleteHistoryFn == nil {
		return nil
	}
	return s.deleteHistoryFn(ctx, userID, smsID)
}

type stubDeliveryService struct {
	callbackFn func(ctx context.Context, providerMessageID, status string) (models.DeliveryReport, error)
	listFn     func(ctx context.Context, userID, smsID string) ([]models.DeliveryReport, error)
	deleteFn   func(ctx context.Context, userID, reportID string) error
}

func (s stubDeliveryService) Callback(ctx context.Context, providerMessageID, status string) (models.DeliveryReport, error) {
	if s.callbackFn == nil {
		return models.DeliveryReport{}, nil
	}
	return s.callbackFn(ctx, providerMessageID, status)
}

func (s stubDeliveryService) List(ctx context.Context, userID, smsID string) ([]models.DeliveryReport, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, userID, smsID)
}

func (s stubDeliveryService) Delete(ctx context.Context, userID, reportID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, userID, reportID)
}

type stubPromoService struct {
	validateFn       func(ctx context.Context, code, userID string, cartTotal int64) (services.ValidateResult, error)
	applyFn          func(ctx context.Context, code, userID string) (services.ApplyResult, error)
	createFn         func(ctx context.Context, actorID string, in store.PromoCodeInput) (models.PromoCode, error)
	listFn           func(ctx context.Context, opts store.PromoListOpts) ([]models.PromoCode, error)
	getFn            func(ctx context.Context, code string) (models.PromoCode, error)
	updateFn         func(ctx context.Context, actorID, code string, u store.PromoCodeUpdate) (models.PromoCode, error)
	deactivateFn     func(ctx context.Context, actorID, code string) error
	createReferralFn func(ctx context.Context, referrerID string, discountValue, referrerReward int64) (models.PromoCode, error)
	deleteReferralFn func(ctx context.Context, referrerID, code string) (services.ReferralDeletion, error)
	listReferralsFn  func(ctx context.Context, referrerID string) ([]models.PromoCode, error)
	markRewardPaidFn func(ctx context.Context, actorID, usageID, reward string) error
	rewardsFn        func(ctx context.Context, referrerID string) (services.ReferralRewards, error)
}

func (s stubPromoService) Validate(ctx context.Context, code, userID string, cartTotal int64) (services.ValidateResult, error) {
	if s.validateFn == nil {
		return services.ValidateResult{}, nil
	}
	return s.validateFn(ctx, code, userID, cartTotal)
}

func (s stubPromoService) Apply(ctx context.Context, code, userID string) (services.ApplyResult, error) {
	if s.applyFn == nil {
		return services.ApplyResult{}, nil
	}
	return s.applyFn(ctx, code, userID)
}

func (s stubPromoService) Create(ctx context.Context, actorID string, in store.PromoCodeInput) (models.PromoCode, error) {
	if s.createFn == nil {
		return models.PromoCode{}, nil
	}
	return s.createFn(ctx, actorID, in)
}

func (s stubPromoService) List(ctx context.Context, opts store.PromoListOpts) ([]models.PromoCode, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, opts)
}

func (s stubPromoService) Get(ctx context.Context, code string) (models.PromoCode, error) {
	if s.getFn == nil {
		return models.PromoCode{Code: code}, nil
	}
	return s.getFn(ctx, code)
}

func (s stubPromoService) Update(ctx context.Context, actorID, code string, u store.PromoCodeUpdate) (models.PromoCode, error) {
	if s.updateFn == nil {
		return models.PromoCode{Code: code}, nil
	}
	return s.updateFn(ctx, actorID, code, u)
}

func (s stubPromoService) Deactivate(ctx context.Context, actorID, code string) error {
	if s.deactivateFn == nil {
		return nil
	}
	return s.deactivateFn(ctx, actorID, code)
}

func (s stubPromoService) CreateReferral(ctx context.Context, referrerID string, discountValue, referrerReward int64) (models.PromoCode, error) {
	if s.createReferralFn == nil {
		return models.PromoCode{}, nil
	}
	return s.createReferralFn(ctx, referrerID, discountValue, referrerReward)
}

func (s stubPromoService) DeleteReferral(ctx context.Context, referrerID, code string) (services.ReferralDeletion, error) {
	if s.deleteReferralFn == nil {
		return services.ReferralDeletion{Code: code, Deleted: true}, nil
	}
	return s.deleteReferralFn(ctx, referrerID, code)
}

func (s stubPromoService) ListReferralCodes(ctx context.Context, referrerID string) ([]models.PromoCode, error) {
	if s.listReferralsFn == nil {
		return nil, nil
	}
	return s.listReferralsFn(ctx, referrerID)
}

func (s stubPromoService) MarkRewardPaid(ctx context.Context, actorID, usageID, reward string) error {
	if s.markRewardPaidFn == nil {
		return nil
	}
	return s.markRewardPaidFn(ctx, actorID, usageID, reward)
}

func (s stubPromoService) GetReferralRewards(ctx context.Context, referrerID string) (services.ReferralRewards, error) {
	if s.rewardsFn == nil {
		return services.ReferralRewards{}, nil
	}
	return s.rewardsFn(ctx, referrerID)
}

type stubMaintenance struct {
	statusFn func(ctx context.Context) (services.MaintenanceStatus, error)
}

func (s stubMaintenance) Status(ctx context.Context) (services.MaintenanceStatus, error) {
	if s.statusFn == nil {
		return services.MaintenanceStatus{}, nil
	}
	return s.statusFn(ctx)
}

type stubCleanup struct {
	triggered *int
}

func (s stubCleanup) TriggerCleanup() {
	if s.triggered != nil {
		*s.triggered++
	}
}

type stubDeletionQueue struct {
	enqueueFn func(userID string) (jobs.Job, error)
	getFn     func(userID, jobID string) (jobs.Job, error)
	cancelFn  func(userID, jobID string) (jobs.Job, error)
}

func (s stubDeletionQueue) Enqueue(userID string) (jobs.Job, error) {
	if s.enqueueFn == nil {
		return jobs.Job{UserID: userID, Status: jobs.StatusQueued}, nil
	}
	return s.enqueueFn(userID)
}

func (s stubDeletionQueue) Get(userID, jobID string) (jobs.Job, error) {
	if s.getFn == nil {
		return jobs.Job{ID: jobID, UserID: userID}, nil
	}
	return s.getFn(userID, jobID)
}

func (s stubDeletionQueue) Cancel(userID, jobID string) (jobs.Job, error) {
	if s.cancelFn == nil {
		return jobs.Job{ID: jobID, UserID: userID, Status: jobs.StatusCancelled}, nil
	}
	return s.cancelFn(userID, jobID)
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      testSecret,
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
		Billing: config.BillingConfig{
			Currency:      "UGX",
			UnitCostMinor: 3200,
			OpeningMinor:  0,
		},
		Gateway: config.GatewayConfig{
			SenderID:      "SMSGW",
			CallbackToken: "cb-token",
		},
	}
}

// newTestHandler fills every dependency left empty in deps with a zero stub.
func newTestHandler(cfg config.Config, deps Deps) *Handler {
	if deps.TxRunner == nil {
		deps.TxRunner = fakeTxRunner{}
	}
	if deps.Users == nil {
		deps.Users = stubUserStore{}
	}
	if deps.Admins == nil {
		deps.Admins = stubAdminStore{}
	}
	if deps.Audit == nil {
		deps.Audit = stubAuditStore{}
	}
	if deps.APIKeys == nil {
		deps.APIKeys = stubAPIKeyStore{}
	}
	if deps.Contacts == nil {
		deps.Contacts = stubContactStore{}
	}
	if deps.Templates == nil {
		deps.Templates = stubTemplateStore{}
	}
	if deps.Wallet == nil {
		deps.Wallet = stubWalletService{}
	}
	if deps.SMS == nil {
		deps.SMS = stubSMSService{}
	}
	if deps.Delivery == nil {
		deps.Delivery = stubDeliveryService{}
	}
	if deps.Promo == nil {
		deps.Promo = stubPromoService{}
	}
	if deps.Maintenance == nil {
		deps.Maintenance = stubMaintenance{}
	}
	if deps.Cleanup == nil {
		deps.Cleanup = stubCleanup{}
	}
	if deps.Deletions == nil {
		deps.Deletions = stubDeletionQueue{}
	}
	if deps.Hub == nil {
		deps.Hub = websocket.NewHub()
	}
	return New(cfg, deps)
}

// serve sends a request through the full router. A non-empty userID is sent as a bearer token.
func serve(t *testing.T, h *Handler, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		token, err := auth.GenerateToken(testSecret, userID, time.Minute)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dest); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	decodeBody(t, rr, &body)
	return body
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func stringPtr(value string) *string {
	return &value
}
