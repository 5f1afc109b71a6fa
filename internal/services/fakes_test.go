package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"smsgateway/internal/events"
	"smsgateway/internal/models"
	"smsgateway/internal/store"
	"smsgateway/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(_ context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

// memoryBank is an in-memory ledger. Its tx runner serialises units of work
// and rolls state back when one fails.
type memoryBank struct {
	txMu sync.Mutex

	mu           sync.Mutex
	balances     map[string]int64
	system       map[string]bool
	wallets      map[string]string
	transactions []store.TransactionInput
	entries      []store.LedgerEntryInput
	messages     []store.MessageInput
	reports      []models.DeliveryReport
	audits       []store.AuditEntry
}

type bankState struct {
	balances     map[string]int64
	wallets      map[string]string
	transactions []store.TransactionInput
	entries      []store.LedgerEntryInput
	messages     []store.MessageInput
	reports      []models.DeliveryReport
	audits       []store.AuditEntry
}

func newMemoryBank() *memoryBank {
	b := &memoryBank{
		balances: map[string]int64{},
		system:   map[string]bool{},
		wallets:  map[string]string{},
	}
	for _, code := range []string{models.SystemTopupClearing, models.SystemSMSRevenue} {
		b.balances["system-"+code] = 0
		b.system["system-"+code] = true
	}
	return b
}

func (b *memoryBank) addWallet(userID string, balance int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wallets[userID] = "wallet-" + userID
	b.balances["wallet-"+userID] = balance
}

func (b *memoryBank) balance(userID string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[b.wallets[userID]]
}

func (b *memoryBank) systemBalance(code string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances["system-"+code]
}

func (b *memoryBank) snapshot() bankState {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := bankState{
		balances:     make(map[string]int64, len(b.balances)),
		wallets:      make(map[string]string, len(b.wallets)),
		transactions: append([]store.TransactionInput(nil), b.transactions...),
		entries:      append([]store.LedgerEntryInput(nil), b.entries...),
		messages:     append([]store.MessageInput(nil), b.messages...),
		reports:      append([]models.DeliveryReport(nil), b.reports...),
		audits:       append([]store.AuditEntry(nil), b.audits...),
	}
	for k, v := range b.balances {
		s.balances[k] = v
	}
	for k, v := range b.wallets {
		s.wallets[k] = v
	}
	return s
}

func (b *memoryBank) restore(s bankState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances = s.balances
	b.wallets = s.wallets
	b.transactions = s.transactions
	b.entries = s.entries
	b.messages = s.messages
	b.reports = s.reports
	b.audits = s.audits
}

func (b *memoryBank) WithTx(_ context.Context, fn func(*sqlx.Tx) error) error {
	b.txMu.Lock()
	defer b.txMu.Unlock()
	saved := b.snapshot()
	if err := fn(nil); err != nil {
		b.restore(saved)
		return err
	}
	return nil
}

func (b *memoryBank) ledgerSum() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sum int64
	for _, e := range b.entries {
		sum += e.Amount
	}
	return sum
}

type bankAccounts struct{ *memoryBank }

func (b bankAccounts) CreateWallet(_ context.Context, _ store.Execer, id, userID, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wallets[userID] = id
	b.balances[id] = 0
	return nil
}

func (b bankAccounts) GetWallet(_ context.Context, userID, currency string) (models.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.wallets[userID]
	if !ok {
		return models.Account{}, sql.ErrNoRows
	}
	owner := userID
	return models.Account{ID: id, UserID: &owner, Currency: currency, Balance: b.balances[id]}, nil
}

func (b bankAccounts) GetWalletForUpdate(ctx context.Context, _ store.Getter, userID, currency string) (models.Account, error) {
	return b.GetWallet(ctx, userID, currency)
}

func (b bankAccounts) GetSystemAccount(_ context.Context, _ store.Getter, code, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := "system-" + code
	if !b.system[id] {
		return "", sql.ErrNoRows
	}
	return id, nil
}

func (b bankAccounts) AdjustBalance(_ context.Context, _ store.Execer, accountID string, delta int64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	current, ok := b.balances[accountID]
	if !ok {
		return 0, nil
	}
	if !b.system[accountID] && current+delta < 0 {
		return 0, nil
	}
	b.balances[accountID] = current + delta
	return 1, nil
}

func (b bankAccounts) BalanceSummary(context.Context, string) ([]store.AccountBalanceSummary, error) {
	return nil, nil
}

func (b bankAccounts) ListMismatched(context.Context) ([]store.AccountBalanceSummary, error) {
	return nil, nil
}

type bankLedger struct{ *memoryBank }

func (b bankLedger) InsertEntries(_ context.Context, _ store.Execer, entries []store.LedgerEntryInput) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entries...)
	return nil
}

type bankTransactions struct{ *memoryBank }

func (b bankTransactions) Create(_ context.Context, _ store.Execer, input store.TransactionInput) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transactions = append(b.transactions, input)
	return nil
}

func (b bankTransactions) ListByUser(_ context.Context, userID, txType string, _, _ int) ([]models.Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Transaction
	for _, t := range b.transactions {
		if t.UserID != userID || (txType != "" && t.Type != txType) {
			continue
		}
		out = append(out, models.Transaction{ID: t.ID, UserID: t.UserID, Type: t.Type, Amount: t.Amount, Currency: t.Currency, Reference: t.Reference})
	}
	return out, nil
}

func (b bankTransactions) SumByUser(_ context.Context, userID string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sum int64
	for _, t := range b.transactions {
		if t.UserID == userID {
			sum += t.Amount
		}
	}
	return sum, nil
}

type bankMessages struct{ *memoryBank }

func (b bankMessages) Insert(_ context.Context, _ store.Execer, in store.MessageInput) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, in)
	return nil
}

func toMessage(in store.MessageInput) models.SMSMessage {
	return models.SMSMessage{
		ID:                in.ID,
		UserID:            in.UserID,
		Recipient:         in.Recipient,
		Message:           in.Message,
		Status:            in.Status,
		Cost:              in.Cost,
		ProviderMessageID: in.ProviderMessageID,
		ProviderStatus:    in.ProviderStatus,
	}
}

func (b bankMessages) ListByUser(_ context.Context, userID string, _, _ int) ([]models.SMSMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.SMSMessage
	for _, m := range b.messages {
		if m.UserID == userID {
			out = append(out, toMessage(m))
		}
	}
	return out, nil
}

func (b bankMessages) GetForUser(_ context.Context, userID, id string) (models.SMSMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.messages {
		if m.UserID == userID && m.ID == id {
			return toMessage(m), nil
		}
	}
	return models.SMSMessage{}, sql.ErrNoRows
}

func (b bankMessages) GetByProviderID(_ context.Context, providerMessageID string) (models.SMSMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.messages {
		if m.ProviderMessageID != nil && *m.ProviderMessageID == providerMessageID {
			return toMessage(m), nil
		}
	}
	return models.SMSMessage{}, sql.ErrNoRows
}

func (b bankMessages) UpdateProviderStatus(_ context.Context, _ store.Execer, id, providerStatus string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.messages {
		if b.messages[i].ID == id {
			b.messages[i].ProviderStatus = providerStatus
		}
	}
	return nil
}

func (b bankMessages) DeleteForUser(_ context.Context, userID, id string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, m := range b.messages {
		if m.UserID == userID && m.ID == id {
			b.messages = append(b.messages[:i], b.messages[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

type bankReports struct{ *memoryBank }

func (b bankReports) Create(_ context.Context, _ store.Execer, id, smsID, status string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reports = append(b.reports, models.DeliveryReport{ID: id, SMSID: smsID, Status: status, UpdatedAt: time.Now().UTC()})
	return nil
}

func (b bankReports) ListForUser(_ context.Context, userID, smsID string) ([]models.DeliveryReport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	owned := false
	for _, m := range b.messages {
		if m.ID == smsID && m.UserID == userID {
			owned = true
		}
	}
	if !owned {
		return nil, nil
	}
	var out []models.DeliveryReport
	for _, r := range b.reports {
		if r.SMSID == smsID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (b bankReports) DeleteForUser(_ context.Context, _ string, reportID string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.reports {
		if r.ID == reportID {
			b.reports = append(b.reports[:i], b.reports[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

type bankAudit struct{ *memoryBank }

func (b bankAudit) Log(_ context.Context, _ store.Execer, e store.AuditEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audits = append(b.audits, e)
	return nil
}

type stubTemplateStore struct {
	getFn func(ctx context.Context, userID, id string) (models.SMSTemplate, error)
}

func (s stubTemplateStore) Get(ctx context.Context, userID, id string) (models.SMSTemplate, error) {
	if s.getFn == nil {
		return models.SMSTemplate{}, sql.ErrNoRows
	}
	return s.getFn(ctx, userID, id)
}

type stubContactStore struct {
	phonesFn func(ctx context.Context, userID, group string) ([]string, error)
}

func (s stubContactStore) PhonesByGroup(ctx context.Context, userID, group string) ([]string, error) {
	if s.phonesFn == nil {
		return nil, nil
	}
	return s.phonesFn(ctx, userID, group)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, e store.AuditEntry) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, e store.AuditEntry) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, e)
}

type stubHub struct {
	mu    sync.Mutex
	calls []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, update)
}

func (s *stubHub) updates() []websocket.BalanceUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]websocket.BalanceUpdate(nil), s.calls...)
}

type stubPublisher struct {
	mu     sync.Mutex
	events []events.DeliveryEvent
	err    error
}

func (s *stubPublisher) PublishDelivery(event events.DeliveryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *stubPublisher) published() []events.DeliveryEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.DeliveryEvent(nil), s.events...)
}

func intPtr(v int) *int {
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}

func stringPtr(v string) *string {
	return &v
}
