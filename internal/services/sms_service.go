package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"smsgateway/internal/db"
	"smsgateway/internal/events"
	"smsgateway/internal/gateway"
	"smsgateway/internal/metrics"
	"smsgateway/internal/models"
	"smsgateway/internal/money"
	"smsgateway/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const MaxMessageLength = 160

type SendState string

const (
	StateReconciled          SendState = "reconciled"
	StatePartiallyReconciled SendState = "partially_reconciled"
)

type SMSService struct {
	txRunner   db.TxRunner
	ledger     ledger
	messages   MessageStore
	reporter   *DeliveryReporter
	templates  TemplateStore
	contacts   ContactStore
	dispatcher gateway.Dispatcher
	audit      AuditStore
	hub        BalanceHub
	unitCost   int64
	timeout    time.Duration
	logger     *slog.Logger
}

type SMSConfig struct {
	Currency string
	UnitCost int64
	Timeout  time.Duration
}

type SMSDeps struct {
	TxRunner     db.TxRunner
	Accounts     AccountStore
	Ledger       LedgerStore
	Transactions TransactionStore
	Messages     MessageStore
	Reporter     *DeliveryReporter
	Templates    TemplateStore
	Contacts     ContactStore
	Dispatcher   gateway.Dispatcher
	Audit        AuditStore
	Hub          BalanceHub
	Logger       *slog.Logger
}

func NewSMSService(deps SMSDeps, cfg SMSConfig) *SMSService {
	return &SMSService{
		txRunner:   deps.TxRunner,
		ledger:     ledger{accounts: deps.Accounts, entries: deps.Ledger, transactions: deps.Transactions, currency: cfg.Currency},
		messages:   deps.Messages,
		reporter:   deps.Reporter,
		templates:  deps.Templates,
		contacts:   deps.Contacts,
		dispatcher: deps.Dispatcher,
		audit:      deps.Audit,
		hub:        deps.Hub,
		unitCost:   cfg.UnitCost,
		timeout:    cfg.Timeout,
		logger:     deps.Logger,
	}
}

type SendRequest struct {
	UserID     string
	SenderID   string
	Message    string
	TemplateID string
	Group      string
	Recipients []string
}

type SentMessage struct {
	ID                string `json:"id"`
	Recipient         string `json:"recipient"`
	Status            string `json:"status"`
	Cost              int64  `json:"cost"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	ProviderStatus    string `json:"provider_status"`
	DeliveryReportID  string `json:"delivery_report_id,omitempty"`
}

type SendResult struct {
	State    SendState     `json:"state"`
	Sent     int           `json:"sent"`
	Failed   int           `json:"failed"`
	Charged  int64         `json:"charged"`
	Balance  int64         `json:"balance"`
	Currency string        `json:"currency"`
	Messages []SentMessage `json:"messages"`
}

// Send validates, prices, dispatches and reconciles one request. Nothing is
// charged before the gateway outcome is known, and only successful recipients
// are charged.
func (s *SMSService) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	body, err := s.resolveBody(ctx, req)
	if err != nil {
		return SendResult{}, err
	}
	recipients, err := s.resolveRecipients(ctx, req)
	if err != nil {
		return SendResult{}, err
	}
	if err := validateSend(body, recipients); err != nil {
		return SendResult{}, err
	}

	total, err := money.Times(s.unitCost, len(recipients))
	if err != nil {
		return SendResult{}, ErrInvalidAmount
	}
	wallet, err := s.ledger.accounts.GetWallet(ctx, req.UserID, s.ledger.currency)
	if err != nil {
		return SendResult{}, notFound(err, ErrUserNotFound)
	}
	if wallet.Balance < total {
		return SendResult{}, ErrInsufficientFunds
	}

	outcome, err := s.dispatch(ctx, gateway.Message{SenderID: req.SenderID, Body: body, Recipients: recipients})
	if err != nil {
		return SendResult{}, err
	}

	result, reported, err := s.reconcile(ctx, req.UserID, body, outcome)
	if errors.Is(err, ErrInsufficientFunds) {
		metrics.SMSMessages.WithLabelValues("unbilled").Add(float64(outcome.Succeeded()))
		s.logger.Error("dispatched messages could not be billed",
			"user_id", req.UserID, "delivered", outcome.Succeeded(), "error", err)
		return SendResult{}, err
	}
	if err != nil {
		s.logger.Error("sms reconcile failed", "user_id", req.UserID, "delivered", outcome.Succeeded(), "error", err)
		return SendResult{}, err
	}

	metrics.SMSMessages.WithLabelValues(models.SMSStatusFailed).Add(float64(result.Failed))
	if result.Sent == 0 {
		// The failed rows are committed for audit; the wallet is untouched.
		metrics.DispatchFailures.WithLabelValues("all_failed").Inc()
		s.logger.Warn("every recipient failed", "user_id", req.UserID, "failed", result.Failed)
		return SendResult{}, fmt.Errorf("%w: all recipients failed", ErrDispatchFailed)
	}
	metrics.SMSMessages.WithLabelValues(models.SMSStatusSent).Add(float64(result.Sent))
	metrics.ChargedMinor.Add(float64(result.Charged))
	s.logger.Info("sms sent", "user_id", req.UserID, "sent", result.Sent, "failed", result.Failed, "charged", result.Charged)
	s.hub.BroadcastBalance(req.UserID, balanceUpdate(result.Balance, s.ledger.currency))
	for _, ev := range reported {
		s.reporter.publish(ev)
	}
	return result, nil
}

func (s *SMSService) resolveBody(ctx context.Context, req SendRequest) (string, error) {
	if req.Message != "" || req.TemplateID == "" {
		return req.Message, nil
	}
	tpl, err := s.templates.Get(ctx, req.UserID, req.TemplateID)
	if err != nil {
		return "", notFound(err, ErrTemplateNotFound)
	}
	return tpl.Content, nil
}

// resolveRecipients expands the optional contact group and drops duplicates,
// keeping the first occurrence.
func (s *SMSService) resolveRecipients(ctx context.Context, req SendRequest) ([]string, error) {
	all := make([]string, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		all = append(all, strings.TrimSpace(r))
	}
	if req.Group != "" {
		phones, err := s.contacts.PhonesByGroup(ctx, req.UserID, req.Group)
		if err != nil {
			return nil, err
		}
		if len(phones) == 0 {
			return nil, ErrEmptyContactGroup
		}
		all = append(all, phones...)
	}
	seen := make(map[string]bool, len(all))
	out := all[:0]
	for _, r := range all {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out, nil
}

func validateSend(body string, recipients []string) error {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	if strings.TrimSpace(body) == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return ErrMessageTooLong
	}
	for _, r := range recipients {
		if err := gateway.ValidatePhone(r); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidRecipient, r)
		}
	}
	return nil
}

func (s *SMSService) dispatch(ctx context.Context, msg gateway.Message) (gateway.Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	result, err := s.dispatcher.Send(ctx, msg)
	metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	if err == nil && len(result.Recipients) != len(msg.Recipients) {
		err = gateway.ErrMissingPayload
	}
	if err != nil {
		reason := "transport"
		switch {
		case errors.Is(err, gateway.ErrUnparseableResponse):
			// The provider may have delivered; nothing is charged.
			reason = "unparseable"
			s.logger.Warn("gateway reply unparseable, messages left uncharged",
				"recipients", len(msg.Recipients), "error", err)
		case errors.Is(err, gateway.ErrMissingPayload):
			reason = "missing_payload"
			s.logger.Warn("gateway reply missing payload", "recipients", len(msg.Recipients))
		default:
			s.logger.Warn("gateway dispatch failed", "recipients", len(msg.Recipients), "error", err)
		}
		metrics.DispatchFailures.WithLabelValues(reason).Inc()
		return gateway.Result{}, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}
	return result, nil
}

// reconcile charges every successful recipient and records every outcome in
// one unit of work. The wallet is re-locked so a concurrent send that drained
// it rolls the whole unit back with ErrInsufficientFunds.
func (s *SMSService) reconcile(ctx context.Context, userID, body string, outcome gateway.Result) (SendResult, []events.DeliveryEvent, error) {
	var result SendResult
	var reported []events.DeliveryEvent
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		result = SendResult{Currency: s.ledger.currency, Messages: make([]SentMessage, 0, len(outcome.Recipients))}
		reported = reported[:0]
		wallet, err := s.ledger.lockWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		balance := wallet.Balance
		for _, rr := range outcome.Recipients {
			sent := SentMessage{
				ID:                uuid.NewString(),
				Recipient:         rr.Recipient,
				ProviderMessageID: rr.ProviderMessageID,
				ProviderStatus:    rr.ProviderStatus,
			}
			if rr.Outcome != gateway.OutcomeSuccess {
				sent.Status = models.SMSStatusFailed
				if err := s.messages.Insert(ctx, tx, messageInput(userID, body, sent)); err != nil {
					return err
				}
				result.Failed++
				result.Messages = append(result.Messages, sent)
				continue
			}
			sent.Status = models.SMSStatusSent
			sent.Cost = s.unitCost
			if err := s.messages.Insert(ctx, tx, messageInput(userID, body, sent)); err != nil {
				return err
			}
			if _, err := s.ledger.apply(ctx, tx, walletChange{
				UserID:      userID,
				WalletID:    wallet.ID,
				Amount:      -s.unitCost,
				Type:        models.TxTypeSMSDeduction,
				SystemCode:  models.SystemSMSRevenue,
				Reference:   &sent.ID,
				Description: "SMS to " + rr.Recipient,
			}); err != nil {
				return err
			}
			balance -= s.unitCost
			reportID, err := s.reporter.Record(ctx, tx, sent.ID, models.DeliveryStatusDelivered)
			if err != nil {
				return err
			}
			sent.DeliveryReportID = reportID
			result.Sent++
			result.Charged += s.unitCost
			result.Messages = append(result.Messages, sent)
			reported = append(reported, events.DeliveryEvent{
				ReportID:          reportID,
				SMSID:             sent.ID,
				UserID:            userID,
				Recipient:         rr.Recipient,
				Status:            models.DeliveryStatusDelivered,
				ProviderMessageID: rr.ProviderMessageID,
				OccurredAt:        time.Now().UTC(),
			})
		}
		result.Balance = balance
		result.State = StateReconciled
		if result.Failed > 0 {
			result.State = StatePartiallyReconciled
		}
		return s.audit.Log(ctx, tx, store.AuditEntry{
			ActorID:    userID,
			Action:     "sms_send",
			EntityType: "sms",
			EntityID:   userID,
			Data: map[string]any{
				"sent":    result.Sent,
				"failed":  result.Failed,
				"charged": money.FormatMinor(result.Charged),
			},
		})
	})
	if err != nil {
		return SendResult{}, nil, err
	}
	return result, reported, nil
}

func messageInput(userID, body string, m SentMessage) store.MessageInput {
	in := store.MessageInput{
		ID:             m.ID,
		UserID:         userID,
		Recipient:      m.Recipient,
		Message:        body,
		Status:         m.Status,
		Cost:           m.Cost,
		ProviderStatus: m.ProviderStatus,
	}
	if m.ProviderMessageID != "" {
		id := m.ProviderMessageID
		in.ProviderMessageID = &id
	}
	return in
}

func (s *SMSService) History(ctx context.Context, userID string, limit, offset int) ([]models.SMSMessage, error) {
	return s.messages.ListByUser(ctx, userID, limit, offset)
}

// DeleteHistory removes one message and its reports. Its transaction stays.
func (s *SMSService) DeleteHistory(ctx context.Context, userID, smsID string) error {
	rows, err := s.messages.DeleteForUser(ctx, userID, smsID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMessageNotFound
	}
	return nil
}
