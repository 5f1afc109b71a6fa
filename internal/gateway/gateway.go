// Package gateway sends SMS messages through an external provider and reports
// a per-recipient outcome.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smsgateway/internal/config"
)

var (
	// ErrDispatch is a wholesale failure: transport, auth or a non-2xx reply.
	ErrDispatch = errors.New("sms dispatch failed")
	// ErrMissingPayload is a 2xx reply without message data.
	ErrMissingPayload = errors.New("gateway response missing message data")
	// ErrUnparseableResponse is a 2xx reply whose body could not be decoded.
	// The provider may still have delivered some messages.
	ErrUnparseableResponse = errors.New("gateway response could not be parsed")
	ErrNoRecipients        = errors.New("no recipients")
	ErrInvalidPhone        = errors.New("phone number must start with + followed by 9 to 14 digits")
)

type Outcome string

const (
	OutcomeSuccess Outcome = "Success"
	OutcomeFailure Outcome = "Failure"
)

type Message struct {
	SenderID   string
	Body       string
	Recipients []string
}

type RecipientResult struct {
	Recipient         string
	Outcome           Outcome
	ProviderMessageID string
	ProviderStatus    string
}

// Result holds one entry per requested recipient, in request order.
type Result struct {
	Recipients []RecipientResult
}

func (r Result) Succeeded() int {
	n := 0
	for _, rr := range r.Recipients {
		if rr.Outcome == OutcomeSuccess {
			n++
		}
	}
	return n
}

type Dispatcher interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// ValidatePhone accepts E.164 style numbers: a leading + and 9 to 14 digits.
func ValidatePhone(number string) error {
	if len(number) < 10 || len(number) > 15 || !strings.HasPrefix(number, "+") {
		return ErrInvalidPhone
	}
	for _, r := range number[1:] {
		if r < '0' || r > '9' {
			return ErrInvalidPhone
		}
	}
	return nil
}

// New builds the dispatcher named by cfg.Provider.
func New(cfg config.GatewayConfig) (Dispatcher, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "mock":
		return NewMock(cfg.MockLatency), nil
	case "africastalking":
		if cfg.Username == "" || cfg.APIKey == "" {
			return nil, errors.New("africastalking gateway requires username and api key")
		}
		return NewAfricasTalking(cfg), nil
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", cfg.Provider)
	}
}

// order maps provider results back onto the requested recipients. Recipients
// the provider did not mention are failures.
func order(recipients []string, byNumber map[string]RecipientResult) Result {
	out := Result{Recipients: make([]RecipientResult, 0, len(recipients))}
	for _, number := range recipients {
		rr, ok := byNumber[number]
		if !ok {
			rr = RecipientResult{Recipient: number, Outcome: OutcomeFailure, ProviderStatus: "NotReported"}
		}
		out.Recipients = append(out.Recipients, rr)
	}
	return out
}
