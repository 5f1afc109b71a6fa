package gateway

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Mock is an in-process dispatcher. Numbers in the failing set are reported as
// failures; everything else succeeds.
type Mock struct {
	latency time.Duration
	seq     atomic.Int64

	mu      sync.Mutex
	failing map[string]bool
	err     error
	calls   int
}

func NewMock(latency time.Duration, failing ...string) *Mock {
	m := &Mock{latency: latency, failing: map[string]bool{}}
	for _, number := range failing {
		m.failing[number] = true
	}
	return m
}

// FailWith makes every following Send return err.
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Mock) Send(ctx context.Context, msg Message) (Result, error) {
	m.mu.Lock()
	m.calls++
	err := m.err
	m.mu.Unlock()
	if len(msg.Recipients) == 0 {
		return Result{}, ErrNoRecipients
	}
	if m.latency > 0 {
		timer := time.NewTimer(m.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("%w: %v", ErrDispatch, ctx.Err())
		case <-timer.C:
		}
	}
	if err != nil {
		return Result{}, err
	}
	byNumber := make(map[string]RecipientResult, len(msg.Recipients))
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, number := range msg.Recipients {
		if m.failing[number] {
			byNumber[number] = RecipientResult{Recipient: number, Outcome: OutcomeFailure, ProviderStatus: "InvalidPhoneNumber"}
			continue
		}
		byNumber[number] = RecipientResult{
			Recipient:         number,
			Outcome:           OutcomeSuccess,
			ProviderMessageID: fmt.Sprintf("MOCK-%d", m.seq.Add(1)),
			ProviderStatus:    "Success",
		}
	}
	return order(msg.Recipients, byNumber), nil
}
