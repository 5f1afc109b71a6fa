package handlers

import (
	"errors"
	"strings"
	"time"

	"smsgateway/internal/money"
)

var (
	errInvalidAmount = errors.New("invalid amount")
	errInvalidTime   = errors.New("times must be RFC 3339")

	errInvalidMaxUses = errors.New("max_uses must be positive")
)

func parseAmountMinor(raw string) (int64, error) {
	amount, err := money.ParseMinor(strings.TrimSpace(raw))
	if err != nil || amount <= 0 {
		return 0, errInvalidAmount
	}
	return amount, nil
}

// parseOptionalMinor accepts an empty string as zero.
func parseOptionalMinor(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	amount, err := money.ParseMinor(raw)
	if err != nil || amount < 0 {
		return 0, errInvalidAmount
	}
	return amount, nil
}

func parseMinorPtr(raw *string) (*int64, error) {
	if raw == nil {
		return nil, nil
	}
	amount, err := parseOptionalMinor(*raw)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, errInvalidTime
	}
	return t.UTC(), nil
}

func parseTimePtr(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := parseTime(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
