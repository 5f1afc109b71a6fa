package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
	ErrOverflow        = errors.New("amount out of range")
)

// ParseMinor converts a decimal string with at most two fractional digits into minor units.
func ParseMinor(input string) (int64, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return 0, ErrInvalidAmount
	}
	sign := int64(1)
	if raw[0] == '-' || raw[0] == '+' {
		if raw[0] == '-' {
			sign = -1
		}
		raw = raw[1:]
	}
	whole, frac, hasFrac := strings.Cut(raw, ".")
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (hasFrac && (frac == "" || !isDigits(frac))) {
		return 0, ErrInvalidAmount
	}
	if len(frac) > 2 {
		return 0, ErrTooManyDecimals
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > math.MaxInt64/100 {
		return 0, ErrInvalidAmount
	}
	cents := int64(0)
	if frac != "" {
		cents, _ = strconv.ParseInt((frac + "0")[:2], 10, 64)
	}
	return sign * (units*100 + cents), nil
}

func FormatMinor(value int64) string {
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}
	return fmt.Sprintf("%s%d.%02d", sign, value/100, value%100)
}

// Times multiplies a per-unit minor amount by a count.
func Times(unit int64, count int) (int64, error) {
	if count < 0 || unit < 0 {
		return 0, ErrInvalidAmount
	}
	if count != 0 && unit > math.MaxInt64/int64(count) {
		return 0, ErrOverflow
	}
	return unit * int64(count), nil
}

// PercentOf returns amount * percent / 100 where percent is itself in minor units
// (1000 means 10.00%). The result is rounded half-even to a whole minor unit.
func PercentOf(amount, percent int64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(percent)).
		Div(decimal.NewFromInt(10000)).
		RoundBank(0).
		IntPart()
}

func Min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
