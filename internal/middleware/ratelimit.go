package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

const rateWindow = time.Minute

func limitExceeded(w http.ResponseWriter, _ *http.Request) {
	deny(w, http.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
}

// RateLimit limits requests per client IP per minute. A zero limit disables it.
func RateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return passthrough
	}
	return httprate.Limit(perMinute, rateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(limitExceeded),
	)
}

// APIRateLimit keys the limit on client IP and API key so keys sharing a
// NAT address do not starve each other.
func APIRateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return passthrough
	}
	return httprate.Limit(perMinute, rateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP, keyByAPIKey),
		httprate.WithLimitHandler(limitExceeded),
	)
}

func keyByAPIKey(r *http.Request) (string, error) {
	return r.Header.Get(APIKeyHeader), nil
}

func passthrough(next http.Handler) http.Handler {
	return next
}
