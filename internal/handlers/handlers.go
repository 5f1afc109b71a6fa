package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"smsgateway/internal/middleware"
	"smsgateway/internal/money"
	"smsgateway/internal/services"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

var kindStatus = map[services.Kind]int{
	services.KindNotFound:          http.StatusNotFound,
	services.KindInvalidRequest:    http.StatusBadRequest,
	services.KindInsufficientFunds: http.StatusBadRequest,
	services.KindDispatchFailed:    http.StatusBadGateway,
	services.KindAlreadyUsed:       http.StatusConflict,
	services.KindUsageLimitReached: http.StatusConflict,
	services.KindConflict:          http.StatusConflict,
	services.KindExpired:           http.StatusGone,
	services.KindInternal:          http.StatusInternalServerError,
}

// respondServiceError maps a service failure to its status and code. Internal
// failures answer with fallback instead of the error text.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	kind := services.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	message := err.Error()
	if kind == services.KindInternal {
		message = fallback
	}
	respondJSON(w, status, map[string]string{
		"error": message,
		"code":  kind.String(),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}

func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
	}
	return userID, ok
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// pageParams reads limit and 1-based page from the query string.
func pageParams(r *http.Request, defaultLimit int) (int, int) {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), defaultLimit)
	page := parseInt(query.Get("page"), 1)
	return limit, (page - 1) * limit
}

func formatMoney(minor int64) string {
	return money.FormatMinor(minor)
}
