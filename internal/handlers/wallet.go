package handlers

import (
	"net/http"

	"smsgateway/internal/services"
)

type balanceResponse struct {
	UserID       string `json:"user_id"`
	Balance      string `json:"balance"`
	BalanceMinor int64  `json:"balance_minor"`
	Currency     string `json:"currency"`
}

func newBalanceResponse(b services.Balance) balanceResponse {
	return balanceResponse{
		UserID:       b.UserID,
		Balance:      formatMoney(b.Balance),
		BalanceMinor: b.Balance,
		Currency:     b.Currency,
	}
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	balance, err := h.wallet.GetBalance(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err, "unable to load balance")
		return
	}
	respondJSON(w, http.StatusOK, newBalanceResponse(balance))
}

type topupRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) Topup(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req topupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	balance, err := h.wallet.Topup(r.Context(), userID, amount)
	if err != nil {
		respondServiceError(w, err, "topup failed")
		return
	}
	respondJSON(w, http.StatusOK, newBalanceResponse(balance))
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r, 20)
	rows, err := h.wallet.ListTransactions(r.Context(), userID, r.URL.Query().Get("type"), limit, offset)
	if err != nil {
		respondServiceError(w, err, "unable to load transactions")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) SelfCheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	result, err := h.wallet.SelfCheck(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err, "unable to run self check")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
