package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"mime"
	"net/http"

	"smsgateway/internal/services"
	"smsgateway/internal/validator"

	"github.com/go-chi/chi/v5"
)

type sendSMSRequest struct {
	Recipients []string `json:"recipients" validate:"omitempty,max=1000,dive,phone"`
	Message    string   `json:"message" validate:"omitempty,max=160"`
	TemplateID string   `json:"template_id" validate:"omitempty,uuid"`
	Group      string   `json:"group" validate:"omitempty,max=100"`
	SenderID   string   `json:"sender_id" validate:"omitempty,max=11"`
}

func (h *Handler) SendSMS(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req sendSMSRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	senderID := req.SenderID
	if senderID == "" {
		senderID = h.cfg.Gateway.SenderID
	}
	result, err := h.sms.Send(r.Context(), services.SendRequest{
		UserID:     userID,
		SenderID:   senderID,
		Message:    req.Message,
		TemplateID: req.TemplateID,
		Group:      req.Group,
		Recipients: req.Recipients,
	})
	if err != nil {
		respondServiceError(w, err, "unable to send sms")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) SMSHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r, 50)
	rows, err := h.sms.History(r.Context(), userID, limit, offset)
	if err != nil {
		respondServiceError(w, err, "unable to load sms history")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) DeleteSMSHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.sms.DeleteHistory(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "unable to delete sms")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) ListDeliveryReports(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	reports, err := h.delivery.List(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "unable to load delivery reports")
		return
	}
	respondJSON(w, http.StatusOK, reports)
}

func (h *Handler) DeleteDeliveryReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.delivery.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "unable to delete delivery report")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type deliveryCallback struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// DeliveryCallback receives provider delivery notifications. The provider posts
// form fields; JSON bodies are accepted too.
func (h *Handler) DeliveryCallback(w http.ResponseWriter, r *http.Request) {
	expected := h.cfg.Gateway.CallbackToken
	token := r.URL.Query().Get("token")
	if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		respondError(w, http.StatusUnauthorized, "invalid callback token")
		return
	}
	var cb deliveryCallback
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
			respondError(w, http.StatusBadRequest, "invalid payload")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			respondError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		cb.ID = r.PostForm.Get("id")
		cb.Status = r.PostForm.Get("status")
	}
	report, err := h.delivery.Callback(r.Context(), cb.ID, cb.Status)
	if err != nil {
		respondServiceError(w, err, "unable to record delivery report")
		return
	}
	respondJSON(w, http.StatusOK, report)
}
