package handlers

import (
	"errors"
	"net/http"
	"strings"

	"smsgateway/internal/auth"
	"smsgateway/internal/jobs"
	"smsgateway/internal/websocket"

	"github.com/go-chi/chi/v5"
)

// RequestAccountDeletion queues the caller's account for deletion after the
// configured grace period.
func (h *Handler) RequestAccountDeletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	job, err := h.deletions.Enqueue(userID)
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to queue account deletion")
		return
	}
	respondJSON(w, http.StatusAccepted, job)
}

func (h *Handler) GetAccountDeletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	job, err := h.deletions.Get(userID, chi.URLParam(r, "id"))
	if err != nil {
		respondDeletionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (h *Handler) CancelAccountDeletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	job, err := h.deletions.Cancel(userID, chi.URLParam(r, "id"))
	if err != nil {
		respondDeletionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func respondDeletionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, jobs.ErrJobNotCancellable):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "unable to load deletion job")
	}
}

func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID)
}
