package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"smsgateway/internal/auth"
	"smsgateway/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const apiKeyAttempts = 5

type createAPIKeyRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type apiKeyView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Key        string     `json:"key"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// CreateAPIKey returns the full key once. Later listings only show it masked.
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req createAPIKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var key string
	for attempt := 0; attempt < apiKeyAttempts && key == ""; attempt++ {
		candidate, err := auth.GenerateAPIKey()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to generate api key")
			return
		}
		exists, err := h.apiKeys.KeyExists(r.Context(), candidate)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to generate api key")
			return
		}
		if !exists {
			key = candidate
		}
	}
	if key == "" {
		respondError(w, http.StatusInternalServerError, "unable to generate a unique api key")
		return
	}
	id := uuid.NewString()
	if err := h.apiKeys.Create(r.Context(), id, userID, key, req.Name); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to store api key")
		return
	}
	respondJSON(w, http.StatusCreated, apiKeyView{
		ID:        id,
		Name:      req.Name,
		Key:       key,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
}

func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	keys, err := h.apiKeys.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load api keys")
		return
	}
	views := make([]apiKeyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, apiKeyView{
			ID:         k.ID,
			Name:       k.Name,
			Key:        auth.MaskAPIKey(k.Key),
			IsActive:   k.IsActive,
			CreatedAt:  k.CreatedAt,
			LastUsedAt: k.LastUsedAt,
		})
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *Handler) DeactivateAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	key, err := h.apiKeys.GetForUser(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "api key not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load api key")
		return
	}
	if !key.IsActive {
		respondError(w, http.StatusBadRequest, "api key is already inactive")
		return
	}
	if _, err := h.apiKeys.Deactivate(r.Context(), userID, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to deactivate api key")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handler) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	rows, err := h.apiKeys.Delete(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete api key")
		return
	}
	if rows == 0 {
		respondError(w, http.StatusNotFound, "api key not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
