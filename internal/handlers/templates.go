package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"smsgateway/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type templateRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Content string `json:"content" validate:"required,max=160"`
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req templateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := uuid.NewString()
	if err := h.templates.Create(r.Context(), id, userID, strings.TrimSpace(req.Name), req.Content); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create template")
		return
	}
	tmpl, err := h.templates.Get(r.Context(), userID, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load template")
		return
	}
	respondJSON(w, http.StatusCreated, tmpl)
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r, 100)
	templates, err := h.templates.List(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load templates")
		return
	}
	respondJSON(w, http.StatusOK, templates)
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	tmpl, err := h.templates.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "template not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load template")
		return
	}
	respondJSON(w, http.StatusOK, tmpl)
}

func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req templateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	rows, err := h.templates.Update(r.Context(), userID, id, strings.TrimSpace(req.Name), req.Content)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update template")
		return
	}
	if rows == 0 {
		respondError(w, http.StatusNotFound, "template not found")
		return
	}
	tmpl, err := h.templates.Get(r.Context(), userID, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load template")
		return
	}
	respondJSON(w, http.StatusOK, tmpl)
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	rows, err := h.templates.Delete(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete template")
		return
	}
	if rows == 0 {
		respondError(w, http.StatusNotFound, "template not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
