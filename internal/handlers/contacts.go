package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"smsgateway/internal/store"
	"smsgateway/internal/validator"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type contactRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
	GroupName   string `json:"group_name" validate:"omitempty,max=100"`
}

func (req contactRequest) input() store.ContactInput {
	return store.ContactInput{
		Name:        strings.TrimSpace(req.Name),
		PhoneNumber: req.PhoneNumber,
		GroupName:   strings.TrimSpace(req.GroupName),
	}
}

func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := uuid.NewString()
	if err := h.contacts.Create(r.Context(), id, userID, req.input()); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create contact")
		return
	}
	contact, err := h.contacts.Get(r.Context(), userID, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load contact")
		return
	}
	respondJSON(w, http.StatusCreated, contact)
}

func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r, 100)
	contacts, err := h.contacts.List(r.Context(), userID, r.URL.Query().Get("group"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load contacts")
		return
	}
	respondJSON(w, http.StatusOK, contacts)
}

func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	contact, err := h.contacts.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "contact not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load contact")
		return
	}
	respondJSON(w, http.StatusOK, contact)
}

func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	rows, err := h.contacts.Update(r.Context(), userID, id, req.input())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update contact")
		return
	}
	if rows == 0 {
		respondError(w, http.StatusNotFound, "contact not found")
		return
	}
	contact, err := h.contacts.Get(r.Context(), userID, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load contact")
		return
	}
	respondJSON(w, http.StatusOK, contact)
}

func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	rows, err := h.contacts.Delete(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete contact")
		return
	}
	if rows == 0 {
		respondError(w, http.StatusNotFound, "contact not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
