package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"smsgateway/internal/models"
	"smsgateway/internal/store"

	"github.com/jmoiron/sqlx"
)

type promoteRequest struct {
	Identifier string `json:"identifier"`
}

func (h *Handler) PromoteAdmin(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req promoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Identifier) == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	target, err := h.resolveUser(r, strings.TrimSpace(req.Identifier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to resolve user")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.admin.CreateAdmin(r.Context(), tx, target.ID, false, &userID); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, store.AuditEntry{
			ActorID:    userID,
			Action:     "promote_admin",
			EntityType: "admin",
			EntityID:   target.ID,
			Data:       map[string]any{"target_user_id": target.ID},
		})
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to promote admin")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "promoted"})
}

func (h *Handler) resolveUser(r *http.Request, identifier string) (models.User, error) {
	if strings.Contains(identifier, "@") {
		return h.users.GetByEmail(r.Context(), identifier)
	}
	return h.users.GetByUsername(r.Context(), identifier)
}

type grantRoleRequest struct {
	AdminUserID string `json:"admin_user_id"`
	Role        string `json:"role"`
}

func (h *Handler) GrantRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req grantRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AdminUserID == "" || req.Role == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !grantableRoles[req.Role] {
		respondError(w, http.StatusBadRequest, "unknown role")
		return
	}
	isAdmin, isSuper, err := h.admin.Authorize(r.Context(), req.AdminUserID, roleSuper)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to verify target admin")
		return
	}
	if !isAdmin {
		respondError(w, http.StatusBadRequest, "target is not an admin")
		return
	}
	if isSuper {
		respondError(w, http.StatusBadRequest, "cannot assign roles to super admin")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.admin.GrantRole(r.Context(), tx, req.AdminUserID, req.Role); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, store.AuditEntry{
			ActorID:    userID,
			Action:     "grant_role",
			EntityType: "admin_role",
			EntityID:   req.AdminUserID,
			Data:       map[string]any{"admin_user_id": req.AdminUserID, "role": req.Role},
		})
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to grant role")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "role_granted"})
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r, 50)
	rows, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load audit logs")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// Reconcile lists accounts whose stored balance disagrees with their ledger.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rows, err := h.wallet.Reconcile(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to reconcile balances")
		return
	}
	normalized := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		normalized = append(normalized, map[string]any{
			"account_id":      row.ID,
			"user_id":         row.UserID,
			"system_code":     row.SystemCode,
			"currency":        row.Currency,
			"ledger_sum":      formatMoney(row.CalculatedBalance),
			"account_balance": formatMoney(row.StoredBalance),
			"difference":      formatMoney(row.Difference),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"balanced":   len(normalized) == 0,
		"mismatched": normalized,
	})
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.analytics.Snapshot())
}

func (h *Handler) MaintenanceStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.maintenance.Status(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load maintenance status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) TriggerCleanup(w http.ResponseWriter, r *http.Request) {
	h.cleanup.TriggerCleanup()
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "cleanup_started"})
}
