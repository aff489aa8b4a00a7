// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/rookery/internal/auth"
	"github.com/tomtom215/rookery/internal/models"
)

// ListAccounts returns the caller's linked accounts. Tokens are never serialized.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	accounts, err := h.deps.Accounts.ListAccounts(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	if accounts == nil {
		accounts = []models.LinkedAccount{}
	}
	respondData(w, http.StatusOK, accounts, start)
}

// LinkAccount links or relinks the caller's account on a provider. The
// sync status is preserved; an omitted token keeps the stored one.
func (h *Handler) LinkAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	provider, err := models.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}

	var body LinkAccountRequest
	if err := decodeAndValidate(w, r, &body); err != nil {
		respondAppError(w, r, err, nil)
		return
	}

	acct, err := h.deps.Accounts.UpsertAccount(r.Context(), auth.UserID(r.Context()), provider, body.Username, body.Token)
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	respondData(w, http.StatusOK, acct, start)
}

// ResetAccount puts the caller's account on a provider back to idle and
// clears its sync cursor.
func (h *Handler) ResetAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	provider, err := models.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}

	n, err := h.deps.Accounts.ResetAccounts(r.Context(), auth.UserID(r.Context()), &provider)
	if err != nil {
		respondAppError(w, r, err, nil)
		return
	}
	respondData(w, http.StatusOK, map[string]int64{"reset_count": n}, start)
}
