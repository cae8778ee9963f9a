// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/rulegate/internal/models"
)

type TrackerCustomizationHandler struct {
	store          *models.TrackerCustomizationStore
	onMutationHook func() // Called after create/update/delete so the resolver index can be rebuilt
}

// NewTrackerCustomizationHandler creates the handler for tracker customization
// endpoints. onMutationHook is called after any create/update/delete; pass nil
// when nothing needs to react to changes.
func NewTrackerCustomizationHandler(store *models.TrackerCustomizationStore, onMutationHook func()) *TrackerCustomizationHandler {
	return &TrackerCustomizationHandler{
		store:          store,
		onMutationHook: onMutationHook,
	}
}

// invokeMutationHook safely calls the mutation hook if set. It recovers from
// panics so a hook failure cannot break the HTTP response.
func (h *TrackerCustomizationHandler) invokeMutationHook(action string, id int) {
	if h.onMutationHook == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("action", action).
				Int("id", id).
				Interface("recover_info", r).
				Bytes("debug_stack", debug.Stack()).
				Msg("panic in tracker customization mutation hook")
		}
	}()

	h.onMutationHook()
}

type TrackerCustomizationPayload struct {
	DisplayName string   `json:"displayName"`
	Domains     []string `json:"domains"`
}

func (p *TrackerCustomizationPayload) toModel(id int) *models.TrackerCustomization {
	return &models.TrackerCustomization{
		ID:          id,
		DisplayName: strings.TrimSpace(p.DisplayName),
		Domains:     models.NormalizeDomains(p.Domains),
	}
}

func (p *TrackerCustomizationPayload) validate(w http.ResponseWriter) bool {
	if strings.TrimSpace(p.DisplayName) == "" {
		RespondError(w, http.StatusBadRequest, "Display name is required")
		return false
	}
	if len(models.NormalizeDomains(p.Domains)) == 0 {
		RespondError(w, http.StatusBadRequest, "At least one domain is required")
		return false
	}
	return true
}

func (h *TrackerCustomizationHandler) List(w http.ResponseWriter, r *http.Request) {
	customizations, err := h.store.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list tracker customizations")
		RespondError(w, http.StatusInternalServerError, "Failed to load tracker customizations")
		return
	}

	RespondJSON(w, http.StatusOK, customizations)
}

func (h *TrackerCustomizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload TrackerCustomizationPayload
	if !DecodeJSON(w, r, &payload) {
		return
	}
	if !payload.validate(w) {
		return
	}

	customization, err := h.store.Create(r.Context(), payload.toModel(0))
	if err != nil {
		log.Error().Err(err).Msg("failed to create tracker customization")
		RespondError(w, http.StatusInternalServerError, "Failed to create tracker customization")
		return
	}

	h.invokeMutationHook("create", customization.ID)

	RespondJSON(w, http.StatusCreated, customization)
}

func (h *TrackerCustomizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePositiveIntParam(w, r, "id", "customization ID")
	if !ok {
		return
	}

	var payload TrackerCustomizationPayload
	if !DecodeJSON(w, r, &payload) {
		return
	}
	if !payload.validate(w) {
		return
	}

	customization, err := h.store.Update(r.Context(), payload.toModel(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondError(w, http.StatusNotFound, "Tracker customization not found")
			return
		}
		log.Error().Err(err).Int("id", id).Msg("failed to update tracker customization")
		RespondError(w, http.StatusInternalServerError, "Failed to update tracker customization")
		return
	}

	h.invokeMutationHook("update", id)

	RespondJSON(w, http.StatusOK, customization)
}

func (h *TrackerCustomizationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePositiveIntParam(w, r, "id", "customization ID")
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondError(w, http.StatusNotFound, "Tracker customization not found")
			return
		}
		log.Error().Err(err).Int("id", id).Msg("failed to delete tracker customization")
		RespondError(w, http.StatusInternalServerError, "Failed to delete tracker customization")
		return
	}

	h.invokeMutationHook("delete", id)

	w.WriteHeader(http.StatusNoContent)
}
