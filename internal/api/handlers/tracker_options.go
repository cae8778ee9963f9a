// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/rulegate/internal/models"
	"github.com/autobrr/rulegate/internal/trackers"
)

// TrackerOptionsHandler serves the merged tracker option list the rule editor
// selects from.
type TrackerOptionsHandler struct {
	inventory *trackers.Inventory
	resolver  *trackers.Resolver
	store     *models.TrackerCustomizationStore
}

func NewTrackerOptionsHandler(inventory *trackers.Inventory, resolver *trackers.Resolver, store *models.TrackerCustomizationStore) *TrackerOptionsHandler {
	return &TrackerOptionsHandler{
		inventory: inventory,
		resolver:  resolver,
		store:     store,
	}
}

// List returns the instance's tracker options, optionally filtered by the
// q query parameter.
func (h *TrackerOptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}

	customizations, err := h.store.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list tracker customizations")
		RespondError(w, http.StatusInternalServerError, "Failed to load tracker customizations")
		return
	}
	h.resolver.Update(customizations)

	domains, err := h.inventory.Domains(r.Context(), instanceID)
	if err != nil {
		log.Error().Err(err).Int("instanceID", instanceID).Msg("failed to load tracker inventory")
		RespondError(w, http.StatusBadGateway, "Failed to load tracker inventory")
		return
	}

	options := h.resolver.BuildOptions(domains)
	if query := r.URL.Query().Get("q"); query != "" {
		options = trackers.FilterOptions(options, query)
	}
	if options == nil {
		options = []trackers.Option{}
	}

	RespondJSON(w, http.StatusOK, options)
}
