// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/rulegate/internal/trackericons"
)

type TrackerIconsHandler struct {
	service *trackericons.Service
}

func NewTrackerIconsHandler(service *trackericons.Service) *TrackerIconsHandler {
	return &TrackerIconsHandler{service: service}
}

// List returns all cached icons as data URIs keyed by domain.
func (h *TrackerIconsHandler) List(w http.ResponseWriter, r *http.Request) {
	icons, err := h.service.ListIcons(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list tracker icons")
		RespondError(w, http.StatusInternalServerError, "Failed to load tracker icons")
		return
	}

	RespondJSON(w, http.StatusOK, icons)
}

// Get serves one icon, fetching it on a cache miss.
func (h *TrackerIconsHandler) Get(w http.ResponseWriter, r *http.Request) {
	domain := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "domain")))
	if domain == "" {
		RespondError(w, http.StatusBadRequest, "Domain is required")
		return
	}

	data, err := h.service.Icon(r.Context(), domain)
	if err != nil {
		log.Debug().Err(err).Str("domain", domain).Msg("tracker icon unavailable")
		RespondError(w, http.StatusNotFound, "Icon not found")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}
