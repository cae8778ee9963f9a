// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/rulegate/internal/models"
)

type InstancesHandler struct {
	store *models.InstanceStore
}

func NewInstancesHandler(store *models.InstanceStore) *InstancesHandler {
	return &InstancesHandler{store: store}
}

type instancePayload struct {
	Name          string `json:"name"`
	Host          string `json:"host"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	TLSSkipVerify bool   `json:"tlsSkipVerify"`
}

func (h *InstancesHandler) List(w http.ResponseWriter, r *http.Request) {
	instances, err := h.store.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list instances")
		RespondError(w, http.StatusInternalServerError, "Failed to load instances")
		return
	}

	RespondJSON(w, http.StatusOK, instances)
}

func (h *InstancesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}

	instance, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrInstanceNotFound) {
			RespondError(w, http.StatusNotFound, "Instance not found")
			return
		}
		log.Error().Err(err).Int("instanceID", id).Msg("failed to get instance")
		RespondError(w, http.StatusInternalServerError, "Failed to load instance")
		return
	}

	RespondJSON(w, http.StatusOK, instance)
}

func (h *InstancesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload instancePayload
	if !DecodeJSON(w, r, &payload) {
		return
	}

	if strings.TrimSpace(payload.Name) == "" {
		RespondError(w, http.StatusBadRequest, "Instance name is required")
		return
	}

	instance, err := h.store.Create(r.Context(), &models.Instance{
		Name:          payload.Name,
		Host:          payload.Host,
		Username:      payload.Username,
		TLSSkipVerify: payload.TLSSkipVerify,
	}, payload.Password)
	if err != nil {
		if errors.Is(err, models.ErrInstanceSecretRequired) {
			RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("failed to create instance")
		RespondError(w, http.StatusInternalServerError, "Failed to create instance")
		return
	}

	RespondJSON(w, http.StatusCreated, instance)
}

func (h *InstancesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}

	var payload instancePayload
	if !DecodeJSON(w, r, &payload) {
		return
	}

	if strings.TrimSpace(payload.Name) == "" {
		RespondError(w, http.StatusBadRequest, "Instance name is required")
		return
	}

	existing, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrInstanceNotFound) {
			RespondError(w, http.StatusNotFound, "Instance not found")
			return
		}
		log.Error().Err(err).Int("instanceID", id).Msg("failed to load instance for update")
		RespondError(w, http.StatusInternalServerError, "Failed to update instance")
		return
	}

	existing.Name = payload.Name
	existing.Host = payload.Host
	existing.Username = payload.Username
	existing.TLSSkipVerify = payload.TLSSkipVerify

	instance, err := h.store.Update(r.Context(), existing, payload.Password)
	if err != nil {
		if errors.Is(err, models.ErrInstanceNotFound) {
			RespondError(w, http.StatusNotFound, "Instance not found")
			return
		}
		log.Error().Err(err).Int("instanceID", id).Msg("failed to update instance")
		RespondError(w, http.StatusInternalServerError, "Failed to update instance")
		return
	}

	RespondJSON(w, http.StatusOK, instance)
}

func (h *InstancesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrInstanceNotFound) {
			RespondError(w, http.StatusNotFound, "Instance not found")
			return
		}
		log.Error().Err(err).Int("instanceID", id).Msg("failed to delete instance")
		RespondError(w, http.StatusInternalServerError, "Failed to delete instance")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
