// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/rulegate/internal/activation"
	"github.com/autobrr/rulegate/internal/backend"
	"github.com/autobrr/rulegate/internal/metrics"
	"github.com/autobrr/rulegate/internal/models"
	"github.com/autobrr/rulegate/internal/ruleform"
	"github.com/autobrr/rulegate/internal/rulelist"
	"github.com/autobrr/rulegate/internal/trackers"
)

type RulesHandler struct {
	client   *backend.Client
	list     *rulelist.Manager
	resolver *trackers.Resolver
	metrics  *metrics.Collector
}

func NewRulesHandler(client *backend.Client, list *rulelist.Manager, resolver *trackers.Resolver, collector *metrics.Collector) *RulesHandler {
	return &RulesHandler{
		client:   client,
		list:     list,
		resolver: resolver,
		metrics:  collector,
	}
}

// previewRequiredResponse tells the client a destructive activation must go
// through the preview workflow before the mutation is accepted.
type previewRequiredResponse struct {
	Error           string `json:"error"`
	PreviewRequired bool   `json:"previewRequired"`
}

func (h *RulesHandler) List(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}

	rules, err := h.list.Rules(r.Context(), instanceID)
	if err != nil {
		log.Error().Err(err).Int("instanceID", instanceID).Msg("failed to list rules")
		RespondError(w, http.StatusBadGateway, "Failed to load rules")
		return
	}

	RespondJSON(w, http.StatusOK, rules)
}

// GetForm returns the flat editable form state for one rule.
func (h *RulesHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}
	ruleID, ok := ParsePositiveIntParam(w, r, "ruleID", "rule ID")
	if !ok {
		return
	}

	rule, err := h.findRule(r.Context(), instanceID, ruleID)
	if err != nil {
		log.Error().Err(err).Int("instanceID", instanceID).Msg("failed to load rules")
		RespondError(w, http.StatusBadGateway, "Failed to load rules")
		return
	}
	if rule == nil {
		RespondError(w, http.StatusNotFound, "Rule not found")
		return
	}

	RespondJSON(w, http.StatusOK, ruleform.Decode(rule, h.resolver))
}

// SwitchAction applies an action type change to submitted form state and
// returns the adjusted form. A brand-new rule switched to the delete action
// comes back disabled.
func (h *RulesHandler) SwitchAction(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Form       ruleform.FormState `json:"form"`
		ActionType models.ActionType  `json:"actionType"`
	}
	if !DecodeJSON(w, r, &payload) {
		return
	}

	payload.Form.ApplyActionSwitch(payload.ActionType)
	RespondJSON(w, http.StatusOK, payload.Form)
}

func (h *RulesHandler) Create(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}

	var form ruleform.FormState
	if !DecodeJSON(w, r, &form) {
		return
	}
	form.RuleID = 0

	if err := form.Validate(); err != nil {
		if v, ok := models.AsValidationError(err); ok {
			RespondValidationError(w, v)
			return
		}
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule := form.Encode(instanceID)
	if activation.RequiresPreview(rule, false) {
		RespondJSON(w, http.StatusConflict, previewRequiredResponse{
			Error:           "Destructive rule activation requires preview confirmation",
			PreviewRequired: true,
		})
		return
	}

	created, err := h.client.CreateRule(r.Context(), instanceID, rule)
	if err != nil {
		log.Error().Err(err).Int("instanceID", instanceID).Msg("failed to create rule")
		RespondError(w, http.StatusBadGateway, "Failed to create rule")
		return
	}

	h.list.Invalidate(instanceID)
	RespondJSON(w, http.StatusCreated, created)
}

func (h *RulesHandler) Update(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}
	ruleID, ok := ParsePositiveIntParam(w, r, "ruleID", "rule ID")
	if !ok {
		return
	}

	var form ruleform.FormState
	if !DecodeJSON(w, r, &form) {
		return
	}
	form.RuleID = ruleID

	if err := form.Validate(); err != nil {
		if v, ok := models.AsValidationError(err); ok {
			RespondValidationError(w, v)
			return
		}
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.findRule(r.Context(), instanceID, ruleID)
	if err != nil {
		log.Error().Err(err).Int("instanceID", instanceID).Msg("failed to load rules")
		RespondError(w, http.StatusBadGateway, "Failed to load rules")
		return
	}
	if existing == nil {
		RespondError(w, http.StatusNotFound, "Rule not found")
		return
	}

	rule := form.Encode(instanceID)
	if activation.RequiresPreview(rule, existing.Enabled) {
		RespondJSON(w, http.StatusConflict, previewRequiredResponse{
			Error:           "Destructive rule activation requires preview confirmation",
			PreviewRequired: true,
		})
		return
	}

	updated, err := h.client.UpdateRule(r.Context(), instanceID, ruleID, rule)
	if err != nil {
		log.Error().Err(err).Int("instanceID", instanceID).Int("ruleID", ruleID).Msg("failed to update rule")
		RespondError(w, http.StatusBadGateway, "Failed to update rule")
		return
	}

	h.list.Invalidate(instanceID)
	RespondJSON(w, http.StatusOK, updated)
}

func (h *RulesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}
	ruleID, ok := ParsePositiveIntParam(w, r, "ruleID", "rule ID")
	if !ok {
		return
	}

	if err := h.client.DeleteRule(r.Context(), instanceID, ruleID); err != nil {
		var backendErr *backend.Error
		if errors.As(err, &backendErr) && backendErr.StatusCode == http.StatusNotFound {
			RespondError(w, http.StatusNotFound, "Rule not found")
			return
		}
		log.Error().Err(err).Int("instanceID", instanceID).Int("ruleID", ruleID).Msg("failed to delete rule")
		RespondError(w, http.StatusBadGateway, "Failed to delete rule")
		return
	}

	h.list.Invalidate(instanceID)
	w.WriteHeader(http.StatusNoContent)
}

// Duplicate copies an existing rule into a new, disabled one so destructive
// copies never start armed.
func (h *RulesHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}
	ruleID, ok := ParsePositiveIntParam(w, r, "ruleID", "rule ID")
	if !ok {
		return
	}

	rule, err := h.findRule(r.Context(), instanceID, ruleID)
	if err != nil {
		log.Error().Err(err).Int("instanceID", instanceID).Msg("failed to load rules")
		RespondError(w, http.StatusBadGateway, "Failed to load rules")
		return
	}
	if rule == nil {
		RespondError(w, http.StatusNotFound, "Rule not found")
		return
	}

	duplicate := *rule
	duplicate.ID = 0
	duplicate.Name = rule.Name + " (copy)"
	duplicate.Enabled = false

	created, err := h.client.CreateRule(r.Context(), instanceID, &duplicate)
	if err != nil {
		log.Error().Err(err).Int("instanceID", instanceID).Int("ruleID", ruleID).Msg("failed to duplicate rule")
		RespondError(w, http.StatusBadGateway, "Failed to duplicate rule")
		return
	}

	h.list.Invalidate(instanceID)
	RespondJSON(w, http.StatusCreated, created)
}

func (h *RulesHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}

	var payload struct {
		OrderedIDs []int `json:"orderedIds"`
	}
	if !DecodeJSON(w, r, &payload) {
		return
	}
	if len(payload.OrderedIDs) == 0 {
		RespondError(w, http.StatusBadRequest, "orderedIds is required")
		return
	}

	rules, err := h.list.Reorder(r.Context(), instanceID, payload.OrderedIDs)
	if err != nil {
		if errors.Is(err, rulelist.ErrReorderInFlight) {
			RespondError(w, http.StatusConflict, "A reorder is already in progress")
			return
		}

		var rollback *rulelist.ReorderRollbackError
		if errors.As(err, &rollback) {
			h.metrics.ReorderRollbacks.WithLabelValues(metrics.InstanceLabel(instanceID)).Inc()
			restored, restoreErr := h.list.Rules(r.Context(), instanceID)
			if restoreErr != nil {
				restored = nil
			}
			RespondJSON(w, http.StatusBadGateway, struct {
				Error string                   `json:"error"`
				Rules []*models.AutomationRule `json:"rules,omitempty"`
			}{
				Error: "Reorder failed, previous order restored",
				Rules: restored,
			})
			return
		}

		log.Error().Err(err).Int("instanceID", instanceID).Msg("failed to reorder rules")
		RespondError(w, http.StatusBadGateway, "Failed to reorder rules")
		return
	}

	RespondJSON(w, http.StatusOK, rules)
}

func (h *RulesHandler) findRule(ctx context.Context, instanceID, ruleID int) (*models.AutomationRule, error) {
	rules, err := h.list.Rules(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if rule.ID == ruleID {
			return rule, nil
		}
	}
	return nil, nil
}
