// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/rulegate/internal/activation"
	"github.com/autobrr/rulegate/internal/metrics"
	"github.com/autobrr/rulegate/internal/models"
	"github.com/autobrr/rulegate/internal/ruleform"
	"github.com/autobrr/rulegate/internal/rulelist"
)

// ActivationHandler drives the preview-gated activation workflow. Rule ID 0
// addresses the session of a rule that has not been persisted yet.
type ActivationHandler struct {
	manager *activation.Manager
	list    *rulelist.Manager
	metrics *metrics.Collector
}

func NewActivationHandler(manager *activation.Manager, list *rulelist.Manager, collector *metrics.Collector) *ActivationHandler {
	return &ActivationHandler{
		manager: manager,
		list:    list,
		metrics: collector,
	}
}

// parseRuleID allows 0 so sessions for unsaved rules are addressable.
func parseRuleID(w http.ResponseWriter, r *http.Request) (int, bool) {
	ruleID, ok := ParseIntParam(w, r, "ruleID", "rule ID")
	if !ok {
		return 0, false
	}
	if ruleID < 0 {
		RespondError(w, http.StatusBadRequest, "Invalid rule ID")
		return 0, false
	}
	return ruleID, true
}

// Begin validates the submitted form, opens an activation session and loads
// the first preview page.
func (h *ActivationHandler) Begin(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}

	var form ruleform.FormState
	if !DecodeJSON(w, r, &form) {
		return
	}
	// The operator is enabling the rule; that is the whole point of the preview.
	form.Enabled = true

	if err := form.Validate(); err != nil {
		if v, ok := models.AsValidationError(err); ok {
			RespondValidationError(w, v)
			return
		}
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule := form.Encode(instanceID)

	priorEnabled := false
	if rule.ID > 0 {
		rules, err := h.list.Rules(r.Context(), instanceID)
		if err != nil {
			log.Error().Err(err).Int("instanceID", instanceID).Msg("failed to load rules")
			RespondError(w, http.StatusBadGateway, "Failed to load rules")
			return
		}
		found := false
		for _, existing := range rules {
			if existing.ID == rule.ID {
				priorEnabled = existing.Enabled
				found = true
				break
			}
		}
		if !found {
			RespondError(w, http.StatusNotFound, "Rule not found")
			return
		}
	}

	h.metrics.PreviewsTotal.WithLabelValues(metrics.InstanceLabel(instanceID)).Inc()

	snapshot, err := h.manager.Begin(r.Context(), instanceID, rule, priorEnabled)
	if err != nil {
		h.respondWorkflowError(w, instanceID, err)
		return
	}

	RespondJSON(w, http.StatusOK, snapshot)
}

// LoadMore appends the next preview page to an open session.
func (h *ActivationHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}
	ruleID, ok := parseRuleID(w, r)
	if !ok {
		return
	}

	snapshot, err := h.manager.LoadMore(r.Context(), instanceID, ruleID)
	if err != nil {
		h.respondWorkflowError(w, instanceID, err)
		return
	}

	RespondJSON(w, http.StatusOK, snapshot)
}

// Confirm commits the previewed rule with enabled=true.
func (h *ActivationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}
	ruleID, ok := parseRuleID(w, r)
	if !ok {
		return
	}

	rule, err := h.manager.Confirm(r.Context(), instanceID, ruleID)
	if err != nil {
		var commitErr *activation.CommitError
		if errors.As(err, &commitErr) {
			h.metrics.CommitErrors.WithLabelValues(metrics.InstanceLabel(instanceID)).Inc()
		}
		h.respondWorkflowError(w, instanceID, err)
		return
	}

	h.metrics.CommitsTotal.WithLabelValues(metrics.InstanceLabel(instanceID)).Inc()
	RespondJSON(w, http.StatusOK, rule)
}

// Cancel dismisses an open session. The response carries the enabled value
// the editor must restore; nothing was persisted.
func (h *ActivationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}
	ruleID, ok := parseRuleID(w, r)
	if !ok {
		return
	}

	restoredEnabled, err := h.manager.Cancel(instanceID, ruleID)
	if err != nil {
		h.respondWorkflowError(w, instanceID, err)
		return
	}

	h.metrics.ActivationsCanceled.WithLabelValues(metrics.InstanceLabel(instanceID)).Inc()
	RespondJSON(w, http.StatusOK, struct {
		RestoredEnabled bool `json:"restoredEnabled"`
	}{RestoredEnabled: restoredEnabled})
}

// Snapshot returns the current state of a session, or Idle when none is open.
func (h *ActivationHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	instanceID, ok := ParseInstanceID(w, r)
	if !ok {
		return
	}
	ruleID, ok := parseRuleID(w, r)
	if !ok {
		return
	}

	RespondJSON(w, http.StatusOK, h.manager.Snapshot(instanceID, ruleID))
}

func (h *ActivationHandler) respondWorkflowError(w http.ResponseWriter, instanceID int, err error) {
	switch {
	case errors.Is(err, activation.ErrPreviewNotRequired):
		RespondError(w, http.StatusBadRequest, "Rule does not require preview confirmation")
	case errors.Is(err, activation.ErrPreviewInFlight):
		RespondError(w, http.StatusConflict, "A preview or commit is already in progress for this rule")
	case errors.Is(err, activation.ErrNoSession):
		RespondError(w, http.StatusNotFound, "No activation session open for this rule")
	case errors.Is(err, activation.ErrNotReady):
		RespondError(w, http.StatusConflict, "Activation session has no preview loaded")
	default:
		var fetchErr *activation.PreviewFetchError
		if errors.As(err, &fetchErr) {
			h.metrics.PreviewFetchErrors.WithLabelValues(metrics.InstanceLabel(instanceID)).Inc()
			RespondError(w, http.StatusBadGateway, "Preview evaluation failed")
			return
		}
		var commitErr *activation.CommitError
		if errors.As(err, &commitErr) {
			RespondError(w, http.StatusBadGateway, "Failed to save rule; the preview is still open")
			return
		}
		log.Error().Err(err).Int("instanceID", instanceID).Msg("activation workflow error")
		RespondError(w, http.StatusInternalServerError, "Activation workflow error")
	}
}
