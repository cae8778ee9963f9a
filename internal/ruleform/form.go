// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package ruleform converts between the flat editable form state the UI works
// with and the wire-level automation rule, and validates the form before any
// mutation is attempted.
package ruleform

import (
	"strings"

	"github.com/autobrr/rulegate/internal/models"
	"github.com/autobrr/rulegate/internal/trackers"
)

// FormState is the flat editable representation of one rule: one active
// action, one condition tree, one tracker selection.
type FormState struct {
	RuleID             int                   `json:"ruleId,omitempty"`
	Name               string                `json:"name"`
	Enabled            bool                  `json:"enabled"`
	ApplyToAllTrackers bool                  `json:"applyToAllTrackers"`
	TrackerValues      []string              `json:"trackerValues"` // merged option values from the resolver
	ActionType         models.ActionType     `json:"actionType"`
	Condition          *models.RuleCondition `json:"condition,omitempty"`

	// Action parameters; only the fields for ActionType are meaningful.
	UploadKiB          *int64   `json:"uploadKiB,omitempty"`
	DownloadKiB        *int64   `json:"downloadKiB,omitempty"`
	RatioLimit         *float64 `json:"ratioLimit,omitempty"`
	SeedingTimeMinutes *int64   `json:"seedingTimeMinutes,omitempty"`
	DeleteMode         string   `json:"deleteMode,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	TagMode            string   `json:"tagMode,omitempty"`
	Category           string   `json:"category,omitempty"`
	IncludeCrossSeeds  bool     `json:"includeCrossSeeds,omitempty"`
	MovePath           string   `json:"movePath,omitempty"`
	ProgramID          int      `json:"programId,omitempty"`
}

// Decode flattens a persisted rule into editable form state. The active
// action is the first enabled sub-object in priority order; a rule with no
// enabled action defaults to the inert pause action.
func Decode(rule *models.AutomationRule, resolver *trackers.Resolver) *FormState {
	form := &FormState{
		RuleID:     rule.ID,
		Name:       rule.Name,
		Enabled:    rule.Enabled,
		ActionType: models.ActionPause,
		DeleteMode: models.DeleteModeKeepFiles,
		TagMode:    models.TagModeFull,
	}

	if rule.AppliesToAllTrackers() {
		form.ApplyToAllTrackers = true
	} else {
		domains := rule.TrackerDomains
		if len(domains) == 0 {
			domains = models.SplitTrackerPattern(rule.TrackerPattern)
		}
		form.TrackerValues = resolver.MapDomainsToOptionValues(domains)
	}

	conditions := rule.Conditions
	typ, ok := conditions.ActiveActionType()
	if !ok {
		return form
	}

	form.ActionType = typ
	form.Condition = conditions.ActiveCondition()

	switch typ {
	case models.ActionSpeedLimits:
		form.UploadKiB = conditions.SpeedLimits.UploadKiB
		form.DownloadKiB = conditions.SpeedLimits.DownloadKiB
	case models.ActionShareLimits:
		form.RatioLimit = conditions.ShareLimits.RatioLimit
		form.SeedingTimeMinutes = conditions.ShareLimits.SeedingTimeMinutes
	case models.ActionDelete:
		form.DeleteMode = conditions.Delete.Mode
	case models.ActionTag:
		form.Tags = conditions.Tag.Tags
		form.TagMode = conditions.Tag.Mode
	case models.ActionCategory:
		form.Category = conditions.Category.Category
		form.IncludeCrossSeeds = conditions.Category.IncludeCrossSeeds
	case models.ActionMove:
		form.MovePath = conditions.Move.Path
	case models.ActionExternalProgram:
		form.ProgramID = conditions.ExternalProgram.ProgramID
	}

	return form
}

// Encode builds the wire payload from form state. Exactly one action
// sub-object is populated; tracker pattern and domains are derived from the
// selection, never edited directly.
func (f *FormState) Encode(instanceID int) *models.AutomationRule {
	rule := &models.AutomationRule{
		ID:         f.RuleID,
		InstanceID: instanceID,
		Name:       strings.TrimSpace(f.Name),
		Enabled:    f.Enabled,
		Conditions: f.encodeConditions(),
	}

	if f.ApplyToAllTrackers {
		rule.TrackerPattern = models.TrackerPatternAll
		rule.TrackerDomains = nil
	} else {
		domains := trackers.SplitOptionValues(f.TrackerValues)
		rule.TrackerDomains = domains
		rule.TrackerPattern = models.NormalizeTrackerPattern("", domains)
	}

	return rule
}

func (f *FormState) encodeConditions() *models.ActionConditions {
	conditions := &models.ActionConditions{SchemaVersion: models.ConditionsSchemaVersion}

	switch f.ActionType {
	case models.ActionSpeedLimits:
		conditions.SpeedLimits = &models.SpeedLimitAction{
			Enabled:     true,
			UploadKiB:   f.UploadKiB,
			DownloadKiB: f.DownloadKiB,
			Condition:   f.Condition,
		}
	case models.ActionShareLimits:
		conditions.ShareLimits = &models.ShareLimitsAction{
			Enabled:            true,
			RatioLimit:         f.RatioLimit,
			SeedingTimeMinutes: f.SeedingTimeMinutes,
			Condition:          f.Condition,
		}
	case models.ActionPause:
		conditions.Pause = &models.PauseAction{Enabled: true, Condition: f.Condition}
	case models.ActionResume:
		conditions.Resume = &models.ResumeAction{Enabled: true, Condition: f.Condition}
	case models.ActionRecheck:
		conditions.Recheck = &models.RecheckAction{Enabled: true, Condition: f.Condition}
	case models.ActionReannounce:
		conditions.Reannounce = &models.ReannounceAction{Enabled: true, Condition: f.Condition}
	case models.ActionDelete:
		conditions.Delete = &models.DeleteAction{
			Enabled:   true,
			Mode:      f.DeleteMode,
			Condition: f.Condition,
		}
	case models.ActionTag:
		conditions.Tag = &models.TagAction{
			Enabled:   true,
			Tags:      f.Tags,
			Mode:      f.TagMode,
			Condition: f.Condition,
		}
	case models.ActionCategory:
		conditions.Category = &models.CategoryAction{
			Enabled:           true,
			Category:          f.Category,
			IncludeCrossSeeds: f.IncludeCrossSeeds,
			Condition:         f.Condition,
		}
	case models.ActionMove:
		conditions.Move = &models.MoveAction{
			Enabled:   true,
			Path:      f.MovePath,
			Condition: f.Condition,
		}
	case models.ActionExternalProgram:
		conditions.ExternalProgram = &models.ExternalProgramAction{
			Enabled:   true,
			ProgramID: f.ProgramID,
			Condition: f.Condition,
		}
	}

	return conditions
}

// Validate checks the form before any network call; a returned
// *models.ValidationError aborts the submit entirely.
func (f *FormState) Validate() error {
	v := models.NewValidationError()

	if strings.TrimSpace(f.Name) == "" {
		v.Add("name", "Name is required")
	}

	if !f.ApplyToAllTrackers && len(trackers.SplitOptionValues(f.TrackerValues)) == 0 {
		v.Add("trackers", "Select at least one tracker or enable 'Apply to all'")
	}

	switch f.ActionType {
	case models.ActionSpeedLimits:
		if f.UploadKiB == nil && f.DownloadKiB == nil {
			v.Add("speedLimits", "Set an upload or download limit")
		}
	case models.ActionShareLimits:
		if f.RatioLimit == nil && f.SeedingTimeMinutes == nil {
			v.Add("shareLimits", "Set a ratio or seeding time limit")
		}
	case models.ActionTag:
		if len(f.Tags) == 0 {
			v.Add("tags", "Add at least one tag")
		}
	case models.ActionCategory:
		if strings.TrimSpace(f.Category) == "" {
			v.Add("category", "Choose a category")
		}
	case models.ActionMove:
		if strings.TrimSpace(f.MovePath) == "" {
			v.Add("movePath", "Choose a destination path")
		}
	case models.ActionExternalProgram:
		if f.ProgramID <= 0 {
			v.Add("programId", "Choose a program")
		}
	}

	return v.OrNil()
}

// ApplyActionSwitch records an action type change. Switching a new,
// never-persisted rule to the delete action clears the enabled flag so a
// destructive rule cannot start life armed; edits of existing rules keep
// their flag.
func (f *FormState) ApplyActionSwitch(actionType models.ActionType) {
	f.ActionType = actionType
	if f.RuleID == 0 && actionType == models.ActionDelete {
		f.Enabled = false
	}
}
