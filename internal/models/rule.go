// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"strings"
)

// ConditionsSchemaVersion tags the wire format of ActionConditions.
const ConditionsSchemaVersion = "v1"

// TrackerPatternAll matches every tracker; domain lists must be empty when set.
const TrackerPatternAll = "*"

// Delete mode constants
const (
	DeleteModeNone                        = "none"
	DeleteModeKeepFiles                   = "delete"
	DeleteModeWithFiles                   = "deleteWithFiles"
	DeleteModeWithFilesPreserveCrossSeeds = "deleteWithFilesPreserveCrossSeeds"
	DeleteModeWithFilesIncludeCrossSeeds  = "deleteWithFilesIncludeCrossSeeds"
)

// Tag mode constants
const (
	TagModeFull   = "full"   // Add to matches, remove from non-matches
	TagModeAdd    = "add"    // Only add to matches
	TagModeRemove = "remove" // Only remove from non-matches
)

// ActionType identifies the single action a rule applies.
type ActionType string

const (
	ActionSpeedLimits     ActionType = "speedLimits"
	ActionShareLimits     ActionType = "shareLimits"
	ActionPause           ActionType = "pause"
	ActionResume          ActionType = "resume"
	ActionRecheck         ActionType = "recheck"
	ActionReannounce      ActionType = "reannounce"
	ActionDelete          ActionType = "delete"
	ActionTag             ActionType = "tag"
	ActionCategory        ActionType = "category"
	ActionMove            ActionType = "move"
	ActionExternalProgram ActionType = "externalProgram"
)

// ActionTypePriority is the fixed scan order used when a persisted rule has
// more than one action sub-object present. The first enabled one wins.
var ActionTypePriority = []ActionType{
	ActionSpeedLimits,
	ActionShareLimits,
	ActionPause,
	ActionResume,
	ActionRecheck,
	ActionReannounce,
	ActionDelete,
	ActionTag,
	ActionCategory,
	ActionMove,
	ActionExternalProgram,
}

// AutomationRule is an operator-defined rule matching torrents by tracker and
// condition tree and applying a single action. Rules are owned by one instance
// and persisted by the evaluation backend.
type AutomationRule struct {
	ID             int               `json:"id"`
	InstanceID     int               `json:"instanceId"`
	Name           string            `json:"name"`
	TrackerPattern string            `json:"trackerPattern"`
	TrackerDomains []string          `json:"trackerDomains,omitempty"`
	Conditions     *ActionConditions `json:"conditions"`
	Enabled        bool              `json:"enabled"`
	SortOrder      int               `json:"sortOrder"`
}

// AppliesToAllTrackers reports whether the rule skips tracker filtering.
func (r *AutomationRule) AppliesToAllTrackers() bool {
	return strings.TrimSpace(r.TrackerPattern) == TrackerPatternAll
}

// SplitTrackerPattern splits a stored tracker pattern into its distinct
// domain entries. The wildcard pattern yields no domains.
func SplitTrackerPattern(pattern string) []string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || pattern == TrackerPatternAll {
		return nil
	}

	rawParts := strings.FieldsFunc(pattern, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})

	seen := make(map[string]struct{})
	var parts []string
	for _, raw := range rawParts {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		if _, exists := seen[p]; exists {
			continue
		}
		seen[p] = struct{}{}
		parts = append(parts, p)
	}
	return parts
}

// NormalizeTrackerPattern derives the stored pattern from an explicit domain
// list, falling back to re-normalizing the raw pattern string.
func NormalizeTrackerPattern(pattern string, domains []string) string {
	if strings.TrimSpace(pattern) == TrackerPatternAll && len(domains) == 0 {
		return TrackerPatternAll
	}
	if len(domains) > 0 {
		pattern = strings.Join(domains, ",")
	}
	parts := SplitTrackerPattern(pattern)
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ",")
}

// ActionConditions holds per-action configuration with optional conditions.
// This is the top-level structure serialized into the rule's `conditions`
// field. The editor only ever writes one enabled sub-object; payloads read
// back from the backend may carry more, which is resolved by priority scan.
type ActionConditions struct {
	SchemaVersion   string                 `json:"schemaVersion"`
	SpeedLimits     *SpeedLimitAction      `json:"speedLimits,omitempty"`
	ShareLimits     *ShareLimitsAction     `json:"shareLimits,omitempty"`
	Pause           *PauseAction           `json:"pause,omitempty"`
	Resume          *ResumeAction          `json:"resume,omitempty"`
	Recheck         *RecheckAction         `json:"recheck,omitempty"`
	Reannounce      *ReannounceAction      `json:"reannounce,omitempty"`
	Delete          *DeleteAction          `json:"delete,omitempty"`
	Tag             *TagAction             `json:"tag,omitempty"`
	Category        *CategoryAction        `json:"category,omitempty"`
	Move            *MoveAction            `json:"move,omitempty"`
	ExternalProgram *ExternalProgramAction `json:"externalProgram,omitempty"`
}

// SpeedLimitAction applies upload/download speed limits.
type SpeedLimitAction struct {
	Enabled     bool           `json:"enabled"`
	UploadKiB   *int64         `json:"uploadKiB,omitempty"`
	DownloadKiB *int64         `json:"downloadKiB,omitempty"`
	Condition   *RuleCondition `json:"condition,omitempty"`
}

// ShareLimitsAction applies ratio and seeding time limits.
type ShareLimitsAction struct {
	Enabled            bool           `json:"enabled"`
	RatioLimit         *float64       `json:"ratioLimit,omitempty"`
	SeedingTimeMinutes *int64         `json:"seedingTimeMinutes,omitempty"`
	Condition          *RuleCondition `json:"condition,omitempty"`
}

type PauseAction struct {
	Enabled   bool           `json:"enabled"`
	Condition *RuleCondition `json:"condition,omitempty"`
}

type ResumeAction struct {
	Enabled   bool           `json:"enabled"`
	Condition *RuleCondition `json:"condition,omitempty"`
}

type RecheckAction struct {
	Enabled   bool           `json:"enabled"`
	Condition *RuleCondition `json:"condition,omitempty"`
}

type ReannounceAction struct {
	Enabled   bool           `json:"enabled"`
	Condition *RuleCondition `json:"condition,omitempty"`
}

// DeleteAction removes matching torrents, optionally with files.
type DeleteAction struct {
	Enabled   bool           `json:"enabled"`
	Mode      string         `json:"mode"` // "delete", "deleteWithFiles", "deleteWithFilesPreserveCrossSeeds", "deleteWithFilesIncludeCrossSeeds"
	Condition *RuleCondition `json:"condition,omitempty"`
}

// TagAction manages tags on matching torrents.
type TagAction struct {
	Enabled   bool           `json:"enabled"`
	Tags      []string       `json:"tags"`
	Mode      string         `json:"mode"` // "full", "add", "remove"
	Condition *RuleCondition `json:"condition,omitempty"`
}

// CategoryAction assigns matching torrents to a category.
type CategoryAction struct {
	Enabled           bool           `json:"enabled"`
	Category          string         `json:"category"`
	IncludeCrossSeeds bool           `json:"includeCrossSeeds,omitempty"`
	Condition         *RuleCondition `json:"condition,omitempty"`
}

// MoveAction relocates matching torrents to a new save path.
type MoveAction struct {
	Enabled   bool           `json:"enabled"`
	Path      string         `json:"path"`
	Condition *RuleCondition `json:"condition,omitempty"`
}

// ExternalProgramAction invokes a configured external program for matches.
type ExternalProgramAction struct {
	Enabled   bool           `json:"enabled"`
	ProgramID int            `json:"programId"`
	Condition *RuleCondition `json:"condition,omitempty"`
}

// IsEmpty returns true if no actions are configured.
func (ac *ActionConditions) IsEmpty() bool {
	if ac == nil {
		return true
	}
	return ac.SpeedLimits == nil && ac.ShareLimits == nil && ac.Pause == nil &&
		ac.Resume == nil && ac.Recheck == nil && ac.Reannounce == nil &&
		ac.Delete == nil && ac.Tag == nil && ac.Category == nil &&
		ac.Move == nil && ac.ExternalProgram == nil
}

// Action looks up a single action sub-object by type.
func (ac *ActionConditions) Action(typ ActionType) (enabled bool, condition *RuleCondition, present bool) {
	if ac == nil {
		return false, nil, false
	}
	switch typ {
	case ActionSpeedLimits:
		if ac.SpeedLimits != nil {
			return ac.SpeedLimits.Enabled, ac.SpeedLimits.Condition, true
		}
	case ActionShareLimits:
		if ac.ShareLimits != nil {
			return ac.ShareLimits.Enabled, ac.ShareLimits.Condition, true
		}
	case ActionPause:
		if ac.Pause != nil {
			return ac.Pause.Enabled, ac.Pause.Condition, true
		}
	case ActionResume:
		if ac.Resume != nil {
			return ac.Resume.Enabled, ac.Resume.Condition, true
		}
	case ActionRecheck:
		if ac.Recheck != nil {
			return ac.Recheck.Enabled, ac.Recheck.Condition, true
		}
	case ActionReannounce:
		if ac.Reannounce != nil {
			return ac.Reannounce.Enabled, ac.Reannounce.Condition, true
		}
	case ActionDelete:
		if ac.Delete != nil {
			return ac.Delete.Enabled, ac.Delete.Condition, true
		}
	case ActionTag:
		if ac.Tag != nil {
			return ac.Tag.Enabled, ac.Tag.Condition, true
		}
	case ActionCategory:
		if ac.Category != nil {
			return ac.Category.Enabled, ac.Category.Condition, true
		}
	case ActionMove:
		if ac.Move != nil {
			return ac.Move.Enabled, ac.Move.Condition, true
		}
	case ActionExternalProgram:
		if ac.ExternalProgram != nil {
			return ac.ExternalProgram.Enabled, ac.ExternalProgram.Condition, true
		}
	}
	return false, nil, false
}

// ActiveActionType returns the first enabled action in priority order.
// The second return is false when no action is enabled.
func (ac *ActionConditions) ActiveActionType() (ActionType, bool) {
	for _, typ := range ActionTypePriority {
		if enabled, _, _ := ac.Action(typ); enabled {
			return typ, true
		}
	}
	return "", false
}

// ActiveCondition returns the condition tree of the first enabled action.
func (ac *ActionConditions) ActiveCondition() *RuleCondition {
	for _, typ := range ActionTypePriority {
		if enabled, cond, _ := ac.Action(typ); enabled {
			return cond
		}
	}
	return nil
}

// IsDestructive reports whether the rule's active action requires
// preview-gated activation (delete or category change).
func (ac *ActionConditions) IsDestructive() bool {
	typ, ok := ac.ActiveActionType()
	if !ok {
		return false
	}
	return typ == ActionDelete || typ == ActionCategory
}
