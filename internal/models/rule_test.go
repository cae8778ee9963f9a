// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/rulegate/internal/models"
)

func TestSplitTrackerPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		expected []string
	}{
		{"comma separated", "a.example,b.example", []string{"a.example", "b.example"}},
		{"mixed separators", "a.example;b.example|c.example", []string{"a.example", "b.example", "c.example"}},
		{"whitespace and empties", " a.example , , b.example ", []string{"a.example", "b.example"}},
		{"duplicates removed", "a.example,a.example", []string{"a.example"}},
		{"wildcard yields nothing", "*", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, models.SplitTrackerPattern(tt.pattern))
		})
	}
}

func TestNormalizeTrackerPattern(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "*", models.NormalizeTrackerPattern("*", nil))
	assert.Equal(t, "a.example,b.example", models.NormalizeTrackerPattern("", []string{"a.example", "b.example"}))
	assert.Equal(t, "a.example,b.example", models.NormalizeTrackerPattern("a.example; b.example", nil))
	assert.Equal(t, "", models.NormalizeTrackerPattern("  ", nil))
}

func TestActiveActionType(t *testing.T) {
	t.Parallel()

	t.Run("priority scan picks the first enabled action", func(t *testing.T) {
		conditions := &models.ActionConditions{
			SpeedLimits: &models.SpeedLimitAction{Enabled: false},
			Pause:       &models.PauseAction{Enabled: true},
			Delete:      &models.DeleteAction{Enabled: true, Mode: models.DeleteModeWithFiles},
		}

		typ, ok := conditions.ActiveActionType()
		require.True(t, ok)
		assert.Equal(t, models.ActionPause, typ)
	})

	t.Run("present but disabled actions are skipped", func(t *testing.T) {
		conditions := &models.ActionConditions{
			Delete: &models.DeleteAction{Enabled: false},
		}

		_, ok := conditions.ActiveActionType()
		assert.False(t, ok)
	})

	t.Run("nil conditions", func(t *testing.T) {
		var conditions *models.ActionConditions
		_, ok := conditions.ActiveActionType()
		assert.False(t, ok)
		assert.True(t, conditions.IsEmpty())
	})
}

func TestIsDestructive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		conditions *models.ActionConditions
		expected   bool
	}{
		{"delete", &models.ActionConditions{Delete: &models.DeleteAction{Enabled: true}}, true},
		{"category", &models.ActionConditions{Category: &models.CategoryAction{Enabled: true, Category: "x"}}, true},
		{"pause", &models.ActionConditions{Pause: &models.PauseAction{Enabled: true}}, false},
		{"disabled delete", &models.ActionConditions{Delete: &models.DeleteAction{Enabled: false}}, false},
		{
			"higher priority non-destructive wins",
			&models.ActionConditions{
				SpeedLimits: &models.SpeedLimitAction{Enabled: true},
				Delete:      &models.DeleteAction{Enabled: true},
			},
			false,
		},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.conditions.IsDestructive())
		})
	}
}

func TestAppliesToAllTrackers(t *testing.T) {
	t.Parallel()

	assert.True(t, (&models.AutomationRule{TrackerPattern: "*"}).AppliesToAllTrackers())
	assert.True(t, (&models.AutomationRule{TrackerPattern: " * "}).AppliesToAllTrackers())
	assert.False(t, (&models.AutomationRule{TrackerPattern: "a.example"}).AppliesToAllTrackers())
	assert.False(t, (&models.AutomationRule{}).AppliesToAllTrackers())
}
