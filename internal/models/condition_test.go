// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autobrr/rulegate/internal/models"
)

func TestRuleConditionIsGroup(t *testing.T) {
	t.Parallel()

	group := &models.RuleCondition{
		Operator: models.OperatorAnd,
		Conditions: []*models.RuleCondition{
			{Field: models.FieldRatio, Operator: models.OperatorGreaterThan, Value: "2"},
		},
	}
	assert.True(t, group.IsGroup())

	leaf := &models.RuleCondition{Field: models.FieldRatio, Operator: models.OperatorGreaterThan, Value: "2"}
	assert.False(t, leaf.IsGroup())

	// AND operator without children is not a group.
	assert.False(t, (&models.RuleCondition{Operator: models.OperatorAnd}).IsGroup())
}

func TestCollectFields(t *testing.T) {
	t.Parallel()

	tree := &models.RuleCondition{
		Operator: models.OperatorOr,
		Conditions: []*models.RuleCondition{
			{Field: models.FieldRatio, Operator: models.OperatorGreaterThan, Value: "2"},
			{
				Operator: models.OperatorAnd,
				Conditions: []*models.RuleCondition{
					{Field: models.FieldSeedingTime, Operator: models.OperatorGreaterThan, Value: "86400"},
					{Field: models.FieldRatio, Operator: models.OperatorLessThan, Value: "5"},
					{Field: models.FieldCategory, Operator: models.OperatorEqual, Value: "movies"},
				},
			},
		},
	}

	// First-seen order, duplicates collapsed.
	assert.Equal(t,
		[]models.ConditionField{models.FieldRatio, models.FieldSeedingTime, models.FieldCategory},
		tree.CollectFields(),
	)

	assert.True(t, tree.UsesField(models.FieldCategory))
	assert.False(t, tree.UsesField(models.FieldState))

	var nilCondition *models.RuleCondition
	assert.Empty(t, nilCondition.CollectFields())
	assert.False(t, nilCondition.UsesField(models.FieldRatio))
}
