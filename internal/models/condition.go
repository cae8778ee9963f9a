// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

// ConditionField names a torrent attribute a rule condition can inspect.
type ConditionField string

const (
	// String fields
	FieldName        ConditionField = "NAME"
	FieldHash        ConditionField = "HASH"
	FieldCategory    ConditionField = "CATEGORY"
	FieldTags        ConditionField = "TAGS"
	FieldSavePath    ConditionField = "SAVE_PATH"
	FieldContentPath ConditionField = "CONTENT_PATH"
	FieldState       ConditionField = "STATE"
	FieldTracker     ConditionField = "TRACKER"
	FieldComment     ConditionField = "COMMENT"

	// Numeric fields (bytes)
	FieldSize       ConditionField = "SIZE"
	FieldTotalSize  ConditionField = "TOTAL_SIZE"
	FieldDownloaded ConditionField = "DOWNLOADED"
	FieldUploaded   ConditionField = "UPLOADED"
	FieldAmountLeft ConditionField = "AMOUNT_LEFT"

	// Numeric fields (timestamps/seconds)
	FieldAddedOn      ConditionField = "ADDED_ON"
	FieldCompletionOn ConditionField = "COMPLETION_ON"
	FieldLastActivity ConditionField = "LAST_ACTIVITY"
	FieldSeedingTime  ConditionField = "SEEDING_TIME"
	FieldTimeActive   ConditionField = "TIME_ACTIVE"

	// Numeric fields (float64)
	FieldRatio        ConditionField = "RATIO"
	FieldProgress     ConditionField = "PROGRESS"
	FieldAvailability ConditionField = "AVAILABILITY"

	// Numeric fields (speeds)
	FieldDlSpeed ConditionField = "DL_SPEED"
	FieldUpSpeed ConditionField = "UP_SPEED"

	// Numeric fields (counts)
	FieldNumSeeds  ConditionField = "NUM_SEEDS"
	FieldNumLeechs ConditionField = "NUM_LEECHS"

	// Boolean fields
	FieldPrivate        ConditionField = "PRIVATE"
	FieldIsUnregistered ConditionField = "IS_UNREGISTERED"
)

// ConditionOperator compares a field against a value, or joins a group.
type ConditionOperator string

const (
	// Logical operators (for groups)
	OperatorAnd ConditionOperator = "AND"
	OperatorOr  ConditionOperator = "OR"

	// Comparison operators
	OperatorEqual              ConditionOperator = "EQUAL"
	OperatorNotEqual           ConditionOperator = "NOT_EQUAL"
	OperatorContains           ConditionOperator = "CONTAINS"
	OperatorNotContains        ConditionOperator = "NOT_CONTAINS"
	OperatorStartsWith         ConditionOperator = "STARTS_WITH"
	OperatorEndsWith           ConditionOperator = "ENDS_WITH"
	OperatorGreaterThan        ConditionOperator = "GREATER_THAN"
	OperatorGreaterThanOrEqual ConditionOperator = "GREATER_THAN_OR_EQUAL"
	OperatorLessThan           ConditionOperator = "LESS_THAN"
	OperatorLessThanOrEqual    ConditionOperator = "LESS_THAN_OR_EQUAL"
	OperatorBetween            ConditionOperator = "BETWEEN"
	OperatorMatches            ConditionOperator = "MATCHES" // regex
)

// RuleCondition is a node in a rule's condition tree: either a leaf comparing
// one field, or an AND/OR group of child conditions. The editor treats the
// tree as opaque apart from the set of referenced fields; evaluation belongs
// to the backend.
type RuleCondition struct {
	Field      ConditionField    `json:"field,omitempty"`
	Operator   ConditionOperator `json:"operator"`
	Value      string            `json:"value,omitempty"`
	MinValue   *float64          `json:"minValue,omitempty"`
	MaxValue   *float64          `json:"maxValue,omitempty"`
	Conditions []*RuleCondition  `json:"conditions,omitempty"`
}

// IsGroup returns true if this condition is an AND/OR group containing child conditions.
func (c *RuleCondition) IsGroup() bool {
	return len(c.Conditions) > 0 && (c.Operator == OperatorAnd || c.Operator == OperatorOr)
}

// UsesField reports whether the condition tree references the given field.
func (c *RuleCondition) UsesField(field ConditionField) bool {
	if c == nil {
		return false
	}
	if c.IsGroup() {
		for _, child := range c.Conditions {
			if child.UsesField(field) {
				return true
			}
		}
		return false
	}
	return c.Field == field
}

// CollectFields returns the distinct fields referenced by the condition tree,
// in first-seen order. Preview rendering uses this to pick dynamic columns.
func (c *RuleCondition) CollectFields() []ConditionField {
	var fields []ConditionField
	seen := make(map[ConditionField]struct{})
	c.collectFields(seen, &fields)
	return fields
}

func (c *RuleCondition) collectFields(seen map[ConditionField]struct{}, fields *[]ConditionField) {
	if c == nil {
		return
	}
	if c.IsGroup() {
		for _, child := range c.Conditions {
			child.collectFields(seen, fields)
		}
		return
	}
	if c.Field == "" {
		return
	}
	if _, ok := seen[c.Field]; ok {
		return
	}
	seen[c.Field] = struct{}{}
	*fields = append(*fields, c.Field)
}
