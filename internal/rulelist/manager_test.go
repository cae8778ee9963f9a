// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package rulelist

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/rulegate/internal/models"
)

type fakeBackend struct {
	mu sync.Mutex

	rules      []*models.AutomationRule
	listCalls  int
	reorderErr error
	reordered  [][]int
}

func (f *fakeBackend) ListRules(_ context.Context, _ int) ([]*models.AutomationRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	out := make([]*models.AutomationRule, len(f.rules))
	for i, rule := range f.rules {
		cloned := *rule
		out[i] = &cloned
	}
	return out, nil
}

func (f *fakeBackend) ReorderRules(_ context.Context, _ int, orderedIDs []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.reorderErr != nil {
		return f.reorderErr
	}
	f.reordered = append(f.reordered, orderedIDs)

	position := make(map[int]int, len(orderedIDs))
	for idx, id := range orderedIDs {
		position[id] = idx + 1
	}
	for _, rule := range f.rules {
		if p, ok := position[rule.ID]; ok {
			rule.SortOrder = p
		}
	}
	return nil
}

func threeRules() []*models.AutomationRule {
	return []*models.AutomationRule{
		{ID: 1, Name: "first", SortOrder: 1},
		{ID: 2, Name: "second", SortOrder: 2},
		{ID: 3, Name: "third", SortOrder: 3},
	}
}

func ruleIDs(rules []*models.AutomationRule) []int {
	ids := make([]int, len(rules))
	for i, rule := range rules {
		ids[i] = rule.ID
	}
	return ids
}

func TestManagerRules(t *testing.T) {
	t.Parallel()

	t.Run("first read fetches, second serves from cache", func(t *testing.T) {
		backend := &fakeBackend{rules: threeRules()}
		m := NewManager(backend)

		rules, err := m.Rules(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, ruleIDs(rules))

		_, err = m.Rules(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 1, backend.listCalls)
	})

	t.Run("sorts by sortOrder with id tie-break", func(t *testing.T) {
		backend := &fakeBackend{rules: []*models.AutomationRule{
			{ID: 9, SortOrder: 2},
			{ID: 4, SortOrder: 1},
			{ID: 2, SortOrder: 2},
		}}
		m := NewManager(backend)

		rules, err := m.Rules(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, []int{4, 2, 9}, ruleIDs(rules))
	})

	t.Run("invalidate forces a refetch", func(t *testing.T) {
		backend := &fakeBackend{rules: threeRules()}
		m := NewManager(backend)

		_, err := m.Rules(context.Background(), 1)
		require.NoError(t, err)

		m.Invalidate(1)

		_, err = m.Rules(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 2, backend.listCalls)
	})
}

func TestManagerReorder(t *testing.T) {
	t.Parallel()

	t.Run("success persists and reconciles with the backend", func(t *testing.T) {
		backend := &fakeBackend{rules: threeRules()}
		m := NewManager(backend)

		rules, err := m.Reorder(context.Background(), 1, []int{3, 1, 2})
		require.NoError(t, err)

		assert.Equal(t, []int{3, 1, 2}, ruleIDs(rules))
		require.Len(t, backend.reordered, 1)
		assert.Equal(t, []int{3, 1, 2}, backend.reordered[0])
	})

	t.Run("failure restores the pre-reorder order verbatim", func(t *testing.T) {
		backend := &fakeBackend{rules: threeRules()}
		m := NewManager(backend)

		before, err := m.Rules(context.Background(), 1)
		require.NoError(t, err)

		backend.mu.Lock()
		backend.reorderErr = errors.New("backend down")
		backend.mu.Unlock()

		_, err = m.Reorder(context.Background(), 1, []int{3, 1, 2})

		var rollback *ReorderRollbackError
		require.ErrorAs(t, err, &rollback)

		after, err := m.Rules(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, ruleIDs(before), ruleIDs(after))
		for i := range before {
			assert.Equal(t, before[i].SortOrder, after[i].SortOrder)
		}
	})

	t.Run("empty ordering is rejected", func(t *testing.T) {
		m := NewManager(&fakeBackend{rules: threeRules()})

		_, err := m.Reorder(context.Background(), 1, nil)
		require.Error(t, err)
	})

	t.Run("returned slices are copies", func(t *testing.T) {
		backend := &fakeBackend{rules: threeRules()}
		m := NewManager(backend)

		rules, err := m.Rules(context.Background(), 1)
		require.NoError(t, err)
		rules[0].Name = "mutated"

		fresh, err := m.Rules(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "first", fresh[0].Name)
	})
}
