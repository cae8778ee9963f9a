// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package rulelist keeps a cached, ordered view of each instance's rule
// collection and applies reorders optimistically with rollback on failure.
package rulelist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/rulegate/internal/models"
)

var (
	// ErrReorderInFlight is returned while a previous reorder is unresolved;
	// drag input should be disabled, not queued.
	ErrReorderInFlight = errors.New("a reorder is already in flight for this instance")
)

// ReorderRollbackError reports a failed reorder mutation. The in-memory
// ordering has already been restored to the exact pre-reorder state.
type ReorderRollbackError struct {
	Err error
}

func (e *ReorderRollbackError) Error() string {
	return fmt.Sprintf("reorder failed, previous order restored: %v", e.Err)
}
func (e *ReorderRollbackError) Unwrap() error { return e.Err }

// Backend is the slice of the backend client the manager needs.
type Backend interface {
	ListRules(ctx context.Context, instanceID int) ([]*models.AutomationRule, error)
	ReorderRules(ctx context.Context, instanceID int, orderedIDs []int) error
}

type collection struct {
	rules           []*models.AutomationRule
	loaded          bool
	reorderInFlight bool
}

// Manager caches rule collections per instance. Safe for concurrent use.
type Manager struct {
	client Backend

	mu         sync.Mutex
	byInstance map[int]*collection
}

func NewManager(client Backend) *Manager {
	return &Manager{
		client:     client,
		byInstance: make(map[int]*collection),
	}
}

// sortRules orders by (sortOrder, id); the id tie-break keeps equal or
// missing order values stable.
func sortRules(rules []*models.AutomationRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].SortOrder != rules[j].SortOrder {
			return rules[i].SortOrder < rules[j].SortOrder
		}
		return rules[i].ID < rules[j].ID
	})
}

// Rules returns the cached collection, fetching it on first use.
func (m *Manager) Rules(ctx context.Context, instanceID int) ([]*models.AutomationRule, error) {
	m.mu.Lock()
	c := m.collection(instanceID)
	if c.loaded {
		rules := copyRules(c.rules)
		m.mu.Unlock()
		return rules, nil
	}
	m.mu.Unlock()

	return m.Refresh(ctx, instanceID)
}

// Refresh reloads the collection from the backend.
func (m *Manager) Refresh(ctx context.Context, instanceID int) ([]*models.AutomationRule, error) {
	rules, err := m.client.ListRules(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	sortRules(rules)

	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collection(instanceID)
	c.rules = rules
	c.loaded = true
	return copyRules(rules), nil
}

// Invalidate drops the cached view so the next read refetches.
func (m *Manager) Invalidate(instanceID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byInstance[instanceID]; ok {
		c.loaded = false
		c.rules = nil
	}
}

// Reorder applies the operator's new id ordering: the cached rules are
// rewritten to their 1-based index immediately, then the mutation is issued.
// On failure the previous collection is restored verbatim and a
// *ReorderRollbackError returned; on success the collection is refreshed so
// any server-side renumbering is reconciled.
func (m *Manager) Reorder(ctx context.Context, instanceID int, orderedIDs []int) ([]*models.AutomationRule, error) {
	if len(orderedIDs) == 0 {
		return nil, errors.New("orderedIDs is empty")
	}

	m.mu.Lock()
	c := m.collection(instanceID)
	if c.reorderInFlight {
		m.mu.Unlock()
		return nil, ErrReorderInFlight
	}
	if !c.loaded {
		m.mu.Unlock()
		if _, err := m.Refresh(ctx, instanceID); err != nil {
			return nil, err
		}
		m.mu.Lock()
		c = m.collection(instanceID)
		if c.reorderInFlight {
			m.mu.Unlock()
			return nil, ErrReorderInFlight
		}
	}

	snapshot := copyRules(c.rules)

	// Optimistic rewrite: listed rules take their new 1-based position.
	position := make(map[int]int, len(orderedIDs))
	for idx, id := range orderedIDs {
		position[id] = idx + 1
	}
	for _, rule := range c.rules {
		if p, ok := position[rule.ID]; ok {
			rule.SortOrder = p
		}
	}
	sortRules(c.rules)
	c.reorderInFlight = true
	m.mu.Unlock()

	err := m.client.ReorderRules(ctx, instanceID, orderedIDs)

	m.mu.Lock()
	c.reorderInFlight = false
	if err != nil {
		c.rules = snapshot
		m.mu.Unlock()
		log.Error().Err(err).Int("instanceID", instanceID).Msg("rule reorder failed, restoring previous order")
		return nil, &ReorderRollbackError{Err: err}
	}
	m.mu.Unlock()

	return m.Refresh(ctx, instanceID)
}

// collection must be called with m.mu held.
func (m *Manager) collection(instanceID int) *collection {
	c, ok := m.byInstance[instanceID]
	if !ok {
		c = &collection{}
		m.byInstance[instanceID] = c
	}
	return c
}

func copyRules(rules []*models.AutomationRule) []*models.AutomationRule {
	out := make([]*models.AutomationRule, len(rules))
	for i, rule := range rules {
		cloned := *rule
		out[i] = &cloned
	}
	return out
}
