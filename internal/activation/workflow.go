// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package activation gates destructive rule activation behind a preview. A
// rule whose active action deletes torrents or changes categories may only be
// flipped on after the operator has seen how many torrents it would touch and
// explicitly confirmed.
package activation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/rulegate/internal/backend"
	"github.com/autobrr/rulegate/internal/models"
)

// PreviewPageSize is the fixed number of example rows fetched per page.
const PreviewPageSize = 25

// State is the lifecycle position of one activation session.
type State string

const (
	StateIdle           State = "idle"
	StatePreviewLoading State = "previewLoading"
	StatePreviewReady   State = "previewReady"
	StateCommitting     State = "committing"
)

var (
	// ErrPreviewInFlight is returned when a session already has an operation
	// pending; the control should be disabled, not queued.
	ErrPreviewInFlight = errors.New("a preview or commit is already in flight for this rule")
	// ErrNoSession is returned when confirming/cancelling a rule with no open session.
	ErrNoSession = errors.New("no activation session open for this rule")
	// ErrNotReady is returned when an operation requires a loaded preview.
	ErrNotReady = errors.New("activation session has no preview loaded")
	// ErrPreviewNotRequired is returned when Begin is called for a rule that
	// can be committed directly.
	ErrPreviewNotRequired = errors.New("rule does not require preview-gated activation")
)

// PreviewFetchError wraps a failed trial evaluation. It is recoverable: the
// prior enabled state has already been restored and the operator may retry.
type PreviewFetchError struct {
	Err error
}

func (e *PreviewFetchError) Error() string { return fmt.Sprintf("preview fetch failed: %v", e.Err) }
func (e *PreviewFetchError) Unwrap() error { return e.Err }

// CommitError wraps a failed create/update after confirmation. The persisted
// rule is unchanged; the session stays open so the operator can retry or cancel.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string { return fmt.Sprintf("commit failed: %v", e.Err) }
func (e *CommitError) Unwrap() error { return e.Err }

// RuleClient is the slice of the backend client the workflow needs.
type RuleClient interface {
	PreviewRule(ctx context.Context, instanceID int, rule *models.AutomationRule, limit, offset int) (*backend.PreviewResult, error)
	CreateRule(ctx context.Context, instanceID int, rule *models.AutomationRule) (*models.AutomationRule, error)
	UpdateRule(ctx context.Context, instanceID, ruleID int, rule *models.AutomationRule) (*models.AutomationRule, error)
}

// RequiresPreview classifies a candidate payload: destructive action AND an
// enabling transition. Everything else commits directly.
func RequiresPreview(rule *models.AutomationRule, wasEnabled bool) bool {
	if rule == nil || !rule.Enabled || wasEnabled {
		return false
	}
	return rule.Conditions.IsDestructive()
}

type sessionKey struct {
	instanceID int
	ruleID     int
}

type session struct {
	state        State
	instanceID   int
	rule         *models.AutomationRule
	priorEnabled bool
	result       *backend.PreviewResult
	seen         map[string]struct{}
	cancel       context.CancelFunc
}

// Snapshot is the externally visible view of a session, shaped for the
// confirmation dialog.
type Snapshot struct {
	State          State                    `json:"state"`
	TotalMatches   int                      `json:"totalMatches"`
	DirectMatches  int                      `json:"directMatches"`
	CrossSeedCount int                      `json:"crossSeedCount"`
	Examples       []backend.PreviewTorrent `json:"examples"`
	HasMore        bool                     `json:"hasMore"`
	Message        string                   `json:"message"`
	PriorEnabled   bool                     `json:"priorEnabled"`
}

// Manager orchestrates activation sessions. At most one destructive
// activation is in flight per (instance, rule) pair.
type Manager struct {
	client RuleClient

	mu       sync.Mutex
	sessions map[sessionKey]*session

	// onCommit is invoked after a successful commit so the cached rule
	// collection can be invalidated.
	onCommit func(instanceID int)
}

func NewManager(client RuleClient, onCommit func(instanceID int)) *Manager {
	return &Manager{
		client:   client,
		sessions: make(map[sessionKey]*session),
		onCommit: onCommit,
	}
}

// Begin opens a session for the candidate payload and loads the first preview
// page. priorEnabled is the persisted enabled value before the operator's
// toggle; it is remembered so cancellation can restore it. On fetch failure
// the session is discarded and a *PreviewFetchError returned.
func (m *Manager) Begin(ctx context.Context, instanceID int, rule *models.AutomationRule, priorEnabled bool) (*Snapshot, error) {
	if !RequiresPreview(rule, priorEnabled) {
		return nil, ErrPreviewNotRequired
	}

	key := sessionKey{instanceID: instanceID, ruleID: rule.ID}

	m.mu.Lock()
	if existing, ok := m.sessions[key]; ok {
		if existing.state == StatePreviewLoading || existing.state == StateCommitting {
			m.mu.Unlock()
			return nil, ErrPreviewInFlight
		}
		// A stale PreviewReady session is replaced; its fetches are cancelled.
		existing.cancel()
	}

	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &session{
		state:        StatePreviewLoading,
		instanceID:   instanceID,
		rule:         rule,
		priorEnabled: priorEnabled,
		seen:         make(map[string]struct{}),
		cancel:       cancel,
	}
	m.sessions[key] = s
	m.mu.Unlock()

	result, err := m.client.PreviewRule(fetchCtx, instanceID, rule, PreviewPageSize, 0)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessions[key] != s {
		// Session was cancelled while the fetch was in flight.
		return nil, ErrNoSession
	}

	if err != nil {
		delete(m.sessions, key)
		cancel()
		log.Warn().Err(err).Int("instanceID", instanceID).Int("ruleID", rule.ID).Msg("rule preview failed")
		return nil, &PreviewFetchError{Err: err}
	}

	s.state = StatePreviewReady
	s.result = result
	for _, example := range result.Examples {
		s.seen[example.Hash] = struct{}{}
	}

	return s.snapshot(), nil
}

// LoadMore fetches the next preview page and appends new examples,
// deduplicated by torrent hash. The match counts are overwritten with the
// freshest values; live data may legitimately shift between calls.
func (m *Manager) LoadMore(ctx context.Context, instanceID, ruleID int) (*Snapshot, error) {
	key := sessionKey{instanceID: instanceID, ruleID: ruleID}

	m.mu.Lock()
	s, ok := m.sessions[key]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	if s.state != StatePreviewReady {
		m.mu.Unlock()
		if s.state == StatePreviewLoading || s.state == StateCommitting {
			return nil, ErrPreviewInFlight
		}
		return nil, ErrNotReady
	}
	s.state = StatePreviewLoading
	offset := len(s.result.Examples)
	rule := s.rule
	m.mu.Unlock()

	result, err := m.client.PreviewRule(ctx, instanceID, rule, PreviewPageSize, offset)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessions[key] != s {
		return nil, ErrNoSession
	}
	s.state = StatePreviewReady

	if err != nil {
		// The already-loaded page stays valid; the operator may retry.
		return nil, &PreviewFetchError{Err: err}
	}

	s.result.TotalMatches = result.TotalMatches
	s.result.CrossSeedCount = result.CrossSeedCount
	for _, example := range result.Examples {
		if _, dup := s.seen[example.Hash]; dup {
			continue
		}
		s.seen[example.Hash] = struct{}{}
		s.result.Examples = append(s.result.Examples, example)
	}

	return s.snapshot(), nil
}

// Confirm commits the previewed payload with enabled=true. On success the
// session is closed and the rule-collection cache invalidated; on failure the
// session returns to PreviewReady and a *CommitError is returned.
func (m *Manager) Confirm(ctx context.Context, instanceID, ruleID int) (*models.AutomationRule, error) {
	key := sessionKey{instanceID: instanceID, ruleID: ruleID}

	m.mu.Lock()
	s, ok := m.sessions[key]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	if s.state != StatePreviewReady {
		m.mu.Unlock()
		if s.state == StatePreviewLoading || s.state == StateCommitting {
			return nil, ErrPreviewInFlight
		}
		return nil, ErrNotReady
	}
	s.state = StateCommitting
	rule := s.rule
	m.mu.Unlock()

	committed := *rule
	committed.Enabled = true

	var (
		persisted *models.AutomationRule
		err       error
	)
	if ruleID == 0 {
		persisted, err = m.client.CreateRule(ctx, instanceID, &committed)
	} else {
		persisted, err = m.client.UpdateRule(ctx, instanceID, ruleID, &committed)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessions[key] != s {
		return nil, ErrNoSession
	}

	if err != nil {
		s.state = StatePreviewReady
		log.Error().Err(err).Int("instanceID", instanceID).Int("ruleID", ruleID).Msg("rule activation commit failed")
		return nil, &CommitError{Err: err}
	}

	delete(m.sessions, key)
	s.cancel()

	if m.onCommit != nil {
		m.onCommit(instanceID)
	}

	log.Info().Int("instanceID", instanceID).Int("ruleID", persisted.ID).Str("rule", persisted.Name).Msg("destructive rule activated after preview confirmation")
	return persisted, nil
}

// Cancel dismisses the session without committing. It returns the enabled
// value the UI must restore; no mutation is ever sent on this path. In-flight
// preview fetches are aborted and their results discarded.
func (m *Manager) Cancel(instanceID, ruleID int) (restoredEnabled bool, err error) {
	key := sessionKey{instanceID: instanceID, ruleID: ruleID}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key]
	if !ok {
		return false, ErrNoSession
	}
	if s.state == StateCommitting {
		return false, ErrPreviewInFlight
	}

	delete(m.sessions, key)
	s.cancel()
	return s.priorEnabled, nil
}

// Snapshot returns the current view of a session, or an Idle snapshot when
// none is open.
func (m *Manager) Snapshot(instanceID, ruleID int) *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionKey{instanceID: instanceID, ruleID: ruleID}]
	if !ok {
		return &Snapshot{State: StateIdle, Examples: []backend.PreviewTorrent{}}
	}
	return s.snapshot()
}

func (s *session) snapshot() *Snapshot {
	snap := &Snapshot{
		State:        s.state,
		Examples:     []backend.PreviewTorrent{},
		PriorEnabled: s.priorEnabled,
	}
	if s.result == nil {
		return snap
	}

	snap.TotalMatches = s.result.TotalMatches
	snap.CrossSeedCount = s.result.CrossSeedCount
	snap.DirectMatches = s.result.TotalMatches - s.result.CrossSeedCount
	snap.Examples = append(snap.Examples, s.result.Examples...)
	snap.HasMore = len(s.result.Examples) < s.result.TotalMatches
	snap.Message = s.message()
	return snap
}

// message picks the confirmation copy. Zero matches is called out explicitly:
// confirming still saves and enables the rule, it just matches nothing today.
func (s *session) message() string {
	total := s.result.TotalMatches
	if total == 0 {
		return "No torrents currently match this rule. Confirming will still save and enable it."
	}

	typ, _ := s.rule.Conditions.ActiveActionType()
	if typ == models.ActionCategory && s.result.CrossSeedCount > 0 {
		return fmt.Sprintf("%d torrents match directly and %d more are included as cross-seeds.",
			total-s.result.CrossSeedCount, s.result.CrossSeedCount)
	}
	if typ == models.ActionDelete {
		return fmt.Sprintf("%d torrents will be deleted when this rule runs.", total)
	}
	return fmt.Sprintf("%d torrents currently match this rule.", total)
}
