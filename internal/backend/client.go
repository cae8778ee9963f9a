// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package backend is the HTTP client for the rule-evaluation backend. The
// backend owns rule persistence and evaluation; this client only carries the
// editor's mutations and trial evaluations.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	goversion "github.com/hashicorp/go-version"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/rulegate/internal/models"
)

// MinBackendVersion is the oldest backend that serves rule previews with
// cross-seed counts and offset pagination.
const MinBackendVersion = "1.4.0"

// Config holds the options for constructing a Client.
type Config struct {
	Host       string
	APIKey     string
	Timeout    int
	HTTPClient *http.Client
	UserAgent  string
}

// Client talks to the evaluation backend's JSON API.
type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
	userAgent  string
}

// NewClient constructs a new Client using the provided configuration.
func NewClient(cfg Config) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = "rulegate"
	}

	return &Client{
		host:       strings.TrimRight(cfg.Host, "/"),
		apiKey:     cfg.APIKey,
		httpClient: client,
		userAgent:  ua,
	}
}

// Error is a non-2xx backend response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("backend: unexpected status %d", e.StatusCode)
}

// PreviewResult is the backend's trial evaluation of a candidate rule.
type PreviewResult struct {
	TotalMatches   int              `json:"totalMatches"`
	CrossSeedCount int              `json:"crossSeedCount,omitempty"`
	Examples       []PreviewTorrent `json:"examples"`
}

// PreviewTorrent is one example row in a preview.
type PreviewTorrent struct {
	Name        string  `json:"name"`
	Hash        string  `json:"hash"`
	Size        int64   `json:"size"`
	Ratio       float64 `json:"ratio"`
	SeedingTime int64   `json:"seedingTime"`
	Tracker     string  `json:"tracker"`
	Category    string  `json:"category"`
	Tags        string  `json:"tags"`
	State       string  `json:"state"`
	AddedOn     int64   `json:"addedOn"`
	IsCrossSeed bool    `json:"isCrossSeed,omitempty"`
}

type previewPayload struct {
	*models.AutomationRule
	PreviewLimit  int `json:"previewLimit"`
	PreviewOffset int `json:"previewOffset"`
}

// PreviewRule evaluates the candidate rule without committing it. The payload
// always carries enabled=true so the backend evaluates the rule as it would
// run, regardless of the rule's current persisted flag.
func (c *Client) PreviewRule(ctx context.Context, instanceID int, rule *models.AutomationRule, limit, offset int) (*PreviewResult, error) {
	candidate := *rule
	candidate.Enabled = true

	var result PreviewResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/instances/%d/rules/preview", instanceID), previewPayload{
		AutomationRule: &candidate,
		PreviewLimit:   limit,
		PreviewOffset:  offset,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Examples == nil {
		result.Examples = []PreviewTorrent{}
	}
	return &result, nil
}

// ListRules fetches the instance's persisted rules.
func (c *Client) ListRules(ctx context.Context, instanceID int) ([]*models.AutomationRule, error) {
	var rules []*models.AutomationRule
	err := c.doWithRetry(ctx, http.MethodGet, fmt.Sprintf("/api/instances/%d/rules", instanceID), nil, &rules)
	return rules, err
}

// CreateRule persists a new rule.
func (c *Client) CreateRule(ctx context.Context, instanceID int, rule *models.AutomationRule) (*models.AutomationRule, error) {
	var created models.AutomationRule
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/instances/%d/rules", instanceID), rule, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateRule replaces an existing rule.
func (c *Client) UpdateRule(ctx context.Context, instanceID, ruleID int, rule *models.AutomationRule) (*models.AutomationRule, error) {
	var updated models.AutomationRule
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/instances/%d/rules/%d", instanceID, ruleID), rule, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteRule removes a rule.
func (c *Client) DeleteRule(ctx context.Context, instanceID, ruleID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/instances/%d/rules/%d", instanceID, ruleID), nil, nil)
}

// ReorderRules persists a full ordering of the instance's rules.
func (c *Client) ReorderRules(ctx context.Context, instanceID int, orderedIDs []int) error {
	payload := struct {
		OrderedIDs []int `json:"orderedIds"`
	}{OrderedIDs: orderedIDs}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/instances/%d/rules/reorder", instanceID), payload, nil)
}

// ListTrackerDomains fetches the instance's raw tracker domain inventory.
func (c *Client) ListTrackerDomains(ctx context.Context, instanceID int) ([]string, error) {
	var domains []string
	err := c.doWithRetry(ctx, http.MethodGet, fmt.Sprintf("/api/instances/%d/trackers", instanceID), nil, &domains)
	return domains, err
}

// CheckCompatibility verifies the backend is new enough for the preview
// workflow. Backends that do not expose a version endpoint are rejected.
func (c *Client) CheckCompatibility(ctx context.Context) error {
	var info struct {
		Version string `json:"version"`
	}
	if err := c.doWithRetry(ctx, http.MethodGet, "/api/version", nil, &info); err != nil {
		return fmt.Errorf("backend version check: %w", err)
	}

	current, err := goversion.NewVersion(strings.TrimPrefix(info.Version, "v"))
	if err != nil {
		return fmt.Errorf("backend reported unparsable version %q: %w", info.Version, err)
	}

	minimum := goversion.Must(goversion.NewVersion(MinBackendVersion))
	if current.LessThan(minimum) {
		return fmt.Errorf("backend version %s is older than required %s", current, minimum)
	}

	log.Debug().Str("backendVersion", info.Version).Msg("backend compatibility check passed")
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	endpoint, err := url.JoinPath(c.host, path)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readError(resp)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// doWithRetry wraps idempotent GETs with a short retry. Mutations are never
// retried; a failed commit must surface immediately so the caller can roll
// back optimistic state.
func (c *Client) doWithRetry(ctx context.Context, method, path string, body, out any) error {
	return retry.Do(
		func() error {
			return c.do(ctx, method, path, body, out)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(250*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var backendErr *Error
			if errors.As(err, &backendErr) {
				return backendErr.StatusCode >= http.StatusInternalServerError
			}
			return ctx.Err() == nil
		}),
	)
}

func readError(resp *http.Response) error {
	backendErr := &Error{StatusCode: resp.StatusCode}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err == nil {
		backendErr.Message = payload.Error
	}
	return backendErr
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
