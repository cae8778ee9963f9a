// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package backend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/rulegate/internal/models"
)

func TestPreviewRule(t *testing.T) {
	t.Parallel()

	var received struct {
		Enabled       bool `json:"enabled"`
		PreviewLimit  int  `json:"previewLimit"`
		PreviewOffset int  `json:"previewOffset"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/instances/4/rules/preview", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("X-API-Key"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(PreviewResult{
			TotalMatches:   3,
			CrossSeedCount: 1,
			Examples:       []PreviewTorrent{{Name: "a", Hash: "h1"}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{Host: server.URL, APIKey: "secret"})

	rule := &models.AutomationRule{
		Name:    "cleanup",
		Enabled: false, // preview must still evaluate as enabled
		Conditions: &models.ActionConditions{
			Delete: &models.DeleteAction{Enabled: true, Mode: models.DeleteModeWithFiles},
		},
	}

	result, err := client.PreviewRule(t.Context(), 4, rule, 25, 50)
	require.NoError(t, err)

	assert.True(t, received.Enabled)
	assert.Equal(t, 25, received.PreviewLimit)
	assert.Equal(t, 50, received.PreviewOffset)

	assert.Equal(t, 3, result.TotalMatches)
	assert.Equal(t, 1, result.CrossSeedCount)
	require.Len(t, result.Examples, 1)

	// The caller's rule is untouched.
	assert.False(t, rule.Enabled)
}

func TestPreviewRuleEmptyExamples(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"totalMatches": 0})
	}))
	defer server.Close()

	client := NewClient(Config{Host: server.URL})

	result, err := client.PreviewRule(t.Context(), 1, &models.AutomationRule{}, 25, 0)
	require.NoError(t, err)
	assert.NotNil(t, result.Examples)
	assert.Empty(t, result.Examples)
}

func TestErrorDecoding(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "rule name already exists"})
	}))
	defer server.Close()

	client := NewClient(Config{Host: server.URL})

	_, err := client.CreateRule(t.Context(), 1, &models.AutomationRule{Name: "dup"})
	require.Error(t, err)

	var backendErr *Error
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusUnprocessableEntity, backendErr.StatusCode)
	assert.Contains(t, backendErr.Message, "already exists")
}

func TestListRulesRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode([]*models.AutomationRule{{ID: 1, Name: "only"}})
	}))
	defer server.Close()

	client := NewClient(Config{Host: server.URL})

	rules, err := client.ListRules(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestMutationsAreNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{Host: server.URL})

	err := client.ReorderRules(t.Context(), 1, []int{2, 1})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCheckCompatibility(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{"new enough", "1.5.0", false},
		{"exact minimum", MinBackendVersion, false},
		{"v prefix", "v2.0.1", false},
		{"too old", "1.3.9", true},
		{"garbage", "not-a-version", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/api/version", r.URL.Path)
				json.NewEncoder(w).Encode(map[string]string{"version": tt.version})
			}))
			defer server.Close()

			client := NewClient(Config{Host: server.URL})
			err := client.CheckCompatibility(t.Context())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
