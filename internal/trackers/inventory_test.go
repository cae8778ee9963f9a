// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package trackers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDomainLister struct {
	domains []string
	err     error
	calls   int
}

func (f *fakeDomainLister) ListTrackerDomains(_ context.Context, _ int) ([]string, error) {
	f.calls++
	return f.domains, f.err
}

func TestInventoryDomains(t *testing.T) {
	t.Parallel()

	lister := &fakeDomainLister{domains: []string{"Tracker.Example", "tracker.example", "", "other.com"}}
	inv := NewInventory(lister, nil)

	domains, err := inv.Domains(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"other.com", "tracker.example"}, domains)
	assert.Equal(t, 1, lister.calls)
}

func TestDomainFromTrackerURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"announce url", "https://tracker.example/announce?passkey=abc", "tracker.example"},
		{"url with port", "udp://tracker.example:6969/announce", "tracker.example"},
		{"bare hostname", "tracker.example", "tracker.example"},
		{"uppercase host", "HTTPS://Tracker.EXAMPLE/announce", "tracker.example"},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DomainFromTrackerURL(tt.raw))
		})
	}
}
