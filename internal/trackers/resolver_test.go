// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package trackers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/rulegate/internal/models"
)

func newTestResolver(customizations ...*models.TrackerCustomization) *Resolver {
	r := NewResolver()
	r.Update(customizations)
	return r
}

func TestBuildOptions(t *testing.T) {
	t.Parallel()

	acme := &models.TrackerCustomization{
		ID:          1,
		DisplayName: "ACME",
		Domains:     []string{"acme.one", "acme.two"},
	}

	t.Run("merges customization domains into one option", func(t *testing.T) {
		r := newTestResolver(acme)

		options := r.BuildOptions([]string{"acme.one", "acme.two", "other.com"})
		require.Len(t, options, 2)

		assert.Equal(t, "ACME", options[0].Label)
		assert.Equal(t, "acme.one,acme.two", options[0].Value)
		assert.Equal(t, "acme.one", options[0].IconDomain)

		assert.Equal(t, "other.com", options[1].Label)
		assert.Equal(t, "other.com", options[1].Value)
	})

	t.Run("secondary domains never appear standalone", func(t *testing.T) {
		r := newTestResolver(acme)

		// Only the secondary alias is present in the inventory.
		options := r.BuildOptions([]string{"acme.two"})
		require.Empty(t, options)
	})

	t.Run("primary alone still yields the merged option", func(t *testing.T) {
		r := newTestResolver(acme)

		options := r.BuildOptions([]string{"acme.one"})
		require.Len(t, options, 1)
		assert.Equal(t, "acme.one,acme.two", options[0].Value)
	})

	t.Run("no duplicate labels", func(t *testing.T) {
		r := newTestResolver(acme)

		options := r.BuildOptions([]string{"acme.one", "acme.one", "acme.two"})
		require.Len(t, options, 1)
	})

	t.Run("sorted case-insensitively by label", func(t *testing.T) {
		zeta := &models.TrackerCustomization{ID: 2, DisplayName: "zeta", Domains: []string{"zeta.example"}}
		r := newTestResolver(acme, zeta)

		options := r.BuildOptions([]string{"zeta.example", "Beta.example", "acme.one"})
		require.Len(t, options, 3)
		assert.Equal(t, "ACME", options[0].Label)
		assert.Equal(t, "beta.example", options[1].Label)
		assert.Equal(t, "zeta", options[2].Label)
	})

	t.Run("blank and whitespace domains are dropped", func(t *testing.T) {
		r := newTestResolver()

		options := r.BuildOptions([]string{"", "   ", "tracker.example"})
		require.Len(t, options, 1)
		assert.Equal(t, "tracker.example", options[0].Value)
	})
}

func TestMapDomainsToOptionValues(t *testing.T) {
	t.Parallel()

	acme := &models.TrackerCustomization{
		ID:          1,
		DisplayName: "ACME",
		Domains:     []string{"acme.one", "acme.two"},
	}

	t.Run("collapses all customization domains into one value", func(t *testing.T) {
		r := newTestResolver(acme)

		values := r.MapDomainsToOptionValues([]string{"acme.one", "acme.two", "other.com"})
		assert.Equal(t, []string{"acme.one,acme.two", "other.com"}, values)
	})

	t.Run("secondary domain alone maps to the merged value", func(t *testing.T) {
		r := newTestResolver(acme)

		values := r.MapDomainsToOptionValues([]string{"acme.two"})
		assert.Equal(t, []string{"acme.one,acme.two"}, values)
	})

	t.Run("preserves first occurrence order", func(t *testing.T) {
		r := newTestResolver(acme)

		values := r.MapDomainsToOptionValues([]string{"other.com", "acme.two", "acme.one"})
		assert.Equal(t, []string{"other.com", "acme.one,acme.two"}, values)
	})

	t.Run("round trips with SplitOptionValues", func(t *testing.T) {
		r := newTestResolver(acme)

		stored := []string{"acme.one", "acme.two", "other.com"}
		values := r.MapDomainsToOptionValues(stored)
		assert.ElementsMatch(t, stored, SplitOptionValues(values))
	})
}

func TestSplitOptionValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"acme.one", "acme.two", "other.com"},
		SplitOptionValues([]string{"acme.one,acme.two", "other.com", "ACME.ONE", " "}),
	)
	assert.Nil(t, SplitOptionValues(nil))
}

func TestResolverUpdate(t *testing.T) {
	t.Parallel()

	r := NewResolver()

	acme := &models.TrackerCustomization{ID: 1, DisplayName: "ACME", Domains: []string{"acme.one", "acme.two"}}
	r.Update([]*models.TrackerCustomization{acme})

	options := r.BuildOptions([]string{"acme.one"})
	require.Len(t, options, 1)
	assert.Equal(t, "ACME", options[0].Label)

	// Removing the customization reverts to raw passthrough.
	r.Update(nil)
	options = r.BuildOptions([]string{"acme.one"})
	require.Len(t, options, 1)
	assert.Equal(t, "acme.one", options[0].Label)
}
