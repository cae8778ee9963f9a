// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package trackers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterOptions(t *testing.T) {
	t.Parallel()

	options := []Option{
		{Label: "ACME", Value: "acme.one,acme.two"},
		{Label: "beta.example", Value: "beta.example"},
		{Label: "other.com", Value: "other.com"},
	}

	t.Run("empty query returns input unchanged", func(t *testing.T) {
		assert.Equal(t, options, FilterOptions(options, ""))
		assert.Equal(t, options, FilterOptions(options, "   "))
	})

	t.Run("matches are case-insensitive", func(t *testing.T) {
		filtered := FilterOptions(options, "acme")
		require.Len(t, filtered, 1)
		assert.Equal(t, "ACME", filtered[0].Label)
	})

	t.Run("fuzzy match on label", func(t *testing.T) {
		filtered := FilterOptions(options, "btexmpl")
		require.NotEmpty(t, filtered)
		assert.Equal(t, "beta.example", filtered[0].Label)
	})

	t.Run("no match yields empty slice", func(t *testing.T) {
		assert.Empty(t, FilterOptions(options, "zzzz"))
	})
}
