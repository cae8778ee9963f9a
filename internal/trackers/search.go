// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package trackers

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FilterOptions narrows an option list with a fuzzy match against the labels.
// An empty query returns the input unchanged. Results are ordered best match
// first; ties keep the original label order.
func FilterOptions(options []Option, query string) []Option {
	query = strings.TrimSpace(query)
	if query == "" {
		return options
	}

	labels := make([]string, len(options))
	for i, opt := range options {
		labels[i] = opt.Label
	}

	ranks := fuzzy.RankFindNormalizedFold(query, labels)
	sort.Stable(ranks)

	filtered := make([]Option, 0, len(ranks))
	for _, rank := range ranks {
		filtered = append(filtered, options[rank.OriginalIndex])
	}
	return filtered
}
