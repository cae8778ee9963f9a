// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package trackers resolves raw tracker domains into the deduplicated,
// operator-facing identity list driven by tracker customizations, and maps
// persisted rule selections back into the same merged representation.
package trackers

import (
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/autobrr/rulegate/internal/models"
)

// Option is one selectable tracker identity. For customized trackers the
// value is the comma-joined list of all domains the customization merges, in
// the customization's stored order; for plain domains value equals the domain.
type Option struct {
	Label      string `json:"label"`
	Value      string `json:"value"`
	IconDomain string `json:"iconDomain,omitempty"`
}

// index is the derived lookup state for one customization list. It is built
// once per distinct list and never mutated afterwards.
type index struct {
	fingerprint uint64
	byDomain    map[string]*models.TrackerCustomization
	secondary   map[string]struct{}
}

// Resolver memoizes the customization index keyed by a fingerprint of the
// customization list. Safe for concurrent use.
type Resolver struct {
	group   singleflight.Group
	current atomic.Pointer[index]
}

func NewResolver() *Resolver {
	r := &Resolver{}
	r.current.Store(buildIndex(nil))
	return r
}

// fingerprintCustomizations hashes the identity-relevant parts of the list so
// the index is only rebuilt when the list actually changes.
func fingerprintCustomizations(customizations []*models.TrackerCustomization) uint64 {
	h := xxhash.New()
	for _, c := range customizations {
		if c == nil {
			continue
		}
		_, _ = h.WriteString(strings.ToLower(c.DisplayName))
		_, _ = h.WriteString("\x1f")
		for _, d := range c.Domains {
			_, _ = h.WriteString(strings.ToLower(d))
			_, _ = h.WriteString("\x1e")
		}
		_, _ = h.WriteString("\x1d")
	}
	return h.Sum64()
}

func buildIndex(customizations []*models.TrackerCustomization) *index {
	idx := &index{
		fingerprint: fingerprintCustomizations(customizations),
		byDomain:    make(map[string]*models.TrackerCustomization),
		secondary:   make(map[string]struct{}),
	}
	for _, c := range customizations {
		if c == nil || len(c.Domains) == 0 {
			continue
		}
		for i, d := range c.Domains {
			lower := strings.ToLower(d)
			if _, taken := idx.byDomain[lower]; !taken {
				idx.byDomain[lower] = c
			}
			if i > 0 {
				idx.secondary[lower] = struct{}{}
			}
		}
	}
	return idx
}

// Update swaps in the index for the given customization list. Concurrent
// updates for the same list collapse into a single build.
func (r *Resolver) Update(customizations []*models.TrackerCustomization) {
	fp := fingerprintCustomizations(customizations)
	if cur := r.current.Load(); cur != nil && cur.fingerprint == fp {
		return
	}
	v, _, _ := r.group.Do(strconv.FormatUint(fp, 16), func() (any, error) {
		return buildIndex(customizations), nil
	})
	r.current.Store(v.(*index))
}

// BuildOptions converts the instance's raw tracker domains into the merged,
// deduplicated option list:
//   - secondary customization aliases never appear standalone
//   - multiple raw domains owned by one customization collapse into a single
//     option labelled with the display name
//   - uncustomized domains pass through as themselves
//
// The result is sorted case-insensitively by label.
func (r *Resolver) BuildOptions(rawDomains []string) []Option {
	idx := r.current.Load()

	var options []Option
	seenLabels := make(map[string]struct{})

	for _, raw := range rawDomains {
		domain := strings.ToLower(strings.TrimSpace(raw))
		if domain == "" {
			continue
		}
		if _, isSecondary := idx.secondary[domain]; isSecondary {
			continue
		}

		if c, ok := idx.byDomain[domain]; ok {
			labelKey := strings.ToLower(c.DisplayName)
			if _, emitted := seenLabels[labelKey]; emitted {
				continue
			}
			seenLabels[labelKey] = struct{}{}
			options = append(options, Option{
				Label:      c.DisplayName,
				Value:      c.JoinedDomains(),
				IconDomain: c.PrimaryDomain(),
			})
			continue
		}

		if _, emitted := seenLabels[domain]; emitted {
			continue
		}
		seenLabels[domain] = struct{}{}
		options = append(options, Option{
			Label:      domain,
			Value:      domain,
			IconDomain: domain,
		})
	}

	collator := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(options, func(i, j int) bool {
		return collator.CompareString(options[i].Label, options[j].Label) < 0
	})

	return options
}

// MapDomainsToOptionValues rehydrates a rule's persisted domain list into
// option values, collapsing every domain of a customization into one merged
// value. First-occurrence order is preserved; the merged value always uses
// the customization's stored domain order, matching BuildOptions.
func (r *Resolver) MapDomainsToOptionValues(domains []string) []string {
	idx := r.current.Load()

	var values []string
	processed := make(map[string]struct{})
	emitted := make(map[string]struct{})

	for _, raw := range domains {
		domain := strings.ToLower(strings.TrimSpace(raw))
		if domain == "" {
			continue
		}
		if _, done := processed[domain]; done {
			continue
		}

		if c, ok := idx.byDomain[domain]; ok {
			value := c.JoinedDomains()
			if _, dup := emitted[value]; !dup {
				emitted[value] = struct{}{}
				values = append(values, value)
			}
			for _, d := range c.Domains {
				processed[strings.ToLower(d)] = struct{}{}
			}
			continue
		}

		processed[domain] = struct{}{}
		if _, dup := emitted[domain]; !dup {
			emitted[domain] = struct{}{}
			values = append(values, domain)
		}
	}

	return values
}

// SplitOptionValues expands selected option values back into the flat domain
// list stored on the rule, dropping blanks and duplicates.
func SplitOptionValues(values []string) []string {
	var domains []string
	seen := make(map[string]struct{})
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			domain := strings.ToLower(strings.TrimSpace(part))
			if domain == "" {
				continue
			}
			if _, dup := seen[domain]; dup {
				continue
			}
			seen[domain] = struct{}{}
			domains = append(domains, domain)
		}
	}
	return domains
}
