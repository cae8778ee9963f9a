// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package trackers

import (
	"context"
	"net"
	"net/url"
	"sort"
	"strings"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/rulegate/internal/models"
)

// DomainLister is the primary inventory source, the evaluation backend.
type DomainLister interface {
	ListTrackerDomains(ctx context.Context, instanceID int) ([]string, error)
}

// Inventory supplies the raw tracker domain list for an instance. The
// backend's listing is authoritative; when it cannot serve the capability the
// inventory falls back to reading trackers straight from the instance's
// qBittorrent API.
type Inventory struct {
	backend       DomainLister
	instanceStore *models.InstanceStore
}

func NewInventory(backend DomainLister, instanceStore *models.InstanceStore) *Inventory {
	return &Inventory{backend: backend, instanceStore: instanceStore}
}

// Domains returns the deduplicated raw tracker domains for the instance.
func (inv *Inventory) Domains(ctx context.Context, instanceID int) ([]string, error) {
	domains, err := inv.backend.ListTrackerDomains(ctx, instanceID)
	if err == nil {
		return dedupeDomains(domains), nil
	}

	log.Warn().Err(err).Int("instanceID", instanceID).Msg("backend tracker inventory unavailable, falling back to qBittorrent")

	return inv.domainsFromInstance(ctx, instanceID)
}

func (inv *Inventory) domainsFromInstance(ctx context.Context, instanceID int) ([]string, error) {
	instance, err := inv.instanceStore.Get(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	password, err := inv.instanceStore.DecryptPassword(instance)
	if err != nil {
		return nil, err
	}

	client := qbt.NewClient(qbt.Config{
		Host:          instance.Host,
		Username:      instance.Username,
		Password:      password,
		TLSSkipVerify: instance.TLSSkipVerify,
		Timeout:       30,
	})

	if err := client.LoginCtx(ctx); err != nil {
		return nil, err
	}

	torrents, err := client.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{})
	if err != nil {
		return nil, err
	}

	var domains []string
	for _, torrent := range torrents {
		if domain := DomainFromTrackerURL(torrent.Tracker); domain != "" {
			domains = append(domains, domain)
		}
	}
	return dedupeDomains(domains), nil
}

// DomainFromTrackerURL extracts the bare host from an announce URL, dropping
// scheme, credentials and port. Bare hostnames pass through unchanged.
func DomainFromTrackerURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	host := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host = u.Host
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSpace(host))
}

func dedupeDomains(domains []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, d := range domains {
		domain := strings.ToLower(strings.TrimSpace(d))
		if domain == "" {
			continue
		}
		if _, dup := seen[domain]; dup {
			continue
		}
		seen[domain] = struct{}{}
		out = append(out, domain)
	}
	sort.Strings(out)
	return out
}
