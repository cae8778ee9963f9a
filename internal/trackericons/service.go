// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package trackericons fetches and caches favicons for tracker domains. The
// resolver reports each option's primary domain; this service turns that into
// an icon the UI can render next to the option.
package trackericons

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mat/besticon/v3/besticon"
	"github.com/rs/zerolog/log"
)

const (
	iconDirName = "tracker-icons"
	maxIconSize = 256
	minIconSize = 16
)

type Service struct {
	iconDir   string
	userAgent string
	client    *http.Client
	bestico   *besticon.Besticon

	mu       sync.Mutex
	fetching map[string]struct{}
}

func NewService(dataDir, userAgent string) (*Service, error) {
	iconDir := filepath.Join(dataDir, iconDirName)
	if err := os.MkdirAll(iconDir, 0o755); err != nil {
		return nil, fmt.Errorf("create icon directory: %w", err)
	}

	return &Service{
		iconDir:   iconDir,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 15 * time.Second},
		bestico:   besticon.New(besticon.WithLogger(besticon.NewDefaultLogger(io.Discard))),
		fetching:  make(map[string]struct{}),
	}, nil
}

// ListIcons returns all cached icons as data-URI strings keyed by domain.
// Each domain is aliased with and without a www. prefix so lookups by either
// form succeed.
func (s *Service) ListIcons(ctx context.Context) (map[string]string, error) {
	entries, err := os.ReadDir(s.iconDir)
	if err != nil {
		return nil, err
	}

	icons := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		ext := filepath.Ext(name)
		if ext != ".png" && ext != ".ico" && ext != ".gif" {
			continue
		}
		domain := strings.TrimSuffix(name, ext)
		if domain == "" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.iconDir, entry.Name()))
		if err != nil {
			log.Warn().Err(err).Str("icon", entry.Name()).Msg("failed to read cached tracker icon")
			continue
		}

		uri := "data:image/" + strings.TrimPrefix(ext, ".") + ";base64," + base64.StdEncoding.EncodeToString(data)
		icons[domain] = uri
		if alias, ok := strings.CutPrefix(domain, "www."); ok {
			icons[alias] = uri
		} else {
			icons["www."+domain] = uri
		}
	}
	return icons, nil
}

// Icon returns the cached icon bytes for a domain, fetching on a miss.
func (s *Service) Icon(ctx context.Context, domain string) ([]byte, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, fmt.Errorf("domain is required")
	}

	path := filepath.Join(s.iconDir, domain+".png")
	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}

	data, err := s.fetch(ctx, domain)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		log.Warn().Err(err).Str("domain", domain).Msg("failed to cache tracker icon")
	}
	return data, nil
}

func (s *Service) fetch(ctx context.Context, domain string) ([]byte, error) {
	s.mu.Lock()
	if _, busy := s.fetching[domain]; busy {
		s.mu.Unlock()
		return nil, fmt.Errorf("icon fetch for %s already in progress", domain)
	}
	s.fetching[domain] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.fetching, domain)
		s.mu.Unlock()
	}()

	finder := s.bestico.NewIconFinder()
	if _, err := finder.FetchIcons("https://" + domain); err != nil {
		return nil, fmt.Errorf("fetch icons for %s: %w", domain, err)
	}

	icon := finder.IconInSizeRange(besticon.SizeRange{Min: minIconSize, Perfect: 64, Max: maxIconSize})
	if icon == nil {
		return nil, fmt.Errorf("no usable icon found for %s", domain)
	}
	if len(icon.ImageData) > 0 {
		return icon.ImageData, nil
	}

	return s.download(ctx, icon.URL)
}

func (s *Service) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("icon download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
