// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/autobrr/rulegate/internal/dbinterface"
)

// TrackerCustomization merges multiple raw tracker domains into one display
// identity. Domains[0] is the canonical/primary domain (used for icon lookup);
// the rest are aliases that never appear standalone in selection lists.
type TrackerCustomization struct {
	ID          int       `json:"id"`
	DisplayName string    `json:"displayName"`
	Domains     []string  `json:"domains"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PrimaryDomain returns the canonical domain, or "" when none is configured.
func (c *TrackerCustomization) PrimaryDomain() string {
	if c == nil || len(c.Domains) == 0 {
		return ""
	}
	return c.Domains[0]
}

// JoinedDomains is the merged selection value for this customization: the
// comma-joined domain list in stored order.
func (c *TrackerCustomization) JoinedDomains() string {
	if c == nil {
		return ""
	}
	return strings.Join(c.Domains, ",")
}

// NormalizeDomains trims, lowercases and dedupes a domain list, preserving
// first-occurrence order.
func NormalizeDomains(domains []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, d := range domains {
		trimmed := strings.TrimSpace(d)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		if _, exists := seen[lower]; exists {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}

type TrackerCustomizationStore struct {
	db dbinterface.Querier
}

func NewTrackerCustomizationStore(db dbinterface.Querier) *TrackerCustomizationStore {
	return &TrackerCustomizationStore{db: db}
}

func (s *TrackerCustomizationStore) List(ctx context.Context) ([]*TrackerCustomization, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name, domains, created_at, updated_at
		FROM tracker_customizations
		ORDER BY display_name COLLATE NOCASE ASC, id ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "list tracker customizations")
	}
	defer rows.Close()

	var customizations []*TrackerCustomization
	for rows.Next() {
		c, err := scanTrackerCustomization(rows.Scan)
		if err != nil {
			return nil, err
		}
		customizations = append(customizations, c)
	}
	return customizations, rows.Err()
}

func (s *TrackerCustomizationStore) Get(ctx context.Context, id int) (*TrackerCustomization, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, domains, created_at, updated_at
		FROM tracker_customizations
		WHERE id = ?
	`, id)
	return scanTrackerCustomization(row.Scan)
}

func (s *TrackerCustomizationStore) Create(ctx context.Context, customization *TrackerCustomization) (*TrackerCustomization, error) {
	if customization == nil {
		return nil, errors.New("customization is nil")
	}
	domains := NormalizeDomains(customization.Domains)
	if len(domains) == 0 {
		return nil, errors.New("customization requires at least one domain")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tracker_customizations (display_name, domains, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, strings.TrimSpace(customization.DisplayName), strings.Join(domains, ","), time.Now().UTC(), time.Now().UTC())
	if err != nil {
		return nil, errors.Wrap(err, "create tracker customization")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, int(id))
}

func (s *TrackerCustomizationStore) Update(ctx context.Context, customization *TrackerCustomization) (*TrackerCustomization, error) {
	if customization == nil {
		return nil, errors.New("customization is nil")
	}
	domains := NormalizeDomains(customization.Domains)
	if len(domains) == 0 {
		return nil, errors.New("customization requires at least one domain")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tracker_customizations
		SET display_name = ?, domains = ?, updated_at = ?
		WHERE id = ?
	`, strings.TrimSpace(customization.DisplayName), strings.Join(domains, ","), time.Now().UTC(), customization.ID)
	if err != nil {
		return nil, errors.Wrap(err, "update tracker customization")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, sql.ErrNoRows
	}
	return s.Get(ctx, customization.ID)
}

func (s *TrackerCustomizationStore) Delete(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tracker_customizations WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete tracker customization")
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanTrackerCustomization(scan func(dest ...any) error) (*TrackerCustomization, error) {
	var c TrackerCustomization
	var domains string
	if err := scan(&c.ID, &c.DisplayName, &domains, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Domains = NormalizeDomains(strings.Split(domains, ","))
	return &c, nil
}
