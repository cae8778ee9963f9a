// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/rulegate/internal/database"
	"github.com/autobrr/rulegate/internal/models"
)

func newTestStore(t *testing.T) *models.TrackerCustomizationStore {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return models.NewTrackerCustomizationStore(db)
}

func TestTrackerCustomizationStoreCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, &models.TrackerCustomization{
		DisplayName: "ACME",
		Domains:     []string{" Acme.One ", "acme.two", "acme.one"},
	})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, "ACME", created.DisplayName)
	assert.Equal(t, []string{"acme.one", "acme.two"}, created.Domains)
	assert.Equal(t, "acme.one", created.PrimaryDomain())
	assert.Equal(t, "acme.one,acme.two", created.JoinedDomains())

	fetched, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Domains, fetched.Domains)

	fetched.DisplayName = "ACME Tracker"
	fetched.Domains = []string{"acme.two", "acme.one", "acme.three"}
	updated, err := store.Update(ctx, fetched)
	require.NoError(t, err)
	assert.Equal(t, "ACME Tracker", updated.DisplayName)
	assert.Equal(t, "acme.two", updated.PrimaryDomain())

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, store.Delete(ctx, created.ID))

	list, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTrackerCustomizationStoreMissingRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Update(ctx, &models.TrackerCustomization{ID: 999, DisplayName: "x", Domains: []string{"x.example"}})
	assert.ErrorIs(t, err, sql.ErrNoRows)

	err = store.Delete(ctx, 999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTrackerCustomizationStoreRejectsEmptyDomains(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create(context.Background(), &models.TrackerCustomization{
		DisplayName: "empty",
		Domains:     []string{"", "   "},
	})
	assert.Error(t, err)
}

func TestNormalizeDomains(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"acme.one", "acme.two"},
		models.NormalizeDomains([]string{" ACME.one", "acme.two", "acme.ONE", ""}),
	)
	assert.Nil(t, models.NormalizeDomains(nil))
}
