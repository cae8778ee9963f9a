// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/rulegate/internal/crypto"
	"github.com/autobrr/rulegate/internal/database"
	"github.com/autobrr/rulegate/internal/models"
)

func newInstanceStore(t *testing.T) *models.InstanceStore {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return models.NewInstanceStore(db, crypto.NewAESEncryptor("test-secret"))
}

func TestInstanceStoreCRUD(t *testing.T) {
	store := newInstanceStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, &models.Instance{
		Name:          "home",
		Host:          "http://localhost:8080",
		Username:      "admin",
		TLSSkipVerify: true,
	}, "hunter2")
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.NotEmpty(t, created.PasswordEncrypted)
	assert.NotEqual(t, "hunter2", created.PasswordEncrypted)
	assert.True(t, created.TLSSkipVerify)

	password, err := store.DecryptPassword(created)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)

	// Empty password on update keeps the stored credential.
	created.Name = "home renamed"
	updated, err := store.Update(ctx, created, "")
	require.NoError(t, err)
	assert.Equal(t, "home renamed", updated.Name)

	password, err = store.DecryptPassword(updated)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)

	// New password replaces it.
	updated, err = store.Update(ctx, updated, "new-password")
	require.NoError(t, err)
	password, err = store.DecryptPassword(updated)
	require.NoError(t, err)
	assert.Equal(t, "new-password", password)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, store.Delete(ctx, created.ID))
	_, err = store.Get(ctx, created.ID)
	assert.ErrorIs(t, err, models.ErrInstanceNotFound)
}

func TestInstanceStoreMissingRows(t *testing.T) {
	store := newInstanceStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, 999)
	assert.ErrorIs(t, err, models.ErrInstanceNotFound)

	_, err = store.Update(ctx, &models.Instance{ID: 999, Name: "ghost"}, "")
	assert.ErrorIs(t, err, models.ErrInstanceNotFound)

	assert.ErrorIs(t, store.Delete(ctx, 999), models.ErrInstanceNotFound)
}
