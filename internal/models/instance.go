// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/autobrr/rulegate/internal/crypto"
	"github.com/autobrr/rulegate/internal/dbinterface"
)

var ErrInstanceNotFound = errors.New("instance not found")

// Instance is a configured torrent-client endpoint that rules are scoped to.
// The qBittorrent connection details are only used as a fallback source for
// the tracker domain inventory when the evaluation backend cannot serve it.
type Instance struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	Host              string    `json:"host"`
	Username          string    `json:"username"`
	PasswordEncrypted string    `json:"-"`
	TLSSkipVerify     bool      `json:"tlsSkipVerify"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type InstanceStore struct {
	db        dbinterface.Querier
	encryptor *crypto.AESEncryptor
}

func NewInstanceStore(db dbinterface.Querier, encryptor *crypto.AESEncryptor) *InstanceStore {
	return &InstanceStore{db: db, encryptor: encryptor}
}

// DecryptPassword recovers the stored qBittorrent password for an instance.
func (s *InstanceStore) DecryptPassword(instance *Instance) (string, error) {
	if instance == nil || instance.PasswordEncrypted == "" {
		return "", nil
	}
	if s.encryptor == nil {
		return "", ErrInstanceSecretRequired
	}
	return s.encryptor.Decrypt(instance.PasswordEncrypted)
}

func (s *InstanceStore) List(ctx context.Context) ([]*Instance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, host, username, password_encrypted, tls_skip_verify, created_at, updated_at
		FROM instances
		ORDER BY name COLLATE NOCASE ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []*Instance
	for rows.Next() {
		instance, err := scanInstance(rows.Scan)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, rows.Err()
}

func (s *InstanceStore) Get(ctx context.Context, id int) (*Instance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, host, username, password_encrypted, tls_skip_verify, created_at, updated_at
		FROM instances
		WHERE id = ?
	`, id)
	instance, err := scanInstance(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInstanceNotFound
	}
	return instance, err
}

func (s *InstanceStore) Create(ctx context.Context, instance *Instance, password string) (*Instance, error) {
	if instance == nil {
		return nil, errors.New("instance is nil")
	}
	if strings.TrimSpace(instance.Name) == "" {
		return nil, errors.New("instance name is required")
	}

	encrypted, err := s.encryptPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO instances (name, host, username, password_encrypted, tls_skip_verify, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, strings.TrimSpace(instance.Name), strings.TrimSpace(instance.Host), instance.Username, encrypted, boolToInt(instance.TLSSkipVerify), now, now)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, int(id))
}

func (s *InstanceStore) Update(ctx context.Context, instance *Instance, password string) (*Instance, error) {
	if instance == nil {
		return nil, errors.New("instance is nil")
	}

	// Empty password keeps the stored credential.
	encrypted := instance.PasswordEncrypted
	if password != "" {
		var err error
		encrypted, err = s.encryptPassword(password)
		if err != nil {
			return nil, err
		}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE instances
		SET name = ?, host = ?, username = ?, password_encrypted = ?, tls_skip_verify = ?, updated_at = ?
		WHERE id = ?
	`, strings.TrimSpace(instance.Name), strings.TrimSpace(instance.Host), instance.Username, encrypted, boolToInt(instance.TLSSkipVerify), time.Now().UTC(), instance.ID)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrInstanceNotFound
	}
	return s.Get(ctx, instance.ID)
}

func (s *InstanceStore) Delete(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrInstanceNotFound
	}
	return nil
}

func (s *InstanceStore) encryptPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	if s.encryptor == nil {
		return "", ErrInstanceSecretRequired
	}
	return s.encryptor.Encrypt(password)
}

func scanInstance(scan func(dest ...any) error) (*Instance, error) {
	var instance Instance
	var tlsSkipVerify int
	if err := scan(
		&instance.ID,
		&instance.Name,
		&instance.Host,
		&instance.Username,
		&instance.PasswordEncrypted,
		&tlsSkipVerify,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	); err != nil {
		return nil, err
	}
	instance.TLSSkipVerify = tlsSkipVerify != 0
	return &instance, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
