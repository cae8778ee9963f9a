// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	e := NewAESEncryptor("test-secret")

	for _, plaintext := range []string{"", "hunter2", "päßword with ünicode", "a much longer credential string that spans more than one block"} {
		encrypted, err := e.Encrypt(plaintext)
		require.NoError(t, err)

		decrypted, err := e.Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptProducesDistinctCiphertexts(t *testing.T) {
	t.Parallel()

	e := NewAESEncryptor("test-secret")

	a, err := e.Encrypt("same input")
	require.NoError(t, err)
	b, err := e.Encrypt("same input")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "nonce must randomize ciphertexts")
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	t.Parallel()

	encrypted, err := NewAESEncryptor("secret-a").Encrypt("credential")
	require.NoError(t, err)

	_, err = NewAESEncryptor("secret-b").Decrypt(encrypted)
	assert.Error(t, err)
}

func TestDecryptMalformedInput(t *testing.T) {
	t.Parallel()

	e := NewAESEncryptor("test-secret")

	_, err := e.Decrypt("not-base64!!!")
	assert.Error(t, err)

	// Valid base64 but shorter than a nonce.
	_, err = e.Decrypt("YWJj")
	assert.ErrorIs(t, err, ErrMalformedCiphertext)
}
