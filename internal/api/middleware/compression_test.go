// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compressedHandler(body string) http.Handler {
	return Compress(64)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestCompressGzip(t *testing.T) {
	t.Parallel()

	body := strings.Repeat(`{"key":"value"}`, 50)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	compressedHandler(body).ServeHTTP(rec, req)

	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	gr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	decompressed, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, body, string(decompressed))
}

func TestCompressPrefersZstd(t *testing.T) {
	t.Parallel()

	body := strings.Repeat(`{"key":"value"}`, 50)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip, br, zstd")
	rec := httptest.NewRecorder()

	compressedHandler(body).ServeHTTP(rec, req)

	require.Equal(t, "zstd", rec.Header().Get("Content-Encoding"))

	zr, err := zstd.NewReader(rec.Body)
	require.NoError(t, err)
	defer zr.Close()
	decompressed, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, body, string(decompressed))
}

func TestCompressSkipsSmallResponses(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	compressedHandler(`{"ok":true}`).ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, `{"ok":true}`, rec.Body.String())
}

func TestCompressWithoutAcceptEncoding(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("x", 256)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	compressedHandler(body).ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, body, rec.Body.String())
}

func TestCompressHonorsZeroQuality(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("x", 256)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip;q=0")
	rec := httptest.NewRecorder()

	compressedHandler(body).ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
}

func TestSelectEncoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header   string
		expected string
	}{
		{"zstd, gzip", "zstd"},
		{"br, gzip", "br"},
		{"gzip", "gzip"},
		{"identity", ""},
		{"", ""},
		{"gzip;q=0, br", "br"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, selectEncoding(tt.header), "header %q", tt.header)
	}
}
