// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package middleware holds HTTP middleware shared by the API router.
package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Compress negotiates a response encoding from Accept-Encoding (zstd, br,
// gzip in preference order) and compresses responses of at least minSize
// bytes. Smaller responses and non-compressible content types pass through
// unchanged.
func Compress(minSize int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := selectEncoding(r.Header.Get("Accept-Encoding"))
			if encoding == "" {
				next.ServeHTTP(w, r)
				return
			}

			cw := &compressWriter{
				ResponseWriter: w,
				encoding:       encoding,
				minSize:        minSize,
				status:         http.StatusOK,
			}
			defer cw.Close()

			next.ServeHTTP(cw, r)
		})
	}
}

func selectEncoding(acceptEncoding string) string {
	accepted := make(map[string]bool)
	for _, part := range strings.Split(acceptEncoding, ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		name, q, _ := strings.Cut(token, ";")
		name = strings.TrimSpace(name)
		if qv, ok := strings.CutPrefix(strings.TrimSpace(q), "q="); ok {
			if f, err := strconv.ParseFloat(qv, 64); err == nil && f == 0 {
				continue
			}
		}
		accepted[name] = true
	}

	for _, encoding := range []string{"zstd", "br", "gzip"} {
		if accepted[encoding] {
			return encoding
		}
	}
	return ""
}

// compressWriter buffers the response until minSize is reached, then commits
// to either a compressed or passthrough path.
type compressWriter struct {
	http.ResponseWriter
	encoding string
	minSize  int
	status   int

	buf         []byte
	wroteHeader bool
	committed   bool
	compressor  io.WriteCloser
}

func (w *compressWriter) WriteHeader(status int) {
	w.status = status
}

func (w *compressWriter) Write(data []byte) (int, error) {
	if w.committed {
		if w.compressor != nil {
			return w.compressor.Write(data)
		}
		return w.ResponseWriter.Write(data)
	}

	w.buf = append(w.buf, data...)
	if len(w.buf) >= w.minSize {
		if err := w.commit(true); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

func (w *compressWriter) commit(compress bool) error {
	w.committed = true

	if compress && w.compressible() {
		if c := w.newCompressor(); c != nil {
			w.Header().Set("Content-Encoding", w.encoding)
			w.Header().Del("Content-Length")
			w.Header().Add("Vary", "Accept-Encoding")
			w.compressor = c
		}
	}

	w.ResponseWriter.WriteHeader(w.status)
	w.wroteHeader = true

	var err error
	if w.compressor != nil {
		_, err = w.compressor.Write(w.buf)
	} else if len(w.buf) > 0 {
		_, err = w.ResponseWriter.Write(w.buf)
	}
	w.buf = nil
	return err
}

func (w *compressWriter) compressible() bool {
	if w.Header().Get("Content-Encoding") != "" {
		return false
	}
	contentType := w.Header().Get("Content-Type")
	if contentType == "" {
		return true
	}
	for _, prefix := range []string{"text/", "application/json", "application/javascript", "application/xml", "image/svg"} {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

func (w *compressWriter) newCompressor() io.WriteCloser {
	switch w.encoding {
	case "zstd":
		zw, err := zstd.NewWriter(w.ResponseWriter, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil
		}
		return zw
	case "br":
		return brotli.NewWriterLevel(w.ResponseWriter, brotli.DefaultCompression)
	case "gzip":
		gw, err := gzip.NewWriterLevel(w.ResponseWriter, gzip.DefaultCompression)
		if err != nil {
			return nil
		}
		return gw
	default:
		return nil
	}
}

// Close flushes any buffered response that never reached minSize.
func (w *compressWriter) Close() error {
	if !w.committed {
		return w.commit(false)
	}
	if w.compressor != nil {
		return w.compressor.Close()
	}
	return nil
}

func (w *compressWriter) Flush() {
	if !w.committed {
		_ = w.commit(true)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
