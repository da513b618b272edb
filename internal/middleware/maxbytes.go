package middleware

import (
	"net/http"
	"strings"
)

const (
	// DefaultMaxBodyBytes caps JSON bodies (1 MiB).
	DefaultMaxBodyBytes = 1 << 20
	// MaxUploadBytes caps multipart image uploads (10 MiB plus form overhead).
	MaxUploadBytes = 10<<20 + 64<<10
)

// MaxBytes limits request bodies. Multipart bodies get uploadMax, everything else jsonMax;
// an oversized body fails the read and the handler answers 413.
func MaxBytes(jsonMax, uploadMax int64) func(http.Handler) http.Handler {
	if jsonMax <= 0 {
		jsonMax = DefaultMaxBodyBytes
	}
	if uploadMax <= 0 {
		uploadMax = MaxUploadBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				limit := jsonMax
				if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
					limit = uploadMax
				}
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
