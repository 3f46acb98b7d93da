// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders: baseline hardening headers for a JSON
// API, opt-in HSTS for HTTPS requests, no-store caching for credential
// carrying routes, and CORS exposure of the response headers clients read
// (request id, pagination totals, ETag, replay marker).
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const exposeHeadersKey = "Access-Control-Expose-Headers"

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security on HTTPS requests only.
	EnableHSTS bool
	// HSTSMaxAge defaults to 180 days when not positive.
	HSTSMaxAge time.Duration

	// EnablePolicy adds Permissions-Policy and X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool

	// NoStorePrefixes marks responses under these path prefixes as
	// uncacheable (token issuing, protected resources).
	NoStorePrefixes []string

	// ExposeHeaders are added to Access-Control-Expose-Headers when the
	// response carries them. X-Request-ID is always considered.
	ExposeHeaders []string
}

// SecurityHeaders returns the hardening middleware described by opt.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	static := http.Header{}
	static.Set("X-Content-Type-Options", "nosniff")
	static.Set("X-Frame-Options", "DENY")
	static.Set("Referrer-Policy", "no-referrer")
	if opt.EnablePolicy {
		static.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
		static.Set("X-Permitted-Cross-Domain-Policies", "none")
	}

	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = 180 * 24 * time.Hour
	}
	hsts := "max-age=" + strconv.FormatInt(int64(maxAge/time.Second), 10) + "; includeSubDomains; preload"

	expose := append([]string{"X-Request-ID"}, opt.ExposeHeaders...)

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range static {
			h[k] = v
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if hasAnyPrefix(c.Request.URL.Path, opt.NoStorePrefixes) {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		// Handler headers are only known at the first write.
		c.Writer = &exposeWriter{ResponseWriter: c.Writer, names: expose}
		c.Next()
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// exposeHeader appends name to Access-Control-Expose-Headers unless it is
// already listed (case-insensitively).
func exposeHeader(h http.Header, name string) {
	cur := h.Get(exposeHeadersKey)
	if cur == "" {
		h.Set(exposeHeadersKey, name)
		return
	}
	for _, p := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(p), name) {
			return
		}
	}
	h.Set(exposeHeadersKey, cur+", "+name)
}

// exposeWriter publishes the configured headers present on the response just
// before the status line is written.
type exposeWriter struct {
	gin.ResponseWriter
	names []string
	done  bool
}

func (w *exposeWriter) expose() {
	if w.done {
		return
	}
	w.done = true
	h := w.Header()
	for _, n := range w.names {
		if h.Get(n) != "" {
			exposeHeader(h, n)
		}
	}
}

func (w *exposeWriter) WriteHeader(code int) {
	w.expose()
	w.ResponseWriter.WriteHeader(code)
}

func (w *exposeWriter) WriteHeaderNow() {
	w.expose()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *exposeWriter) Write(b []byte) (int, error) {
	w.expose()
	return w.ResponseWriter.Write(b)
}

func (w *exposeWriter) WriteString(s string) (int, error) {
	w.expose()
	return w.ResponseWriter.WriteString(s)
}

// isHTTPS reports a TLS connection or X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
