// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the structured access log. Bodies are
// never logged. Query strings and header values are scrubbed of email
// addresses, phone numbers and UUIDs; credential carrying headers and query
// parameters are masked entirely.
//
// Search terms in GET /messages/:query are logged as the route pattern only.
package middleware

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const redacted = "[REDACTED]"

// RedactOptions adds names to the built-in masks. Matching is
// case-insensitive.
type RedactOptions struct {
	MaskHeaders     []string
	MaskQueryParams []string
}

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// digits only: "+1 212-555-1212", "212 555 1212", "(212) 555-1212"
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

type redactor struct {
	headers map[string]struct{}
	params  map[string]struct{}
}

func newRedactor(opts RedactOptions) *redactor {
	r := &redactor{
		headers: lowerSet([]string{"authorization", "cookie", "set-cookie", "proxy-authorization"}, opts.MaskHeaders),
		params:  lowerSet([]string{"password", "client_secret", "token", "access_token"}, opts.MaskQueryParams),
	}
	return r
}

func lowerSet(base, extra []string) map[string]struct{} {
	out := make(map[string]struct{}, len(base)+len(extra))
	for _, s := range append(base, extra...) {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

// scrub replaces identifiers in s. UUIDs go first so the phone pattern
// cannot match their digit groups.
func (r *redactor) scrub(s string) string {
	if s == "" {
		return s
	}
	out := uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	out = emailRE.ReplaceAllString(out, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(out, "[REDACTED:phone]")
}

func (r *redactor) header(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.headers[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		out[k] = r.scrub(strings.Join(vv, ", "))
	}
	return out
}

// query masks sensitive parameters and scrubs the rest. An unparsable query
// is scrubbed as a whole.
func (r *redactor) query(raw string) string {
	if raw == "" {
		return ""
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return truncate(r.scrub(raw), maxQueryLogLength)
	}
	for k, vv := range vals {
		_, mask := r.params[strings.ToLower(k)]
		for i := range vv {
			if mask {
				vv[i] = redacted
			} else {
				vv[i] = r.scrub(vv[i])
			}
		}
	}
	q, _ := url.QueryUnescape(vals.Encode())
	return truncate(q, maxQueryLogLength)
}

// RedactingLogger attaches a request-scoped logger (request_id, method,
// route) for LoggerFrom and logs one "http_request" line per request: INFO,
// WARN for 4xx, ERROR for 5xx or when handlers recorded errors.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	rd := newRedactor(opts)

	return func(c *gin.Context) {
		start := time.Now()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		scoped := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", route).
			Logger()
		c.Set(loggerKey, &scoped)

		query := rd.query(c.Request.URL.RawQuery)
		headers := rd.header(c.Request.Header)

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError || len(c.Errors) > 0:
			ev = scoped.Error()
		case status >= http.StatusBadRequest:
			ev = scoped.Warn()
		default:
			ev = scoped.Info()
		}

		ev.Str("user_id", c.GetString(ctxKeyUserID)).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
