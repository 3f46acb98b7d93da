// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header of unsafe requests and flags
// replays of completed operations for the handlers and the rate limiter.
// Persistence stays behind the IdempotencyLookup function type.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-message-backend/internal/apierr"
	"github.com/tbourn/go-message-backend/internal/errcodes"
)

// HeaderIdempotencyKey carries the client chosen key of an unsafe request.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

// GetIdempotencyKey returns the key accepted by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	k := c.GetString(ctxKeyIdemKey)
	return k, k != ""
}

// IsReplay reports whether a live record exists for this (subject, key), in
// which case the handler returns the recorded result instead of executing.
func IsReplay(c *gin.Context) bool {
	return c.GetBool(ctxKeyIdemReplay)
}

// IdempotencyOptions configures key validation. Expiry is the lookup's
// concern.
type IdempotencyOptions struct {
	// MaxLen defaults to 200.
	MaxLen int
	// Pattern defaults to ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether a live record exists for (subject, key)
// at now.
type IdempotencyLookup func(ctx context.Context, subject, key string, now time.Time) (exists bool, err error)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyValidator checks the Idempotency-Key header of unsafe requests.
// Safe methods and requests without the header pass untouched; a malformed
// key is rejected with InvalidIdempotencyKey. An accepted key is stored for
// GetIdempotencyKey and looked up: a hit marks the request as a replay and
// exempts it from rate limiting. Lookup failures are logged and treated as a
// miss.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || !isUnsafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			AbortWithError(c, apierr.NewCode(errcodes.InvalidIdempotencyKey))
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			subject := IdempotencySubject(c)
			exists, err := lookup(c.Request.Context(), subject, key, time.Now().UTC())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Str("subject", subject).Msg("idempotency lookup failed")
			case exists:
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

// anonymousSubject owns keys sent without authentication.
const anonymousSubject = "anonymous"

// IdempotencySubject is the authenticated subject, or "anonymous".
func IdempotencySubject(c *gin.Context) string {
	if s := c.GetString(ctxKeyUserID); s != "" {
		return s
	}
	return anonymousSubject
}

func isUnsafeMethod(m string) bool {
	switch m {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
