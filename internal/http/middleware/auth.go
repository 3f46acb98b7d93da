// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication for protected routes.
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-message-backend/internal/apierr"
	"github.com/tbourn/go-message-backend/internal/errcodes"
)

// BearerVerifier validates a raw bearer token and returns the subject it was
// issued to. Returned errors are rendered as-is, so implementations should
// return apierr values (InvalidToken for rejected tokens, InternalServerError
// for store failures).
type BearerVerifier func(ctx context.Context, token string) (subject string, err error)

// ctxKeyUserID holds the authenticated subject.
const ctxKeyUserID = "userID"

// RequireBearer rejects requests without a valid "Authorization: Bearer"
// header. A missing header, another scheme or an empty token yields the
// MissingToken code; anything the verifier rejects is rendered as returned.
// On success the subject is stored under "userID".
func RequireBearer(verify BearerVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Header("WWW-Authenticate", `Bearer`)
			AbortWithError(c, apierr.NewCode(errcodes.MissingToken))
			return
		}
		subject, err := verify(c.Request.Context(), token)
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			AbortWithError(c, err)
			return
		}
		c.Set(ctxKeyUserID, subject)
		c.Next()
	}
}

// bearerToken extracts the token of a "Bearer <token>" header value. The
// scheme is matched case-insensitively.
func bearerToken(h string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(h), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
