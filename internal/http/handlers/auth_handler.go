// Auth HTTP handlers.
//
// This file exposes the token endpoint and the demo protected resource:
//   - POST /auth/token   (issue a bearer token for a user or client grant)
//   - GET  /protected    (requires a bearer token)
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-message-backend/internal/apierr"
	"github.com/tbourn/go-message-backend/internal/domain"
	"github.com/tbourn/go-message-backend/internal/errcodes"
	"github.com/tbourn/go-message-backend/internal/services"
	"github.com/tbourn/go-message-backend/internal/validation"
)

const maxTTLMinutes = 24 * 60

//
// DTOs
//

// TokenRequest is the JSON payload for POST /auth/token. The fields that
// must be present depend on grant_type:
//   - "user":   username, password
//   - "client": client_id, client_secret
type TokenRequest struct {
	GrantType    *string `json:"grant_type" example:"user"`
	Username     *string `json:"username,omitempty" example:"admin"`
	Password     *string `json:"password,omitempty" example:"password"`
	ClientID     *string `json:"client_id,omitempty" example:"client"`
	ClientSecret *string `json:"client_secret,omitempty" example:"secret"`
	// TTLMinutes optionally overrides the token lifetime (1 to 1440).
	TTLMinutes *uint32 `json:"ttl_minutes,omitempty" example:"30"`
}

// TokenResponse is returned on successful token issuing.
type TokenResponse struct {
	Token     string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType string `json:"token_type" example:"Bearer"`
	ExpiresIn int64  `json:"expires_in" example:"3600"`
}

// ProtectedResponse is the body of the protected demo resource.
type ProtectedResponse struct {
	Message string `json:"message" example:"Top secret"`
}

//
// Helpers
//

// requiredString validates one credential field of the token request.
func requiredString(v *string, field, instance string) (*string, error) {
	return validation.String(v, validation.Field(field), validation.Instance(instance)).
		NotNull(errcodes.NotNull).
		NotEmpty(errcodes.NotEmpty).
		Validate()
}

// validateTokenRequest checks req and returns (grant, principal, secret, ttl).
// ttl is zero when the client did not ask for a specific lifetime.
func validateTokenRequest(req TokenRequest, instance string) (grant, principal, secret string, ttl time.Duration, err error) {
	g, err := requiredString(req.GrantType, "grant_type", instance)
	if err != nil {
		return "", "", "", 0, err
	}

	var principalErr, secretErr error
	var p, s *string
	switch *g {
	case domain.GrantUser:
		p, principalErr = requiredString(req.Username, "username", instance)
		s, secretErr = requiredString(req.Password, "password", instance)
	case domain.GrantClient:
		p, principalErr = requiredString(req.ClientID, "client_id", instance)
		s, secretErr = requiredString(req.ClientSecret, "client_secret", instance)
	default:
		return "", "", "", 0, apierr.NewCode(errcodes.UnsupportedGrant)
	}

	minutes, ttlErr := validation.Uint32(req.TTLMinutes, validation.Field("ttl_minutes"), validation.Instance(instance)).
		WithinRange(1, maxTTLMinutes, errcodes.OutOfRange).
		Validate()

	if err := validation.FirstError(principalErr, secretErr, ttlErr); err != nil {
		return "", "", "", 0, err
	}
	if minutes != nil {
		ttl = time.Duration(*minutes) * time.Minute
	}
	return *g, *p, *s, ttl, nil
}

//
// Handlers
//

// IssueToken godoc
// @ID          issueToken
// @Summary     Issue a bearer token
// @Description Exchanges user or client credentials for a signed bearer token.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.TokenRequest  true  "Credentials"
//
// @Success     200  {object}  handlers.TokenResponse
// @Failure     400  {object}  problem.ErrorResponse "Malformed JSON, invalid fields or unsupported grant"
// @Failure     401  {object}  problem.ErrorResponse "Invalid credentials"
// @Failure     500  {object}  problem.ErrorResponse "Internal error"
// @Router      /auth/token [post]
func (h *Handlers) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apierr.NewBadRequest(msgMalformedJSON, CodeMalformedJSON))
		return
	}

	grant, principal, secret, ttl, err := validateTokenRequest(req, c.Request.URL.Path)
	if err != nil {
		fail(c, err)
		return
	}

	tok, err := h.authSvc.Issue(c.Request.Context(), grant, principal, secret, ttl)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			fail(c, apierr.NewCode(errcodes.InvalidCredentials))
		case errors.Is(err, services.ErrUnsupportedGrant):
			fail(c, apierr.NewCode(errcodes.UnsupportedGrant))
		default:
			fail(c, apierr.NewInternal(err))
		}
		return
	}

	c.Header("Cache-Control", "no-store")
	ok(c, http.StatusOK, TokenResponse{
		Token:     tok.Token,
		TokenType: "Bearer",
		ExpiresIn: tok.ExpiresIn,
	})
}

// Protected godoc
// @ID          protected
// @Summary     Protected resource
// @Description Returns a fixed message to callers holding a valid bearer token.
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  handlers.ProtectedResponse
// @Failure     401  {object}  problem.ErrorResponse "Missing or invalid token"
// @Router      /protected [get]
func (h *Handlers) Protected(c *gin.Context) {
	ok(c, http.StatusOK, ProtectedResponse{Message: "Top secret"})
}
