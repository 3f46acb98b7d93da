// Package services – AuthService
//
// This file implements bearer authentication. A token request names a grant
// ("user" with username/password, or "client" with client id/secret); the
// secret is checked against the bcrypt hash stored for the principal and, on
// success, an HS256-signed JWT is issued.
//
// Issued tokens are also recorded in a TokenStore under the SHA-256 digest of
// their compact form, so a token is accepted only while its record exists.
// Verification therefore needs both a valid signature and a live record.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/go-message-backend/internal/domain"
	"github.com/tbourn/go-message-backend/internal/repo"
)

// DefaultTokenTTL is used when neither the request nor AuthService.TTL set a
// lifetime.
const DefaultTokenTTL = time.Hour

// Claims is the JWT payload of an issued token.
type Claims struct {
	Grant string `json:"grant"`
	jwt.RegisteredClaims
}

// IssuedToken is the result of a successful token request.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	// ExpiresIn is the token lifetime in whole seconds.
	ExpiresIn int64
}

// AuthService issues and verifies bearer tokens.
type AuthService struct {
	// DB holds the credentials table.
	DB *gorm.DB
	// Store records issued token digests.
	Store repo.TokenStore

	// Secret is the HMAC key for signing.
	Secret []byte
	// Issuer is written to and required in the iss claim when non-empty.
	Issuer string
	// TTL is the default token lifetime.
	TTL time.Duration
	// ClockSkew is the leeway applied to exp/iat checks.
	ClockSkew time.Duration
	// BcryptCost is used when hashing new credentials; zero means bcrypt.DefaultCost.
	BcryptCost int

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// TokenDigest returns the hex SHA-256 of a compact token.
func TokenDigest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Register hashes secret and stores it for (grant, principal).
func (s *AuthService) Register(ctx context.Context, grant, principal, secret string) error {
	if grant != domain.GrantUser && grant != domain.GrantClient {
		return ErrUnsupportedGrant
	}
	cost := s.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return fmt.Errorf("hash secret: %w", err)
	}
	if _, err := repo.CreateCredential(ctx, s.DB, grant, principal, string(hash)); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

// SeedDefaults registers the development principals (user admin/password and
// client client/secret) when no credentials exist yet. It reports whether
// anything was created.
func (s *AuthService) SeedDefaults(ctx context.Context) (bool, error) {
	n, err := repo.CountCredentials(ctx, s.DB)
	if err != nil {
		return false, fmt.Errorf("count credentials: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if err := s.Register(ctx, domain.GrantUser, "admin", "password"); err != nil {
		return false, err
	}
	if err := s.Register(ctx, domain.GrantClient, "client", "secret"); err != nil {
		return false, err
	}
	return true, nil
}

// Issue checks the principal's secret and signs a token valid for ttl (or
// the service default when ttl is zero).
func (s *AuthService) Issue(ctx context.Context, grant, principal, secret string, ttl time.Duration) (*IssuedToken, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Issue",
		trace.WithAttributes(
			attribute.String("auth.grant", grant),
			attribute.String("auth.principal", principal),
		),
	)
	defer span.End()

	if grant != domain.GrantUser && grant != domain.GrantClient {
		return nil, ErrUnsupportedGrant
	}
	if len(s.Secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}

	cred, err := repo.GetCredential(ctx, s.DB, grant, principal)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.SecretHash), []byte(secret)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if ttl <= 0 {
		ttl = s.TTL
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := s.now()
	exp := now.Add(ttl)
	claims := Claims{
		Grant: grant,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal,
			Issuer:    s.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	rec := domain.Token{
		Digest:    TokenDigest(signed),
		Subject:   principal,
		Grant:     grant,
		CreatedAt: now,
		ExpiresAt: exp,
	}
	if err := s.Store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("record token: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		ExpiresAt: exp,
		ExpiresIn: int64(ttl / time.Second),
	}, nil
}

// Verify validates raw and returns its claims. Malformed, badly signed,
// expired or unrecorded tokens yield an error wrapping ErrInvalidToken.
func (s *AuthService) Verify(ctx context.Context, raw string) (*Claims, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Verify")
	defer span.End()

	if len(s.Secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}

	opts := []jwt.ParserOption{
		jwt.WithLeeway(s.ClockSkew),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.Issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	// the record expires with the token, so it gets the same leeway
	if _, err := s.Store.Lookup(ctx, TokenDigest(raw), s.now().Add(-s.ClockSkew)); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: not recorded", ErrInvalidToken)
		}
		return nil, fmt.Errorf("token lookup: %w", err)
	}
	span.SetAttributes(attribute.String("auth.subject", claims.Subject))
	return claims, nil
}

// Revoke removes the record of raw so it no longer verifies.
func (s *AuthService) Revoke(ctx context.Context, raw string) error {
	return s.Store.Revoke(ctx, TokenDigest(raw))
}
