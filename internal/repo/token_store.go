package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-message-backend/internal/domain"
)

// TokenStore persists issued tokens by digest. Implementations must treat an
// expired record as absent.
type TokenStore interface {
	Save(ctx context.Context, tok domain.Token) error
	Lookup(ctx context.Context, digest string, now time.Time) (*domain.Token, error)
	Revoke(ctx context.Context, digest string) error
}

// SQLTokenStore keeps tokens in the tokens table.
type SQLTokenStore struct {
	db *gorm.DB
}

// NewSQLTokenStore returns a TokenStore backed by db.
func NewSQLTokenStore(db *gorm.DB) *SQLTokenStore {
	return &SQLTokenStore{db: db}
}

// Save inserts tok. Saving the same digest twice yields ErrDuplicate.
func (s *SQLTokenStore) Save(ctx context.Context, tok domain.Token) error {
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&tok).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Lookup purges expired rows, then returns the live token for digest or
// ErrNotFound.
func (s *SQLTokenStore) Lookup(ctx context.Context, digest string, now time.Time) (*domain.Token, error) {
	if _, err := s.PurgeExpired(ctx, now); err != nil {
		return nil, err
	}
	var tok domain.Token
	err := s.db.WithContext(ctx).
		Where("digest = ? AND expires_at > ?", digest, now).
		First(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// Revoke deletes the token; revoking an unknown digest is not an error.
func (s *SQLTokenStore) Revoke(ctx context.Context, digest string) error {
	return s.db.WithContext(ctx).Where("digest = ?", digest).Delete(&domain.Token{}).Error
}

// PurgeExpired deletes tokens that expired at or before now.
func (s *SQLTokenStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Token{})
	return res.RowsAffected, res.Error
}
