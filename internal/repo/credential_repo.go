package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-message-backend/internal/domain"
)

// CreateCredential stores a principal with an already-hashed secret. It
// returns ErrDuplicate when (kind, principal) is taken.
func CreateCredential(ctx context.Context, db *gorm.DB, kind, principal, secretHash string) (*domain.Credential, error) {
	now := time.Now().UTC()
	c := &domain.Credential{
		ID:         uuid.NewString(),
		Kind:       kind,
		Principal:  principal,
		SecretHash: secretHash,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return c, nil
}

// GetCredential looks up a principal of the given kind, or ErrNotFound.
func GetCredential(ctx context.Context, db *gorm.DB, kind, principal string) (*domain.Credential, error) {
	var c domain.Credential
	err := db.WithContext(ctx).
		Where("kind = ? AND principal = ?", kind, principal).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountCredentials returns the number of stored principals.
func CountCredentials(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Credential{}).Count(&n).Error
	return n, err
}
