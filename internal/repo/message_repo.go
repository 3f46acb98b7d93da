// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
//
// Like the rest of the package these are thin functions over a *gorm.DB: pass
// db.WithContext(ctx) (or a transaction) to scope them.
package repo

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-message-backend/internal/domain"
)

// CreateMessage inserts a new message row and returns it with its assigned ID.
func CreateMessage(db *gorm.DB, content string) (*domain.Message, error) {
	now := time.Now().UTC()
	m := &domain.Message{
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages returns every message in insertion order.
func ListMessages(db *gorm.DB) ([]domain.Message, error) {
	var out []domain.Message
	err := db.Order("id ASC").Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(db *gorm.DB) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM messages WHERE deleted_at IS NULL").Scan(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice in insertion order.
func ListMessagesPage(db *gorm.DB, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SearchMessages returns messages whose content contains query, compared
// case-sensitively. The query is matched literally: '%' and '_' have no
// special meaning.
func SearchMessages(db *gorm.DB, query string) ([]domain.Message, error) {
	var out []domain.Message
	err := db.
		Where("instr(content, ?) > 0", query).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// GetMessage fetches a message by ID, or ErrNotFound.
func GetMessage(db *gorm.DB, id uint) (*domain.Message, error) {
	var m domain.Message
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
