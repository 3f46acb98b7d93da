// Package services – MessageService
//
// This file implements the MessageService, which stores and retrieves short
// text messages. Content is normalized to Unicode NFC before it is measured or
// persisted, so visually identical inputs are stored identically regardless of
// how the client composed them.
//
// Field validation (null, empty, length) happens at the handler layer with the
// rule engine; the service assumes it receives acceptable content.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// carry the relevant identifiers as attributes.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-message-backend/internal/domain"
	"github.com/tbourn/go-message-backend/internal/repo"
)

// ScopeCreateMessage is the idempotency scope of message creation.
const ScopeCreateMessage = "messages:create"

// DefaultIdempotencyTTL is used when MessageService.IdempotencyTTL is zero.
const DefaultIdempotencyTTL = 24 * time.Hour

// MessageService provides message-level operations: create, list (whole or
// paginated), substring search, and lookup by id.
type MessageService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// IdempotencyTTL bounds how long a recorded create can be replayed.
	IdempotencyTTL time.Duration
}

// NormalizeContent returns s in Unicode normalization form C.
func NormalizeContent(s string) string {
	return norm.NFC.String(s)
}

// Create persists a new message with NFC-normalized content.
func (s *MessageService) Create(ctx context.Context, content string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Create")
	defer span.End()

	m, err := repo.CreateMessage(s.DB.WithContext(ctx), NormalizeContent(content))
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	span.SetAttributes(attribute.Int64("message.id", int64(m.ID)))
	return m, nil
}

// List returns every message in insertion order.
func (s *MessageService) List(ctx context.Context) ([]domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "List")
	defer span.End()

	items, err := repo.ListMessages(s.DB.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return items, nil
}

// ListPage returns one page of messages in insertion order together with the
// total number of messages. Pages are 1-based.
func (s *MessageService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountMessages(s.DB.WithContext(ctx))
	if err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(s.DB.WithContext(ctx), offset, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages page: %w", err)
	}
	return items, total, nil
}

// Search returns the messages whose content contains query, compared
// case-sensitively after NFC normalization.
func (s *MessageService) Search(ctx context.Context, query string) ([]domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(attribute.Int("query.len", len(query))),
	)
	defer span.End()

	items, err := repo.SearchMessages(s.DB.WithContext(ctx), NormalizeContent(query))
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	return items, nil
}

// Get returns the message with the given id or ErrMessageNotFound.
func (s *MessageService) Get(ctx context.Context, id uint) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.Int64("message.id", int64(id))),
	)
	defer span.End()

	m, err := repo.GetMessage(s.DB.WithContext(ctx), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// Stats returns the number of messages and the latest update time, used to
// derive cache validators for list responses.
func (s *MessageService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return repo.MessagesStats(ctx, s.DB)
}

// Replay returns the message recorded for a previous create by subject under
// key. It returns ErrMessageNotFound when nothing live is recorded.
func (s *MessageService) Replay(ctx context.Context, subject, key string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Replay",
		trace.WithAttributes(attribute.String("subject", subject)),
	)
	defer span.End()

	rec, err := repo.GetIdempotency(ctx, s.DB, subject, ScopeCreateMessage, key, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	return s.Get(ctx, rec.MessageID)
}

// Remember records that key produced messageID for subject. A concurrent
// duplicate record is not an error.
func (s *MessageService) Remember(ctx context.Context, subject, key string, messageID uint, status int) error {
	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	_, err := repo.CreateIdempotency(ctx, s.DB, subject, ScopeCreateMessage, key, messageID, status, ttl)
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		return fmt.Errorf("idempotency record: %w", err)
	}
	return nil
}
