// Package handlers provides the HTTP handler implementations for the public
// API: message storage and search, token issuing, and a protected resource.
//
// Handlers are transport-thin: they validate input with the rule engine,
// call application services, and hand every failure to the shared error
// render path, so all error bodies have the same shape.
package handlers

import (
	"context"
	"time"

	"github.com/tbourn/go-message-backend/internal/domain"
	"github.com/tbourn/go-message-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// MessageService defines message storage, retrieval, and idempotent replay
// operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type MessageService interface {
	// Create stores a new message.
	Create(ctx context.Context, content string) (*domain.Message, error)
	// List returns every message in insertion order.
	List(ctx context.Context) ([]domain.Message, error)
	// ListPage returns one page of messages and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Message, int64, error)
	// Search returns messages whose content contains query.
	Search(ctx context.Context, query string) ([]domain.Message, error)
	// Get returns one message or services.ErrMessageNotFound.
	Get(ctx context.Context, id uint) (*domain.Message, error)
	// Stats returns the message count and the latest update time, used for ETags.
	Stats(ctx context.Context) (int64, *time.Time, error)
	// Replay returns the message recorded for (subject, key).
	Replay(ctx context.Context, subject, key string) (*domain.Message, error)
	// Remember records messageID as the result of (subject, key).
	Remember(ctx context.Context, subject, key string, messageID uint, status int) error
}

// AuthService issues bearer tokens for registered credentials.
type AuthService interface {
	Issue(ctx context.Context, grant, principal, secret string, ttl time.Duration) (*services.IssuedToken, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	msgSvc  MessageService
	authSvc AuthService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(msgSvc MessageService, authSvc AuthService) *Handlers {
	return &Handlers{msgSvc: msgSvc, authSvc: authSvc}
}
