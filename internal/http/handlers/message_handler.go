// Message HTTP handlers.
//
// This file exposes REST endpoints for messages:
//   - GET  /messages            (list all, or one page with page/page_size)
//   - POST /messages            (store a message)
//   - GET  /messages/{query}    (substring search)
//   - GET  /messages/id/{id}    (fetch one)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (subject, key), PostMessage returns the recorded message
// and sets `Idempotency-Replayed: true`.
package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-message-backend/internal/apierr"
	"github.com/tbourn/go-message-backend/internal/domain"
	"github.com/tbourn/go-message-backend/internal/errcodes"
	"github.com/tbourn/go-message-backend/internal/http/middleware"
	"github.com/tbourn/go-message-backend/internal/services"
	"github.com/tbourn/go-message-backend/internal/utils"
	"github.com/tbourn/go-message-backend/internal/validation"
)

// Response headers set by message handlers.
const (
	HeaderTotalCount          = "X-Total-Count"
	HeaderTotalPages          = "X-Total-Pages"
	HeaderIdempotencyReplayed = "Idempotency-Replayed"
)

const (
	maxContentRunes = 32
	defaultPageSize = 20
	maxPageSize     = 100
	maxPage         = math.MaxInt32
)

//
// DTOs
//

// PostMessageRequest is the JSON payload for storing a message. Content is
// NFC-normalized before validation; null or a missing field is reported as
// NotNull.
type PostMessageRequest struct {
	// Content is the message text, 1 to 32 characters.
	Content *string `json:"content" example:"hello world"`
}

//
// Helpers
//

// parsePagination validates the optional page and page_size query params.
// paged is false when neither is present. Invalid values are reported per
// field: the first failing field wins.
func parsePagination(c *gin.Context) (page, pageSize int, paged bool, err error) {
	rawPage, rawSize := c.Query("page"), c.Query("page_size")
	if rawPage == "" && rawSize == "" {
		return 0, 0, false, nil
	}

	instance := validation.Instance(c.Request.URL.Path)
	p, errPage := validation.Float(utils.ParseNumber(rawPage), validation.Field("page"), instance).
		IsNumber(errcodes.NotNumber).
		IsInteger(errcodes.NotInteger).
		WithinRange(1, maxPage, errcodes.OutOfRange).
		Validate()
	s, errSize := validation.Float(utils.ParseNumber(rawSize), validation.Field("page_size"), instance).
		IsNumber(errcodes.NotNumber).
		IsInteger(errcodes.NotInteger).
		WithinRange(1, maxPageSize, errcodes.OutOfRange).
		Validate()
	if err := validation.FirstError(errPage, errSize); err != nil {
		return 0, 0, false, err
	}
	return utils.IntOr(p, 1), utils.IntOr(s, defaultPageSize), true, nil
}

// messagesETag derives a weak ETag from the table state and the requested view.
func messagesETag(count int64, maxTS *time.Time, view string) string {
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	return fmt.Sprintf(`W/"messages:%d:%d:%s"`, count, ts, view)
}

// nonNil keeps empty results encoded as [] rather than null.
func nonNil(items []domain.Message) []domain.Message {
	if items == nil {
		return []domain.Message{}
	}
	return items
}

//
// Handlers
//

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages
// @Description Returns all messages in insertion order, or one page when page or page_size is given.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Messages
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"messages:3:0:all\")
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {array}   domain.Message
// @Header      200  {string}  ETag           "Weak ETag for current result"
// @Header      200  {integer} X-Total-Count  "Total number of messages"
// @Header      200  {integer} X-Total-Pages  "Number of pages (paged requests only)"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  problem.ErrorResponse "Invalid pagination"
// @Failure     500  {object}  problem.ErrorResponse "Internal error"
// @Router      /messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()

	page, pageSize, paged, err := parsePagination(c)
	if err != nil {
		fail(c, err)
		return
	}

	view := "all"
	if paged {
		view = fmt.Sprintf("%d:%d", page, pageSize)
	}

	// ETag pre-check (best effort).
	if count, maxTS, err := h.msgSvc.Stats(ctx); err == nil {
		etag := messagesETag(count, maxTS, view)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	if !paged {
		items, err := h.msgSvc.List(ctx)
		if err != nil {
			fail(c, apierr.NewInternal(err))
			return
		}
		c.Header(HeaderTotalCount, strconv.Itoa(len(items)))
		ok(c, http.StatusOK, nonNil(items))
		return
	}

	items, total, err := h.msgSvc.ListPage(ctx, page, pageSize)
	if err != nil {
		fail(c, apierr.NewInternal(err))
		return
	}
	c.Header(HeaderTotalCount, strconv.FormatInt(total, 10))
	c.Header(HeaderTotalPages, strconv.Itoa(utils.TotalPages(total, pageSize)))
	ok(c, http.StatusOK, nonNil(items))
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Store a message
// @Description Stores a message of 1 to 32 characters after NFC normalization.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.PostMessageRequest  true  "Message payload"
//
// @Success     200  {object}  domain.Message
// @Header      200  {string}  Idempotency-Replayed  "true when the recorded result was returned"
// @Failure     400  {object}  problem.ErrorResponse "Malformed JSON or invalid content"
// @Failure     500  {object}  problem.ErrorResponse "Internal error"
// @Router      /messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apierr.NewBadRequest(msgMalformedJSON, CodeMalformedJSON))
		return
	}
	if req.Content != nil {
		normalized := services.NormalizeContent(*req.Content)
		req.Content = &normalized
	}

	content, err := validation.String(req.Content, validation.Field("content"), validation.Instance(c.Request.URL.Path)).
		NotNull(errcodes.NotNull).
		NotEmpty(errcodes.NotEmpty).
		MaxLength(maxContentRunes, errcodes.MaxSize).
		Validate()
	if err != nil {
		fail(c, err)
		return
	}

	subject := middleware.IdempotencySubject(c)
	idemKey, hasKey := middleware.GetIdempotencyKey(c)

	// Idempotency (replay path).
	if hasKey && middleware.IsReplay(c) {
		if prev, err := h.msgSvc.Replay(ctx, subject, idemKey); err == nil {
			c.Header(HeaderIdempotencyReplayed, "true")
			ok(c, http.StatusOK, prev)
			return
		}
	}

	m, err := h.msgSvc.Create(ctx, *content)
	if err != nil {
		fail(c, apierr.NewInternal(err))
		return
	}

	// Idempotency (store path) – best effort.
	if hasKey {
		if err := h.msgSvc.Remember(ctx, subject, idemKey, m.ID, http.StatusOK); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not stored")
		}
	}

	ok(c, http.StatusOK, m)
}

// SearchMessages godoc
// @ID          searchMessages
// @Summary     Search messages
// @Description Returns messages whose content contains the query (case-sensitive, literal).
// @Tags        Messages
// @Produce     json
//
// @Param       query  path  string  true  "Substring to look for"  example(hello)
//
// @Success     200  {array}   domain.Message
// @Failure     500  {object}  problem.ErrorResponse "Internal error"
// @Router      /messages/{query} [get]
func (h *Handlers) SearchMessages(c *gin.Context) {
	items, err := h.msgSvc.Search(c.Request.Context(), c.Param("query"))
	if err != nil {
		fail(c, apierr.NewInternal(err))
		return
	}
	ok(c, http.StatusOK, nonNil(items))
}

// GetMessage godoc
// @ID          getMessage
// @Summary     Get a message
// @Description Returns one message by its numeric id.
// @Tags        Messages
// @Produce     json
//
// @Param       id  path  int  true  "Message ID"  minimum(1)
//
// @Success     200  {object}  domain.Message
// @Failure     400  {object}  problem.ErrorResponse "Invalid id"
// @Failure     404  {object}  problem.ErrorResponse "Message not found"
// @Failure     500  {object}  problem.ErrorResponse "Internal error"
// @Router      /messages/id/{id} [get]
func (h *Handlers) GetMessage(c *gin.Context) {
	id, err := validation.Float(utils.ParseNumber(c.Param("id")), validation.Field("id"), validation.Instance(c.Request.URL.Path)).
		NotNull(errcodes.NotNull).
		IsNumber(errcodes.NotNumber).
		IsInteger(errcodes.NotInteger).
		WithinRange(1, math.MaxUint32, errcodes.OutOfRange).
		Validate()
	if err != nil {
		fail(c, err)
		return
	}

	m, err := h.msgSvc.Get(c.Request.Context(), uint(*id))
	if err != nil {
		if errors.Is(err, services.ErrMessageNotFound) {
			fail(c, apierr.NewNotFound())
			return
		}
		fail(c, apierr.NewInternal(err))
		return
	}
	ok(c, http.StatusOK, m)
}
