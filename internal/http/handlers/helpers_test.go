package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-message-backend/internal/domain"
	"github.com/tbourn/go-message-backend/internal/problem"
	"github.com/tbourn/go-message-backend/internal/services"
)

// ---------- test plumbing ----------

var errBoom = errors.New("boom")

// stubMsgSvc satisfies MessageService; nil funcs panic so that unexpected
// calls fail loudly.
type stubMsgSvc struct {
	create   func(ctx context.Context, content string) (*domain.Message, error)
	list     func(ctx context.Context) ([]domain.Message, error)
	listPage func(ctx context.Context, page, pageSize int) ([]domain.Message, int64, error)
	search   func(ctx context.Context, q string) ([]domain.Message, error)
	get      func(ctx context.Context, id uint) (*domain.Message, error)
	stats    func(ctx context.Context) (int64, *time.Time, error)
	replay   func(ctx context.Context, subject, key string) (*domain.Message, error)
	remember func(ctx context.Context, subject, key string, id uint, status int) error
}

func (s stubMsgSvc) Create(ctx context.Context, content string) (*domain.Message, error) {
	return s.create(ctx, content)
}
func (s stubMsgSvc) List(ctx context.Context) ([]domain.Message, error) { return s.list(ctx) }
func (s stubMsgSvc) ListPage(ctx context.Context, page, pageSize int) ([]domain.Message, int64, error) {
	return s.listPage(ctx, page, pageSize)
}
func (s stubMsgSvc) Search(ctx context.Context, q string) ([]domain.Message, error) {
	return s.search(ctx, q)
}
func (s stubMsgSvc) Get(ctx context.Context, id uint) (*domain.Message, error) { return s.get(ctx, id) }
func (s stubMsgSvc) Stats(ctx context.Context) (int64, *time.Time, error) {
	if s.stats == nil {
		return 0, nil, errBoom
	}
	return s.stats(ctx)
}
func (s stubMsgSvc) Replay(ctx context.Context, subject, key string) (*domain.Message, error) {
	return s.replay(ctx, subject, key)
}
func (s stubMsgSvc) Remember(ctx context.Context, subject, key string, id uint, status int) error {
	return s.remember(ctx, subject, key, id, status)
}

type stubAuthSvc struct {
	issue func(ctx context.Context, grant, principal, secret string, ttl time.Duration) (*services.IssuedToken, error)
}

func (s stubAuthSvc) Issue(ctx context.Context, grant, principal, secret string, ttl time.Duration) (*services.IssuedToken, error) {
	return s.issue(ctx, grant, principal, secret, ttl)
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func do(t *testing.T, r http.Handler, method, target string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) problem.ErrorResponse {
	t.Helper()
	var resp problem.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode problem: %v body=%s", err, w.Body.String())
	}
	if resp.Status != w.Code {
		t.Fatalf("body status %d != response status %d", resp.Status, w.Code)
	}
	return resp
}

// codes returns the error codes in a problem payload, in order.
func codes(resp problem.ErrorResponse) []int {
	out := make([]int, 0, len(resp.Details))
	for _, d := range resp.Details {
		out = append(out, d.ErrorCode)
	}
	return out
}
