package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// accessLines decodes the "http_request" lines of buf.
func accessLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		if m["message"] == "http_request" {
			out = append(out, m)
		}
	}
	return out
}

func TestRedactor_scrub(t *testing.T) {
	rd := newRedactor(RedactOptions{})
	cases := []struct{ in, want string }{
		{"", ""},
		{"plain text", "plain text"},
		{"mail a.b+tag@example.com", "mail [REDACTED:email]"},
		{"id 123e4567-e89b-12d3-a456-426614174000", "id [REDACTED:id]"},
		{"call (212) 555-1212", "call ([REDACTED:phone]"},
		{"hex deadbeefcafe", "hex deadbeefcafe"},
	}
	for _, tc := range cases {
		if got := rd.scrub(tc.in); got != tc.want {
			t.Fatalf("scrub(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactor_query(t *testing.T) {
	rd := newRedactor(RedactOptions{MaskQueryParams: []string{"Session"}})

	got := rd.query("page=2&password=hunter2&email=a@b.io&session=abc")
	for _, want := range []string{"page=2", "password=[REDACTED]", "email=[REDACTED:email]", "session=[REDACTED]"} {
		if !strings.Contains(got, want) {
			t.Fatalf("query %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "hunter2") || strings.Contains(got, "abc") {
		t.Fatalf("secret leaked: %q", got)
	}

	if rd.query("") != "" {
		t.Fatalf("empty query should stay empty")
	}
	// invalid escapes fall back to scrubbing the raw string
	if got := rd.query("x=%zz&mail=a@b.io"); got != "x=%zz&mail=[REDACTED:email]" {
		t.Fatalf("unparsable query = %q", got)
	}
}

func TestRedactor_header(t *testing.T) {
	rd := newRedactor(RedactOptions{MaskHeaders: []string{" X-Api-Key "}})
	h := http.Header{}
	h.Set("Authorization", "Bearer eyJhbGciOi")
	h.Set("Cookie", "sid=1")
	h.Set("X-Api-Key", "k")
	h.Set("X-Note", "from a@b.io")
	h.Add("Accept", "application/json")
	h.Add("Accept", "text/plain")

	got := rd.header(h)
	want := map[string]string{
		"Authorization": redacted,
		"Cookie":        redacted,
		"X-Api-Key":     redacted,
		"X-Note":        "from [REDACTED:email]",
		"Accept":        "application/json, text/plain",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestRedactingLogger_AccessLine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/api/v1/messages/:query", func(c *gin.Context) {
		c.Set(ctxKeyUserID, "admin")
		LoggerFrom(c).Info().Msg("inside handler")
		c.JSON(http.StatusOK, []string{})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages/secret-term?page=1&token=abc", nil)
	req.Header.Set("X-Request-ID", "rid-access")
	req.Header.Set("Authorization", "Bearer abc")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if strings.Contains(buf.String(), "secret-term") || strings.Contains(buf.String(), "abc\"") {
		t.Fatalf("search term or token leaked: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"message":"inside handler"`) ||
		!strings.Contains(buf.String(), `"request_id":"rid-access"`) {
		t.Fatalf("scoped logger missing fields: %s", buf.String())
	}

	lines := accessLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("want one access line, got %d", len(lines))
	}
	line := lines[0]
	checks := map[string]interface{}{
		"level":      "info",
		"request_id": "rid-access",
		"path":       "/api/v1/messages/:query",
		"method":     "GET",
		"user_id":    "admin",
		"query":      "page=1&token=[REDACTED]",
		"status":     float64(200),
	}
	for k, v := range checks {
		if line[k] != v {
			t.Fatalf("%s = %v, want %v", k, line[k], v)
		}
	}
	headers, _ := line["headers"].(map[string]interface{})
	if headers["Authorization"] != redacted {
		t.Fatalf("authorization not masked: %v", headers)
	}
}

func TestRedactingLogger_Levels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		handler gin.HandlerFunc
		level   string
	}{
		{"ok", func(c *gin.Context) { c.Status(http.StatusNoContent) }, "info"},
		{"client error", func(c *gin.Context) { c.Status(http.StatusNotFound) }, "warn"},
		{"server error", func(c *gin.Context) { c.Status(http.StatusInternalServerError) }, "error"},
		{"recorded error", func(c *gin.Context) {
			_ = c.Error(errors.New("boom"))
			c.Status(http.StatusBadRequest)
		}, "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := captureLogger(t)
			r := gin.New()
			r.Use(RedactingLogger(RedactOptions{}))
			r.GET("/x", tc.handler)
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

			lines := accessLines(t, buf)
			if len(lines) != 1 || lines[0]["level"] != tc.level {
				t.Fatalf("want one %s line, got %v", tc.level, lines)
			}
		})
	}
}

func TestRedactingLogger_UnmatchedRouteUsesRawPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	lines := accessLines(t, buf)
	if len(lines) != 1 || lines[0]["path"] != "/missing" || lines[0]["level"] != "warn" {
		t.Fatalf("unexpected access line: %v", lines)
	}
}
