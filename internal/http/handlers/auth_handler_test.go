package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-message-backend/internal/services"
)

type issueCall struct {
	grant, principal, secret string
	ttl                      time.Duration
}

func authRouter(issue func(ctx context.Context, grant, principal, secret string, ttl time.Duration) (*services.IssuedToken, error)) *gin.Engine {
	r := newEngine()
	h := New(nil, stubAuthSvc{issue: issue})
	r.POST("/api/v1/auth/token", h.IssueToken)
	r.GET("/api/v1/protected", h.Protected)
	return r
}

func recordingIssuer(calls *[]issueCall) func(context.Context, string, string, string, time.Duration) (*services.IssuedToken, error) {
	return func(_ context.Context, grant, principal, secret string, ttl time.Duration) (*services.IssuedToken, error) {
		*calls = append(*calls, issueCall{grant, principal, secret, ttl})
		return &services.IssuedToken{Token: "tok-" + principal, ExpiresIn: 3600}, nil
	}
}

func TestIssueToken_Success(t *testing.T) {
	cases := []struct {
		body string
		want issueCall
	}{
		{`{"grant_type":"user","username":"admin","password":"password"}`, issueCall{"user", "admin", "password", 0}},
		{`{"grant_type":"client","client_id":"client","client_secret":"secret"}`, issueCall{"client", "client", "secret", 0}},
		{`{"grant_type":"user","username":"admin","password":"password","ttl_minutes":5}`, issueCall{"user", "admin", "password", 5 * time.Minute}},
	}
	for _, tc := range cases {
		var calls []issueCall
		w := do(t, authRouter(recordingIssuer(&calls)), http.MethodPost, "/api/v1/auth/token", strings.NewReader(tc.body), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status=%d body=%s", tc.body, w.Code, w.Body.String())
		}
		if len(calls) != 1 || calls[0] != tc.want {
			t.Fatalf("%s: calls=%+v", tc.body, calls)
		}
		var resp TokenResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json: %v", err)
		}
		if resp.Token != "tok-"+tc.want.principal || resp.TokenType != "Bearer" || resp.ExpiresIn != 3600 {
			t.Fatalf("resp=%+v", resp)
		}
		if w.Header().Get("Cache-Control") != "no-store" {
			t.Fatalf("token responses must not be cached")
		}
	}
}

func TestIssueToken_ValidationFailures(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
		field  string
		codes  []int
	}{
		{"missing grant", `{}`, 400, "grant_type", []int{1001}},
		{"empty grant", `{"grant_type":""}`, 400, "grant_type", []int{1002}},
		{"unknown grant", `{"grant_type":"password"}`, 400, "", []int{2004}},
		{"missing username", `{"grant_type":"user","password":"x"}`, 400, "username", []int{1001}},
		{"empty password", `{"grant_type":"user","username":"a","password":""}`, 400, "password", []int{1002}},
		{"missing client id first", `{"grant_type":"client"}`, 400, "client_id", []int{1001}},
		{"empty client secret", `{"grant_type":"client","client_id":"c","client_secret":""}`, 400, "client_secret", []int{1002}},
		{"ttl zero", `{"grant_type":"user","username":"a","password":"b","ttl_minutes":0}`, 400, "ttl_minutes", []int{1004}},
		{"ttl too long", `{"grant_type":"user","username":"a","password":"b","ttl_minutes":1441}`, 400, "ttl_minutes", []int{1004}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls []issueCall
			w := do(t, authRouter(recordingIssuer(&calls)), http.MethodPost, "/api/v1/auth/token", strings.NewReader(tc.body), nil)
			if w.Code != tc.status {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			resp := decodeProblem(t, w)
			if !reflect.DeepEqual(codes(resp), tc.codes) {
				t.Fatalf("codes=%v want %v", codes(resp), tc.codes)
			}
			if tc.field != "" && (resp.Details[0].Field == nil || *resp.Details[0].Field != tc.field) {
				t.Fatalf("field=%v want %s", resp.Details[0].Field, tc.field)
			}
			if len(calls) != 0 {
				t.Fatalf("Issue must not be called on invalid input")
			}
		})
	}
}

func TestIssueToken_MalformedJSON(t *testing.T) {
	for _, body := range []string{`{`, `{"ttl_minutes":-1}`, `{"grant_type":5}`} {
		w := do(t, authRouter(nil), http.MethodPost, "/api/v1/auth/token", strings.NewReader(body), nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", body, w.Code)
		}
		if got := codes(decodeProblem(t, w)); !reflect.DeepEqual(got, []int{CodeMalformedJSON}) {
			t.Fatalf("%s: codes=%v", body, got)
		}
	}
}

func TestIssueToken_ServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{services.ErrInvalidCredentials, 401, 2003},
		{fmt.Errorf("wrapped: %w", services.ErrInvalidCredentials), 401, 2003},
		{services.ErrUnsupportedGrant, 400, 2004},
		{errBoom, 500, 0},
	}
	for _, tc := range cases {
		issue := func(context.Context, string, string, string, time.Duration) (*services.IssuedToken, error) {
			return nil, tc.err
		}
		w := do(t, authRouter(issue), http.MethodPost, "/api/v1/auth/token",
			strings.NewReader(`{"grant_type":"user","username":"admin","password":"nope"}`), nil)
		if w.Code != tc.status {
			t.Fatalf("%v: status=%d", tc.err, w.Code)
		}
		if got := codes(decodeProblem(t, w)); !reflect.DeepEqual(got, []int{tc.code}) {
			t.Fatalf("%v: codes=%v", tc.err, got)
		}
	}
}

func TestProtected(t *testing.T) {
	w := do(t, authRouter(nil), http.MethodGet, "/api/v1/protected", nil, nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"message":"Top secret"}` {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}
