// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the single error render path of the service. Every
// middleware and handler that fails a request calls AbortWithError, which maps
// the error through problem.ToResponse against the default error code registry
// and writes the resulting payload:
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "title":    "Multiple errors occurred",
//	  "status":   400,
//	  "instance": "/api/v1/messages",
//	  "details":  [{"field": "content", "message": "Content must not be empty", "error_code": 1002}]
//	}
//
// Server-side failures (5xx) are logged with the request-scoped logger,
// including the wrapped cause that the client never sees.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-message-backend/internal/errcodes"
	"github.com/tbourn/go-message-backend/internal/problem"
)

// AbortWithError renders err as an error payload and aborts the chain. A nil
// err renders the "no handler matched" 404.
func AbortWithError(c *gin.Context, err error) {
	resp, status := problem.ToResponse(err, errcodes.Default())

	ObserveProblem(resp)

	if status >= http.StatusInternalServerError {
		lg := LoggerFrom(c)
		ev := lg.Error().Int("status", status).Str("title", resp.Title)
		if err != nil {
			ev = ev.Err(err)
			_ = c.Error(err)
		}
		ev.Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}
