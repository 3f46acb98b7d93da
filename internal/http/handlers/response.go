package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-message-backend/internal/http/middleware"
)

// fail aborts the request and renders err through the shared error render
// path. Server-side errors are logged there with the request-scoped logger.
func fail(c *gin.Context, err error) { middleware.AbortWithError(c, err) }

// Fail is the exported variant of fail().
//
// External packages (e.g., router setup) should call Fail so that fallbacks
// produce the same error payload as handlers.
func Fail(c *gin.Context, err error) { fail(c, err) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
