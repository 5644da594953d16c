// Package handlers implements the fetchbin HTTP endpoints.
//
// This file holds the response writers shared by all handlers. Errors always
// use ErrorResponse with a stable code from errors.go:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "already_voted",
//	  "message": "this address already voted on the output"
//	}
//
// Stored outputs are returned by plainText only, never rendered.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/fetchbin/internal/http/middleware"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID, for matching a client report to server logs
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go)
	Code string `json:"code" example:"not_found"`
	// Human-readable message, safe to display
	Message string `json:"message" example:"output not found"`
}

// fail aborts with an ErrorResponse. 5xx responses are also logged through
// the request-scoped logger, together with any errors recorded via c.Error.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().Int("status", status).Str("code", code)
		if err := c.Errors.Last(); err != nil {
			ev = ev.Err(err.Err)
		}
		ev.Msg(msg)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail lets the router answer NoRoute/NoMethod with the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// plainText writes stored content verbatim as UTF-8 text. Browsers must not
// sniff it into HTML; the raw routes add a sandbox CSP on top.
func plainText(c *gin.Context, content string) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
