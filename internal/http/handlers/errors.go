// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` helper in this package). These codes provide clients with a stable,
// machine-readable error taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case.
//   - Generic codes mirror common HTTP status semantics.
//   - already_voted is the only domain-specific code; clients branch on it to
//     grey out vote buttons.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "already_voted",
//	  "message": "this address already voted on the output"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/fetchbin/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodePayloadTooLarge  = "payload_too_large"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeAlreadyVoted = "already_voted"
)

// failService translates a service error into the matching HTTP error.
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrContentTooLarge):
		fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "content exceeds the 1 MiB limit")
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, validationMessage(err))
	case errors.Is(err, services.ErrOutputNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "output not found")
	case errors.Is(err, services.ErrAlreadyVoted):
		fail(c, http.StatusConflict, ErrCodeAlreadyVoted, "this address already voted on the output")
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "an internal error occurred")
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrEmptyContent):
		return "content cannot be empty"
	case errors.Is(err, services.ErrLabelTooLong):
		return "label too long"
	case errors.Is(err, services.ErrInvalidDirection):
		return "invalid vote direction"
	case errors.Is(err, services.ErrInvalidSourceIP):
		return "could not determine client address"
	default:
		return "invalid request"
	}
}
