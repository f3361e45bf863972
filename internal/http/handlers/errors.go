// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` helper in this package), and failFromService, which maps every
// service-level failure class to exactly one status and code.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, not_found) mirror common HTTP status
//     semantics to aid interoperability.
//   - Domain-specific codes (e.g., content_mismatch, upstream_failed) are reserved for
//     pipeline failures that cannot be conveyed by status alone.
//   - A low-confidence scan is not an error: it is a 200 with success=false.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "content_mismatch",
//	  "message": "the photo does not appear to show a wine label"
//	}
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wine-scanner/internal/imaging"
	"github.com/tbourn/go-wine-scanner/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodePayloadTooLarge  = "payload_too_large"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeContentMismatch = "content_mismatch"
	ErrCodeUpstreamFailed  = "upstream_failed"
	ErrCodeCanceled        = "request_canceled"
	ErrCodeDeadline        = "upstream_timeout"
	ErrCodeListFailed      = "list_failed"
)

// StatusClientClosedRequest is the de-facto status for a client that went
// away before the response was ready. Nobody reads it; it keeps access logs
// and metrics honest.
const StatusClientClosedRequest = 499

// failFromService writes the envelope for an error returned by a service.
// maxRunes is only used to phrase the too-long message.
func failFromService(c *gin.Context, err error, maxRunes int) {
	var (
		ve *imaging.ValidationError
		ue *services.UpstreamError
	)
	switch {
	case errors.As(err, &ve):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, ve.Message)
	case errors.Is(err, services.ErrContentMismatch):
		fail(c, http.StatusUnprocessableEntity, ErrCodeContentMismatch,
			"the photo does not appear to show a wine label")
	case errors.Is(err, services.ErrVenueNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "venue not found")
	case errors.Is(err, services.ErrEmptyDescriptor):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query required")
	case errors.Is(err, services.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
	case errors.Is(err, services.ErrTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("message too long: max %d runes", maxRunes))
	case errors.Is(err, services.ErrDeadline):
		fail(c, http.StatusGatewayTimeout, ErrCodeDeadline,
			"the recognition service took too long, please try again")
	case errors.Is(err, services.ErrCanceled):
		fail(c, StatusClientClosedRequest, ErrCodeCanceled, "request canceled")
	case errors.As(err, &ue):
		fail(c, http.StatusBadGateway, ErrCodeUpstreamFailed,
			"the recognition service is unavailable, please try again")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// failBind reports a request body that could not be decoded. Bodies cut off
// by the size limit get 413 instead of 400.
func failBind(c *gin.Context, err error, msg string) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")
		return
	}
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, msg)
}
