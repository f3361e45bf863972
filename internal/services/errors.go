// Package services implements the label pipeline and the inventory-facing
// operations built on it. This file centralizes the service-level errors so
// handlers can map each failure class to exactly one response shape.
//
// Translation into user-facing messages or HTTP status codes happens in the
// handler layer.
package services

import (
	"errors"
	"fmt"

	"github.com/tbourn/go-wine-scanner/internal/domain"
)

var (
	// ErrContentMismatch means the classifier is confident the photo is not
	// wine related.
	ErrContentMismatch = errors.New("image does not appear to show a wine label")

	// ErrUpstream is wrapped by every UpstreamError.
	ErrUpstream = errors.New("upstream model call failed")

	// ErrCanceled is returned when the caller went away mid-pipeline.
	ErrCanceled = errors.New("request canceled")

	// ErrDeadline is returned when a scan or chat request outlives its
	// overall deadline while the caller is still waiting.
	ErrDeadline = errors.New("request deadline exceeded")

	// ErrVenueNotFound is returned when a venue ID is unknown.
	ErrVenueNotFound = errors.New("venue not found")

	// ErrEmptyDescriptor is returned for a blank match query.
	ErrEmptyDescriptor = errors.New("descriptor is empty")

	// ErrEmptyMessage is returned for a blank chat message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTooLong is returned when a chat message exceeds the configured limit.
	ErrTooLong = errors.New("message too long")
)

// UpstreamError reports a stage whose external call failed after its
// bounded retry.
type UpstreamError struct {
	Stage    string
	Attempts int
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s failed after %d attempt(s): %v", ErrUpstream, e.Stage, e.Attempts, e.Err)
}

// Unwrap exposes both ErrUpstream and the cause.
func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstream, e.Err} }

// ContentMismatchError carries the verdict that caused a rejection.
type ContentMismatchError struct {
	Verdict domain.RelevanceVerdict
}

func (e *ContentMismatchError) Error() string {
	return fmt.Sprintf("%s (confidence %.2f)", ErrContentMismatch, e.Verdict.Confidence)
}

func (e *ContentMismatchError) Unwrap() error { return ErrContentMismatch }
