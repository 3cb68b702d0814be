// Package types provides shared types, interfaces, and errors for the application.
package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for consistent error handling across the application.
// These errors can be checked with errors.Is() for type-safe error handling.
var (
	// Pagination errors
	ErrPageOutOfRange = errors.New("page number outside of listing range")
	ErrNoMorePages    = errors.New("no more pages to load")

	// Extraction errors
	ErrFragmentNotFound = errors.New("result listing fragment not found in document")

	// Initialization errors
	ErrNotListingPage = errors.New("page is not a marketplace listing")
	ErrMissingMarker  = errors.New("required page marker not found")
	ErrUnknownLayout  = errors.New("unknown listing layout")

	// Loader errors
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrCrossOrigin      = errors.New("request target is not same-origin with the listing")
	ErrBodyTooLarge     = errors.New("response body exceeds size limit")

	// Browser errors
	ErrBrowserClosed = errors.New("browser is closed")
	ErrPageClosed    = errors.New("page is nil or has been closed")

	// Context errors
	ErrContextCanceled = errors.New("operation canceled")
)

// StatusError reports a page fetch that completed with a non-success status.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("error download %s: status %d", e.URL, e.StatusCode)
}

// Unwrap returns ErrUnexpectedStatus so callers can use errors.Is.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// NewStatusError creates an error for a non-200 page response.
func NewStatusError(url string, code int) *StatusError {
	return &StatusError{URL: url, StatusCode: code}
}

// InitError describes why page initialization stopped early.
// It implements the error interface and supports error unwrapping.
type InitError struct {
	Stage   string // Initialization stage: "product", "pagination", "listing", "search"
	Marker  string // The selector or pattern that was not satisfied
	Message string // Human-readable error message
	Err     error  // Underlying error (for unwrapping)
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *InitError) Unwrap() error {
	return e.Err
}

// NewMissingMarkerError creates an error for a page marker that is absent.
func NewMissingMarkerError(stage, marker string) *InitError {
	return &InitError{
		Stage:   stage,
		Marker:  marker,
		Message: fmt.Sprintf("%s: marker %q not found", stage, marker),
		Err:     ErrMissingMarker,
	}
}

// NewUnknownLayoutError creates an error for an unsupported layout value.
func NewUnknownLayoutError(layout string) *InitError {
	return &InitError{
		Stage:   "layout",
		Marker:  layout,
		Message: fmt.Sprintf("unknown layout %q", layout),
		Err:     ErrUnknownLayout,
	}
}
