package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for rejected query updates.
var (
	ErrUnknownField    = errors.New("unknown field")
	ErrFieldNotInMode  = errors.New("field not available in current mode")
	ErrInvalidHours    = errors.New("hours must be a positive integer")
	ErrInvalidSort     = errors.New("unsupported sort order")
	ErrInvalidCategory = errors.New("unknown category")
	ErrInvalidGeo      = errors.New("geo must be a two-letter country code")
	ErrInvalidLanguage = errors.New("invalid language code")
	ErrInvalidURL      = errors.New("url must be an absolute http(s) URL")
	ErrInvalidMode     = errors.New("unknown mode")
	ErrInvalidInterval = errors.New("refresh interval must be positive")
	ErrNoResult        = errors.New("trends source returned no result")
)

// ParseError reports a rejected field update. The query it was applied to
// is left untouched.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NetworkError reports a failed request or a non-2xx response.
// StatusCode is zero when no response was received; Status holds the
// reason phrase.
type NetworkError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch trends: %d %s", e.StatusCode, e.Status)
	}
	return fmt.Sprintf("failed to fetch trends: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SerializationError reports a snapshot that could not be encoded.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to serialize snapshot: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
