// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lmstudio

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeRequestFailed
	ErrTypeParseFailed
	ErrTypeNoModels
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeInvalidRequest
)

// String returns the name of the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeRequestFailed:
		return "request_failed"
	case ErrTypeParseFailed:
		return "parse_failed"
	case ErrTypeNoModels:
		return "no_models_found"
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// ClientError represents an error from the inference client.
// Status is the HTTP status code for ErrTypeRequestFailed, zero otherwise.
type ClientError struct {
	Type    ErrorType
	Message string
	Status  int
	Cause   error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same Type, so errors.Is works against the
// sentinels below regardless of message or status.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// Sentinel errors for easy checking.
var (
	ErrRequestFailed = &ClientError{Type: ErrTypeRequestFailed, Message: "request failed"}
	ErrNoModelsFound = &ClientError{Type: ErrTypeNoModels, Message: "no models found"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrConnection    = &ClientError{Type: ErrTypeConnection, Message: "cannot reach inference server"}
	ErrEmptyModel    = &ClientError{Type: ErrTypeInvalidRequest, Message: "model identifier is required"}
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

func errorType(err error) ErrorType {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ErrTypeUnknown
}

// IsRequestFailed reports whether err is a non-OK HTTP response.
func IsRequestFailed(err error) bool {
	return errorType(err) == ErrTypeRequestFailed
}

// IsNoModels reports whether err means the server listed no usable models.
func IsNoModels(err error) bool {
	return errorType(err) == ErrTypeNoModels
}

// IsTimeout reports whether err is a client-side timeout.
func IsTimeout(err error) bool {
	return errorType(err) == ErrTypeTimeout
}

// IsConnection reports whether err is a transport failure.
func IsConnection(err error) bool {
	return errorType(err) == ErrTypeConnection
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return 0
}
