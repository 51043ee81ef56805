// Package apierr defines the error taxonomy shared by the transaction
// pipeline, storage backends, wallet server and app backend, and maps
// each member to its canonical HTTP status code.
package apierr

import (
	"errors"
	"net/http"
)

// Code is one taxonomy member.
type Code string

const (
	InvalidURI         Code = "InvalidURI"
	UnknownProgram     Code = "UnknownProgram"
	ValidationFailed   Code = "ValidationFailed"
	NotFound           Code = "NotFound"
	AlreadyExists      Code = "AlreadyExists"
	SignatureInvalid   Code = "SignatureInvalid"
	DecryptionFailed   Code = "DecryptionFailed"
	Unauthorized       Code = "Unauthorized"
	OriginNotAllowed   Code = "OriginNotAllowed"
	BackendUnavailable Code = "BackendUnavailable"
	RequestTimeout     Code = "RequestTimeout"
	ConfigError        Code = "ConfigError"
)

// Error is a taxonomy-tagged error. The validator's own error string
// (or the backend's underlying message) is carried verbatim in
// Message — nothing is reworded on the way out.
type Error struct {
	Code    Code
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New builds a tagged error carrying message; Error() falls back to the
// taxonomy code's own string only when message is empty.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap tags an existing error with a taxonomy code, preserving it for
// errors.Is/As and %w formatting.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: err.Error(), Wrapped: err}
}

// CodeOf extracts the taxonomy code from err, defaulting to
// BackendUnavailable for untagged errors: backend failures are
// surfaced as BackendUnavailable with the underlying message attached.
func CodeOf(err error) Code {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Code
	}
	return BackendUnavailable
}

// HTTPStatus maps a taxonomy code to its canonical HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case InvalidURI, ValidationFailed, ConfigError:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case OriginNotAllowed:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case UnknownProgram:
		return http.StatusBadRequest
	case AlreadyExists:
		return http.StatusConflict
	case SignatureInvalid, DecryptionFailed:
		return http.StatusBadRequest
	case RequestTimeout:
		return http.StatusRequestTimeout
	case BackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
