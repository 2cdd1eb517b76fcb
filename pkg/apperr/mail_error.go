package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// OAuth / credential lifecycle
	CodeConfigError    = "CONFIG_ERROR"
	CodeExchangeFailed = "EXCHANGE_FAILED"
	CodeRefreshFailed  = "REFRESH_FAILED"
	CodeAuthRequired   = "AUTH_REQUIRED"
	CodeClientBuild    = "CLIENT_BUILD_FAILED"

	// Message content
	CodeUnsupportedMime = "UNSUPPORTED_MIME_TYPE"
	CodeDecodeFailed    = "DECODE_FAILED"

	// Resource errors
	CodeNotFound = "NOT_FOUND"

	// Validation errors
	CodeBadRequest = "BAD_REQUEST"

	// External errors
	CodeProviderError = "PROVIDER_ERROR"
	CodeExternalError = "EXTERNAL_ERROR"

	// Internal errors
	CodeInternalError = "INTERNAL_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
)

// AppError represents a structured application error
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// HTTPStatus returns the HTTP status code
func (e *AppError) HTTPStatus() int {
	return e.Status
}

// Constructor functions
func New(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

func Wrap(err error, code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ConfigError indicates missing or invalid OAuth client configuration.
// Fatal to the requested operation, not to the process.
func ConfigError(message string) *AppError {
	return &AppError{
		Code:    CodeConfigError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// ExchangeFailed indicates the provider rejected an authorization code.
func ExchangeFailed(err error) *AppError {
	return &AppError{
		Code:    CodeExchangeFailed,
		Message: "failed to exchange authorization code",
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

// RefreshFailed indicates the provider rejected a refresh token.
// Callers must fall back to a fresh authorize cycle.
func RefreshFailed(err error) *AppError {
	return &AppError{
		Code:    CodeRefreshFailed,
		Message: "failed to refresh access token",
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

// AuthRequired indicates no valid credential is available and a fresh
// authorize cycle is needed.
func AuthRequired(message string) *AppError {
	if message == "" {
		message = "authorization required"
	}
	return &AppError{
		Code:    CodeAuthRequired,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// ClientBuildFailed indicates the mail client could not be constructed.
func ClientBuildFailed(err error) *AppError {
	return &AppError{
		Code:    CodeClientBuild,
		Message: "failed to build mail client",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// UnsupportedMime indicates a message payload with a mime type the parser
// does not handle.
func UnsupportedMime(mimeType string) *AppError {
	return &AppError{
		Code:    CodeUnsupportedMime,
		Message: fmt.Sprintf("unsupported mime type: %s", mimeType),
		Status:  http.StatusUnprocessableEntity,
		Details: map[string]any{"mime_type": mimeType},
	}
}

// DecodeFailed indicates malformed base64 or invalid UTF-8 message content.
func DecodeFailed(err error) *AppError {
	return &AppError{
		Code:    CodeDecodeFailed,
		Message: "failed to decode message content",
		Status:  http.StatusUnprocessableEntity,
		Err:     err,
	}
}

// NotFound indicates the requested resource does not exist.
func NotFound(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

// BadRequest indicates invalid caller input.
func BadRequest(message string) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// ProviderError indicates a transient provider-side or network fault.
// The caller decides whether to retry.
func ProviderError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeProviderError,
		Message: fmt.Sprintf("provider error: %s", operation),
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// ExternalError indicates a failure in an external collaborator service.
func ExternalError(service string, err error) *AppError {
	return &AppError{
		Code:    CodeExternalError,
		Message: fmt.Sprintf("external service error: %s", service),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"service": service},
		Err:     err,
	}
}

// Unauthorized indicates a missing or invalid API key.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// Internal indicates an unexpected internal failure.
func Internal(message string) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

func InternalWithError(err error) *AppError {
	return &AppError{
		Code:    CodeInternalError,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Helper functions
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalWithError(err)
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
