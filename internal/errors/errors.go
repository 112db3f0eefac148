package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    ErrorCode  `json:"code"`
	Message string     `json:"message"`
	Field   string     `json:"field,omitempty"`
	Details string     `json:"details,omitempty"`
	Status  int        `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MarshalJSON customizes JSON encoding
func (e *APIError) MarshalJSON() ([]byte, error) {
	type Alias APIError
	return json.Marshal(&struct {
		*Alias
	}{
		Alias: (*Alias)(e),
	})
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

// Unauthorized creates an UNAUTHORIZED error
func Unauthorized(message string) *APIError {
	return &APIError{
		Code:    ErrUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// Forbidden creates a FORBIDDEN error
func Forbidden(message string) *APIError {
	return &APIError{
		Code:    ErrForbidden,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// Conflict creates a CONFLICT error
func Conflict(resource string) *APIError {
	return &APIError{
		Code:    ErrConflict,
		Message: fmt.Sprintf("%s already exists or is in an invalid state", resource),
		Status:  http.StatusConflict,
	}
}

// ValidationError creates a VALIDATION_ERROR
func ValidationError(field, message string) *APIError {
	return &APIError{
		Code:    ErrValidation,
		Message: message,
		Field:   field,
		Status:  http.StatusUnprocessableEntity,
	}
}

// BadRequest creates a BAD_REQUEST error
func BadRequest(message string) *APIError {
	return &APIError{
		Code:    ErrBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// InternalError creates an INTERNAL_ERROR
func InternalError(message string) *APIError {
	return &APIError{
		Code:    ErrInternalError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// AlreadyExists creates an ALREADY_EXISTS error
func AlreadyExists(resource string) *APIError {
	return &APIError{
		Code:    ErrAlreadyExists,
		Message: fmt.Sprintf("%s already exists", resource),
		Status:  http.StatusConflict,
	}
}

// RateLimited creates a RATE_LIMITED error
func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return &APIError{
		Code:    ErrRateLimited,
		Message: message,
		Status:  http.StatusTooManyRequests,
	}
}

// ServiceUnavailable creates a SERVICE_UNAVAILABLE error
func ServiceUnavailable(service string) *APIError {
	return &APIError{
		Code:    ErrServiceUnavail,
		Message: fmt.Sprintf("%s is temporarily unavailable", service),
		Status:  http.StatusServiceUnavailable,
	}
}

// Timeout creates a TIMEOUT error
func Timeout(operation string) *APIError {
	return &APIError{
		Code:    ErrTimeout,
		Message: fmt.Sprintf("%s timed out", operation),
		Status:  http.StatusGatewayTimeout,
	}
}

// WithDetails adds additional details to an error
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}

// AssetDownloadFailed creates an ASSET_DOWNLOAD_FAILED error naming
// the URL that could not be resolved (spec §4.3 failure policy: any
// single failed asset download aborts the entire job).
func AssetDownloadFailed(url string, cause error) *APIError {
	return &APIError{
		Code:    ErrAssetDownload,
		Message: fmt.Sprintf("failed to download asset: %s", url),
		Details: cause.Error(),
		Status:  http.StatusUnprocessableEntity,
	}
}

// CompilationFailed creates a COMPILATION_FAILED error.
func CompilationFailed(message string) *APIError {
	return &APIError{
		Code:    ErrCompilation,
		Message: message,
		Status:  http.StatusUnprocessableEntity,
	}
}

// EngineFailed creates an ENGINE_FAILED error carrying the retained
// stderr tail (spec §4.5/§8 scenario 6).
func EngineFailed(stderrTail string) *APIError {
	return &APIError{
		Code:    ErrEngineFailed,
		Message: "encoding engine exited non-zero",
		Details: stderrTail,
		Status:  http.StatusInternalServerError,
	}
}

// PublishFailed creates a PUBLISH_FAILED error.
func PublishFailed(message string) *APIError {
	return &APIError{
		Code:    ErrPublishFailed,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// JobNotFound creates a JOB_NOT_FOUND error.
func JobNotFound(jobID string) *APIError {
	return &APIError{
		Code:    ErrJobNotFound,
		Message: fmt.Sprintf("render job %s not found", jobID),
		Status:  http.StatusNotFound,
	}
}

// JobAlreadyTerminal creates a JOB_ALREADY_TERMINAL error — rejecting
// a re-run of a job that already reached finished/failed (spec §8
// round-trip property: re-running a finished job must be rejected or
// must produce a new output under a new UUID).
func JobAlreadyTerminal(jobID string) *APIError {
	return &APIError{
		Code:    ErrJobAlreadyTerminal,
		Message: fmt.Sprintf("render job %s has already reached a terminal state", jobID),
		Status:  http.StatusConflict,
	}
}
