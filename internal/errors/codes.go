package errors

import "net/http"

// ErrorCode represents the type of error
type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrForbidden      ErrorCode = "FORBIDDEN"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrValidation     ErrorCode = "VALIDATION_ERROR"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrAlreadyExists  ErrorCode = "ALREADY_EXISTS"
	ErrRateLimited    ErrorCode = "RATE_LIMITED"
	ErrServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
	ErrTimeout        ErrorCode = "TIMEOUT"

	// Render-domain error kinds (spec §7 Error Handling Design).
	ErrAssetDownload      ErrorCode = "ASSET_DOWNLOAD_FAILED"
	ErrCompilation        ErrorCode = "COMPILATION_FAILED"
	ErrEngineFailed       ErrorCode = "ENGINE_FAILED"
	ErrPublishFailed      ErrorCode = "PUBLISH_FAILED"
	ErrJobNotFound        ErrorCode = "JOB_NOT_FOUND"
	ErrJobAlreadyTerminal ErrorCode = "JOB_ALREADY_TERMINAL"
)

// StatusCodeMap maps ErrorCode to HTTP status code
var StatusCodeMap = map[ErrorCode]int{
	ErrNotFound:       http.StatusNotFound,
	ErrUnauthorized:   http.StatusUnauthorized,
	ErrForbidden:      http.StatusForbidden,
	ErrConflict:       http.StatusConflict,
	ErrValidation:     http.StatusUnprocessableEntity,
	ErrBadRequest:     http.StatusBadRequest,
	ErrInternalError:  http.StatusInternalServerError,
	ErrAlreadyExists:  http.StatusConflict,
	ErrRateLimited:    http.StatusTooManyRequests,
	ErrServiceUnavail: http.StatusServiceUnavailable,
	ErrTimeout:        http.StatusGatewayTimeout,

	ErrAssetDownload:      http.StatusUnprocessableEntity,
	ErrCompilation:        http.StatusUnprocessableEntity,
	ErrEngineFailed:       http.StatusInternalServerError,
	ErrPublishFailed:      http.StatusInternalServerError,
	ErrJobNotFound:        http.StatusNotFound,
	ErrJobAlreadyTerminal: http.StatusConflict,
}

// StatusCode returns the HTTP status code for this error code
func (e ErrorCode) StatusCode() int {
	if code, ok := StatusCodeMap[e]; ok {
		return code
	}
	return http.StatusInternalServerError
}
