// Package errors provides custom error types and error handling utilities.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes.
const (
	// Client errors (4xx).
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeRateLimited    = "RATE_LIMITED"
	CodeInvalidRequest = "INVALID_REQUEST"

	// Server errors (5xx).
	CodeInternal    = "INTERNAL_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout     = "TIMEOUT"

	// Retrieval errors.
	CodeLaneTimeout      = "LANE_TIMEOUT"
	CodeProviderFailure  = "PROVIDER_FAILURE"
	CodeLaneUnavailable  = "LANE_UNAVAILABLE"
	CodeNoLanesAvailable = "NO_LANES_AVAILABLE"
	CodeFusionFailure    = "FUSION_FAILURE"
	CodeCircuitOpen      = "CIRCUIT_OPEN"
	CodeCacheError       = "CACHE_ERROR"
	CodeVectorStoreError = "VECTOR_STORE_ERROR"
	CodeGraphStoreError  = "GRAPH_STORE_ERROR"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for this error.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable, CodeCircuitOpen, CodeNoLanesAvailable:
		return http.StatusServiceUnavailable
	case CodeTimeout, CodeLaneTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// InvalidRequestError creates an invalid request error.
func InvalidRequestError(message string) *AppError {
	return New(CodeInvalidRequest, message)
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// LaneTimeoutError creates a lane timeout error.
func LaneTimeoutError(lane string, budgetMs int64) *AppError {
	return New(CodeLaneTimeout, fmt.Sprintf("%s lane exceeded its %dms budget", lane, budgetMs))
}

// ProviderFailureError creates a provider failure error.
func ProviderFailureError(provider string, err error) *AppError {
	return Wrap(CodeProviderFailure, fmt.Sprintf("provider %s failed", provider), err)
}

// LaneUnavailableError creates a lane unavailable error.
func LaneUnavailableError(lane, reason string) *AppError {
	return New(CodeLaneUnavailable, fmt.Sprintf("%s lane unavailable: %s", lane, reason))
}

// NoLanesAvailableError creates an error for requests with no usable lanes.
func NoLanesAvailableError() *AppError {
	return New(CodeNoLanesAvailable, "no retrieval lanes available")
}

// FusionFailureError creates a fusion failure error.
func FusionFailureError(err error) *AppError {
	return Wrap(CodeFusionFailure, "result fusion failed", err)
}

// CircuitOpenError creates an error for calls rejected by an open breaker.
func CircuitOpenError(upstream string) *AppError {
	return New(CodeCircuitOpen, fmt.Sprintf("circuit breaker open for %s", upstream))
}

// CacheError creates a cache layer error.
func CacheError(message string, err error) *AppError {
	return Wrap(CodeCacheError, message, err)
}

// VectorStoreError creates a vector store error.
func VectorStoreError(message string, err error) *AppError {
	return Wrap(CodeVectorStoreError, message, err)
}

// GraphStoreError creates a graph store error.
func GraphStoreError(message string, err error) *AppError {
	return Wrap(CodeGraphStoreError, message, err)
}

// RateLimitedError creates a rate limited error with retry information.
func RateLimitedError(retryAfterSeconds int) *AppError {
	err := New(CodeRateLimited, "rate limit exceeded")
	if retryAfterSeconds > 0 {
		err = err.WithDetail("retry_after", fmt.Sprintf("%d", retryAfterSeconds))
	}
	return err
}

// TimeoutError creates a timeout error for a specific operation.
func TimeoutError(operation string) *AppError {
	message := "operation timed out"
	if operation != "" {
		message = fmt.Sprintf("%s timed out", operation)
	}
	return New(CodeTimeout, message)
}

// ServiceUnavailableError creates a service unavailable error.
func ServiceUnavailableError(service string) *AppError {
	message := "service unavailable"
	if service != "" {
		message = fmt.Sprintf("%s is unavailable", service)
	}
	return New(CodeUnavailable, message)
}

// IsCode checks whether err is an AppError with the given code.
func IsCode(err error, code string) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// IsCircuitOpen checks if error is a circuit open rejection.
func IsCircuitOpen(err error) bool {
	return IsCode(err, CodeCircuitOpen)
}

// IsLaneTimeout checks if error is a lane timeout.
func IsLaneTimeout(err error) bool {
	return IsCode(err, CodeLaneTimeout)
}

// ErrorResponse is the standard JSON error response structure.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON error response to the ResponseWriter.
// This is the low-level function used by WriteError.
func WriteJSON(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignore encoding errors - headers already sent
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteError writes an error response with proper sanitization.
// If err is an *AppError, it uses the code and status from the error.
// For other errors, it sanitizes the message to prevent leaking internal details.
func WriteError(w http.ResponseWriter, err error) {
	// Check if it's an AppError
	if appErr, ok := err.(*AppError); ok {
		WriteJSON(w, appErr.HTTPStatus(), ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}

	// For non-AppError errors, sanitize the message
	// Don't leak internal error details to clients
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal server error",
		Code:    CodeInternal,
		Message: "An unexpected error occurred",
	})
}
