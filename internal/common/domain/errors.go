package domain

import "fmt"

// ErrorCode classifies application errors for transport mapping and retry decisions.
type ErrorCode string

const (
	CodeValidation      ErrorCode = "VALIDATION_ERROR"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeConflict        ErrorCode = "CONFLICT"
	CodeInvalidState    ErrorCode = "INVALID_STATE"
	CodeForbidden       ErrorCode = "FORBIDDEN"
	CodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	CodeDistanceService ErrorCode = "DISTANCE_SERVICE_ERROR"
	CodeSubmission      ErrorCode = "SUBMISSION_ERROR"
	CodeProtocol        ErrorCode = "PROTOCOL_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// AppError is the shared application error type. Field is set for validation
// errors that can be attributed to a specific input field. Retryable tells the
// caller whether repeating the same request can succeed.
type AppError struct {
	Code      ErrorCode
	Message   string
	Field     string
	Retryable bool
	cause     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *AppError) Unwrap() error { return e.cause }

// WithCause attaches an underlying error and returns the receiver.
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// NewValidationError creates a validation error without field attribution.
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// NewFieldValidationError creates a validation error naming the offending field.
func NewFieldValidationError(field, message string) *AppError {
	return &AppError{Code: CodeValidation, Field: field, Message: message}
}

// NewNotFoundError creates a not-found error for the given entity and identifier.
func NewNotFoundError(entity, id string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewConflictError creates a conflict error (optimistic lock failures, duplicates).
func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

// NewInvalidStateError creates an error for a disallowed state transition.
func NewInvalidStateError(from, to string) *AppError {
	return &AppError{Code: CodeInvalidState, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewForbiddenError creates a forbidden error.
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

// NewDistanceServiceError creates a retryable routed-distance lookup error.
func NewDistanceServiceError(message string) *AppError {
	return &AppError{Code: CodeDistanceService, Message: message, Retryable: true}
}

// NewSubmissionError creates an error for a backend-rejected quote submission.
// Safe to retry with the same idempotency token on explicit user action.
func NewSubmissionError(message string) *AppError {
	return &AppError{Code: CodeSubmission, Message: message, Retryable: true}
}

// NewProtocolError creates an error for an unexpected response shape from a
// collaborator. Never retryable.
func NewProtocolError(message string) *AppError {
	return &AppError{Code: CodeProtocol, Message: message}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, cause: cause}
}
