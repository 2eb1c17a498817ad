package errors

import (
	"fmt"
	"strings"
)

// NewValidationError creates a validation error with field context
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeInvalidInput, message).
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewDatabaseError creates a database error with operation context
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithContext("operation", operation).
		WithUserMessage("Database operation failed")
}

// NewNotFoundError creates a not found error with resource context
func NewNotFoundError(resource, message string) *AppError {
	return New(ErrCodeNotFound, message).
		WithContext("resource", resource).
		WithUserMessage(message)
}

// NewPermissionError reports that userID may not act on the listed messages.
func NewPermissionError(userID string, messageIDs []string, message string) *AppError {
	return New(ErrCodePermissionDenied, message).
		WithContext("user_id", userID).
		WithContext("message_ids", strings.Join(messageIDs, ",")).
		WithUserMessage(message)
}

// NewDependencyError wraps a failure of a best-effort collaborator such as
// the blob store.
func NewDependencyError(dependency, operation string, err error) *AppError {
	return WrapRetryable(err, ErrCodeDependencyFailure, fmt.Sprintf("%s %s failed", dependency, operation)).
		WithContext("dependency", dependency).
		WithContext("operation", operation)
}

// HTTPStatusCode maps error codes to appropriate HTTP status codes
func HTTPStatusCode(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidConfig:
		return 400
	case ErrCodePermissionDenied:
		return 403
	case ErrCodeNotFound:
		return 404
	case ErrCodeDependencyFailure:
		return 502
	case ErrCodeDatabaseConnection, ErrCodeDatabaseQuery:
		return 503
	default:
		return 500
	}
}
