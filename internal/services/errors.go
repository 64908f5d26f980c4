package services

import (
	"errors"
	"fmt"

	"docbay/internal/constants"
)

// ServiceError represents a service-level error with an error code.
// The server layer maps codes to HTTP statuses; nothing in the core
// retries; every failure is terminal for the current request.
type ServiceError struct {
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new service error.
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

// WrapServiceError wraps an existing error with a service error.
func WrapServiceError(code, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, Err: err}
}

// IsServiceError checks if an error is a ServiceError and returns its code.
func IsServiceError(err error) (string, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code, true
	}
	return "", false
}

// Pre-defined service errors for common cases
var (
	// Request errors
	ErrInvalidWhere = NewServiceError(constants.ErrCodeInvalidWhere, "Could not parse WHERE clause, check your syntax.")
	ErrMissingID    = NewServiceError(constants.ErrCodeMissingID, "Missing entry ID")
	ErrUsePut       = NewServiceError(constants.ErrCodeWrongVerb, "Use PUT to update records")
	ErrBadRequest   = NewServiceError(constants.ErrCodeInvalidRequest, "Request error")

	// Not found
	ErrCollectionNotFound = NewServiceError(constants.ErrCodeCollectionNotFound, "collection does not exist")
	ErrRecordNotFound     = NewServiceError(constants.ErrCodeRecordNotFound, "entry does not exist")

	// Auth
	ErrMissingFields = NewServiceError(constants.ErrCodeMissingFields, "Missing fields")
	ErrLoginFailed   = NewServiceError(constants.ErrCodeLoginFailed, "Login or password don't match")
	ErrInvalidToken  = NewServiceError(constants.ErrCodeInvalidToken, "Invalid access token")
	ErrNoSession     = NewServiceError(constants.ErrCodeNoSession, "User session does not exist")
	ErrAuthRequired  = NewServiceError(constants.ErrCodeAuthRequired, "Authorization required")
	ErrRuleDenied    = NewServiceError(constants.ErrCodeRuleDenied, "Credentials error")

	// Internal
	ErrInternal = NewServiceError(constants.ErrCodeInternalError, "Server Error")
)

// Errors with context

func ErrCollectionNotFoundWithName(name string) *ServiceError {
	return &ServiceError{
		Code:    constants.ErrCodeCollectionNotFound,
		Message: fmt.Sprintf("Collection does not exist: %s", name),
	}
}

func ErrRecordNotFoundWithID(id string) *ServiceError {
	return &ServiceError{
		Code:    constants.ErrCodeRecordNotFound,
		Message: fmt.Sprintf("Entry does not exist: %s", id),
	}
}

func ErrUserExistsWithIdentity(identity string) *ServiceError {
	return &ServiceError{
		Code:    constants.ErrCodeUserExists,
		Message: fmt.Sprintf("A user with the same %s already exists", identity),
	}
}

func ErrRelationNotFound(collection, id string) *ServiceError {
	return &ServiceError{
		Code:    constants.ErrCodeRelationNotFound,
		Message: fmt.Sprintf("Related entry does not exist: %s/%s", collection, id),
	}
}

// WrapInternalError tags an unanticipated fault. The boundary logs it and
// reports a generic server fault without leaking internals.
func WrapInternalError(err error) *ServiceError {
	return WrapServiceError(constants.ErrCodeInternalError, "internal error", err)
}
