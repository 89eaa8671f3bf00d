package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"
	// ErrorTypeBadRequest indicates a bad request
	ErrorTypeBadRequest ErrorType = "BAD_REQUEST"
	// ErrorTypeConflict indicates a conflict
	ErrorTypeConflict ErrorType = "CONFLICT"
	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "INTERNAL"
	// ErrorTypeParseFailure indicates a filename could not be parsed
	ErrorTypeParseFailure ErrorType = "PARSE_FAILURE"
	// ErrorTypeLookupMiss indicates the metadata service had no match
	ErrorTypeLookupMiss ErrorType = "LOOKUP_MISS"
	// ErrorTypeNetworkFailure indicates a remote call timed out or failed
	ErrorTypeNetworkFailure ErrorType = "NETWORK_FAILURE"
	// ErrorTypeValidation indicates a required field is missing or invalid
	ErrorTypeValidation ErrorType = "VALIDATION"
	// ErrorTypeShardInconsistency indicates the same title lives in more than one shard
	ErrorTypeShardInconsistency ErrorType = "SHARD_INCONSISTENCY"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new application error
func New(errorType ErrorType, message string) error {
	return &AppError{
		Type:    errorType,
		Message: message,
	}
}

// Wrap wraps an error with an application error
func Wrap(errorType ErrorType, message string, err error) error {
	return &AppError{
		Type:    errorType,
		Message: message,
		Err:     err,
	}
}

// NotFound creates a not found error
func NotFound(message string) error {
	return New(ErrorTypeNotFound, message)
}

// BadRequest creates a bad request error
func BadRequest(message string) error {
	return New(ErrorTypeBadRequest, message)
}

// Conflict creates a conflict error
func Conflict(message string) error {
	return New(ErrorTypeConflict, message)
}

// Internal creates an internal error
func Internal(message string) error {
	return New(ErrorTypeInternal, message)
}

// ParseFailure creates a parse failure error
func ParseFailure(message string) error {
	return New(ErrorTypeParseFailure, message)
}

// LookupMiss creates a lookup miss error
func LookupMiss(message string) error {
	return New(ErrorTypeLookupMiss, message)
}

// NetworkFailure wraps a transport error
func NetworkFailure(message string, err error) error {
	return Wrap(ErrorTypeNetworkFailure, message, err)
}

// Validation creates a validation error
func Validation(message string) error {
	return New(ErrorTypeValidation, message)
}

// ShardInconsistency creates a shard inconsistency error
func ShardInconsistency(message string) error {
	return New(ErrorTypeShardInconsistency, message)
}

// TypeOf returns the error type of err, or an empty string when err is not an AppError
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsBadRequest checks if an error is a bad request error
func IsBadRequest(err error) bool {
	return TypeOf(err) == ErrorTypeBadRequest
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return TypeOf(err) == ErrorTypeConflict
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	return TypeOf(err) == ErrorTypeInternal
}

// IsParseFailure checks if an error is a parse failure
func IsParseFailure(err error) bool {
	return TypeOf(err) == ErrorTypeParseFailure
}

// IsLookupMiss checks if an error is a lookup miss
func IsLookupMiss(err error) bool {
	return TypeOf(err) == ErrorTypeLookupMiss
}

// IsNetworkFailure checks if an error is a network failure
func IsNetworkFailure(err error) bool {
	return TypeOf(err) == ErrorTypeNetworkFailure
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

// IsShardInconsistency checks if an error is a shard inconsistency
func IsShardInconsistency(err error) bool {
	return TypeOf(err) == ErrorTypeShardInconsistency
}

// IsDuplicateError checks if an error is a duplicate key error
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "E11000")
}
