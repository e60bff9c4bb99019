// Package errors defines the error taxonomy shared by the ingestion,
// aggregation, and query paths.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/lotkeeper/internal/types"
)

// ErrAggregationSkipped signals that a rollup run found zero qualifying
// listings. It is informational: absence of a rollup row means "no data",
// not "zero activity".
var ErrAggregationSkipped = stderrors.New("aggregation skipped: no qualifying listings")

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryValidation represents snapshot validation outcomes
	CategoryValidation ErrorCategory = "validation"
	// CategoryNotFound represents not found errors
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryUserInput represents user input errors (4xx)
	CategoryUserInput ErrorCategory = "user_input"
	// CategoryAuthorization represents authorization errors
	CategoryAuthorization ErrorCategory = "authorization"
	// CategoryDatabase represents database errors
	CategoryDatabase ErrorCategory = "database"
	// CategoryCache represents cache errors
	CategoryCache ErrorCategory = "cache"
	// CategorySystem represents system errors (5xx)
	CategorySystem ErrorCategory = "system"
	// CategoryRateLimit represents rate limit errors
	CategoryRateLimit ErrorCategory = "rate_limit"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewValidationRejectedError marks a snapshot declined by the anomaly
// guard. A policy outcome rather than a failure; mapped to 406.
func NewValidationRejectedError(newCount int, previousCount, threshold int64, decreasePercentage float64) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusNotAcceptable,
		Code:       "VALIDATION_REJECTED",
		Message:    "snapshot rejected: auction count dropped below the accepted threshold",
		Details: map[string]interface{}{
			"newCount":           newCount,
			"previousCount":      previousCount,
			"threshold":          threshold,
			"decreasePercentage": decreasePercentage,
		},
	}
}

// NewRealmNotFoundError creates a realm not found error
func NewRealmNotFoundError(server, realm string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "REALM_NOT_FOUND",
		Message:    fmt.Sprintf("realm not found: %s/%s", server, realm),
		Details: map[string]interface{}{
			"server": server,
			"realm":  realm,
		},
	}
}

// NewRealmIDNotFoundError creates a realm not found error for an id lookup
func NewRealmIDNotFoundError(realmID int64) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "REALM_NOT_FOUND",
		Message:    fmt.Sprintf("realm not found: %d", realmID),
		Details: map[string]interface{}{
			"realmId": realmID,
		},
	}
}

// NewItemNotFoundError creates an item not found error
func NewItemNotFoundError(itemID, realmID int64) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "ITEM_NOT_FOUND",
		Message:    fmt.Sprintf("item not found: %d", itemID),
		Details: map[string]interface{}{
			"itemId":  itemID,
			"realmId": realmID,
		},
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUserInput,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "rate limit exceeded",
	}
}

// NewStorageTransactionError marks a failed storage transaction. Transient;
// the caller owns the retry.
func NewStorageTransactionError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       "STORAGE_TRANSACTION_FAILED",
		Message:    fmt.Sprintf("storage transaction failed during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewCacheError creates a cache error
func NewCacheError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryCache,
		StatusCode: http.StatusInternalServerError,
		Code:       "CACHE_ERROR",
		Message:    fmt.Sprintf("cache error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRetryable determines if an error is retryable. Only storage and cache
// failures are; validation outcomes and not-found are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, ErrAggregationSkipped) {
		return false
	}

	catErr := Categorize(err)
	switch catErr.Category {
	case CategoryDatabase, CategoryCache:
		return true
	case CategorySystem:
		return catErr.Code == "INTERNAL_ERROR" && catErr.Cause != nil
	default:
		return false
	}
}

// IsNotFound reports whether an error is a not-found outcome.
func IsNotFound(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Category == CategoryNotFound
}
