package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Assistant failure codes. Each is a recoverable outcome of the query
// pipeline and maps to a user-facing message, never a raw error.
const (
	ErrCodeUnrecognized        = "UNRECOGNIZED"
	ErrCodeMissingParameters   = "MISSING_PARAMETERS"
	ErrCodePermissionDenied    = "PERMISSION_DENIED"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeQuotaExceeded       = "QUOTA_EXCEEDED"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
)

// Validation errors
var (
	ErrInvalidChunkKind     = NewDomainError(ErrCodeValidation, "invalid knowledge chunk kind")
	ErrInvalidTableStatus   = NewDomainError(ErrCodeValidation, "invalid table status")
	ErrInvalidOrderStatus   = NewDomainError(ErrCodeValidation, "invalid order status")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrTenantNotFound   = NewDomainError(ErrCodeNotFound, "tenant not found")
	ErrTableNotFound    = NewDomainError(ErrCodeNotFound, "table not found")
	ErrOrderNotFound    = NewDomainError(ErrCodeNotFound, "order not found")
	ErrMenuItemNotFound = NewDomainError(ErrCodeNotFound, "menu item not found")
	ErrCustomerNotFound = NewDomainError(ErrCodeNotFound, "customer not found")
	ErrAPIKeyNotFound   = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrTenantAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "tenant already exists")
	ErrAPIKeyAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked  = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey  = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrNoTenantAccess = NewDomainError(ErrCodePermissionDenied, "no access to tenant")
)

// Assistant pipeline errors
var (
	ErrUnrecognizedQuery   = NewDomainError(ErrCodeUnrecognized, "could not map query to a known action")
	ErrQuotaExceeded       = NewDomainError(ErrCodeQuotaExceeded, "daily token budget exhausted")
	ErrUpstreamUnavailable = NewDomainError(ErrCodeUpstreamUnavailable, "upstream model or storage call failed")
	ErrTableNotAvailable   = NewDomainError(ErrCodeInvalidState, "table is not available")
	ErrItemNotAvailable    = NewDomainError(ErrCodeInvalidState, "menu item is not available")
	ErrAmbiguousReference  = NewDomainError(ErrCodeInvalidState, "reference matches more than one entity")
)
