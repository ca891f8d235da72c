package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Error codes for the billing ledger. Validation and conflict errors are
// deterministic for a given input and must never be retried; DEPENDENCY_ERROR
// may be retried once on read-only aggregation paths only.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeInvalidAmount     = "INVALID_AMOUNT"
	ErrCodeClosedBilling     = "CLOSED_BILLING"
	ErrCodeOverpayment       = "OVERPAYMENT"
	ErrCodeAlreadyPaid       = "ALREADY_PAID"
	ErrCodeNegativeNetPayout = "NEGATIVE_NET_PAYOUT"
	ErrCodeDependency        = "DEPENDENCY_ERROR"
	ErrCodeRange             = "RANGE_ERROR"
)
