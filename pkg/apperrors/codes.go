package apperrors

// ErrorCode identifies a machine-readable error class.
type ErrorCode string

// Cross-cutting, non-domain error codes.
const (
	// System and unknown errors
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Generic business-logic codes (used by the factories)
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Authentication and authorization
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
)

// Payment reconciliation codes. Every code here maps to a distinct
// failure mode of the M-Pesa confirmation flow and is what operators
// filter the audit trail by.
const (
	CodeMalformedCallback      ErrorCode = "MALFORMED_CALLBACK"
	CodeUnknownTransaction     ErrorCode = "UNKNOWN_TRANSACTION"
	CodeAmountMismatch         ErrorCode = "AMOUNT_MISMATCH"
	CodeInvalidTransition      ErrorCode = "INVALID_TRANSITION"
	CodePaymentConflict        ErrorCode = "PAYMENT_CONFLICT"
	CodeDuplicatePayment       ErrorCode = "DUPLICATE_PAYMENT"
	CodeOrderPropagationFailed ErrorCode = "ORDER_PROPAGATION_FAILED"
)
