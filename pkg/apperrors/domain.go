package apperrors

import (
	"net/http"
)

// Factories and predefined variables for shared business-logic errors.

// ErrNotFound converts a repository miss (e.g. gorm.ErrRecordNotFound)
// into a 404 AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrInvalidOperation builds a 400 for operations the current state forbids.
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// --- Auth & user status ---

var ErrWeakPassword = New(
	CodeValidationFailed,
	"validation",
	"Password is too weak. Minimum 8 characters required.",
	http.StatusBadRequest,
)

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email already in use",
	http.StatusConflict,
)

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

// --- Payments ---

// ErrMalformedCallback: the provider payload could not be parsed. The raw
// body is already in the audit log by the time this is raised.
var ErrMalformedCallback = New(
	CodeMalformedCallback,
	"payment",
	"Malformed provider callback payload",
	http.StatusBadRequest,
)

// ErrUnknownTransaction: the callback references a checkout request id that
// the ledger has never issued.
var ErrUnknownTransaction = New(
	CodeUnknownTransaction,
	"payment",
	"Callback references an unknown transaction",
	http.StatusNotFound,
)

// ErrAmountMismatch: the confirmed amount differs from the amount the
// transaction was created with. Flagged for manual review, never accepted.
var ErrAmountMismatch = New(
	CodeAmountMismatch,
	"payment",
	"Callback amount does not match the transaction amount",
	http.StatusConflict,
)

// ErrInvalidTransition: the requested state change is not legal from the
// transaction's current state.
var ErrInvalidTransition = New(
	CodeInvalidTransition,
	"payment",
	"Illegal transaction state transition",
	http.StatusConflict,
)

// ErrPaymentConflict: two distinct provider receipts claim the same
// transaction. Surfaced to operators, never auto-resolved.
var ErrPaymentConflict = New(
	CodePaymentConflict,
	"payment",
	"Conflicting provider receipt for an already settled transaction",
	http.StatusConflict,
)

// ErrDuplicatePayment: the order already has a pending or settled payment.
var ErrDuplicatePayment = New(
	CodeDuplicatePayment,
	"payment",
	"Order already has an active payment",
	http.StatusConflict,
)

// ErrOrderPropagationFailed: transient - the order update collaborator was
// unreachable. The transaction state stands; the sweep retries the update.
var ErrOrderPropagationFailed = New(
	CodeOrderPropagationFailed,
	"payment",
	"Failed to propagate payment result to the order",
	http.StatusInternalServerError,
)

// ErrMpesaError: generic STK push / Daraja integration failure.
var ErrMpesaError = New(
	CodeExternalServiceError,
	"payment",
	"Payment provider error",
	http.StatusServiceUnavailable,
)

// --- Orders ---

var ErrOrderNotFound = New(
	CodeNotFound,
	"order",
	"Order not found",
	http.StatusNotFound,
)

var ErrEmptyOrder = New(
	CodeValidationFailed,
	"order",
	"Order must contain at least one item",
	http.StatusBadRequest,
)

// --- Catalog ---

var ErrProductNotFound = New(
	CodeNotFound,
	"catalog",
	"Product not found",
	http.StatusNotFound,
)

var ErrProductSlugTaken = New(
	CodeAlreadyExists,
	"catalog",
	"A product with this slug already exists",
	http.StatusConflict,
)
