package models

type UserStatus string
type UserRole string
type OrderStatus string
type PaymentStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"

	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"

	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusPaymentFailed  OrderStatus = "payment_failed"
	OrderStatusCancelled      OrderStatus = "cancelled"

	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// IsTerminal reports whether the payment status admits no further
// transitions. Terminal transactions only ever receive audit records.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> target is a legal move in the
// payment state machine. The machine only moves forward: pending reaches
// exactly one terminal state and stays there.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	if s != PaymentStatusPending {
		return false
	}
	switch target {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}
