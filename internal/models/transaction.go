package models

import (
	"time"

	"gorm.io/datatypes"
)

// Transaction is one payment attempt in the ledger. Rows are never deleted;
// a terminal row is the durable record used for disputes and audit.
//
// RequestID is assigned exactly once at checkout, before the provider can
// reference it, and is never reused. CheckoutRequestID is the provider's
// correlation key returned by the STK push and carried back in the
// confirmation callback. MpesaReceipt is the provider's own transaction id,
// known only after a successful confirmation.
type Transaction struct {
	BaseModel
	RequestID         string        `gorm:"type:uuid;uniqueIndex;not null" json:"request_id"`
	CheckoutRequestID *string       `gorm:"uniqueIndex" json:"checkout_request_id,omitempty"`
	MpesaReceipt      *string       `gorm:"uniqueIndex" json:"mpesa_receipt,omitempty"`
	OrderID           string        `gorm:"type:uuid;not null;index" json:"order_id"`
	AmountCents       int64         `gorm:"not null" json:"amount_cents"`
	PhoneNumber       string        `json:"phone_number"`
	Status            PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	FailureReason     string        `json:"failure_reason,omitempty"`
	// RawCallback keeps the last validated provider payload applied to this
	// transaction verbatim, for replay and dispute resolution.
	RawCallback datatypes.JSON `gorm:"type:jsonb" json:"-"`
	// OrderSynced flips to true once the owning order reflects this
	// transaction's terminal state. The reconciliation sweep retries rows
	// where it is still false.
	OrderSynced bool       `gorm:"not null;default:false;index" json:"-"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}
