package models

import "time"

// Order owns at most one active payment Transaction. IsPaid, PaidAt and the
// payment-related Status values are derived from the ledger by the
// reconciliation path; no handler writes them directly.
type Order struct {
	BaseModel
	UserID        string      `gorm:"type:uuid;not null;index" json:"user_id"`
	Status        OrderStatus `gorm:"type:varchar(20);not null;default:'pending_payment'" json:"status"`
	IsPaid        bool        `gorm:"not null;default:false" json:"is_paid"`
	PaidAt        *time.Time  `json:"paid_at,omitempty"`
	FailureReason string      `json:"failure_reason,omitempty"`
	TotalCents    int64       `gorm:"not null" json:"total_cents"`
	Currency      string      `gorm:"type:varchar(3);not null;default:'KES'" json:"currency"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

// OrderItem snapshots name and unit price at purchase time so later catalog
// edits cannot change what the customer was charged.
type OrderItem struct {
	ID             uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        string `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID      string `gorm:"type:uuid;not null" json:"product_id"`
	Name           string `gorm:"not null" json:"name"`
	UnitPriceCents int64  `gorm:"not null" json:"unit_price_cents"`
	Quantity       int    `gorm:"not null" json:"quantity"`
}
