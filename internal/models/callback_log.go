package models

import "time"

// Callback log kinds.
const (
	CallbackKindSTK       = "stk_callback"
	CallbackKindRejected  = "rejected"
	CallbackKindDuplicate = "duplicate"
)

// CallbackLog is the append-only audit trail of every payload the provider
// ever delivered, written before any validation runs so no callback is lost
// even when parsing fails. Payload is text rather than jsonb on purpose:
// malformed bodies must still be storable verbatim.
type CallbackLog struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind              string    `gorm:"type:varchar(32);not null" json:"kind"`
	CheckoutRequestID string    `gorm:"index" json:"checkout_request_id"`
	ResultCode        *int      `json:"result_code,omitempty"`
	Payload           string    `gorm:"type:text;not null" json:"payload"`
	Note              string    `json:"note,omitempty"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CallbackLog) TableName() string {
	return "callback_logs"
}
