package email

// Provider sends transactional mail. Failures never affect payment or order
// state; callers log and move on.
type Provider interface {
	// Send delivers a single HTML message.
	Send(to, subject, htmlBody string) error

	// SendOrderReceipt delivers the payment receipt for a paid order.
	SendOrderReceipt(to string, data ReceiptData) error
}

// ReceiptData fills the order receipt template.
type ReceiptData struct {
	OrderID      string
	CustomerName string
	Total        string // already formatted, e.g. "KES 4,500.00"
	Receipt      string // M-Pesa receipt number
}
