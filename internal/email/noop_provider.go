package email

import "github.com/b3nzuk3/gameCity-sub001/internal/logger"

// NoopProvider is used when mail is disabled in config. It logs what would
// have been sent so developers can see the flow locally.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

func (p *NoopProvider) Send(to, subject, _ string) error {
	logger.Debug("email disabled, skipping send", "to", to, "subject", subject)
	return nil
}

func (p *NoopProvider) SendOrderReceipt(to string, data ReceiptData) error {
	logger.Debug("email disabled, skipping receipt", "to", to, "order_id", data.OrderID)
	return nil
}
