package email

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

// SMTPConfig carries the SMTP relay settings.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// SMTPProvider delivers mail over SMTP using gomail.
type SMTPProvider struct {
	config SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPProvider(config SMTPConfig) *SMTPProvider {
	return &SMTPProvider{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
	}
}

func (p *SMTPProvider) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.config.FromEmail, p.config.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := p.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`
<h2>Thank you for your order, {{.CustomerName}}!</h2>
<p>Your payment for order <strong>{{.OrderID}}</strong> has been received.</p>
<p>Amount: <strong>{{.Total}}</strong><br>
M-Pesa receipt: <strong>{{.Receipt}}</strong></p>
<p>We are preparing your items for dispatch.</p>
`))

func (p *SMTPProvider) SendOrderReceipt(to string, data ReceiptData) error {
	var body bytes.Buffer
	if err := receiptTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return p.Send(to, fmt.Sprintf("Your gameCity order %s is paid", data.OrderID), body.String())
}
