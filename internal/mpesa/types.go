package mpesa

import (
	"encoding/json"
	"math"
)

// stkPushRequest is the Daraja STK push request body.
type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is the synchronous Daraja acknowledgment of an STK push.
// The payment outcome itself arrives later on the callback URL.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// CallbackEnvelope is the asynchronous confirmation Daraja POSTs to the
// callback URL after the payer approves or rejects the STK prompt.
type CallbackEnvelope struct {
	Body struct {
		STKCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

type STKCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  *struct {
		Item []MetadataItem `json:"Item"`
	} `json:"CallbackMetadata,omitempty"`
}

type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// Success reports whether the callback confirms a completed payment.
func (c *STKCallback) Success() bool {
	return c.ResultCode == 0
}

// CallbackMeta is the flattened metadata of a successful confirmation.
type CallbackMeta struct {
	// AmountCents is the confirmed amount converted to minor units.
	AmountCents   int64
	ReceiptNumber string
	PhoneNumber   string
}

// Meta extracts the named metadata items Daraja sends with successful
// confirmations. Failed confirmations carry no metadata block.
func (c *STKCallback) Meta() (CallbackMeta, bool) {
	var meta CallbackMeta
	if c.CallbackMetadata == nil {
		return meta, false
	}

	var haveAmount, haveReceipt bool
	for _, item := range c.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if v, ok := item.Value.(float64); ok {
				// Daraja reports KES with up to two decimals.
				meta.AmountCents = int64(math.Round(v * 100))
				haveAmount = true
			}
		case "MpesaReceiptNumber":
			if v, ok := item.Value.(string); ok {
				meta.ReceiptNumber = v
				haveReceipt = true
			}
		case "PhoneNumber":
			switch v := item.Value.(type) {
			case float64:
				meta.PhoneNumber = formatMSISDN(v)
			case string:
				meta.PhoneNumber = v
			}
		}
	}

	return meta, haveAmount && haveReceipt
}

func formatMSISDN(v float64) string {
	b, _ := json.Marshal(int64(v))
	return string(b)
}

// Ack is the acknowledgment shape Daraja expects back from the callback
// endpoint. Anything else makes the provider retry.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

var (
	AckAccepted = Ack{ResultCode: 0, ResultDesc: "Accepted"}
	AckInternal = Ack{ResultCode: 1, ResultDesc: "Internal server error"}
)

type oauthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}
