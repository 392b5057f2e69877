package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const timestampLayout = "20060102150405"

// Config carries the Daraja credentials and endpoints. Values come from the
// application config; the client holds no ambient state.
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
}

// STKPushInput is what the checkout flow provides to initiate a payment.
type STKPushInput struct {
	AmountCents      int64
	PhoneNumber      string
	AccountReference string
	Description      string
}

// Client talks to the Daraja API. It is constructed once at startup and
// injected where needed; there is no package-level instance.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewClient builds a Daraja client. httpClient may be nil, in which case a
// client with a 30s timeout is used.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
	}
}

// STKPush asks Daraja to prompt the payer's phone for the given amount.
// Daraja amounts are whole shillings, so the minor-unit amount is rounded up
// to the next shilling if it is not already whole.
func (c *Client) STKPush(ctx context.Context, input STKPushInput) (*STKPushResponse, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("mpesa auth: %w", err)
	}

	now := time.Now()
	amount := input.AmountCents / 100
	if input.AmountCents%100 != 0 {
		amount++
	}

	reqBody := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(now),
		Timestamp:         now.Format(timestampLayout),
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            input.PhoneNumber,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       input.PhoneNumber,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  input.AccountReference,
		TransactionDesc:   input.Description,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mpesa stkpush request: %w", err)
	}
	defer resp.Body.Close()

	var stkResp STKPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&stkResp); err != nil {
		return nil, fmt.Errorf("mpesa stkpush decode: %w", err)
	}

	if resp.StatusCode != http.StatusOK || stkResp.ResponseCode != "0" {
		return nil, fmt.Errorf("mpesa stkpush rejected: status=%d code=%s desc=%s",
			resp.StatusCode, stkResp.ResponseCode, stkResp.ResponseDescription)
	}

	return &stkResp, nil
}

// password builds the Daraja request password:
// base64(shortcode + passkey + timestamp).
func (c *Client) password(t time.Time) string {
	plain := c.cfg.ShortCode + c.cfg.Passkey + t.Format(timestampLayout)
	return base64.StdEncoding.EncodeToString([]byte(plain))
}

// accessToken returns a cached OAuth token, refreshing it when it is within
// 30 seconds of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExp.Add(-30*time.Second)) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oauth status %d", resp.StatusCode)
	}

	var oauth oauthResponse
	if err := json.NewDecoder(resp.Body).Decode(&oauth); err != nil {
		return "", err
	}
	if oauth.AccessToken == "" {
		return "", fmt.Errorf("oauth response missing access token")
	}

	ttl, err := strconv.Atoi(oauth.ExpiresIn)
	if err != nil || ttl <= 0 {
		ttl = 3600
	}

	c.token = oauth.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(ttl) * time.Second)

	return c.token, nil
}
