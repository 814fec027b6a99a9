package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// MpesaClient calls the Safaricom Daraja API to initiate STK push payments.
// Callback delivery is the gateway's job; this client only starts the
// transaction and models the payloads the webhook handler receives.
type MpesaClient struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortCode      string
	passkey        string
	callbackURL    string
	httpClient     *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewMpesaClient creates a new Daraja API client
func NewMpesaClient(baseURL, consumerKey, consumerSecret, shortCode, passkey, callbackURL string) *MpesaClient {
	return &MpesaClient{
		baseURL:        baseURL,
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		shortCode:      shortCode,
		passkey:        passkey,
		callbackURL:    callbackURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// STKPushResponse is returned by the payment initiation endpoint
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorMessage        string `json:"errorMessage,omitempty"`
}

// STKCallback is the payload Daraja posts to the callback URL when the
// customer completes or abandons the prompt
type STKCallback struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []STKCallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// STKCallbackItem is one key/value pair in the callback metadata
type STKCallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// Receipt extracts the M-Pesa receipt number from the callback metadata,
// empty if absent (failed or cancelled transactions carry no receipt).
func (c *STKCallback) Receipt() string {
	for _, item := range c.Body.StkCallback.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			if s, ok := item.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

// InitiateSTKPush prompts the subscriber's phone to authorize the payment.
// Returns the checkout request ID used to correlate the later callback.
func (c *MpesaClient) InitiateSTKPush(ctx context.Context, phone string, amount float64, reference string) (*STKPushResponse, error) {
	token, err := c.accessTokenValue(ctx)
	if err != nil {
		return nil, fmt.Errorf("get access token: %w", err)
	}

	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(c.shortCode + c.passkey + timestamp))

	payload := map[string]interface{}{
		"BusinessShortCode": c.shortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            int(amount),
		"PartyA":            phone,
		"PartyB":            c.shortCode,
		"PhoneNumber":       phone,
		"CallBackURL":       c.callbackURL,
		"AccountReference":  reference,
		"TransactionDesc":   "Internet plan purchase",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result STKPushResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w (body: %s)", err, string(respBody))
	}

	if resp.StatusCode != http.StatusOK || result.ResponseCode != "0" {
		errMsg := result.ErrorMessage
		if errMsg == "" {
			errMsg = result.ResponseDescription
		}
		return nil, fmt.Errorf("daraja returned status %d: %s", resp.StatusCode, errMsg)
	}

	log.Infof("[MpesaClient] STK push initiated: checkout=%s", result.CheckoutRequestID)
	return &result, nil
}

// accessTokenValue returns a cached OAuth token, refreshing when expired.
func (c *MpesaClient) accessTokenValue(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("daraja auth returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode response: %w (body: %s)", err, string(respBody))
	}

	c.accessToken = result.AccessToken
	// Daraja tokens last an hour; refresh a minute early
	c.tokenExpiry = time.Now().Add(59 * time.Minute)
	return c.accessToken, nil
}
