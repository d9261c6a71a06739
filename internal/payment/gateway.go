package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Gateway is the external payment provider, consumed as a black box: create a
// remote charge, verify a callback signature. Authentication, checkout UI and
// capture all live on the provider's side.
type Gateway interface {
	CreateRemoteCharge(ctx context.Context, amount int64, currency, receipt string) (externalOrderID string, err error)
	VerifySignature(externalOrderID, externalPaymentID, signature string) bool
}

// RazorpayGateway talks to the Razorpay orders API.
type RazorpayGateway struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

func NewRazorpayGateway(keyID, keySecret, baseURL string) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type razorpayOrderRequest struct {
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type razorpayOrderResponse struct {
	ID string `json:"id"`
}

// CreateRemoteCharge creates a gateway order and returns its id.
func (g *RazorpayGateway) CreateRemoteCharge(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	if currency == "" {
		currency = "INR"
	}
	body, _ := json.Marshal(razorpayOrderRequest{Amount: amount, Currency: currency, Receipt: receipt})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gateway order create failed: status=%d body=%s", resp.StatusCode, string(b))
	}

	var out razorpayOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gateway response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("gateway response missing order id")
	}
	return out.ID, nil
}

// VerifySignature checks the HMAC-SHA256 over "orderID|paymentID" that the
// gateway attaches to successful checkouts.
func (g *RazorpayGateway) VerifySignature(externalOrderID, externalPaymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(externalOrderID + "|" + externalPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
