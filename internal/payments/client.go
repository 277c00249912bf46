// Package payments talks to the external payment provider that collects
// deposits. The wallet is only credited after the provider acknowledged the
// order, so a provider failure never produces phantom funds.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultRequestTimeout = 5 * time.Second

// ErrProviderRejected reports a non-2xx answer from the provider.
var ErrProviderRejected = errors.New("payment provider rejected the request")

// Client is a thin HTTP client for the deposit provider API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient wires a provider client. An empty baseURL disables the provider:
// CreateDepositOrder then succeeds locally with a synthetic order id, which
// keeps development setups working without provider credentials.
func NewClient(baseURL string, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
}

type depositOrderRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type depositOrderResponse struct {
	OrderID string `json:"order_id"`
}

// CreateDepositOrder registers a deposit with the provider and returns the
// provider's order id, which the wallet ledger records as the entry
// reference.
func (client *Client) CreateDepositOrder(ctx context.Context, amountCents int64, currency string) (string, error) {
	if client.baseURL == "" {
		return fmt.Sprintf("local-%d", time.Now().UnixNano()), nil
	}
	payload, err := json.Marshal(depositOrderRequest{AmountCents: amountCents, Currency: currency})
	if err != nil {
		return "", fmt.Errorf("encode deposit order: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+"/v1/deposit-orders", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build deposit order request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if client.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+client.apiKey)
	}
	response, err := client.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("call payment provider: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", fmt.Errorf("%w: http %d", ErrProviderRejected, response.StatusCode)
	}
	var decoded depositOrderResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode deposit order response: %w", err)
	}
	if decoded.OrderID == "" {
		return "", fmt.Errorf("%w: empty order id", ErrProviderRejected)
	}
	return decoded.OrderID, nil
}
