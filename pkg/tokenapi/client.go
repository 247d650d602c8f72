// Package tokenapi is a client for the hosted token service, which fronts
// faucet drips and fiat-to-token purchases that cannot be signed client-side.
package tokenapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agroledger/agroledger/pkg/models"
)

// Client calls the token service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a token service client. baseURL has no trailing slash.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type txResponse struct {
	TransactionHash string `json:"transactionHash"`
}

type faucetRequest struct {
	ToAddress string `json:"toAddress"`
}

type buyRequest struct {
	ToAddress string `json:"toAddress"`
	Amount    string `json:"amount"`
}

// RequestFaucet asks the token service to drip test tokens to the wallet.
func (c *Client) RequestFaucet(ctx context.Context, to models.WalletAddress) (models.TxHandle, error) {
	return c.post(ctx, "/token/faucet", faucetRequest{ToAddress: to.String()})
}

// BuyTokens asks the token service to mint purchased tokens to the wallet.
func (c *Client) BuyTokens(ctx context.Context, to models.WalletAddress, amount models.Amount) (models.TxHandle, error) {
	if !amount.IsPositive() {
		return models.TxHandle{}, fmt.Errorf("buy amount must be positive")
	}
	return c.post(ctx, "/token/buy", buyRequest{ToAddress: to.String(), Amount: amount.String()})
}

func (c *Client) post(ctx context.Context, path string, payload any) (models.TxHandle, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return models.TxHandle{}, fmt.Errorf("failed to marshal token service request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return models.TxHandle{}, fmt.Errorf("failed to build token service request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.TxHandle{}, fmt.Errorf("token service request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.TxHandle{}, fmt.Errorf("failed to read token service response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.TxHandle{}, fmt.Errorf("token service returned malformed response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return models.TxHandle{}, fmt.Errorf("token service error: %s", msg)
	}

	var tx txResponse
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		return models.TxHandle{}, fmt.Errorf("failed to decode token service transaction: %w", err)
	}
	if tx.TransactionHash == "" {
		return models.TxHandle{}, fmt.Errorf("token service response missing transaction hash")
	}
	return models.TxHandle{Hash: tx.TransactionHash}, nil
}
