package seamless

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

// Client is a seamless wallet API client
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new wallet API client
func NewClient(config *ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// NewClientWithHTTPClient creates a new wallet API client with a custom HTTP client
func NewClientWithHTTPClient(config *ClientConfig, httpClient *http.Client) *Client {
	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// Sign computes the HMAC-SHA256 signature of a request body
func Sign(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// doRequest performs a signed POST and decodes the response envelope into result
func (c *Client) doRequest(ctx context.Context, endpoint string, reqBody interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	signature := Sign(c.config.APISecret, bodyBytes)
	url := c.config.BaseURL + endpoint

	retryCount := c.config.RetryCount
	if retryCount <= 0 {
		retryCount = 1
	}

	var resp *http.Response
	var lastErr error
	for i := 0; i < retryCount; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.config.APIKey)
		req.Header.Set("x-api-hmac", signature)

		resp, err = c.httpClient.Do(req)
		if err == nil {
			break
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	if resp == nil {
		return fmt.Errorf("request failed after %d attempts: %w", retryCount, lastErr)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}

	return nil
}

func call[T any](ctx context.Context, c *Client, endpoint string, req interface{}) (*T, error) {
	var resp Response[T]
	if err := c.doRequest(ctx, endpoint, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("empty response from %s", endpoint)
	}
	return resp.Result, nil
}

// Balance retrieves the player's current balance
func (c *Client) Balance(ctx context.Context, playerID, currency string) (*BalanceResult, error) {
	return call[BalanceResult](ctx, c, "/balance", &BalanceRequest{
		PlayerID: playerID,
		Currency: currency,
	})
}

// Withdraw deducts money from the player's balance (for placing bets)
func (c *Client) Withdraw(ctx context.Context, req *WithdrawRequest) (*TransactionResult, error) {
	return call[TransactionResult](ctx, c, "/withdraw", req)
}

// Deposit adds money to the player's balance (for wins)
func (c *Client) Deposit(ctx context.Context, req *DepositRequest) (*TransactionResult, error) {
	return call[TransactionResult](ctx, c, "/deposit", req)
}

// Cancel reverses a withdraw whose outcome is unknown
func (c *Client) Cancel(ctx context.Context, playerID, transactionID string) (*CancelResult, error) {
	return call[CancelResult](ctx, c, "/cancel", &CancelRequest{
		PlayerID:      playerID,
		TransactionID: transactionID,
	})
}
