package seamless

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testAPIKey    = "test-api-key"
	testAPISecret = "test-api-secret"
)

// mockServer creates a test server that validates the signature and returns the given response
func mockServer(t *testing.T, expectedPath string, validateBody func(body []byte) error, response interface{}) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path != expectedPath {
			t.Errorf("Expected path %s, got %s", expectedPath, r.URL.Path)
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
		}
		if apiKey := r.Header.Get("x-api-key"); apiKey != testAPIKey {
			t.Errorf("Expected API key %s, got %s", testAPIKey, apiKey)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Failed to read body: %v", err)
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		expectedHMAC := Sign(testAPISecret, body)
		if actual := r.Header.Get("x-api-hmac"); actual != expectedHMAC {
			t.Errorf("HMAC mismatch: expected %s, got %s", expectedHMAC, actual)
		}

		if validateBody != nil {
			if err := validateBody(body); err != nil {
				t.Errorf("Body validation failed: %v", err)
				http.Error(w, "Bad request", http.StatusBadRequest)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
}

func setupTestClient(baseURL string) *Client {
	return NewClient(&ClientConfig{
		BaseURL:   baseURL,
		APIKey:    testAPIKey,
		APISecret: testAPISecret,
		Timeout:   5 * time.Second,
	})
}

func TestSign(t *testing.T) {
	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	got := Sign("key", []byte("The quick brown fox jumps over the lazy dog"))
	want := "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestBalance(t *testing.T) {
	server := mockServer(t, "/balance", func(body []byte) error {
		var req BalanceRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return err
		}
		if req.PlayerID != "player-1" || req.Currency != "USD" {
			return errors.New("unexpected balance request")
		}
		return nil
	}, Response[BalanceResult]{Result: &BalanceResult{Balance: "125.50", Currency: "USD"}})
	defer server.Close()

	result, err := setupTestClient(server.URL).Balance(context.Background(), "player-1", "USD")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if result.Balance != "125.50" {
		t.Errorf("Expected balance 125.50, got %s", result.Balance)
	}
}

func TestWithdraw(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := mockServer(t, "/withdraw", func(body []byte) error {
			var req WithdrawRequest
			if err := json.Unmarshal(body, &req); err != nil {
				return err
			}
			if req.TransactionID != "tx-1" || req.Amount != "10.00" || req.GameID != "fortune-fives" {
				return errors.New("unexpected withdraw request")
			}
			return nil
		}, Response[TransactionResult]{Result: &TransactionResult{TransactionID: "tx-1", Balance: "90.00", Currency: "USD"}})
		defer server.Close()

		result, err := setupTestClient(server.URL).Withdraw(context.Background(), &WithdrawRequest{
			PlayerID:      "player-1",
			TransactionID: "tx-1",
			GameID:        "fortune-fives",
			Category:      "slots",
			Amount:        "10.00",
			Currency:      "USD",
		})
		if err != nil {
			t.Fatalf("Withdraw failed: %v", err)
		}
		if result.Balance != "90.00" {
			t.Errorf("Expected balance 90.00, got %s", result.Balance)
		}
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		server := mockServer(t, "/withdraw", nil, Response[TransactionResult]{
			Error: &APIError{Code: ErrInsufficientBalance, Message: "not enough"},
		})
		defer server.Close()

		_, err := setupTestClient(server.URL).Withdraw(context.Background(), &WithdrawRequest{
			PlayerID:      "player-1",
			TransactionID: "tx-2",
			Amount:        "1000.00",
			Currency:      "USD",
		})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("Expected *APIError, got %v", err)
		}
		if apiErr.Code != ErrInsufficientBalance {
			t.Errorf("Expected code %s, got %s", ErrInsufficientBalance, apiErr.Code)
		}
	})
}

func TestDeposit(t *testing.T) {
	server := mockServer(t, "/deposit", nil, Response[TransactionResult]{
		Result: &TransactionResult{TransactionID: "tx-3", Balance: "150.00", Currency: "USD"},
	})
	defer server.Close()

	result, err := setupTestClient(server.URL).Deposit(context.Background(), &DepositRequest{
		PlayerID:      "player-1",
		TransactionID: "tx-3",
		Amount:        "50.00",
		Currency:      "USD",
	})
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if result.TransactionID != "tx-3" {
		t.Errorf("Expected transaction tx-3, got %s", result.TransactionID)
	}
}

func TestCancel(t *testing.T) {
	server := mockServer(t, "/cancel", nil, Response[CancelResult]{
		Result: &CancelResult{TransactionID: "tx-4", Balance: "100.00"},
	})
	defer server.Close()

	result, err := setupTestClient(server.URL).Cancel(context.Background(), "player-1", "tx-4")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if result.Balance != "100.00" {
		t.Errorf("Expected balance 100.00, got %s", result.Balance)
	}
}

func TestEmptyResponse(t *testing.T) {
	server := mockServer(t, "/balance", nil, map[string]interface{}{})
	defer server.Close()

	if _, err := setupTestClient(server.URL).Balance(context.Background(), "player-1", "USD"); err == nil {
		t.Error("Expected error for empty response")
	}
}

func TestRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			// Drop the first connection without a response
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("Expected hijackable response writer")
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		body, _ := io.ReadAll(r.Body)
		if r.Header.Get("x-api-hmac") != Sign(testAPISecret, body) {
			t.Error("Expected retried request to carry a valid signature")
		}
		json.NewEncoder(w).Encode(Response[BalanceResult]{Result: &BalanceResult{Balance: "1.00", Currency: "USD"}})
	}))
	defer server.Close()

	client := NewClient(&ClientConfig{
		BaseURL:    server.URL,
		APIKey:     testAPIKey,
		APISecret:  testAPISecret,
		RetryCount: 3,
	})

	result, err := client.Balance(context.Background(), "player-1", "USD")
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if result.Balance != "1.00" {
		t.Errorf("Expected balance 1.00, got %s", result.Balance)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("Expected 2 calls, got %d", n)
	}
}

func TestUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(&ClientConfig{BaseURL: url, APIKey: testAPIKey, APISecret: testAPISecret, RetryCount: 2})
	if _, err := client.Balance(context.Background(), "player-1", "USD"); err == nil {
		t.Error("Expected error for unreachable server")
	}
}
