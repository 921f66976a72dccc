package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/alexbotov/casino-engine/internal/domain"
	"github.com/alexbotov/casino-engine/pkg/seamless"
)

// operator is a fake seamless wallet that keeps balances in a Memory wallet
func operator(t *testing.T, m *Memory) *httptest.Server {
	t.Helper()

	respond := func(w http.ResponseWriter, bal domain.Money, err error) {
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			code := seamless.ErrUnexpectedError
			if errors.Is(err, ErrInsufficientFunds) {
				code = seamless.ErrInsufficientBalance
			}
			json.NewEncoder(w).Encode(seamless.Response[seamless.TransactionResult]{
				Error: &seamless.APIError{Code: code, Message: err.Error()},
			})
			return
		}
		json.NewEncoder(w).Encode(seamless.Response[seamless.TransactionResult]{
			Result: &seamless.TransactionResult{
				Balance:  bal.Decimal().Shift(-2).StringFixed(2),
				Currency: bal.Currency,
			},
		})
	}

	minor := func(amount, currency string) domain.Money {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			t.Errorf("Invalid amount %q: %v", amount, err)
		}
		return domain.MoneyFromDecimal(d.Shift(2), currency)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/withdraw", func(w http.ResponseWriter, r *http.Request) {
		var req seamless.WithdrawRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.TransactionID == "" {
			t.Error("Expected a transaction id")
		}
		bal, err := m.PlaceBet(r.Context(), req.PlayerID, minor(req.Amount, req.Currency), req.GameID, domain.GameCategory(req.Category))
		respond(w, bal, err)
	})
	mux.HandleFunc("/deposit", func(w http.ResponseWriter, r *http.Request) {
		var req seamless.DepositRequest
		json.NewDecoder(r.Body).Decode(&req)
		bal, err := m.RecordWin(r.Context(), req.PlayerID, minor(req.Amount, req.Currency), req.GameID, domain.GameCategory(req.Category))
		respond(w, bal, err)
	})
	mux.HandleFunc("/balance", func(w http.ResponseWriter, r *http.Request) {
		var req seamless.BalanceRequest
		json.NewDecoder(r.Body).Decode(&req)
		bal, _ := m.GetBalance(r.Context(), req.PlayerID, req.Currency)
		json.NewEncoder(w).Encode(seamless.Response[seamless.BalanceResult]{
			Result: &seamless.BalanceResult{Balance: bal.Decimal().Shift(-2).StringFixed(2), Currency: req.Currency},
		})
	})
	return httptest.NewServer(mux)
}

func setupTestSeamless(t *testing.T) (*Seamless, *Memory, func()) {
	t.Helper()

	m := NewMemory()
	server := operator(t, m)
	client := seamless.NewClient(&seamless.ClientConfig{
		BaseURL:   server.URL,
		APIKey:    "key",
		APISecret: "secret",
	})
	return NewSeamless(client), m, server.Close
}

func TestSeamless(t *testing.T) {
	s, m, cleanup := setupTestSeamless(t)
	defer cleanup()

	runWalletTests(t, s, func(player string, amount domain.Money) {
		if _, err := m.Deposit(context.Background(), player, amount); err != nil {
			t.Fatalf("Deposit failed: %v", err)
		}
	})

	t.Run("MajorUnits", func(t *testing.T) {
		ctx := context.Background()
		m.Deposit(ctx, "units", domain.Cents(12345, "USD"))

		bal, err := s.PlaceBet(ctx, "units", domain.Cents(5, "USD"), "g", domain.CategorySlots)
		if err != nil {
			t.Fatalf("PlaceBet failed: %v", err)
		}
		if bal.Amount != 12340 {
			t.Errorf("Expected balance 12340, got %d", bal.Amount)
		}

		txs := m.Transactions("units")
		if got := txs[len(txs)-1].Amount.Amount; got != 5 {
			t.Errorf("Expected operator to receive 5 minor units, got %d", got)
		}
	})
}

func TestSeamlessErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(seamless.Response[seamless.TransactionResult]{
			Error: &seamless.APIError{Code: seamless.ErrPlayerNotFound, Message: "unknown player"},
		})
	}))
	defer server.Close()

	s := NewSeamless(seamless.NewClient(&seamless.ClientConfig{BaseURL: server.URL}))
	_, err := s.RecordWin(context.Background(), "p", domain.Cents(10, "USD"), "g", domain.CategorySlots)
	if err == nil {
		t.Fatal("Expected error")
	}
	if errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Expected an unmapped operator error, got %v", err)
	}
	var apiErr *seamless.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != seamless.ErrPlayerNotFound {
		t.Errorf("Expected wrapped PLAYER_NOT_FOUND, got %v", err)
	}
}
