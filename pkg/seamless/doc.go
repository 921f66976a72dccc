// Package seamless provides a client for an operator-hosted seamless wallet.
//
// In seamless mode the operator keeps player balances and the game engine
// debits bets and credits wins through this API. Each call carries an
// engine-generated transaction id so the operator can deduplicate retries.
//
// # Authentication
//
// All API requests are authenticated using:
//   - API Key: Sent in the x-api-key header
//   - HMAC Signature: SHA256 hash of the request body, sent in x-api-hmac header
//
// # Basic Usage
//
//	client := seamless.NewClient(&seamless.ClientConfig{
//	    BaseURL:   "https://wallet.operator.example",
//	    APIKey:    "your-api-key",
//	    APISecret: "your-api-secret",
//	})
//
//	result, err := client.Withdraw(ctx, &seamless.WithdrawRequest{
//	    PlayerID:      playerID,
//	    TransactionID: txID,
//	    Amount:        "10.00",
//	    Currency:      "USD",
//	})
//
// # Error Handling
//
// API errors are returned as *APIError with a Code field indicating the error type:
//
//	var apiErr *seamless.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == seamless.ErrInsufficientBalance {
//	    // Handle insufficient funds
//	}
package seamless
