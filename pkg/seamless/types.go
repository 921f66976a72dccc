package seamless

import "time"

// Error codes returned by the wallet API
const (
	ErrUnexpectedError          = "UNEXPECTED_ERROR"
	ErrNotAuthorized            = "NOT_AUTHORIZED"
	ErrPlayerNotFound           = "PLAYER_NOT_FOUND"
	ErrInsufficientBalance      = "INSUFFICIENT_BALANCE"
	ErrInvalidAmount            = "INVALID_AMOUNT"
	ErrTransactionNotFound      = "TRANSACTION_NOT_FOUND"
	ErrTransactionAlreadyExists = "TRANSACTION_ALREADY_EXISTS"
	ErrBetLimitReached          = "BET_LIMIT_REACHED"
	ErrLossLimitReached         = "LOSS_LIMIT_REACHED"
)

// ClientConfig holds the connection settings of the wallet API
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	// RetryCount is the number of attempts for transport failures
	RetryCount int
}

// APIError represents an error response from the API
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// Response wraps the API response with either result or error
type Response[T any] struct {
	Result *T        `json:"result,omitempty"`
	Error  *APIError `json:"error,omitempty"`
}

// BalanceRequest is the request body for /balance
type BalanceRequest struct {
	PlayerID string `json:"playerId"`
	Currency string `json:"currency"`
}

// BalanceResult is the result of a balance query
type BalanceResult struct {
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

// WithdrawRequest is the request body for /withdraw. Amounts are decimal
// strings in major units.
type WithdrawRequest struct {
	PlayerID      string `json:"playerId"`
	TransactionID string `json:"transactionId"`
	GameID        string `json:"gameId"`
	Category      string `json:"category"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

// DepositRequest is the request body for /deposit
type DepositRequest struct {
	PlayerID      string `json:"playerId"`
	TransactionID string `json:"transactionId"`
	GameID        string `json:"gameId"`
	Category      string `json:"category"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

// TransactionResult is the result of a withdraw or deposit
type TransactionResult struct {
	TransactionID string `json:"transactionId"`
	Balance       string `json:"balance"`
	Currency      string `json:"currency"`
}

// CancelRequest is the request body for /cancel
type CancelRequest struct {
	PlayerID      string `json:"playerId"`
	TransactionID string `json:"transactionId"`
}

// CancelResult is the result of a cancel operation
type CancelResult struct {
	TransactionID string `json:"transactionId"`
	Balance       string `json:"balance"`
}
