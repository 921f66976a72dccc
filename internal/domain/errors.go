package domain

import "errors"

// Error kinds shared across the game engines. Engines wrap these with
// fmt.Errorf("%w: ...") so callers can match with errors.Is.
var (
	ErrInvalidBet      = errors.New("invalid bet")
	ErrIllegalAction   = errors.New("illegal action")
	ErrGameNotFound    = errors.New("game not found")
	ErrGameDisabled    = errors.New("game is disabled")
	ErrSessionNotFound = errors.New("session not found")
)
