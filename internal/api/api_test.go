package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alexbotov/casino-engine/internal/audit"
	"github.com/alexbotov/casino-engine/internal/auth"
	"github.com/alexbotov/casino-engine/internal/blackjack"
	"github.com/alexbotov/casino-engine/internal/cards"
	"github.com/alexbotov/casino-engine/internal/config"
	"github.com/alexbotov/casino-engine/internal/control"
	"github.com/alexbotov/casino-engine/internal/domain"
	"github.com/alexbotov/casino-engine/internal/game"
	"github.com/alexbotov/casino-engine/internal/jackpot"
	"github.com/alexbotov/casino-engine/internal/limits"
	"github.com/alexbotov/casino-engine/internal/rng"
	"github.com/alexbotov/casino-engine/internal/session"
	"github.com/alexbotov/casino-engine/internal/wallet"
)

const testOperatorKey = "test-operator-key"

type testServer struct {
	router http.Handler
	auth   *auth.Service
	wallet *wallet.Memory
	token  string
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

// naturalShoe deals the player A-K against a dealer 9-7
func naturalShoe() []cards.Card {
	return []cards.Card{
		cards.New(cards.Ace, cards.Spades),
		cards.New(cards.Nine, cards.Hearts),
		cards.New(cards.King, cards.Spades),
		cards.New(cards.Seven, cards.Hearts),
	}
}

// setupTestServer serves the built-in catalog. Blackjack games are dealt
// from the given stacked shoe.
func setupTestServer(t *testing.T, shoe []cards.Card) *testServer {
	t.Helper()

	w := wallet.NewMemory()
	rec := audit.NewMemory()
	guard := limits.New(w, limits.Limits{}, rec)
	bjShoe := blackjack.WithShoeFactory(func(int) (*cards.Shoe, error) {
		return cards.NewShoe(shoe...), nil
	})
	engine, err := game.New(context.Background(), config.DefaultCatalog(), game.Deps{
		RNG:              rng.NewSeeded(11),
		Wallet:           guard,
		Jackpots:         jackpot.NewMemoryStore(),
		Audit:            rec,
		Sessions:         session.NewMemoryStore(),
		Logger:           zap.NewNop(),
		Control:          control.New(nil, rec),
		BlackjackOptions: []blackjack.Option{bjShoe},
	})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	authSvc := auth.New(config.AuthConfig{JWTSecret: "test-secret", Issuer: "test", TokenExpiry: time.Hour})
	h := New(authSvc, engine, rng.NewSeeded(12), zap.NewNop(),
		WithBalances(guard), WithLimits(guard), WithOperatorKey(testOperatorKey),
		WithJackpotInterval(10*time.Millisecond))

	token, err := authSvc.IssueToken("player-1")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	if _, err := w.Deposit(context.Background(), "player-1", domain.Cents(100000, "USD")); err != nil {
		t.Fatalf("Failed to fund player: %v", err)
	}

	return &testServer{router: h.SetupRouter(), auth: authSvc, wallet: w, token: token}
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) (int, envelope) {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return ts.doWith(t, method, path, header, body)
}

func (ts *testServer) doWith(t *testing.T, method, path string, header http.Header, body string) (int, envelope) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode %s %s response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func (ts *testServer) balance(t *testing.T) int64 {
	t.Helper()
	b, err := ts.wallet.GetBalance(context.Background(), "player-1", "USD")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	return b.Amount
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("Failed to decode data %s: %v", env.Data, err)
	}
}

func expectError(t *testing.T, status int, env envelope, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Errorf("Expected status %d, got %d", wantStatus, status)
	}
	if env.Success || env.Error == nil || env.Error.Code != wantCode {
		t.Errorf("Expected error %s, got %+v", wantCode, env.Error)
	}
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t, naturalShoe())

	status, env := ts.do(t, "GET", "/health", "", "")
	if status != http.StatusOK || !env.Success {
		t.Fatalf("Expected healthy response, got %d %+v", status, env.Error)
	}
	var data map[string]interface{}
	decodeData(t, env, &data)
	if data["rng_status"] == nil {
		t.Error("Expected rng_status in health response")
	}
}

func TestAuthMiddleware(t *testing.T) {
	ts := setupTestServer(t, naturalShoe())

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"NoHeader", "", "NO_TOKEN"},
		{"WrongScheme", "Token abc", "INVALID_TOKEN_FORMAT"},
		{"BadToken", "Bearer abc", "INVALID_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/games", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			ts.router.ServeHTTP(rec, req)

			var env envelope
			json.Unmarshal(rec.Body.Bytes(), &env)
			expectError(t, rec.Code, env, http.StatusUnauthorized, tt.code)
		})
	}
}

func TestGames(t *testing.T) {
	ts := setupTestServer(t, naturalShoe())

	status, env := ts.do(t, "GET", "/api/v1/games", ts.token, "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var games []domain.Game
	decodeData(t, env, &games)
	if len(games) != 7 {
		t.Errorf("Expected 7 games, got %d", len(games))
	}

	status, env = ts.do(t, "GET", "/api/v1/games/classic-sevens", ts.token, "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var g domain.Game
	decodeData(t, env, &g)
	if g.Category != domain.CategorySlots {
		t.Errorf("Expected slots, got %s", g.Category)
	}

	status, env = ts.do(t, "GET", "/api/v1/games/nope", ts.token, "")
	expectError(t, status, env, http.StatusNotFound, "GAME_NOT_FOUND")
}

func TestSessionLifecycle(t *testing.T) {
	ts := setupTestServer(t, naturalShoe())

	status, env := ts.do(t, "POST", "/api/v1/games/classic-sevens/session", ts.token, `{"currency":"usd"}`)
	if status != http.StatusCreated {
		t.Fatalf("Expected 201, got %d %+v", status, env.Error)
	}
	var s domain.GameSession
	decodeData(t, env, &s)
	if s.Currency != "USD" || s.Status != domain.GameSessionActive {
		t.Errorf("Expected active USD session, got %+v", s)
	}

	other, _ := ts.auth.IssueToken("player-2")
	status, env = ts.do(t, "DELETE", "/api/v1/sessions/"+s.ID, other, "")
	expectError(t, status, env, http.StatusNotFound, "SESSION_NOT_FOUND")

	status, env = ts.do(t, "DELETE", "/api/v1/sessions/"+s.ID, ts.token, "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d %+v", status, env.Error)
	}

	status, env = ts.do(t, "GET", "/api/v1/sessions/"+s.ID, ts.token, "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	decodeData(t, env, &s)
	if s.Status != domain.GameSessionCompleted {
		t.Errorf("Expected completed session, got %s", s.Status)
	}
}

func TestSpin(t *testing.T) {
	ts := setupTestServer(t, naturalShoe())

	t.Run("Success", func(t *testing.T) {
		status, env := ts.do(t, "POST", "/api/v1/slots/classic-sevens/spin", ts.token, `{"amount":100}`)
		if status != http.StatusOK {
			t.Fatalf("Expected 200, got %d %+v", status, env.Error)
		}
		var result struct {
			TotalWin domain.Money `json:"total_win"`
			Balance  domain.Money `json:"balance"`
		}
		decodeData(t, env, &result)
		if want := 100000 - 100 + result.TotalWin.Amount; ts.balance(t) != want {
			t.Errorf("Expected balance %d, got %d", want, ts.balance(t))
		}
		if result.Balance.Amount != ts.balance(t) {
			t.Errorf("Expected reported balance %d, got %d", ts.balance(t), result.Balance.Amount)
		}
	})

	t.Run("InvalidBet", func(t *testing.T) {
		status, env := ts.do(t, "POST", "/api/v1/slots/classic-sevens/spin", ts.token, `{"amount":1}`)
		expectError(t, status, env, http.StatusBadRequest, "INVALID_BET")
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		broke, _ := ts.auth.IssueToken("player-2")
		status, env := ts.do(t, "POST", "/api/v1/slots/classic-sevens/spin", broke, `{"amount":100}`)
		expectError(t, status, env, http.StatusPaymentRequired, "INSUFFICIENT_FUNDS")
	})

	t.Run("MalformedBody", func(t *testing.T) {
		status, env := ts.do(t, "POST", "/api/v1/slots/classic-sevens/spin", ts.token, `{"amount":`)
		expectError(t, status, env, http.StatusBadRequest, "INVALID_REQUEST")
	})
}

func TestSimulate(t *testing.T) {
	ts := setupTestServer(t, naturalShoe())

	status, env := ts.do(t, "GET", "/api/v1/slots/classic-sevens/simulate?bet=100&rounds=500", ts.token, "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d %+v", status, env.Error)
	}
	var rep struct {
		Rounds int64 `json:"rounds"`
	}
	decodeData(t, env, &rep)
	if rep.Rounds != 500 {
		t.Errorf("Expected 500 rounds, got %d", rep.Rounds)
	}
	if ts.balance(t) != 100000 {
		t.Errorf("Expected simulation to leave the balance alone, got %d", ts.balance(t))
	}

	status, env = ts.do(t, "GET", "/api/v1/slots/classic-sevens/simulate?bet=abc", ts.token, "")
	expectError(t, status, env, http.StatusBadRequest, "INVALID_REQUEST")
}

func TestBlackjackFlow(t *testing.T) {
	ts := setupTestServer(t, naturalShoe())

	status, env := ts.do(t, "POST", "/api/v1/blackjack/blackjack-classic/games", ts.token, "")
	if status != http.StatusCreated {
		t.Fatalf("Expected 201, got %d %+v", status, env.Error)
	}
	var g struct {
		ID       string          `json:"id"`
		Phase    blackjack.Phase `json:"phase"`
		TotalWin domain.Money    `json:"total_win"`
	}
	decodeData(t, env, &g)
	if g.Phase != blackjack.PhaseBetting {
		t.Fatalf("Expected betting phase, got %s", g.Phase)
	}
	base := "/api/v1/blackjack/games/" + g.ID

	status, env = ts.do(t, "POST", base+"/bet", ts.token, `{"amount":1000}`)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d %+v", status, env.Error)
	}
	decodeData(t, env, &g)
	if g.Phase != blackjack.PhaseFinished {
		t.Errorf("Expected natural to finish the round, got %s", g.Phase)
	}
	if g.TotalWin.Amount != 2500 {
		t.Errorf("Expected 3:2 payout of 2500, got %d", g.TotalWin.Amount)
	}
	if ts.balance(t) != 101500 {
		t.Errorf("Expected balance 101500, got %d", ts.balance(t))
	}

	status, env = ts.do(t, "POST", base+"/action", ts.token, `{"action":"hit"}`)
	expectError(t, status, env, http.StatusBadRequest, "ILLEGAL_ACTION")

	other, _ := ts.auth.IssueToken("player-2")
	status, env = ts.do(t, "GET", base, other, "")
	expectError(t, status, env, http.StatusNotFound, "GAME_NOT_FOUND")
}

func TestBlackjackShoeExhausted(t *testing.T) {
	ts := setupTestServer(t, naturalShoe()[:2])

	_, env := ts.do(t, "POST", "/api/v1/blackjack/blackjack-classic/games", ts.token, "")
	var g struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &g)

	status, env := ts.do(t, "POST", "/api/v1/blackjack/games/"+g.ID+"/bet", ts.token, `{"amount":1000}`)
	expectError(t, status, env, http.StatusConflict, "SHOE_EXHAUSTED")
	if ts.balance(t) != 100000 {
		t.Errorf("Expected no debit, got balance %d", ts.balance(t))
	}
}

func TestRouletteFlow(t *testing.T) {
	ts := setupTestServer(t, naturalShoe())

	_, env := ts.do(t, "POST", "/api/v1/roulette/roulette-european/games", ts.token, "")
	var g struct {
		ID     string `json:"id"`
		Phase  string `json:"phase"`
		Result *struct {
			Number int `json:"number"`
		} `json:"result"`
		Bets []json.RawMessage `json:"bets"`
	}
	decodeData(t, env, &g)
	base := "/api/v1/roulette/games/" + g.ID

	status, env := ts.do(t, "POST", base+"/spin", ts.token, "")
	expectError(t, status, env, http.StatusBadRequest, "ILLEGAL_ACTION")

	status, env = ts.do(t, "POST", base+"/bet", ts.token, `{"type":"straight","numbers":[37],"amount":100}`)
	expectError(t, status, env, http.StatusBadRequest, "INVALID_BET")

	status, env = ts.do(t, "POST", base+"/bet", ts.token, `{"type":"red","amount":100}`)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d %+v", status, env.Error)
	}
	decodeData(t, env, &g)
	if len(g.Bets) != 1 || ts.balance(t) != 99900 {
		t.Errorf("Expected one bet and balance 99900, got %d bets balance %d", len(g.Bets), ts.balance(t))
	}

	status, env = ts.do(t, "POST", base+"/spin", ts.token, "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d %+v", status, env.Error)
	}
	decodeData(t, env, &g)
	if g.Phase != "finished" || g.Result == nil {
		t.Fatalf("Expected finished game with a result, got %s", g.Phase)
	}
	if g.Result.Number < 0 || g.Result.Number > 36 {
		t.Errorf("Expected a pocket in 0-36, got %d", g.Result.Number)
	}
}

func TestBaccaratFlow(t *testing.T) {
	ts := setupTestServer(t, naturalShoe())

	_, env := ts.do(t, "POST", "/api/v1/baccarat/baccarat-punto-banco/games", ts.token, "")
	var g struct {
		ID    string          `json:"id"`
		Phase string          `json:"phase"`
		Coup  json.RawMessage `json:"coup"`
	}
	decodeData(t, env, &g)
	base := "/api/v1/baccarat/games/" + g.ID

	status, env := ts.do(t, "POST", base+"/bet", ts.token, `{"type":"banker","amount":1000}`)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d %+v", status, env.Error)
	}

	status, env = ts.do(t, "POST", base+"/deal", ts.token, "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d %+v", status, env.Error)
	}
	decodeData(t, env, &g)
	if g.Phase != "finished" || len(g.Coup) == 0 {
		t.Errorf("Expected finished coup, got phase %s", g.Phase)
	}

	status, env = ts.do(t, "POST", base+"/deal", ts.token, "")
	expectError(t, status, env, http.StatusBadRequest, "ILLEGAL_ACTION")
}

func TestWalletAndHistory(t *testing.T) {
	ts := setupTestServer(t, naturalShoe())

	status, env := ts.do(t, "GET", "/api/v1/wallet/balance", ts.token, "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var m domain.Money
	decodeData(t, env, &m)
	if m.Amount != 100000 || m.Currency != "USD" {
		t.Errorf("Expected 100000 USD, got %+v", m)
	}

	ts.do(t, "POST", "/api/v1/slots/classic-sevens/spin", ts.token, `{"amount":100}`)
	status, env = ts.do(t, "GET", "/api/v1/history?limit=5", ts.token, "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var records []domain.GameRecord
	decodeData(t, env, &records)
	if len(records) != 1 || records[0].GameID != "classic-sevens" {
		t.Errorf("Expected one classic-sevens record, got %+v", records)
	}

	status, env = ts.do(t, "GET", "/api/v1/jackpots", ts.token, "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var pools map[string]int64
	decodeData(t, env, &pools)
	if _, ok := pools["fortune-mega-usd"]; !ok {
		t.Errorf("Expected fortune-mega-usd pool, got %v", pools)
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, msgType string) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed waiting for %s: %v", msgType, err)
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to decode message: %v", err)
		}
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestJackpotSocket(t *testing.T) {
	ts := setupTestServer(t, naturalShoe())
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/jackpots"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		msg := readUntil(t, conn, "jackpots")
		var pools map[string]int64
		if err := json.Unmarshal(msg.Payload, &pools); err != nil {
			t.Fatalf("Failed to decode pools: %v", err)
		}
		if _, ok := pools["fortune-mega-usd"]; !ok {
			t.Errorf("Expected fortune-mega-usd pool, got %v", pools)
		}
	}
}

func TestSessionSocket(t *testing.T) {
	ts := setupTestServer(t, naturalShoe())
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	_, env := ts.do(t, "POST", "/api/v1/games/classic-sevens/session", ts.token, "")
	var s domain.GameSession
	decodeData(t, env, &s)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/sessions/" + s.ID
	header := http.Header{"Authorization": []string{"Bearer " + ts.token}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	readUntil(t, conn, "connected")

	if err := conn.WriteJSON(map[string]interface{}{
		"type":    "spin",
		"payload": map[string]int64{"amount": 100},
	}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	outcome := readUntil(t, conn, "outcome")
	var result struct {
		GameID string `json:"game_id"`
	}
	json.Unmarshal(outcome.Payload, &result)
	if result.GameID != "classic-sevens" {
		t.Errorf("Expected classic-sevens outcome, got %s", result.GameID)
	}

	conn.WriteJSON(map[string]string{"type": "nope"})
	errMsg := readUntil(t, conn, "error")
	if !strings.Contains(string(errMsg.Payload), "UNKNOWN_MESSAGE") {
		t.Errorf("Expected UNKNOWN_MESSAGE, got %s", errMsg.Payload)
	}
}

func TestLimits(t *testing.T) {
	ts := setupTestServer(t, naturalShoe())

	t.Run("Invalid", func(t *testing.T) {
		status, env := ts.do(t, "PUT", "/api/v1/limits", ts.token, `{"daily_wager":-1}`)
		expectError(t, status, env, http.StatusBadRequest, "INVALID_REQUEST")
	})

	t.Run("Set", func(t *testing.T) {
		status, env := ts.do(t, "PUT", "/api/v1/limits", ts.token, `{"daily_wager":200}`)
		if status != http.StatusOK {
			t.Fatalf("Expected 200, got %d %+v", status, env.Error)
		}
		var view limits.PlayerLimits
		decodeData(t, env, &view)
		if view.Current.DailyWager != 200 || view.Pending != nil {
			t.Errorf("Expected immediate wager limit 200, got %+v", view)
		}
	})

	t.Run("Enforced", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			if status, env := ts.do(t, "POST", "/api/v1/slots/classic-sevens/spin", ts.token, `{"amount":100}`); status != http.StatusOK {
				t.Fatalf("Expected spin %d accepted, got %d %+v", i, status, env.Error)
			}
		}
		before := ts.balance(t)
		status, env := ts.do(t, "POST", "/api/v1/slots/classic-sevens/spin", ts.token, `{"amount":100}`)
		expectError(t, status, env, http.StatusForbidden, "LIMIT_REACHED")
		if ts.balance(t) != before {
			t.Errorf("Expected no debit past the limit, balance %d -> %d", before, ts.balance(t))
		}
	})

	t.Run("Get", func(t *testing.T) {
		status, env := ts.do(t, "GET", "/api/v1/limits", ts.token, "")
		if status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		var view limits.PlayerLimits
		decodeData(t, env, &view)
		if view.PlayerID != "player-1" || view.Current.DailyWager != 200 {
			t.Errorf("Unexpected limits %+v", view)
		}
	})
}

func TestAdmin(t *testing.T) {
	ts := setupTestServer(t, naturalShoe())
	operator := http.Header{"X-Operator-Key": []string{testOperatorKey}}

	t.Run("RequiresKey", func(t *testing.T) {
		status, env := ts.doWith(t, "GET", "/admin/status", http.Header{"X-Operator-Key": []string{"wrong"}}, "")
		expectError(t, status, env, http.StatusUnauthorized, "NOT_AUTHORIZED")
	})

	t.Run("DisableGame", func(t *testing.T) {
		status, env := ts.doWith(t, "POST", "/admin/games/classic-sevens", operator, `{"enabled":false,"reason":"review","by":"ops"}`)
		if status != http.StatusOK {
			t.Fatalf("Expected 200, got %d %+v", status, env.Error)
		}
		var st control.Status
		decodeData(t, env, &st)
		if len(st.DisabledGames) != 1 || st.DisabledGames[0] != "classic-sevens" {
			t.Errorf("Expected classic-sevens disabled, got %v", st.DisabledGames)
		}

		status, env = ts.do(t, "POST", "/api/v1/slots/classic-sevens/spin", ts.token, `{"amount":100}`)
		expectError(t, status, env, http.StatusForbidden, "GAME_DISABLED")
		if ts.balance(t) != 100000 {
			t.Errorf("Expected no debit on a disabled game, got %d", ts.balance(t))
		}
	})

	t.Run("ReasonRequired", func(t *testing.T) {
		status, env := ts.doWith(t, "POST", "/admin/gaming", operator, `{"enabled":false}`)
		expectError(t, status, env, http.StatusBadRequest, "INVALID_REQUEST")
	})

	t.Run("SuspendAll", func(t *testing.T) {
		if status, env := ts.doWith(t, "POST", "/admin/gaming", operator, `{"enabled":false,"reason":"incident"}`); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d %+v", status, env.Error)
		}
		status, env := ts.do(t, "POST", "/api/v1/roulette/roulette-european/games", ts.token, "")
		expectError(t, status, env, http.StatusForbidden, "GAME_DISABLED")

		if status, env := ts.doWith(t, "POST", "/admin/gaming", operator, `{"enabled":true}`); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d %+v", status, env.Error)
		}
	})

	t.Run("EnableGame", func(t *testing.T) {
		if status, env := ts.doWith(t, "POST", "/admin/games/classic-sevens", operator, `{"enabled":true}`); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d %+v", status, env.Error)
		}
		if status, env := ts.do(t, "POST", "/api/v1/slots/classic-sevens/spin", ts.token, `{"amount":100}`); status != http.StatusOK {
			t.Errorf("Expected spin accepted, got %d %+v", status, env.Error)
		}
	})

	t.Run("UnknownGame", func(t *testing.T) {
		status, env := ts.doWith(t, "POST", "/admin/games/no-such-game", operator, `{"enabled":false,"reason":"x"}`)
		expectError(t, status, env, http.StatusNotFound, "GAME_NOT_FOUND")
	})
}
