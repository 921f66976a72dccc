package slots

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alexbotov/casino-engine/internal/domain"
	"github.com/alexbotov/casino-engine/internal/paytable"
	"github.com/alexbotov/casino-engine/internal/rng"
)

// SimulationReport aggregates the outcome of many simulated spins
type SimulationReport struct {
	GameID        string  `json:"game_id"`
	Rounds        int64   `json:"rounds"`
	TotalBet      int64   `json:"total_bet"`
	TotalWin      int64   `json:"total_win"`
	WinningRounds int64   `json:"winning_rounds"`
	BonusTriggers int64   `json:"bonus_triggers"`
	JackpotHits   int64   `json:"jackpot_hits"`
	CascadeSteps  int64   `json:"cascade_steps"`
	FreeRounds    int64   `json:"free_rounds"`
	RTP           float64 `json:"rtp"`
	HitRate       float64 `json:"hit_rate"`
}

// Simulate plays rounds paid spins of bet on every payline and reports the
// realized RTP. Awarded free spins are played out and their wins counted
// against the paid bet. Progressive jackpots are valued at their seed.
func Simulate(p *paytable.Paytable, r *rng.Service, bet domain.Money, rounds int64) (*SimulationReport, error) {
	if rounds <= 0 {
		return nil, fmt.Errorf("%w: rounds must be positive", domain.ErrInvalidBet)
	}
	if err := p.CheckBet(bet); err != nil {
		return nil, err
	}

	res := NewResolver(r)
	rep := &SimulationReport{GameID: p.ID}
	free := 0

	for rep.Rounds < rounds || free > 0 {
		paid := free == 0
		if paid {
			rep.Rounds++
			rep.TotalBet += bet.Amount
		} else {
			free--
			rep.FreeRounds++
		}

		out, err := res.Resolve(p, bet, p.Paylines)
		if err != nil {
			return nil, err
		}

		win := out.LineWin.Amount
		if out.Bonus != nil {
			rep.BonusTriggers++
			win += bet.Amount * out.Bonus.Multiplier
			free += out.Bonus.FreeSpins
		}
		if out.Jackpot != nil {
			rep.JackpotHits++
			win += out.Jackpot.SeedAmount
		}
		for _, step := range out.Cascades {
			win += step.Win.Amount
		}
		rep.CascadeSteps += int64(len(out.Cascades))

		rep.TotalWin += win
		if win > 0 {
			rep.WinningRounds++
		}
	}

	if rep.TotalBet > 0 {
		rep.RTP, _ = decimal.NewFromInt(rep.TotalWin).Div(decimal.NewFromInt(rep.TotalBet)).Float64()
	}
	rep.HitRate = float64(rep.WinningRounds) / float64(rep.Rounds+rep.FreeRounds)
	return rep, nil
}
