package domain

// Decision is the verdict of a win-condition check.
type Decision struct {
	Decided bool
	Result  string // winner user id or ResultDraw
	Reason  WinReason
}

// SeatOutcome converts a Resolve outcome for (seat0, seat1) into a RoundOutcome.
func SeatOutcome(o Outcome) RoundOutcome {
	switch o {
	case OutcomeA:
		return RoundWonBySeat0
	case OutcomeB:
		return RoundWonBySeat1
	default:
		return RoundDraw
	}
}

// BaseDeltas computes the unmodified per-seat deltas for a round.
func BaseDeltas(o RoundOutcome, rules Rules) [2]Deltas {
	var d [2]Deltas
	for seat := range d {
		d[seat].Coins = rules.CoinsPerRound
	}

	if o == RoundDraw {
		d[0].Chaos = rules.DrawChaos
		d[1].Chaos = rules.DrawChaos
		return d
	}

	winner := 0
	if o == RoundWonBySeat1 {
		winner = 1
	}
	loser := 1 - winner
	d[winner].Chaos = rules.WinnerChaos
	d[winner].Wins = 1
	d[loser].Chaos = rules.LoserChaos
	d[loser].Health = -rules.Damage
	return d
}

// CheckWinCondition evaluates the seats in fixed priority order:
// wins, then chaos, then health. Simultaneous crossings are draws.
func CheckWinCondition(s *MatchState, rules Rules) Decision {
	p0, p1 := s.PlayerAt(0), s.PlayerAt(1)

	if d, ok := pick(p0, p1, WinByWins, func(p *Player) bool { return p.Wins >= rules.WinsToWin }); ok {
		return d
	}
	if d, ok := pick(p0, p1, WinByChaos, func(p *Player) bool { return p.Chaos >= rules.ChaosToWin }); ok {
		return d
	}

	// Health is inverted: the player still standing wins.
	dead0, dead1 := p0.Health <= 0, p1.Health <= 0
	switch {
	case dead0 && dead1:
		return Decision{Decided: true, Result: ResultDraw, Reason: WinByHealth}
	case dead0:
		return Decision{Decided: true, Result: p1.UserID, Reason: WinByHealth}
	case dead1:
		return Decision{Decided: true, Result: p0.UserID, Reason: WinByHealth}
	}
	return Decision{}
}

func pick(p0, p1 *Player, reason WinReason, reached func(*Player) bool) (Decision, bool) {
	r0, r1 := reached(p0), reached(p1)
	switch {
	case r0 && r1:
		return Decision{Decided: true, Result: ResultDraw, Reason: reason}, true
	case r0:
		return Decision{Decided: true, Result: p0.UserID, Reason: reason}, true
	case r1:
		return Decision{Decided: true, Result: p1.UserID, Reason: reason}, true
	}
	return Decision{}, false
}
