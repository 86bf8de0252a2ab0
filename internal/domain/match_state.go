package domain

import "fmt"

// NewMatchState seats two players with the starting values from rules.
func NewMatchState(seats [2]string, rules Rules) (*MatchState, error) {
	if seats[0] == "" || seats[1] == "" {
		return nil, fmt.Errorf("both seats must be occupied")
	}
	if seats[0] == seats[1] {
		return nil, fmt.Errorf("a player cannot occupy both seats")
	}

	players := make(map[string]*Player, len(seats))
	for i, userID := range seats {
		players[userID] = &Player{
			UserID: userID,
			Seat:   i,
			Health: rules.StartingHealth,
			Chaos:  rules.StartingChaos,
			Coins:  rules.StartingCoins,
		}
	}

	return &MatchState{
		Phase:        PhaseMoveCollection,
		Seats:        seats,
		Players:      players,
		PendingMoves: make(map[string]Move, len(seats)),
		Ready:        make(map[string]bool, len(seats)),
	}, nil
}

// PlayerAt returns the player in the given seat.
func (s *MatchState) PlayerAt(seat int) *Player {
	return s.Players[s.Seats[seat]]
}

// Opponent returns the other seated player.
func (s *MatchState) Opponent(userID string) *Player {
	pl, ok := s.Players[userID]
	if !ok {
		return nil
	}
	return s.PlayerAt(1 - pl.Seat)
}

// HasSubmitted reports whether the player already has a pending move this round.
func (s *MatchState) HasSubmitted(userID string) bool {
	_, ok := s.PendingMoves[userID]
	return ok
}

// BothSubmitted reports whether every seat has a pending move.
func (s *MatchState) BothSubmitted() bool {
	for _, userID := range s.Seats {
		if !s.HasSubmitted(userID) {
			return false
		}
	}
	return true
}

// BothReady reports whether every seat signalled the end of the purchase window.
func (s *MatchState) BothReady() bool {
	for _, userID := range s.Seats {
		if !s.Ready[userID] {
			return false
		}
	}
	return true
}

// LastRound returns the most recently completed round.
func (s *MatchState) LastRound() (RoundRecord, bool) {
	if len(s.RoundHistory) == 0 {
		return RoundRecord{}, false
	}
	return s.RoundHistory[len(s.RoundHistory)-1], true
}
