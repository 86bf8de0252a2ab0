package domain

// Phase represents the lifecycle stage of a duel.
type Phase string

const (
	// PhaseMoveCollection waits for both players to submit a move.
	PhaseMoveCollection Phase = "move_collection"
	// PhaseResolution is entered for the instant both moves are present.
	PhaseResolution Phase = "resolution"
	// PhasePurchaseWindow lets players buy upgrades between rounds.
	PhasePurchaseWindow Phase = "purchase_window"
	// PhaseMatchOver is terminal.
	PhaseMatchOver Phase = "match_over"
)

// RoundOutcome is recorded from the seat perspective: "0", "1" or "draw".
type RoundOutcome string

const (
	RoundWonBySeat0 RoundOutcome = "0"
	RoundWonBySeat1 RoundOutcome = "1"
	RoundDraw       RoundOutcome = "draw"
)

// ResultDraw is the match result when nobody wins.
const ResultDraw = "draw"

// WinReason records which win condition decided the match.
type WinReason string

const (
	WinByWins   WinReason = "wins"
	WinByChaos  WinReason = "chaos"
	WinByHealth WinReason = "health"
)

// Player holds the duel state for one participant.
type Player struct {
	UserID      string `json:"user_id"`
	Seat        int    `json:"seat"` // 0 or 1
	Health      int    `json:"health"`
	Chaos       int    `json:"chaos"`
	Coins       int    `json:"coins"`
	Wins        int    `json:"wins"`
	CurrentMove Move   `json:"current_move,omitempty"`
}

// Deltas is the change applied to one player during a round.
type Deltas struct {
	Health int `json:"health"`
	Chaos  int `json:"chaos"`
	Coins  int `json:"coins"`
	Wins   int `json:"wins"`
}

// RoundRecord is an immutable entry of the round history.
type RoundRecord struct {
	Index         int          `json:"index"`
	MoveOfPlayer0 Move         `json:"move_of_player0"`
	MoveOfPlayer1 Move         `json:"move_of_player1"`
	Outcome       RoundOutcome `json:"outcome"`
	Deltas        [2]Deltas    `json:"deltas"`
	Applied       [2][]string  `json:"applied_modifiers"`
}

// MoveOf returns the move the given seat played in this round.
func (r RoundRecord) MoveOf(seat int) Move {
	if seat == 0 {
		return r.MoveOfPlayer0
	}
	return r.MoveOfPlayer1
}

// MatchState captures the authoritative state of a single duel.
type MatchState struct {
	Phase        Phase              `json:"phase"`
	Seats        [2]string          `json:"seats"`
	Players      map[string]*Player `json:"players"`
	RoundCount   int                `json:"round_count"`
	RoundHistory []RoundRecord      `json:"round_history"`
	PendingMoves map[string]Move    `json:"-"`
	Ready        map[string]bool    `json:"-"`
	Terminal     bool               `json:"terminal"`
	Result       string             `json:"result,omitempty"` // winner user id or "draw"
	WinReason    WinReason          `json:"win_reason,omitempty"`
}

// Rules holds the tunable numbers of a duel.
type Rules struct {
	StartingHealth int
	StartingChaos  int
	StartingCoins  int
	Damage         int
	WinnerChaos    int
	LoserChaos     int
	DrawChaos      int
	CoinsPerRound  int
	WinsToWin      int
	ChaosToWin     int
	OfferCount     int
}

// DefaultRules returns the canonical duel rules.
func DefaultRules() Rules {
	return Rules{
		StartingHealth: 20,
		StartingChaos:  0,
		StartingCoins:  50,
		Damage:         7,
		WinnerChaos:    2,
		LoserChaos:     3,
		DrawChaos:      1,
		CoinsPerRound:  15,
		WinsToWin:      3,
		ChaosToWin:     10,
		OfferCount:     3,
	}
}
