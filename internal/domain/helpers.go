package domain

// LowestAvailableSeat returns the first free seat index (0-based), or -1 when both are taken.
func LowestAvailableSeat(seats *[2]string) int {
	for i := 0; i < len(seats); i++ {
		if seats[i] == "" {
			return i
		}
	}
	return -1
}

// LabelPhaseLobby is advertised while the duel waits for its second player.
const LabelPhaseLobby = "lobby"

// LabelPayload produces the values needed for match label advertisement.
type LabelPayload struct {
	Open  bool   `json:"open"`
	Game  string `json:"game"`
	Phase string `json:"phase"`
}

// ComputeLabel derives the advertised label from seat occupancy and duel state.
// s is nil until both seats are filled.
func ComputeLabel(seats [2]string, s *MatchState) LabelPayload {
	if s == nil {
		return LabelPayload{Open: LowestAvailableSeat(&seats) >= 0, Game: GameName, Phase: LabelPhaseLobby}
	}
	return LabelPayload{Open: false, Game: GameName, Phase: string(s.Phase)}
}
