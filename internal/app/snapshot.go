package app

import (
	"slices"

	"chaosclash/internal/domain"
	"chaosclash/internal/modifier"
)

// Snapshot is a read-only copy of a match as one viewer may see it. Pending
// moves are never included; during move collection only the ids of players
// who already moved are listed. Offers carry only the viewer's own.
type Snapshot struct {
	MatchID      string                         `json:"match_id"`
	Phase        domain.Phase                   `json:"phase"`
	Seats        [2]string                      `json:"seats"`
	Players      map[string]domain.Player       `json:"players"`
	RoundCount   int                            `json:"round_count"`
	RoundHistory []domain.RoundRecord           `json:"round_history"`
	Submitted    []string                       `json:"submitted,omitempty"`
	Ready        []string                       `json:"ready,omitempty"`
	Offers       map[string][]string            `json:"offers"`
	Active       map[string][]modifier.Instance `json:"active_modifiers"`
	History      map[string][]string            `json:"purchase_history"`
	Terminal     bool                           `json:"terminal"`
	Result       string                         `json:"result,omitempty"`
	WinReason    domain.WinReason               `json:"win_reason,omitempty"`
}

// Snapshot copies the match for viewerID so callers can read it without
// holding the lock. An empty or unseated viewer sees no offers.
func (s *Service) Snapshot(m *Match, viewerID string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.State
	snap := Snapshot{
		MatchID:      m.ID,
		Phase:        st.Phase,
		Seats:        st.Seats,
		Players:      copyPlayers(st),
		RoundCount:   st.RoundCount,
		RoundHistory: make([]domain.RoundRecord, 0, len(st.RoundHistory)),
		Offers:       make(map[string][]string, len(st.Seats)),
		Active:       make(map[string][]modifier.Instance, len(st.Seats)),
		History:      make(map[string][]string, len(st.Seats)),
		Terminal:     st.Terminal,
		Result:       st.Result,
		WinReason:    st.WinReason,
	}
	for _, rec := range st.RoundHistory {
		rec.Applied = [2][]string{slices.Clone(rec.Applied[0]), slices.Clone(rec.Applied[1])}
		snap.RoundHistory = append(snap.RoundHistory, rec)
	}
	for _, userID := range st.Seats {
		if st.HasSubmitted(userID) {
			snap.Submitted = append(snap.Submitted, userID)
		}
		if st.Ready[userID] {
			snap.Ready = append(snap.Ready, userID)
		}
		if userID == viewerID {
			snap.Offers[userID] = slices.Clone(m.Modifiers.Offers[userID])
		}
		snap.Active[userID] = slices.Clone(m.Modifiers.Active[userID])
		snap.History[userID] = slices.Clone(m.Modifiers.History[userID])
	}
	return snap
}

// Player returns the player's view from the snapshot.
func (snap Snapshot) Player(userID string) (domain.Player, bool) {
	pl, ok := snap.Players[userID]
	return pl, ok
}
