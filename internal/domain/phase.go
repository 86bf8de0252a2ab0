package domain

import "fmt"

// Trigger is an event that moves the duel between phases.
type Trigger string

const (
	TriggerBothMoved   Trigger = "both_moved"
	TriggerDecided     Trigger = "decided"
	TriggerUndecided   Trigger = "undecided"
	TriggerWindowEnded Trigger = "window_ended"
)

var transitions = map[Phase]map[Trigger]Phase{
	PhaseMoveCollection: {
		TriggerBothMoved: PhaseResolution,
	},
	PhaseResolution: {
		TriggerDecided:   PhaseMatchOver,
		TriggerUndecided: PhasePurchaseWindow,
	},
	PhasePurchaseWindow: {
		TriggerWindowEnded: PhaseMoveCollection,
	},
}

// Transition returns the phase reached from p on trigger t.
// MatchOver has no outgoing edges.
func Transition(p Phase, t Trigger) (Phase, error) {
	if p == PhaseMatchOver {
		return p, ErrMatchAlreadyOver
	}
	next, ok := transitions[p][t]
	if !ok {
		return p, fmt.Errorf("%w: %s does not accept %s", ErrPhaseViolation, p, t)
	}
	return next, nil
}
