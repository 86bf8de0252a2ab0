package modifier

import (
	"chaosclash/internal/domain"
)

// Fired lists, per player, the indexes into State.Active whose effect applied this round.
type Fired map[string][]int

// roundView is one player's perspective of a resolved round.
type roundView struct {
	ownerMove domain.Move
	won       bool
	lost      bool
	draw      bool
}

func (v roundView) matches(c Condition, affinity domain.Move) bool {
	switch c {
	case ConditionAlways:
		return true
	case ConditionPlayedAffinity:
		return v.ownerMove == affinity
	case ConditionWon:
		return v.won
	case ConditionLost:
		return v.lost
	case ConditionDraw:
		return v.draw
	case ConditionWonWithAffinity:
		return v.won && v.ownerMove == affinity
	case ConditionLostWithAffinity:
		return v.lost && v.ownerMove == affinity
	}
	return false
}

// ApplyEffects runs every active instance whose condition matches the round,
// adjusting deltas in place. Effects resolve in stages: damage from either
// side, then damage reduction, then the rest. Within a stage each player's
// instances run oldest first. It returns which instances fired and the
// upgrade ids that applied per seat.
func (e *Engine) ApplyEffects(st *State, seats [2]string, moves [2]domain.Move, outcome domain.RoundOutcome, deltas *[2]domain.Deltas) (Fired, [2][]string) {
	fired := make(Fired, len(seats))
	var applied [2][]string
	var views [2]roundView
	var matched [2][]Upgrade

	for seat, userID := range seats {
		views[seat] = roundView{
			ownerMove: moves[seat],
			draw:      outcome == domain.RoundDraw,
			won:       outcome == seatWin(seat),
			lost:      outcome == seatWin(1-seat),
		}
		for i, inst := range st.Active[userID] {
			u, ok := e.catalog.Get(inst.UpgradeID)
			if !ok || !views[seat].matches(u.Effect.Condition, u.MoveAffinity) {
				continue
			}
			matched[seat] = append(matched[seat], u)
			fired[userID] = append(fired[userID], i)
			applied[seat] = append(applied[seat], u.ID)
		}
	}

	for stage := stageDamage; stage <= stageOther; stage++ {
		for seat := range seats {
			for _, u := range matched[seat] {
				if effectStage(u.Effect.Kind) == stage {
					applyEffect(u.Effect, views[seat], &deltas[seat], &deltas[1-seat])
				}
			}
		}
	}
	return fired, applied
}

const (
	stageDamage = iota
	stageReduction
	stageOther
)

func effectStage(k EffectKind) int {
	switch k {
	case EffectExtraDamage, EffectThorns:
		return stageDamage
	case EffectDamageReduction:
		return stageReduction
	}
	return stageOther
}

func seatWin(seat int) domain.RoundOutcome {
	if seat == 0 {
		return domain.RoundWonBySeat0
	}
	return domain.RoundWonBySeat1
}

// applyEffect never lowers chaos or coins and never turns damage into healing.
func applyEffect(eff Effect, v roundView, own, opp *domain.Deltas) {
	m := eff.Magnitude
	switch eff.Kind {
	case EffectExtraDamage:
		if v.won {
			opp.Health -= m
		}
	case EffectDamageReduction:
		if own.Health < 0 {
			own.Health = min(0, own.Health+m)
		}
	case EffectBonusCoins:
		own.Coins += m
	case EffectBonusChaos:
		own.Chaos += m
	case EffectHeal:
		own.Health += m
	case EffectThorns:
		if v.lost {
			opp.Health -= m
		}
	}
}

// Decay ages every player's instances after a completed round. Rounds-limited
// instances lose one use and single-use instances that fired are spent;
// instances reaching zero are removed. Permanent instances are never touched.
func (e *Engine) Decay(st *State, fired Fired) {
	for userID, active := range st.Active {
		firedSet := make(map[int]bool, len(fired[userID]))
		for _, i := range fired[userID] {
			firedSet[i] = true
		}

		kept := active[:0:0]
		for i, inst := range active {
			switch inst.Duration {
			case DurationSingle:
				if firedSet[i] {
					inst.RemainingUses.N--
				}
			case DurationRounds:
				inst.RemainingUses.N--
			}
			if !inst.RemainingUses.Unlimited && inst.RemainingUses.N <= 0 {
				continue
			}
			kept = append(kept, inst)
		}
		st.Active[userID] = kept
	}
}
