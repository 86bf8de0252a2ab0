package modifier

import (
	"math/rand"
	"testing"

	"chaosclash/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog([]Upgrade{
		{ID: "fist", Name: "Fist", Cost: 3, MoveAffinity: domain.Rock, ChaosGrant: 1,
			Duration: Duration{Kind: DurationPermanent},
			Effect:   Effect{Kind: EffectExtraDamage, Magnitude: 2, Condition: ConditionWonWithAffinity}},
		{ID: "wall", Name: "Wall", Cost: 5, MoveAffinity: domain.Rock, ChaosGrant: 1,
			Duration: Duration{Kind: DurationRounds, Rounds: 2},
			Effect:   Effect{Kind: EffectDamageReduction, Magnitude: 10, Condition: ConditionLost}},
		{ID: "boom", Name: "Boom", Cost: 1, MoveAffinity: domain.Rock, ChaosGrant: 2,
			Duration: Duration{Kind: DurationSingle},
			Effect:   Effect{Kind: EffectExtraDamage, Magnitude: 5, Condition: ConditionWon}},
		{ID: "pebble", Name: "Pebble", Cost: 1, MoveAffinity: domain.Rock,
			Duration: Duration{Kind: DurationPermanent},
			Effect:   Effect{Kind: EffectBonusCoins, Magnitude: 1, Condition: ConditionAlways}},
		{ID: "ledger", Name: "Ledger", Cost: 2, MoveAffinity: domain.Paper,
			Duration: Duration{Kind: DurationPermanent},
			Effect:   Effect{Kind: EffectBonusCoins, Magnitude: 3, Condition: ConditionAlways}},
		{ID: "scroll", Name: "Scroll", Cost: 2, MoveAffinity: domain.Paper,
			Duration: Duration{Kind: DurationSingle},
			Effect:   Effect{Kind: EffectHeal, Magnitude: 4, Condition: ConditionPlayedAffinity}},
		{ID: "guard", Name: "Guard", Cost: 2, MoveAffinity: domain.Rock,
			Duration: Duration{Kind: DurationPermanent},
			Effect:   Effect{Kind: EffectDamageReduction, Magnitude: 1, Condition: ConditionWon}},
		{ID: "thorn", Name: "Thorn", Cost: 2, MoveAffinity: domain.Scissors,
			Duration: Duration{Kind: DurationPermanent},
			Effect:   Effect{Kind: EffectThorns, Magnitude: 2, Condition: ConditionLost}},
	})
	require.NoError(t, err)
	return c
}

var seats = [2]string{"p0", "p1"}

func TestRefreshOffersScopedPerPlayer(t *testing.T) {
	e := NewEngine(testCatalog(t), 3)
	st := NewState(seats)
	rng := rand.New(rand.NewSource(7))

	rockOffers := e.RefreshOffers(st, "p0", domain.Rock, rng)
	paperOffers := e.RefreshOffers(st, "p1", domain.Paper, rng)

	require.Len(t, rockOffers, 3)
	for _, u := range e.OfferedUpgrades(st, "p0") {
		assert.Equal(t, domain.Rock, u.MoveAffinity)
	}
	require.Len(t, paperOffers, 2, "only two paper upgrades exist")
	for _, u := range e.OfferedUpgrades(st, "p1") {
		assert.Equal(t, domain.Paper, u.MoveAffinity)
	}

	// Refreshing one player leaves the other's offers alone.
	e.RefreshOffers(st, "p0", domain.Scissors, rng)
	assert.Equal(t, []string{"thorn"}, st.Offers["p0"])
	assert.ElementsMatch(t, []string{"ledger", "scroll"}, st.Offers["p1"])
}

func TestRefreshOffersIsSeeded(t *testing.T) {
	e := NewEngine(testCatalog(t), 2)
	a := e.RefreshOffers(NewState(seats), "p0", domain.Rock, rand.New(rand.NewSource(3)))
	b := e.RefreshOffers(NewState(seats), "p0", domain.Rock, rand.New(rand.NewSource(3)))
	assert.Equal(t, a, b)
}

func TestPurchase(t *testing.T) {
	e := NewEngine(testCatalog(t), 4)
	st := NewState(seats)
	st.Offers["p0"] = []string{"fist", "wall"}
	pl := &domain.Player{UserID: "p0", Coins: 10, Chaos: 2}

	inst, err := e.Purchase(st, pl, "fist", 1)
	require.NoError(t, err)

	assert.Equal(t, 7, pl.Coins)
	assert.Equal(t, 3, pl.Chaos)
	assert.Equal(t, Instance{UpgradeID: "fist", Duration: DurationPermanent, RemainingUses: Uses{Unlimited: true}, AcquiredAtRound: 1}, inst)
	assert.Equal(t, []Instance{inst}, st.Active["p0"])
	assert.Equal(t, []string{"fist"}, st.History["p0"])
	assert.Equal(t, []string{"wall"}, st.Offers["p0"])

	_, err = e.Purchase(st, pl, "fist", 1)
	require.ErrorIs(t, err, domain.ErrUpgradeNotOffered, "a bought offer is consumed")
}

func TestPurchaseRejectionsDoNotMutate(t *testing.T) {
	tests := []struct {
		name    string
		coins   int
		upgrade string
		wantErr error
	}{
		{name: "insufficient funds", coins: 2, upgrade: "fist", wantErr: domain.ErrInsufficientFunds},
		{name: "unknown upgrade", coins: 50, upgrade: "laser", wantErr: domain.ErrUnknownUpgrade},
		{name: "not offered", coins: 50, upgrade: "ledger", wantErr: domain.ErrUpgradeNotOffered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(testCatalog(t), 3)
			st := NewState(seats)
			st.Offers["p0"] = []string{"fist"}
			pl := &domain.Player{UserID: "p0", Coins: tt.coins, Chaos: 4}

			_, err := e.Purchase(st, pl, tt.upgrade, 2)
			require.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, tt.coins, pl.Coins)
			assert.Equal(t, 4, pl.Chaos)
			assert.Empty(t, st.Active["p0"])
			assert.Empty(t, st.History["p0"])
			assert.Equal(t, []string{"fist"}, st.Offers["p0"])
		})
	}
}

func TestApplyEffects(t *testing.T) {
	e := NewEngine(testCatalog(t), 3)
	rules := domain.DefaultRules()

	t.Run("reduction absorbs extra damage in either seat", func(t *testing.T) {
		for _, attacker := range []int{0, 1} {
			defender := 1 - attacker
			st := NewState(seats)
			st.Active[seats[attacker]] = []Instance{{UpgradeID: "fist", Duration: DurationPermanent, RemainingUses: Uses{Unlimited: true}}}
			st.Active[seats[defender]] = []Instance{{UpgradeID: "wall", Duration: DurationRounds, RemainingUses: Uses{N: 2}}}

			var moves [2]domain.Move
			moves[attacker], moves[defender] = domain.Rock, domain.Scissors
			outcome := seatWin(attacker)

			deltas := domain.BaseDeltas(outcome, rules)
			fired, applied := e.ApplyEffects(st, seats, moves, outcome, &deltas)

			// 7 base + 2 extra, reduced by 10 but never below zero damage.
			assert.Equal(t, 0, deltas[defender].Health, "attacker in seat %d", attacker)
			assert.Equal(t, 15, deltas[defender].Coins)
			assert.Equal(t, Fired{"p0": {0}, "p1": {0}}, fired)
			assert.Equal(t, []string{"fist"}, applied[attacker])
			assert.Equal(t, []string{"wall"}, applied[defender])
		}
	})

	t.Run("thorns are reduced like round damage", func(t *testing.T) {
		for _, winner := range []int{0, 1} {
			loser := 1 - winner
			st := NewState(seats)
			st.Active[seats[winner]] = []Instance{{UpgradeID: "guard", Duration: DurationPermanent, RemainingUses: Uses{Unlimited: true}}}
			st.Active[seats[loser]] = []Instance{{UpgradeID: "thorn", Duration: DurationPermanent, RemainingUses: Uses{Unlimited: true}}}

			var moves [2]domain.Move
			moves[winner], moves[loser] = domain.Rock, domain.Scissors
			outcome := seatWin(winner)

			deltas := domain.BaseDeltas(outcome, rules)
			e.ApplyEffects(st, seats, moves, outcome, &deltas)

			assert.Equal(t, -1, deltas[winner].Health, "winner in seat %d", winner)
		}
	})

	t.Run("heal applies after reduction", func(t *testing.T) {
		st := NewState(seats)
		st.Active["p1"] = []Instance{
			{UpgradeID: "scroll", Duration: DurationSingle, RemainingUses: Uses{N: 1}},
			{UpgradeID: "wall", Duration: DurationRounds, RemainingUses: Uses{N: 2}},
		}

		deltas := domain.BaseDeltas(domain.RoundWonBySeat0, rules)
		e.ApplyEffects(st, seats, [2]domain.Move{domain.Scissors, domain.Paper}, domain.RoundWonBySeat0, &deltas)

		// Damage fully absorbed, then the heal lands.
		assert.Equal(t, 4, deltas[1].Health)
	})

	t.Run("affinity condition not met", func(t *testing.T) {
		st := NewState(seats)
		st.Active["p0"] = []Instance{{UpgradeID: "fist", Duration: DurationPermanent, RemainingUses: Uses{Unlimited: true}}}

		deltas := domain.BaseDeltas(domain.RoundWonBySeat0, rules)
		fired, _ := e.ApplyEffects(st, seats, [2]domain.Move{domain.Paper, domain.Rock}, domain.RoundWonBySeat0, &deltas)

		assert.Equal(t, -7, deltas[1].Health)
		assert.Empty(t, fired["p0"])
	})

	t.Run("thorns and bonus coins", func(t *testing.T) {
		st := NewState(seats)
		st.Active["p0"] = []Instance{
			{UpgradeID: "pebble", Duration: DurationPermanent, RemainingUses: Uses{Unlimited: true}},
		}
		st.Active["p1"] = []Instance{
			{UpgradeID: "thorn", Duration: DurationPermanent, RemainingUses: Uses{Unlimited: true}},
		}

		deltas := domain.BaseDeltas(domain.RoundWonBySeat0, rules)
		e.ApplyEffects(st, seats, [2]domain.Move{domain.Rock, domain.Scissors}, domain.RoundWonBySeat0, &deltas)

		assert.Equal(t, -2, deltas[0].Health)
		assert.Equal(t, 16, deltas[0].Coins)
	})

	t.Run("draw never fires win conditions", func(t *testing.T) {
		st := NewState(seats)
		st.Active["p0"] = []Instance{{UpgradeID: "boom", Duration: DurationSingle, RemainingUses: Uses{N: 1}}}

		deltas := domain.BaseDeltas(domain.RoundDraw, rules)
		fired, _ := e.ApplyEffects(st, seats, [2]domain.Move{domain.Rock, domain.Rock}, domain.RoundDraw, &deltas)

		assert.Equal(t, 0, deltas[1].Health)
		assert.Empty(t, fired["p0"])
	})
}

func TestDecay(t *testing.T) {
	e := NewEngine(testCatalog(t), 3)
	st := NewState(seats)
	st.Active["p0"] = []Instance{
		{UpgradeID: "fist", Duration: DurationPermanent, RemainingUses: Uses{Unlimited: true}},
		{UpgradeID: "wall", Duration: DurationRounds, RemainingUses: Uses{N: 2}},
		{UpgradeID: "boom", Duration: DurationSingle, RemainingUses: Uses{N: 1}},
	}
	st.Active["p1"] = []Instance{
		{UpgradeID: "scroll", Duration: DurationSingle, RemainingUses: Uses{N: 1}},
	}

	// Nothing fired: only the rounds-limited instance ticks.
	e.Decay(st, Fired{})
	require.Len(t, st.Active["p0"], 3)
	assert.Equal(t, 1, st.Active["p0"][1].RemainingUses.N)
	assert.Equal(t, 1, st.Active["p0"][2].RemainingUses.N)
	require.Len(t, st.Active["p1"], 1)

	// The single-use instance fired and the rounds-limited one expires.
	e.Decay(st, Fired{"p0": {2}})
	require.Len(t, st.Active["p0"], 1)
	assert.Equal(t, "fist", st.Active["p0"][0].UpgradeID)

	// Permanent instances survive indefinitely.
	for i := 0; i < 10; i++ {
		e.Decay(st, Fired{"p0": {0}})
	}
	require.Len(t, st.Active["p0"], 1)
	assert.True(t, st.Active["p0"][0].RemainingUses.Unlimited)
}
