package modifier

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"slices"

	"chaosclash/internal/domain"
)

// DefaultOfferCount is how many upgrades a player is offered per window.
const DefaultOfferCount = 3

// Uses is the remaining lifetime of an instance.
type Uses struct {
	N         int
	Unlimited bool
}

// MarshalJSON renders unlimited uses as "unlimited".
func (u Uses) MarshalJSON() ([]byte, error) {
	if u.Unlimited {
		return json.Marshal("unlimited")
	}
	return json.Marshal(u.N)
}

// UnmarshalJSON accepts a count or "unlimited".
func (u *Uses) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*u = Uses{N: n}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s != "unlimited" {
		return fmt.Errorf("invalid remaining uses %s", data)
	}
	*u = Uses{Unlimited: true}
	return nil
}

// Instance is an upgrade owned by a player.
type Instance struct {
	UpgradeID       string       `json:"upgrade_id"`
	Duration        DurationKind `json:"duration"`
	RemainingUses   Uses         `json:"remaining_uses"`
	AcquiredAtRound int          `json:"acquired_at_round"`
}

// State is the per-match modifier bookkeeping, keyed by player id.
type State struct {
	Offers  map[string][]string   `json:"offers"`
	Active  map[string][]Instance `json:"active"`
	History map[string][]string   `json:"history"`
}

// NewState creates empty bookkeeping for the seated players.
func NewState(seats [2]string) *State {
	st := &State{
		Offers:  make(map[string][]string, len(seats)),
		Active:  make(map[string][]Instance, len(seats)),
		History: make(map[string][]string, len(seats)),
	}
	for _, userID := range seats {
		st.Offers[userID] = nil
		st.Active[userID] = nil
		st.History[userID] = nil
	}
	return st
}

// Engine applies catalog rules to a State. It holds no per-match data.
type Engine struct {
	catalog    *Catalog
	offerCount int
}

// NewEngine builds an engine over catalog. offerCount <= 0 uses DefaultOfferCount.
func NewEngine(catalog *Catalog, offerCount int) *Engine {
	if offerCount <= 0 {
		offerCount = DefaultOfferCount
	}
	return &Engine{catalog: catalog, offerCount: offerCount}
}

// Catalog exposes the engine's catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// RefreshOffers replaces the player's offers with up to offerCount upgrades
// tied to lastMove, in shuffled order.
func (e *Engine) RefreshOffers(st *State, userID string, lastMove domain.Move, rng *rand.Rand) []string {
	pool := e.catalog.ByAffinity(lastMove)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	n := min(e.offerCount, len(pool))
	offers := make([]string, 0, n)
	for _, u := range pool[:n] {
		offers = append(offers, u.ID)
	}
	st.Offers[userID] = offers
	return offers
}

// ClearOffers drops every outstanding offer, used when the window closes.
func (e *Engine) ClearOffers(st *State) {
	for userID := range st.Offers {
		st.Offers[userID] = nil
	}
}

// OfferedUpgrades resolves the player's offer ids to catalog entries.
func (e *Engine) OfferedUpgrades(st *State, userID string) []Upgrade {
	ids := st.Offers[userID]
	out := make([]Upgrade, 0, len(ids))
	for _, id := range ids {
		if u, ok := e.catalog.Get(id); ok {
			out = append(out, u)
		}
	}
	return out
}

// Purchase validates and executes a purchase for pl at the given round.
// A rejected purchase leaves pl and st untouched.
func (e *Engine) Purchase(st *State, pl *domain.Player, upgradeID string, round int) (Instance, error) {
	u, ok := e.catalog.Get(upgradeID)
	if !ok {
		return Instance{}, fmt.Errorf("%w: %q", domain.ErrUnknownUpgrade, upgradeID)
	}
	offers := st.Offers[pl.UserID]
	idx := slices.Index(offers, upgradeID)
	if idx < 0 {
		return Instance{}, fmt.Errorf("%w: %q not offered to %s", domain.ErrUpgradeNotOffered, upgradeID, pl.UserID)
	}
	if pl.Coins < u.Cost {
		return Instance{}, fmt.Errorf("%w: %q costs %d, have %d", domain.ErrInsufficientFunds, upgradeID, u.Cost, pl.Coins)
	}

	pl.Coins -= u.Cost
	pl.Chaos += u.ChaosGrant

	inst := Instance{
		UpgradeID:       u.ID,
		Duration:        u.Duration.Kind,
		RemainingUses:   usesFor(u.Duration),
		AcquiredAtRound: round,
	}
	st.Active[pl.UserID] = append(st.Active[pl.UserID], inst)
	st.History[pl.UserID] = append(st.History[pl.UserID], u.ID)
	st.Offers[pl.UserID] = slices.Delete(slices.Clone(offers), idx, idx+1)
	return inst, nil
}

func usesFor(d Duration) Uses {
	switch d.Kind {
	case DurationPermanent:
		return Uses{Unlimited: true}
	case DurationSingle:
		return Uses{N: 1}
	default:
		return Uses{N: d.Rounds}
	}
}
