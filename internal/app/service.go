package app

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"chaosclash/internal/domain"
	"chaosclash/internal/modifier"
	"chaosclash/internal/ports"
)

// Match is one hosted duel. All access goes through Service, which holds mu
// for the whole operation so intake, resolution and purchases never interleave.
type Match struct {
	mu        sync.Mutex
	ID        string
	State     *domain.MatchState
	Modifiers *modifier.State
	rng       *rand.Rand
}

// Service contains duel use-cases operating on domain state.
type Service struct {
	rules   domain.Rules
	engine  *modifier.Engine
	metrics ports.MetricsPort

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option customizes a Service.
type Option func(*Service)

// WithMetrics reports counters to m.
func WithMetrics(m ports.MetricsPort) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewService constructs a Service with provided rng or a time-seeded default.
// Each match gets its own rng seeded from this one.
func NewService(engine *modifier.Engine, rules domain.Rules, rng *rand.Rand, opts ...Option) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Service{
		rules:   rules,
		engine:  engine,
		metrics: ports.NoopMetrics{},
		rng:     rng,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules returns the rules the service plays by.
func (s *Service) Rules() domain.Rules {
	return s.rules
}

// StartMatch seats two players and opens the first move collection.
func (s *Service) StartMatch(matchID string, seats [2]string) (*Match, []Event, error) {
	state, err := domain.NewMatchState(seats, s.rules)
	if err != nil {
		return nil, nil, err
	}

	s.rngMu.Lock()
	seed := s.rng.Int63()
	s.rngMu.Unlock()

	m := &Match{
		ID:        matchID,
		State:     state,
		Modifiers: modifier.NewState(seats),
		rng:       rand.New(rand.NewSource(seed)),
	}

	events := []Event{
		{
			Kind:    EventMatchStarted,
			Payload: MatchStartedPayload{Seats: seats, Players: copyPlayers(state)},
		},
		{
			Kind:    EventMoveCollectionStarted,
			Payload: MoveCollectionStartedPayload{Round: 0},
		},
	}
	return m, events, nil
}

// SubmitMove records a player's move. When it completes the pair the round
// resolves in the same critical section.
func (s *Service) SubmitMove(m *Match, userID string, move domain.Move) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return s.submitMove(m, userID, move)
}

// AutoMove submits a random move on behalf of a player, for transport
// timeouts and disconnects. It obeys the same rules as SubmitMove.
func (s *Service) AutoMove(m *Match, userID string) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	move := domain.Moves[m.rng.Intn(len(domain.Moves))]
	return s.submitMove(m, userID, move)
}

func (s *Service) submitMove(m *Match, userID string, move domain.Move) ([]Event, error) {
	st := m.State
	if st.Terminal {
		return nil, domain.ErrMatchAlreadyOver
	}
	if st.Phase != domain.PhaseMoveCollection {
		return nil, fmt.Errorf("%w: moves are not accepted during %s", domain.ErrInvalidMove, st.Phase)
	}
	if _, ok := st.Players[userID]; !ok {
		return nil, fmt.Errorf("%w: %s is not seated", domain.ErrInvalidMove, userID)
	}
	if st.HasSubmitted(userID) {
		return nil, fmt.Errorf("%w: %s already moved this round", domain.ErrInvalidMove, userID)
	}
	if !move.Valid() {
		return nil, fmt.Errorf("%w: unknown move %q", domain.ErrInvalidMove, move)
	}

	st.PendingMoves[userID] = move
	events := []Event{
		{
			Kind:    EventMoveAccepted,
			Payload: MoveAcceptedPayload{UserID: userID, Round: st.RoundCount},
		},
	}

	if !st.BothSubmitted() {
		return events, nil
	}

	next, err := domain.Transition(st.Phase, domain.TriggerBothMoved)
	if err != nil {
		return events, err
	}
	st.Phase = next
	return append(events, s.resolveRound(m)...), nil
}

// resolveRound is the only code path that applies round economy deltas.
func (s *Service) resolveRound(m *Match) []Event {
	st := m.State
	moves := [2]domain.Move{st.PendingMoves[st.Seats[0]], st.PendingMoves[st.Seats[1]]}
	outcome := domain.SeatOutcome(domain.Resolve(moves[0], moves[1]))

	deltas := domain.BaseDeltas(outcome, s.rules)
	fired, applied := s.engine.ApplyEffects(m.Modifiers, st.Seats, moves, outcome, &deltas)

	for seat := range deltas {
		d := deltas[seat]
		pl := st.PlayerAt(seat)
		pl.Health += d.Health
		pl.Chaos += max(d.Chaos, 0)
		pl.Coins += max(d.Coins, 0)
		pl.Wins += d.Wins
		pl.CurrentMove = moves[seat]
	}

	record := domain.RoundRecord{
		Index:         len(st.RoundHistory),
		MoveOfPlayer0: moves[0],
		MoveOfPlayer1: moves[1],
		Outcome:       outcome,
		Deltas:        deltas,
		Applied:       applied,
	}
	st.RoundHistory = append(st.RoundHistory, record)
	clear(st.PendingMoves)
	st.RoundCount++
	s.engine.Decay(m.Modifiers, fired)
	s.metrics.RoundResolved(string(outcome))

	events := []Event{
		{
			Kind:    EventRoundResolved,
			Payload: RoundResolvedPayload{Record: record, Players: copyPlayers(st)},
		},
	}

	decision := domain.CheckWinCondition(st, s.rules)
	if decision.Decided {
		st.Phase, _ = domain.Transition(st.Phase, domain.TriggerDecided)
		st.Terminal = true
		st.Result = decision.Result
		st.WinReason = decision.Reason
		s.metrics.MatchEnded(string(decision.Reason), decision.Result == domain.ResultDraw)
		return append(events, Event{
			Kind: EventMatchEnded,
			Payload: MatchEndedPayload{
				Result:    decision.Result,
				WinReason: decision.Reason,
				Players:   copyPlayers(st),
			},
		})
	}

	st.Phase, _ = domain.Transition(st.Phase, domain.TriggerUndecided)
	return append(events, s.openPurchaseWindow(m, record)...)
}

// openPurchaseWindow refreshes each player's offers from their own last move.
func (s *Service) openPurchaseWindow(m *Match, last domain.RoundRecord) []Event {
	st := m.State
	clear(st.Ready)

	events := []Event{
		{
			Kind:    EventPurchaseWindowOpened,
			Payload: PurchaseWindowOpenedPayload{Round: st.RoundCount},
		},
	}
	for seat, userID := range st.Seats {
		s.engine.RefreshOffers(m.Modifiers, userID, last.MoveOf(seat), m.rng)
		events = append(events, Event{
			Kind: EventOffersRefreshed,
			Payload: OffersRefreshedPayload{
				UserID: userID,
				Offers: s.engine.OfferedUpgrades(m.Modifiers, userID),
			},
			Recipients: []string{userID},
		})
	}
	return events
}

// PurchaseUpgrade buys one of the player's current offers.
func (s *Service) PurchaseUpgrade(m *Match, userID, upgradeID string) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	events, err := s.purchaseUpgrade(m, userID, upgradeID)
	s.metrics.PurchaseAttempted(purchaseResult(err))
	return events, err
}

func (s *Service) purchaseUpgrade(m *Match, userID, upgradeID string) ([]Event, error) {
	st := m.State
	if st.Terminal {
		return nil, domain.ErrMatchAlreadyOver
	}
	if st.Phase != domain.PhasePurchaseWindow {
		return nil, fmt.Errorf("%w: purchases are not accepted during %s", domain.ErrPhaseViolation, st.Phase)
	}
	pl, ok := st.Players[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlayer, userID)
	}

	inst, err := s.engine.Purchase(m.Modifiers, pl, upgradeID, st.RoundCount)
	if err != nil {
		return nil, err
	}
	upgrade, _ := s.engine.Catalog().Get(upgradeID)

	return []Event{
		{
			Kind: EventUpgradePurchased,
			Payload: UpgradePurchasedPayload{
				UserID:   userID,
				Upgrade:  upgrade,
				Instance: inst,
				Coins:    pl.Coins,
				Chaos:    pl.Chaos,
			},
		},
	}, nil
}

func purchaseResult(err error) string {
	if err == nil {
		return "ok"
	}
	return string(domain.KindOf(err))
}

// EndPurchaseWindow marks the player ready. The window closes once both are.
// Signalling twice is acknowledged without effect.
func (s *Service) EndPurchaseWindow(m *Match, userID string) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.State
	if st.Terminal {
		return nil, domain.ErrMatchAlreadyOver
	}
	if st.Phase != domain.PhasePurchaseWindow {
		return nil, fmt.Errorf("%w: no purchase window is open", domain.ErrPhaseViolation)
	}
	if _, ok := st.Players[userID]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlayer, userID)
	}
	if st.Ready[userID] {
		return nil, nil
	}

	st.Ready[userID] = true
	events := []Event{{Kind: EventPlayerReady, Payload: PlayerReadyPayload{UserID: userID}}}
	if !st.BothReady() {
		return events, nil
	}
	return append(events, s.closePurchaseWindow(m, false)...), nil
}

// ForceEndPurchaseWindow closes the window regardless of readiness,
// for transport-driven timeouts.
func (s *Service) ForceEndPurchaseWindow(m *Match) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.State
	if st.Terminal {
		return nil, domain.ErrMatchAlreadyOver
	}
	if st.Phase != domain.PhasePurchaseWindow {
		return nil, fmt.Errorf("%w: no purchase window is open", domain.ErrPhaseViolation)
	}
	return s.closePurchaseWindow(m, true), nil
}

func (s *Service) closePurchaseWindow(m *Match, forced bool) []Event {
	st := m.State
	st.Phase, _ = domain.Transition(st.Phase, domain.TriggerWindowEnded)
	clear(st.Ready)
	s.engine.ClearOffers(m.Modifiers)

	return []Event{
		{
			Kind:    EventMoveCollectionStarted,
			Payload: MoveCollectionStartedPayload{Round: st.RoundCount, Forced: forced},
		},
	}
}

// Offers returns the player's current offer set in offer order.
func (s *Service) Offers(m *Match, userID string) ([]modifier.Upgrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.State.Players[userID]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlayer, userID)
	}
	return s.engine.OfferedUpgrades(m.Modifiers, userID), nil
}

// Phase reports the match phase.
func (s *Service) Phase(m *Match) domain.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.State.Phase
}

// PendingPlayers lists seated players who still owe an action in the current
// phase: a move during collection or a ready signal during the window.
func (s *Service) PendingPlayers(m *Match) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.State
	var out []string
	for _, userID := range st.Seats {
		switch st.Phase {
		case domain.PhaseMoveCollection:
			if !st.HasSubmitted(userID) {
				out = append(out, userID)
			}
		case domain.PhasePurchaseWindow:
			if !st.Ready[userID] {
				out = append(out, userID)
			}
		}
	}
	return out
}

func copyPlayers(st *domain.MatchState) map[string]domain.Player {
	out := make(map[string]domain.Player, len(st.Players))
	for id, pl := range st.Players {
		out[id] = *pl
	}
	return out
}
