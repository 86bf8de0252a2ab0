package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"chaosclash/internal/app"
	"chaosclash/internal/config"
	"chaosclash/internal/domain"
	"chaosclash/internal/modifier"
	"chaosclash/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// tickRate is the number of MatchLoop calls per second.
	tickRate = 1
	// endedGraceTicks keeps a finished match alive so clients can read the result.
	endedGraceTicks = 30
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	MatchID       string                      `json:"match_id"`
	Seats         [2]string                   `json:"seats"`          // user IDs, empty string means seat is empty
	Tick          int64                       `json:"tick"`           // current tick of the match
	PhaseDeadline int64                       `json:"phase_deadline"` // tick at which the current phase times out, 0 when idle
	EndedAtTick   int64                       `json:"ended_at_tick"`
	Settled       bool                        `json:"settled"`
	Presences     map[string]runtime.Presence `json:"-"` // UserId -> Presence for targeted messaging
	App           *app.Service                `json:"-"`
	Match         *app.Match                  `json:"-"` // nil while waiting for the second player
	Config        *config.GameConfig          `json:"-"`
	Economy       ports.EconomyPort           `json:"-"`
	Snapshots     ports.SnapshotStore         `json:"-"`
}

// GetOpenSeatsCount returns the number of free seats.
func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) seatedCount() int {
	return len(ms.Seats) - ms.GetOpenSeatsCount()
}

func (ms *MatchState) seatOf(userID string) int {
	for i, seat := range ms.Seats {
		if seat == userID {
			return i
		}
	}
	return -1
}

type matchHandler struct {
	engine *modifier.Engine
	cfg    *config.GameConfig
}

func newMatchHandler(engine *modifier.Engine, cfg *config.GameConfig) *matchHandler {
	return &matchHandler{engine: engine, cfg: cfg}
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	state := &MatchState{
		MatchID:   matchID,
		Presences: make(map[string]runtime.Presence),
		App:       app.NewService(mh.engine, mh.cfg.DuelRules(), nil, app.WithMetrics(NewNakamaMetrics(nk))),
		Config:    mh.cfg,
		Economy:   NewNakamaEconomyAdapter(nk),
		Snapshots: NewNakamaSnapshotStore(nk),
	}

	label, err := encodeLabel(domain.ComputeLabel(state.Seats, nil))
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	return state, tickRate, label
}

// MatchJoinAttempt admits new players while a seat is free and lets seated players reconnect.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	if matchState.seatOf(presence.GetUserId()) >= 0 {
		return state, true, ""
	}
	if matchState.GetOpenSeatsCount() <= 0 {
		return state, false, "Match full"
	}
	return state, true, ""
}

// MatchJoin seats players and starts the duel once both seats are taken.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	matchState.Tick = tick
	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p

		if matchState.seatOf(p.GetUserId()) >= 0 {
			logger.Debug("MatchJoin: User %s reconnected.", p.GetUserId())
			continue
		}
		seat := domain.LowestAvailableSeat(&matchState.Seats)
		if seat < 0 {
			logger.Warn("MatchJoin: User %s joined but no seat was available.", p.GetUserId())
			continue
		}
		matchState.Seats[seat] = p.GetUserId()
		logger.Debug("MatchJoin: User %s took seat %d.", p.GetUserId(), seat)
	}

	if matchState.Match == nil && matchState.seatedCount() >= app.MinPlayersToStartGame {
		mh.startMatch(ctx, matchState, dispatcher, logger)
	}

	mh.updateLabel(matchState, dispatcher, logger)

	for _, p := range presences {
		mh.sendSnapshot(matchState, dispatcher, logger, p)
	}
	return matchState
}

func (mh *matchHandler) startMatch(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	m, events, err := state.App.StartMatch(state.MatchID, state.Seats)
	if err != nil {
		logger.Error("StartMatch: Failed to start duel: %v", err)
		return
	}
	state.Match = m
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
	logger.Info("StartMatch: Duel %s started between %s and %s.", state.MatchID, state.Seats[0], state.Seats[1])
}

// MatchLeave is called when one or more players leave the match.
// A seated player keeps the seat once the duel is running; timeouts play for them.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		if matchState.Match != nil {
			continue
		}
		if seat := matchState.seatOf(p.GetUserId()); seat >= 0 {
			matchState.Seats[seat] = ""
			logger.Debug("MatchLeave: User %s left, seat %d freed.", p.GetUserId(), seat)
		}
	}

	if len(matchState.Presences) == 0 {
		if matchState.Match == nil || matchState.Settled {
			logger.Info("MatchLeave: Terminating match with no players.")
			return nil
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpSubmitMove:
			mh.handleSubmitMove(ctx, matchState, dispatcher, logger, msg)
		case OpPurchaseUpgrade:
			mh.handlePurchase(ctx, matchState, dispatcher, logger, msg)
		case OpEndWindow:
			mh.handleEndWindow(ctx, matchState, dispatcher, logger, msg)
		case OpRequestSnapshot:
			if p, ok := matchState.Presences[msg.GetUserId()]; ok {
				mh.sendSnapshot(matchState, dispatcher, logger, p)
			}
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.Settled {
		if tick-matchState.EndedAtTick >= endedGraceTicks {
			logger.Info("MatchLoop: Closing finished duel %s.", matchState.MatchID)
			return nil
		}
		return matchState
	}

	mh.processTimeouts(ctx, matchState, dispatcher, logger)
	return matchState
}

// processTimeouts plays random moves for idle players and closes stale purchase windows.
func (mh *matchHandler) processTimeouts(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Match == nil || state.PhaseDeadline == 0 || state.Tick < state.PhaseDeadline {
		return
	}
	state.PhaseDeadline = 0

	switch state.App.Phase(state.Match) {
	case domain.PhaseMoveCollection:
		for _, userID := range state.App.PendingPlayers(state.Match) {
			logger.Info("processTimeouts: Auto-playing for %s.", userID)
			events, err := state.App.AutoMove(state.Match, userID)
			if err != nil {
				logger.Warn("processTimeouts: Auto move for %s failed: %v", userID, err)
				continue
			}
			mh.broadcastEvents(ctx, state, dispatcher, logger, events)
		}
	case domain.PhasePurchaseWindow:
		logger.Info("processTimeouts: Closing purchase window.")
		events, err := state.App.ForceEndPurchaseWindow(state.Match)
		if err != nil {
			logger.Warn("processTimeouts: Failed to close window: %v", err)
			return
		}
		mh.broadcastEvents(ctx, state, dispatcher, logger, events)
	}
}

func (mh *matchHandler) handleSubmitMove(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.Match == nil {
		mh.sendError(state, dispatcher, logger, senderID, domain.ErrPhaseViolation)
		return
	}

	request := &SubmitMoveRequest{}
	if err := decodeMessage(msg.GetData(), request); err != nil {
		logger.Warn("handleSubmitMove: Invalid request from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, fmt.Errorf("%w: %v", domain.ErrInvalidMove, err))
		return
	}
	// The service validates the move after its terminal and phase checks.
	events, err := state.App.SubmitMove(state.Match, senderID, domain.NormalizeMove(request.Move))
	if err != nil {
		logger.Warn("handleSubmitMove: User %s failed to submit: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, err)
		return
	}
	mh.broadcastEvents(ctx, state, dispatcher, logger, events)
}

func (mh *matchHandler) handlePurchase(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.Match == nil {
		mh.sendError(state, dispatcher, logger, senderID, domain.ErrPhaseViolation)
		return
	}

	request := &PurchaseRequest{}
	if err := decodeMessage(msg.GetData(), request); err != nil {
		logger.Warn("handlePurchase: Invalid request from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, fmt.Errorf("%w: %v", domain.ErrUnknownUpgrade, err))
		return
	}

	events, err := state.App.PurchaseUpgrade(state.Match, senderID, request.UpgradeID)
	if err != nil {
		logger.Warn("handlePurchase: User %s failed to buy %s: %v", senderID, request.UpgradeID, err)
		mh.sendError(state, dispatcher, logger, senderID, err)
		return
	}
	mh.broadcastEvents(ctx, state, dispatcher, logger, events)
}

func (mh *matchHandler) handleEndWindow(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.Match == nil {
		mh.sendError(state, dispatcher, logger, senderID, domain.ErrPhaseViolation)
		return
	}

	events, err := state.App.EndPurchaseWindow(state.Match, senderID)
	if err != nil {
		mh.sendError(state, dispatcher, logger, senderID, err)
		return
	}
	mh.broadcastEvents(ctx, state, dispatcher, logger, events)
}

func (mh *matchHandler) broadcastEvents(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	var opCode int64

	switch ev.Kind {
	case app.EventMatchStarted:
		// Clients learn about the start from the move collection event and the join snapshot.
		return
	case app.EventMoveAccepted:
		opCode = OpMoveAccepted
	case app.EventRoundResolved:
		opCode = OpRoundResolved
		mh.persistSnapshot(ctx, state, logger)
	case app.EventPurchaseWindowOpened:
		opCode = OpPurchaseWindowOpened
		state.PhaseDeadline = state.Tick + int64(state.Config.PurchaseWindowDuration()*tickRate)
		mh.updateLabel(state, dispatcher, logger)
	case app.EventOffersRefreshed:
		opCode = OpOffers
	case app.EventUpgradePurchased:
		opCode = OpUpgradePurchased
	case app.EventPlayerReady:
		opCode = OpPlayerReady
	case app.EventMoveCollectionStarted:
		opCode = OpMoveCollectionStarted
		state.PhaseDeadline = state.Tick + int64(state.Config.MoveDuration()*tickRate)
		mh.updateLabel(state, dispatcher, logger)
	case app.EventMatchEnded:
		opCode = OpMatchEnded
		p := ev.Payload.(app.MatchEndedPayload)
		state.PhaseDeadline = 0
		mh.persistSnapshot(ctx, state, logger)
		mh.settle(ctx, state, logger, p)
		mh.updateLabel(state, dispatcher, logger)
	default:
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	bytes, err := encodeMessage(ev.Payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// Private events must never fall back to a broadcast.
		if len(recipients) == 0 {
			return
		}
	}

	dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true)
}

// settle pays wallet rewards once per finished duel.
func (mh *matchHandler) settle(ctx context.Context, state *MatchState, logger runtime.Logger, p app.MatchEndedPayload) {
	if state.Settled {
		return
	}
	state.Settled = true
	state.EndedAtTick = state.Tick

	if state.Economy == nil {
		return
	}
	updates := make([]ports.WalletUpdate, 0, len(state.Seats))
	for _, userID := range state.Seats {
		updates = append(updates, ports.WalletUpdate{
			UserID: userID,
			Amount: state.Config.Reward(p.Result, userID),
			Metadata: map[string]interface{}{
				"match_id":   state.MatchID,
				"reason":     "duel_settlement",
				"result":     p.Result,
				"win_reason": string(p.WinReason),
			},
		})
	}
	if err := state.Economy.UpdateBalances(ctx, updates); err != nil {
		logger.Error("Failed to update balances: %v", err)
		return
	}
	for _, u := range updates {
		balance, err := state.Economy.GetBalance(ctx, u.UserID)
		if err != nil {
			logger.Warn("settle: Could not read balance for %s: %v", u.UserID, err)
			continue
		}
		logger.Info("settle: User %s earned %d %s, balance now %d.", u.UserID, u.Amount, walletCurrency, balance)
	}
}

func (mh *matchHandler) persistSnapshot(ctx context.Context, state *MatchState, logger runtime.Logger) {
	if state.Snapshots == nil || state.Match == nil {
		return
	}
	data, err := json.Marshal(state.App.Snapshot(state.Match, ""))
	if err != nil {
		logger.Error("Failed to marshal snapshot: %v", err)
		return
	}
	if err := state.Snapshots.SaveSnapshot(ctx, state.MatchID, data); err != nil {
		logger.Error("Failed to persist snapshot: %v", err)
	}
}

// sendSnapshot sends the current view of the match to one presence.
func (mh *matchHandler) sendSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, presence runtime.Presence) {
	var payload any = lobbySnapshot{MatchID: state.MatchID, Seats: state.Seats, Phase: domain.LabelPhaseLobby}
	if state.Match != nil {
		payload = state.App.Snapshot(state.Match, presence.GetUserId())
	}
	bytes, err := encodeMessage(payload)
	if err != nil {
		logger.Error("Failed to marshal snapshot: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpSnapshot, bytes, []runtime.Presence{presence}, nil, true)
}

type lobbySnapshot struct {
	MatchID string    `json:"match_id"`
	Seats   [2]string `json:"seats"`
	Phase   string    `json:"phase"`
}

// sendError sends an ErrorMessage to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, err error) {
	kind := domain.KindOf(err)
	bytes, mErr := encodeMessage(ErrorMessage{Code: kind.Code(), Kind: string(kind), Message: err.Error()})
	if mErr != nil {
		logger.Error("Failed to marshal error message: %v", mErr)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	dispatcher.BroadcastMessage(OpError, bytes, []runtime.Presence{presence}, nil, true)
}

func encodeLabel(label domain.LabelPayload) (string, error) {
	msg, err := structpb.NewStruct(map[string]interface{}{
		"open":  label.Open,
		"game":  label.Game,
		"phase": label.Phase,
	})
	if err != nil {
		return "", err
	}
	b, err := protojson.Marshal(msg)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	var duel *domain.MatchState
	if state.Match != nil {
		duel = state.Match.State
	}
	label, err := encodeLabel(domain.ComputeLabel(state.Seats, duel))
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d grace seconds", graceSeconds)
	if matchState, ok := state.(*MatchState); ok {
		mh.persistSnapshot(ctx, matchState, logger)
	}
	return state
}

// signalRequest is the MatchSignal payload used by the read-only RPCs.
type signalRequest struct {
	Kind   string `json:"kind"`
	UserID string `json:"user_id,omitempty"`
}

const (
	signalSnapshot = "snapshot"
	signalOffers   = "offers"
)

type signalResponse struct {
	Snapshot *app.Snapshot      `json:"snapshot,omitempty"`
	Offers   []modifier.Upgrade `json:"offers,omitempty"`
	Error    *ErrorMessage      `json:"error,omitempty"`
}

// MatchSignal answers snapshot and offer queries from RPCs running outside the match loop.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, ""
	}

	var req signalRequest
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		return state, signalError(fmt.Errorf("bad signal: %w", err))
	}
	if matchState.Match == nil {
		return state, signalError(fmt.Errorf("%w: duel has not started", domain.ErrPhaseViolation))
	}

	var resp signalResponse
	switch req.Kind {
	case signalSnapshot:
		snap := matchState.App.Snapshot(matchState.Match, req.UserID)
		resp.Snapshot = &snap
	case signalOffers:
		offers, err := matchState.App.Offers(matchState.Match, req.UserID)
		if err != nil {
			return state, signalError(err)
		}
		resp.Offers = offers
	default:
		return state, signalError(errors.New("unknown signal kind " + req.Kind))
	}

	b, err := json.Marshal(resp)
	if err != nil {
		logger.Error("MatchSignal: Failed to marshal response: %v", err)
		return state, signalError(err)
	}
	return state, string(b)
}

func signalError(err error) string {
	kind := domain.KindOf(err)
	b, _ := json.Marshal(signalResponse{Error: &ErrorMessage{Code: kind.Code(), Kind: string(kind), Message: err.Error()}})
	return string(b)
}
