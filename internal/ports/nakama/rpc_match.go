package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"chaosclash/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	errCodeInvalidArgument = 3
	errCodeNotFound        = 5
	errCodeUnauthenticated = 16
)

// MatchQueryRequest is the payload of the snapshot and offers RPCs.
type MatchQueryRequest struct {
	MatchID string `json:"match_id"`
}

// rpcMatchSnapshot returns the live snapshot of a duel as the caller sees it,
// falling back to the persisted one once the match is gone.
func rpcMatchSnapshot(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	req, err := parseMatchQuery(payload)
	if err != nil {
		return "", err
	}
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	data, _ := json.Marshal(signalRequest{Kind: signalSnapshot, UserID: userID})
	result, err := nk.MatchSignal(ctx, req.MatchID, string(data))
	if err == nil {
		return unwrapSignal(result, func(r signalResponse) any { return r.Snapshot })
	}

	logger.Debug("rpcMatchSnapshot: Signal to %s failed, reading storage: %v", req.MatchID, err)
	stored, err := NewNakamaSnapshotStore(nk).LoadSnapshot(ctx, req.MatchID)
	if errors.Is(err, ports.ErrSnapshotNotFound) {
		return "", runtime.NewError("match not found", errCodeNotFound)
	}
	if err != nil {
		logger.Error("rpcMatchSnapshot: %v", err)
		return "", err
	}
	return string(stored), nil
}

// rpcMatchOffers returns the caller's current offers. Offers are private, so
// the user id always comes from the session.
func rpcMatchOffers(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		return "", runtime.NewError("no user id in context", errCodeUnauthenticated)
	}
	req, err := parseMatchQuery(payload)
	if err != nil {
		return "", err
	}

	data, _ := json.Marshal(signalRequest{Kind: signalOffers, UserID: userID})
	result, err := nk.MatchSignal(ctx, req.MatchID, string(data))
	if err != nil {
		return "", runtime.NewError("match not found", errCodeNotFound)
	}
	return unwrapSignal(result, func(r signalResponse) any { return r.Offers })
}

func parseMatchQuery(payload string) (MatchQueryRequest, error) {
	var req MatchQueryRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.MatchID == "" {
		return req, runtime.NewError("match_id is required", errCodeInvalidArgument)
	}
	return req, nil
}

func unwrapSignal(result string, pick func(signalResponse) any) (string, error) {
	var resp signalResponse
	if err := json.Unmarshal([]byte(result), &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", runtime.NewError(resp.Error.Message, errCodeInvalidArgument)
	}
	b, err := json.Marshal(pick(resp))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
