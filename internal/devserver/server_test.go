package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaosclash/internal/app"
	"chaosclash/internal/domain"
	"chaosclash/internal/metrics"
	"chaosclash/internal/modifier"
	"chaosclash/internal/store"
)

type testEnv struct {
	srv    *httptest.Server
	store  *store.MemoryStore
	server *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	catalog, err := modifier.DefaultCatalog()
	require.NoError(t, err)

	rec := metrics.New()
	svc := app.NewService(modifier.NewEngine(catalog, 0), domain.DefaultRules(), rand.New(rand.NewSource(1)), app.WithMetrics(rec))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewMemoryStore()
	server := New(app.NewRegistry(svc), st, rec, logger)

	ts := httptest.NewServer(server.Routes())
	t.Cleanup(ts.Close)
	return &testEnv{srv: ts, store: st, server: server}
}

func (e *testEnv) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func (e *testEnv) createMatch(t *testing.T) string {
	t.Helper()
	resp, body := e.post(t, "/api/v1/matches", map[string]any{"players": []string{"alice", "bob"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["match_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func eventKinds(body map[string]any) []string {
	var kinds []string
	events, _ := body["events"].([]any)
	for _, ev := range events {
		kinds = append(kinds, ev.(map[string]any)["kind"].(string))
	}
	return kinds
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestCreateMatchRejectsBadSeats(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.post(t, "/api/v1/matches", map[string]any{"players": []string{"alice", "alice"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRoundOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	id := env.createMatch(t)
	base := "/api/v1/matches/" + id

	resp, body := env.post(t, base+"/moves", map[string]string{"user_id": "alice", "move": "Rock"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{string(app.EventMoveAccepted)}, eventKinds(body))

	_, snap := env.get(t, base)
	assert.Equal(t, []any{"alice"}, snap["submitted"])

	resp, body = env.post(t, base+"/moves", map[string]string{"user_id": "bob", "move": "scissors"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	kinds := eventKinds(body)
	assert.Contains(t, kinds, string(app.EventRoundResolved))
	assert.Contains(t, kinds, string(app.EventPurchaseWindowOpened))
	// bob only sees his own offers.
	offerEvents := 0
	for _, k := range kinds {
		if k == string(app.EventOffersRefreshed) {
			offerEvents++
		}
	}
	assert.Equal(t, 1, offerEvents)

	_, snap = env.get(t, base)
	assert.Equal(t, string(domain.PhasePurchaseWindow), snap["phase"])
	players := snap["players"].(map[string]any)
	assert.EqualValues(t, 13, players["bob"].(map[string]any)["health"])

	_, err := env.store.LoadSnapshot(context.Background(), id)
	assert.NoError(t, err, "snapshot persisted after the round")

	_, snap = env.get(t, base+"?user_id=bob")
	offers := snap["offers"].(map[string]any)
	assert.Contains(t, offers, "bob")
	assert.NotContains(t, offers, "alice")
}

func TestMovesAfterMatchEnd(t *testing.T) {
	env := newTestEnv(t)
	id := env.createMatch(t)
	base := "/api/v1/matches/" + id

	for round := 0; round < 3; round++ {
		env.post(t, base+"/moves", map[string]string{"user_id": "alice", "move": "rock"})
		_, body := env.post(t, base+"/moves", map[string]string{"user_id": "bob", "move": "scissors"})
		if round == 2 {
			require.Contains(t, eventKinds(body), string(app.EventMatchEnded))
			break
		}
		env.post(t, base+"/ready", map[string]string{"user_id": "alice"})
		env.post(t, base+"/ready", map[string]string{"user_id": "bob"})
	}

	for _, move := range []string{"rock", "lizard"} {
		resp, body := env.post(t, base+"/moves", map[string]string{"user_id": "alice", "move": move})
		assert.Equal(t, http.StatusGone, resp.StatusCode, move)
		assert.Equal(t, string(domain.KindMatchAlreadyOver), body["kind"], move)
	}
}

func TestErrorStatuses(t *testing.T) {
	env := newTestEnv(t)
	id := env.createMatch(t)
	base := "/api/v1/matches/" + id

	resp, body := env.post(t, base+"/moves", map[string]string{"user_id": "alice", "move": "lizard"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, string(domain.KindInvalidMove), body["kind"])

	resp, body = env.post(t, base+"/purchases", map[string]string{"user_id": "alice", "upgrade_id": "granite_fist"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, string(domain.KindPhaseViolation), body["kind"])

	resp, body = env.post(t, "/api/v1/matches/nope/moves", map[string]string{"user_id": "alice", "move": "rock"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, string(domain.KindUnknownMatch), body["kind"])

	resp, _ = env.get(t, "/api/v1/matches/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPurchaseAndReadyOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	id := env.createMatch(t)
	base := "/api/v1/matches/" + id

	env.post(t, base+"/moves", map[string]string{"user_id": "alice", "move": "paper"})
	env.post(t, base+"/moves", map[string]string{"user_id": "bob", "move": "rock"})

	resp, body := env.get(t, base+"/offers/alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	offers := body["offers"].([]any)
	require.NotEmpty(t, offers)
	first := offers[0].(map[string]any)
	assert.Equal(t, "paper", first["move_affinity"])

	resp, body = env.post(t, base+"/purchases", map[string]string{"user_id": "alice", "upgrade_id": first["id"].(string)})
	if resp.StatusCode == http.StatusPaymentRequired {
		assert.Equal(t, string(domain.KindInsufficientFunds), body["kind"])
	} else {
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{string(app.EventUpgradePurchased)}, eventKinds(body))
	}

	resp, body = env.post(t, base+"/ready", map[string]string{"user_id": "alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{string(app.EventPlayerReady)}, eventKinds(body))

	resp, body = env.post(t, base+"/ready", map[string]string{"user_id": "bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, eventKinds(body), string(app.EventMoveCollectionStarted))
}

func TestWebSocketReceivesEvents(t *testing.T) {
	env := newTestEnv(t)
	id := env.createMatch(t)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/v1/matches/" + id + "/ws?user_id=bob"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.server.Hub().Subscribers(id) == 1 }, time.Second, 10*time.Millisecond)

	env.post(t, "/api/v1/matches/"+id+"/moves", map[string]string{"user_id": "alice", "move": "rock"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Kind    string         `json:"kind"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, string(app.EventMoveAccepted), ev.Kind)
	assert.Equal(t, "alice", ev.Payload["user_id"])
	assert.NotContains(t, string(data), "rock")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind domain.ErrorKind
		want int
	}{
		{domain.KindInvalidMove, http.StatusBadRequest},
		{domain.KindUnknownUpgrade, http.StatusBadRequest},
		{domain.KindInsufficientFunds, http.StatusPaymentRequired},
		{domain.KindUpgradeNotOffered, http.StatusConflict},
		{domain.KindMatchAlreadyOver, http.StatusGone},
		{domain.KindUnknownMatch, http.StatusNotFound},
		{domain.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.kind), string(tt.kind))
	}
}
