// Package devserver exposes the duel service over plain HTTP and WebSocket
// for local play and integration testing without a Nakama cluster.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chaosclash/internal/app"
	"chaosclash/internal/domain"
	"chaosclash/internal/metrics"
	"chaosclash/internal/ports"
)

// Server routes HTTP requests to a match registry.
type Server struct {
	registry  *app.Registry
	snapshots ports.SnapshotStore
	hub       *Hub
	metrics   *metrics.Recorder
	logger    *slog.Logger
}

// New creates a server. The registry's service should report to rec.
func New(registry *app.Registry, snapshots ports.SnapshotStore, rec *metrics.Recorder, logger *slog.Logger) *Server {
	return &Server{
		registry:  registry,
		snapshots: snapshots,
		hub:       NewHub(rec.WebSocketClients, logger),
		metrics:   rec,
		logger:    logger,
	}
}

// Hub exposes the event fan-out.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": domain.GameName})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/matches", s.createMatch)
		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Get("/", s.getMatch)
			r.Post("/moves", s.submitMove)
			r.Get("/offers/{playerID}", s.getOffers)
			r.Post("/purchases", s.purchase)
			r.Post("/ready", s.ready)
			r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
				matchID := matchIDParam(r)
				if _, err := s.registry.Get(matchID); err != nil {
					writeDomainError(w, err)
					return
				}
				s.hub.serveWS(w, r, matchID)
			})
		})
	})
	return r
}

type createMatchRequest struct {
	Players [2]string `json:"players"`
}

type matchResponse struct {
	MatchID  string       `json:"match_id"`
	Snapshot app.Snapshot `json:"snapshot"`
}

func (s *Server) createMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	m, events, err := s.registry.Create(req.Players)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.metrics.ActiveMatches.Set(float64(s.registry.Len()))
	s.logger.Info("match created", "match_id", m.ID, "players", req.Players)

	s.afterEvents(r.Context(), m.ID, events)
	snap, _ := s.registry.Snapshot(m.ID, "")
	writeJSON(w, http.StatusCreated, matchResponse{MatchID: m.ID, Snapshot: snap})
}

// getMatch serves the live snapshot as seen by the user_id query parameter,
// or the persisted one for matches no longer hosted.
func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	matchID := matchIDParam(r)
	snap, err := s.registry.Snapshot(matchID, r.URL.Query().Get("user_id"))
	if err == nil {
		writeJSON(w, http.StatusOK, snap)
		return
	}

	stored, serr := s.snapshots.LoadSnapshot(r.Context(), matchID)
	if errors.Is(serr, ports.ErrSnapshotNotFound) {
		writeDomainError(w, err)
		return
	}
	if serr != nil {
		s.logger.Error("load snapshot failed", "match_id", matchID, "err", serr)
		writeError(w, "failed to load snapshot", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(stored)
}

type moveRequest struct {
	UserID string `json:"user_id"`
	Move   string `json:"move"`
}

func (s *Server) submitMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	matchID := matchIDParam(r)
	events, err := s.registry.SubmitMove(matchID, req.UserID, domain.NormalizeMove(req.Move))
	s.respond(w, r, matchID, req.UserID, events, err)
}

func (s *Server) getOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := s.registry.Offers(matchIDParam(r), chi.URLParam(r, "playerID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"offers": offers})
}

type purchaseRequest struct {
	UserID    string `json:"user_id"`
	UpgradeID string `json:"upgrade_id"`
}

func (s *Server) purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	matchID := matchIDParam(r)
	events, err := s.registry.PurchaseUpgrade(matchID, req.UserID, req.UpgradeID)
	s.respond(w, r, matchID, req.UserID, events, err)
}

type readyRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	var req readyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	matchID := matchIDParam(r)
	events, err := s.registry.EndPurchaseWindow(matchID, req.UserID)
	s.respond(w, r, matchID, req.UserID, events, err)
}

type eventsResponse struct {
	Events []app.Event `json:"events"`
}

// respond publishes events and returns those visible to the caller.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, matchID, userID string, events []app.Event, err error) {
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.afterEvents(r.Context(), matchID, events)
	writeJSON(w, http.StatusOK, eventsResponse{Events: visibleTo(events, userID)})
}

func visibleTo(events []app.Event, userID string) []app.Event {
	out := make([]app.Event, 0, len(events))
	for _, ev := range events {
		if len(ev.Recipients) > 0 && !slices.Contains(ev.Recipients, userID) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// afterEvents fans events out and persists the snapshot after every accepted mutation.
func (s *Server) afterEvents(ctx context.Context, matchID string, events []app.Event) {
	if len(events) == 0 {
		return
	}
	s.hub.Publish(matchID, events)

	for _, ev := range events {
		if p, ok := ev.Payload.(app.MatchEndedPayload); ok {
			s.logger.Info("match ended", "match_id", matchID, "result", p.Result, "reason", p.WinReason)
		}
	}

	// Persisted snapshots carry no offers.
	snap, err := s.registry.Snapshot(matchID, "")
	if err != nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("marshal snapshot failed", "match_id", matchID, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.snapshots.SaveSnapshot(ctx, matchID, data); err != nil {
		s.logger.Error("persist snapshot failed", "match_id", matchID, "err", err)
	}
}
