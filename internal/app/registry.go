package app

import (
	"fmt"
	"sync"

	"chaosclash/internal/domain"
	"chaosclash/internal/modifier"

	"github.com/google/uuid"
)

// Registry hosts many independent matches keyed by id. Matches share the
// service and catalog but never state.
type Registry struct {
	svc *Service

	mu      sync.RWMutex
	matches map[string]*Match
}

// NewRegistry wraps svc.
func NewRegistry(svc *Service) *Registry {
	return &Registry{svc: svc, matches: make(map[string]*Match)}
}

// Service returns the wrapped service.
func (r *Registry) Service() *Service {
	return r.svc
}

// Create starts a match with a fresh id.
func (r *Registry) Create(seats [2]string) (*Match, []Event, error) {
	m, events, err := r.svc.StartMatch(uuid.NewString(), seats)
	if err != nil {
		return nil, nil, err
	}
	r.mu.Lock()
	r.matches[m.ID] = m
	r.mu.Unlock()
	return m, events, nil
}

// Get returns the match or ErrUnknownMatch.
func (r *Registry) Get(matchID string) (*Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMatch, matchID)
	}
	return m, nil
}

// Remove forgets a match.
func (r *Registry) Remove(matchID string) {
	r.mu.Lock()
	delete(r.matches, matchID)
	r.mu.Unlock()
}

// Len is the number of hosted matches.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}

func (r *Registry) SubmitMove(matchID, userID string, move domain.Move) ([]Event, error) {
	m, err := r.Get(matchID)
	if err != nil {
		return nil, err
	}
	return r.svc.SubmitMove(m, userID, move)
}

func (r *Registry) PurchaseUpgrade(matchID, userID, upgradeID string) ([]Event, error) {
	m, err := r.Get(matchID)
	if err != nil {
		return nil, err
	}
	return r.svc.PurchaseUpgrade(m, userID, upgradeID)
}

func (r *Registry) EndPurchaseWindow(matchID, userID string) ([]Event, error) {
	m, err := r.Get(matchID)
	if err != nil {
		return nil, err
	}
	return r.svc.EndPurchaseWindow(m, userID)
}

func (r *Registry) Offers(matchID, userID string) ([]modifier.Upgrade, error) {
	m, err := r.Get(matchID)
	if err != nil {
		return nil, err
	}
	return r.svc.Offers(m, userID)
}

func (r *Registry) Snapshot(matchID, viewerID string) (Snapshot, error) {
	m, err := r.Get(matchID)
	if err != nil {
		return Snapshot{}, err
	}
	return r.svc.Snapshot(m, viewerID), nil
}
