package app

import (
	"chaosclash/internal/domain"
	"chaosclash/internal/modifier"
)

// EventKind identifies emitted domain events for transport dispatch.
type EventKind string

const (
	EventMatchStarted          EventKind = "match_started"
	EventMoveAccepted          EventKind = "move_accepted"
	EventRoundResolved         EventKind = "round_resolved"
	EventPurchaseWindowOpened  EventKind = "purchase_window_opened"
	EventOffersRefreshed       EventKind = "offers_refreshed"
	EventUpgradePurchased      EventKind = "upgrade_purchased"
	EventPlayerReady           EventKind = "player_ready"
	EventMoveCollectionStarted EventKind = "move_collection_started"
	EventMatchEnded            EventKind = "match_ended"
)

// Event is a domain/app event with optional targeted recipients.
type Event struct {
	Kind       EventKind `json:"kind"`
	Payload    any       `json:"payload"`
	Recipients []string  `json:"-"` // user IDs; empty means broadcast
}

type MatchStartedPayload struct {
	Seats   [2]string                `json:"seats"`
	Players map[string]domain.Player `json:"players"`
}

// MoveAcceptedPayload never carries the move itself so the opponent cannot see it.
type MoveAcceptedPayload struct {
	UserID string `json:"user_id"`
	Round  int    `json:"round"`
}

type RoundResolvedPayload struct {
	Record  domain.RoundRecord       `json:"record"`
	Players map[string]domain.Player `json:"players"`
}

type PurchaseWindowOpenedPayload struct {
	Round int `json:"round"`
}

type OffersRefreshedPayload struct {
	UserID string             `json:"user_id"`
	Offers []modifier.Upgrade `json:"offers"`
}

type UpgradePurchasedPayload struct {
	UserID   string            `json:"user_id"`
	Upgrade  modifier.Upgrade  `json:"upgrade"`
	Instance modifier.Instance `json:"instance"`
	Coins    int               `json:"coins"`
	Chaos    int               `json:"chaos"`
}

type PlayerReadyPayload struct {
	UserID string `json:"user_id"`
}

type MoveCollectionStartedPayload struct {
	Round  int  `json:"round"`
	Forced bool `json:"forced"`
}

type MatchEndedPayload struct {
	Result    string                   `json:"result"`
	WinReason domain.WinReason         `json:"win_reason"`
	Players   map[string]domain.Player `json:"players"`
}
