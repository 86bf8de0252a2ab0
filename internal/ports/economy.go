package ports

import "context"

// WalletUpdate represents a single currency change for a user.
type WalletUpdate struct {
	UserID   string
	Amount   int64
	Metadata map[string]interface{}
}

// EconomyPort defines the interface for the persistent account currency.
// It is separate from in-match coins, which live and die with the duel.
type EconomyPort interface {
	// GetBalance retrieves the current gold balance for a user.
	GetBalance(ctx context.Context, userID string) (int64, error)

	// UpdateBalances applies multiple wallet changes.
	// This is used when a duel ends to pay out rewards.
	UpdateBalances(ctx context.Context, updates []WalletUpdate) error
}
