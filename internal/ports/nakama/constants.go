package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a duel with a free seat.
	RpcQuickMatch = "quick_match"
	// RpcMatchSnapshot returns the current snapshot of a running duel.
	RpcMatchSnapshot = "match_snapshot"
	// RpcMatchOffers returns the caller's private upgrade offers.
	RpcMatchOffers = "match_offers"

	// MatchNameChaosClash is the authoritative match handler name registered with Nakama.
	MatchNameChaosClash = "chaosclash_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpSubmitMove      int64 = 1
	OpPurchaseUpgrade int64 = 2
	OpEndWindow       int64 = 3
	OpRequestSnapshot int64 = 4

	// Server -> Client events
	OpSnapshot              int64 = 100
	OpMoveAccepted          int64 = 101
	OpRoundResolved         int64 = 102
	OpPurchaseWindowOpened  int64 = 103
	OpOffers                int64 = 104 // send privately
	OpUpgradePurchased      int64 = 105
	OpMoveCollectionStarted int64 = 106
	OpMatchEnded            int64 = 107
	OpPlayerReady           int64 = 108
	OpError                 int64 = 110
)

const (
	snapshotCollection = "chaosclash_snapshots"
	walletCurrency     = "gold"

	envGameConfigPath = "chaosclash_game_config"
	defaultConfigPath = "data/game_config.json"
)
