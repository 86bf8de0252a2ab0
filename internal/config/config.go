package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"chaosclash/internal/domain"
)

// RulesConfig overrides the duel numbers. Zero fields keep the defaults.
type RulesConfig struct {
	StartingHealth int `json:"starting_health"`
	StartingChaos  int `json:"starting_chaos"`
	StartingCoins  int `json:"starting_coins"`
	Damage         int `json:"damage"`
	WinnerChaos    int `json:"winner_chaos"`
	LoserChaos     int `json:"loser_chaos"`
	DrawChaos      int `json:"draw_chaos"`
	CoinsPerRound  int `json:"coins_per_round"`
	WinsToWin      int `json:"wins_to_win"`
	ChaosToWin     int `json:"chaos_to_win"`
	OfferCount     int `json:"offer_count"`
}

// RewardConfig is the wallet payout at match end.
type RewardConfig struct {
	Win  int64 `json:"win"`
	Draw int64 `json:"draw"`
	Loss int64 `json:"loss"`
}

type GameConfig struct {
	Rules RulesConfig `json:"rules"`
	// MoveDurationSeconds is how long a player may sit on a move before one is picked for them.
	MoveDurationSeconds int `json:"move_duration_seconds"`
	// PurchaseWindowSeconds closes the window when players never signal ready.
	PurchaseWindowSeconds int          `json:"purchase_window_seconds"`
	Rewards               RewardConfig `json:"rewards"`
	// CatalogPath points at a YAML catalog; empty uses the embedded one.
	CatalogPath string `json:"catalog_path"`
}

const (
	DefaultMoveDurationSeconds   = 20
	DefaultPurchaseWindowSeconds = 30
)

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		c, err := ParseGameConfig(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// ParseGameConfig decodes a config document without touching the global.
func ParseGameConfig(data []byte) (*GameConfig, error) {
	var c GameConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	return &c, nil
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// DuelRules merges the configured overrides onto domain.DefaultRules.
func (c *GameConfig) DuelRules() domain.Rules {
	r := domain.DefaultRules()
	if c == nil {
		return r
	}
	o := c.Rules
	override := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	override(&r.StartingHealth, o.StartingHealth)
	override(&r.StartingChaos, o.StartingChaos)
	override(&r.StartingCoins, o.StartingCoins)
	override(&r.Damage, o.Damage)
	override(&r.WinnerChaos, o.WinnerChaos)
	override(&r.LoserChaos, o.LoserChaos)
	override(&r.DrawChaos, o.DrawChaos)
	override(&r.CoinsPerRound, o.CoinsPerRound)
	override(&r.WinsToWin, o.WinsToWin)
	override(&r.ChaosToWin, o.ChaosToWin)
	override(&r.OfferCount, o.OfferCount)
	return r
}

// MoveDuration returns the move timeout in seconds, or the default if not set.
func (c *GameConfig) MoveDuration() int {
	if c == nil || c.MoveDurationSeconds <= 0 {
		return DefaultMoveDurationSeconds
	}
	return c.MoveDurationSeconds
}

// PurchaseWindowDuration returns the window timeout in seconds, or the default if not set.
func (c *GameConfig) PurchaseWindowDuration() int {
	if c == nil || c.PurchaseWindowSeconds <= 0 {
		return DefaultPurchaseWindowSeconds
	}
	return c.PurchaseWindowSeconds
}

// Reward returns the payout for a finished match from userID's point of view.
func (c *GameConfig) Reward(result, userID string) int64 {
	r := RewardConfig{Win: 100, Draw: 40, Loss: 20}
	if c != nil && c.Rewards != (RewardConfig{}) {
		r = c.Rewards
	}
	switch result {
	case domain.ResultDraw:
		return r.Draw
	case userID:
		return r.Win
	default:
		return r.Loss
	}
}
