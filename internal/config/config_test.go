package config

import (
	"testing"
	"time"

	"chaosclash/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuelRulesOverrides(t *testing.T) {
	c, err := ParseGameConfig([]byte(`{"rules":{"starting_health":30,"wins_to_win":5}}`))
	require.NoError(t, err)

	r := c.DuelRules()
	want := domain.DefaultRules()
	want.StartingHealth = 30
	want.WinsToWin = 5
	assert.Equal(t, want, r)
}

func TestNilConfigDefaults(t *testing.T) {
	var c *GameConfig
	assert.Equal(t, domain.DefaultRules(), c.DuelRules())
	assert.Equal(t, DefaultMoveDurationSeconds, c.MoveDuration())
	assert.Equal(t, DefaultPurchaseWindowSeconds, c.PurchaseWindowDuration())
	assert.Equal(t, int64(100), c.Reward("u1", "u1"))
}

func TestReward(t *testing.T) {
	c, err := ParseGameConfig([]byte(`{"rewards":{"win":10,"draw":5,"loss":1}}`))
	require.NoError(t, err)

	assert.Equal(t, int64(10), c.Reward("u1", "u1"))
	assert.Equal(t, int64(1), c.Reward("u2", "u1"))
	assert.Equal(t, int64(5), c.Reward(domain.ResultDraw, "u1"))
}

func TestParseGameConfigInvalid(t *testing.T) {
	_, err := ParseGameConfig([]byte(`{`))
	assert.Error(t, err)
}

func TestLoadServerConfig(t *testing.T) {
	t.Setenv("CHAOSCLASH_ADDR", ":9090")
	t.Setenv("CHAOSCLASH_SNAPSHOT_TTL", "1h")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, time.Hour, cfg.SnapshotTTL)

	t.Setenv("CHAOSCLASH_STORE", "etcd")
	_, err = LoadServerConfig()
	assert.Error(t, err)
}
