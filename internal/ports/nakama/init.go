package nakama

import (
	"context"
	"database/sql"

	"chaosclash/internal/config"
	"chaosclash/internal/modifier"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs and match handlers for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	path := defaultConfigPath
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if val, ok := env[envGameConfigPath]; ok && val != "" {
			path = val
		}
	}
	if err := config.LoadGameConfig(path); err != nil {
		logger.Warn("InitModule: Could not load game config, using defaults: %v", err)
	}
	cfg := config.GetGameConfig()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	engine := modifier.NewEngine(catalog, cfg.DuelRules().OfferCount)

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameChaosClash, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(engine, cfg), nil
	}); err != nil {
		return err
	}

	logger.Info("ChaosClash Go module loaded with %d upgrades.", catalog.Len())
	return nil
}

func loadCatalog(cfg *config.GameConfig) (*modifier.Catalog, error) {
	if cfg != nil && cfg.CatalogPath != "" {
		return modifier.LoadCatalogFile(cfg.CatalogPath)
	}
	return modifier.DefaultCatalog()
}
