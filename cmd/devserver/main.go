// Command devserver runs the duel service over HTTP and WebSocket without Nakama.
package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"chaosclash/internal/app"
	"chaosclash/internal/config"
	"chaosclash/internal/devserver"
	"chaosclash/internal/metrics"
	"chaosclash/internal/modifier"
	"chaosclash/internal/ports"
	"chaosclash/internal/store"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("devserver stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.ServerConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GameConfigPath != "" {
		if err := config.LoadGameConfig(cfg.GameConfigPath); err != nil {
			logger.Warn("could not load game config, using defaults", "path", cfg.GameConfigPath, "err", err)
		}
	}
	gameCfg := config.GetGameConfig()
	rules := gameCfg.DuelRules()

	catalog, err := loadCatalog(gameCfg)
	if err != nil {
		return err
	}
	engine := modifier.NewEngine(catalog, rules.OfferCount)

	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}

	rec := metrics.New()
	svc := app.NewService(engine, rules, rng, app.WithMetrics(rec))

	snapshots, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := devserver.New(app.NewRegistry(svc), snapshots, rec, logger)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("devserver listening", "addr", cfg.Addr, "store", cfg.Store, "upgrades", catalog.Len())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func loadCatalog(cfg *config.GameConfig) (*modifier.Catalog, error) {
	if cfg != nil && cfg.CatalogPath != "" {
		return modifier.LoadCatalogFile(cfg.CatalogPath)
	}
	return modifier.DefaultCatalog()
}

func openStore(ctx context.Context, cfg config.ServerConfig) (ports.SnapshotStore, func(), error) {
	if cfg.Store != config.StoreRedis {
		return store.NewMemoryStore(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	rs := store.NewRedisStore(rdb, cfg.SnapshotTTL)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		rdb.Close()
		return nil, nil, err
	}
	return rs, func() { rdb.Close() }, nil
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
