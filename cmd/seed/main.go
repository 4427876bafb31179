// Command seed upserts development identities into DATABASE_URL. Safe to run repeatedly.
package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"asset-registry/backend/internal/config"
	"asset-registry/backend/internal/db"
	identityrepo "asset-registry/backend/internal/identity/repository"
	"asset-registry/backend/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("seed: refusing to run with APP_ENV=production")
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := seed.Run(ctx, identityrepo.NewPostgresRepository(pool), logger); err != nil {
		logger.Fatal("seed", zap.Error(err))
	}
	logger.Info("seed complete")
}
