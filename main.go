package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/stickerlab/sticker-engine/pkg/config"
	"github.com/stickerlab/sticker-engine/pkg/database"
	"github.com/stickerlab/sticker-engine/pkg/handlers"
	"github.com/stickerlab/sticker-engine/pkg/models"
	"github.com/stickerlab/sticker-engine/pkg/repositories"
	"github.com/stickerlab/sticker-engine/pkg/retry"
	"github.com/stickerlab/sticker-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Host),
		zap.String("redis", cfg.Redis.Host))

	ctx := context.Background()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// The database may come up after us; retry the initial connection.
	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.URL(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}

	catalogRepo := repositories.NewCatalogRepository(db)
	collectionRepo := repositories.NewCollectionRepository(db)
	dailyRepo := repositories.NewDailyStatsRepository(db)
	userRepo := repositories.NewUserStatsRepository(db)

	cache := services.NewNoopSnapshotCache()
	if redisClient != nil {
		cache = services.NewRedisSnapshotCache(redisClient, cfg.Storage.SnapshotCacheTTL, logger)
	}

	timeout := cfg.Storage.QueryTimeout
	ingestService := services.NewIngestService(catalogRepo, collectionRepo, cache, timeout, logger)
	selectorService := services.NewSelectorService(catalogRepo, timeout, logger)
	usageService := services.NewUsageService(dailyRepo, userRepo, catalogRepo, cache, timeout, logger)

	// The chat transport adapter plugs in here; until one is attached,
	// inbound packs carry no sibling set beyond the sticker itself.
	fetcher := services.CollectionFetcherFunc(
		func(ctx context.Context, collectionID string) ([]models.IncomingSticker, error) {
			return nil, nil
		})
	engine := services.NewReplyEngine(ingestService, selectorService, usageService, fetcher, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewStatsHandler(usageService, logger).RegisterRoutes(mux)
	handlers.NewReplyHandler(engine, logger).RegisterRoutes(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting sticker-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	sqlDB.SetConnMaxLifetime(time.Minute)
	return database.RunMigrations(sqlDB, cfg.MigrationsPath, logger)
}
