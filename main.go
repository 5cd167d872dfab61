package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"skill-wager-system/config"
	"skill-wager-system/handlers"
	"skill-wager-system/ledger"
	"skill-wager-system/middleware"
	"skill-wager-system/models"
	"skill-wager-system/services"
	"skill-wager-system/utils"
	"skill-wager-system/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatal("failed to build logger:", err)
	}
	defer logger.Sync()

	db, err := cfg.OpenDB()
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	book := ledger.NewGormLedger(db)

	// Mint and metadata collaborators are optional; without them claims stay
	// pending until the retry job finds one configured.
	var minter services.Minter
	if cfg.MintServiceURL != "" {
		minter = services.NewMintClient(cfg.MintServiceURL, cfg.MintServiceToken)
	} else {
		logger.Warn("MINT_SERVICE_URL not set, achievement mints will remain pending")
	}
	var metadata services.MetadataStore
	if cfg.MetadataBucket != "" {
		store, err := utils.NewMetadataStore(ctx, utils.StoreConfig{
			Endpoint:        cfg.MetadataEndpoint,
			Bucket:          cfg.MetadataBucket,
			AccessKeyID:     cfg.MetadataAccessKeyID,
			AccessKeySecret: cfg.MetadataAccessKeySecret,
			PublicBaseURL:   cfg.CDNBaseURL,
		})
		if err != nil {
			logger.Fatal("failed to initialize metadata store", zap.Error(err))
		}
		metadata = store
	}

	progressionService := services.NewProgressionService(db, book, cfg.RatingParams(), clock, logger.Named("progression"))
	settlementService := services.NewSettlementService(db, book, progressionService, cfg.SettlementPolicy(), cfg.SystemResolverID, clock, logger.Named("settlement"))
	achievementService := services.NewAchievementService(db, cfg.AchievementPolicy(), minter, metadata, clock, logger.Named("achievements"))
	moderationService := services.NewModerationService(db, progressionService, clock, logger.Named("moderation"))
	seasonService := services.NewSeasonService(db, cfg.RatingParams(), clock, logger.Named("season"))

	scheduler, err := services.StartMaintenanceScheduler(ctx, &services.Maintenance{
		Settlements:  settlementService,
		Achievements: achievementService,
		Log:          logger.Named("maintenance"),
	}, clock, cfg.MaintenanceInterval)
	if err != nil {
		logger.Fatal("failed to start maintenance scheduler", zap.Error(err))
	}

	if cfg.SyncServiceURL != "" {
		depositClient := workers.NewDepositSyncClient(cfg.SyncServiceURL, cfg.GatewayToken, book, clock, logger.Named("deposit_sync"))
		go workers.PollDeposits(ctx, depositClient, cfg.SyncInterval)

		syncWorker := workers.NewParticipantSyncWorker(cfg.SyncServiceURL, "/api/v1/public/profiles", cfg.GatewayToken,
			cfg.SyncInterval, progressionService, clock, logger.Named("participant_sync"))
		syncWorker.Start(ctx)
	} else {
		logger.Warn("SYNC_SERVICE_URL not set, deposit and participant sync disabled")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	// Only Gateway requests allowed.
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken, logger))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	secured := app.Group("/s", middleware.UserContextMiddleware(logger))
	handlers.SetupSettlementRoutes(secured, settlementService, logger)
	handlers.SetupProgressionRoutes(secured, progressionService, achievementService, logger)
	handlers.SetupAdminRoutes(secured, moderationService, seasonService, logger)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()
	logger.Info("server running", zap.String("port", cfg.Port), zap.Strings("origins", cfg.AllowedOrigins))

	<-ctx.Done()
	logger.Info("shutting down server")

	if err := scheduler.Shutdown(); err != nil {
		logger.Warn("scheduler shutdown", zap.Error(err))
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("server shutdown", zap.Error(err))
	}
}

