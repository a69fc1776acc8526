package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/kassslll/learnhub/internal/blacklist"
	"github.com/kassslll/learnhub/internal/config"
	"github.com/kassslll/learnhub/internal/database"
	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/meeting"
	"github.com/kassslll/learnhub/internal/middleware"
	"github.com/kassslll/learnhub/internal/notify"
	"github.com/kassslll/learnhub/internal/routes"
	"github.com/kassslll/learnhub/internal/services"
	"github.com/kassslll/learnhub/internal/storage"
	"github.com/kassslll/learnhub/internal/utils"
)

const uploadLimit = 300 * 1024 * 1024

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("Error loading config: " + err.Error())
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic("Error initializing logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal("Error initializing database", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Error migrating database", "error", err)
	}

	var revoked blacklist.Store
	if cfg.RedisAddr != "" {
		revoked, err = blacklist.NewRedis(ctx, log, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatal("Error connecting to redis", "error", err)
		}
	} else {
		log.Warn("REDIS_ADDR not set, keeping the token blacklist in the database")
		revoked = blacklist.NewGorm(db)
	}

	blobs, err := storage.NewGCSStore(ctx, log, cfg.GCSBucket, cfg.GCSCDNDomain)
	if err != nil {
		log.Fatal("Error initializing blob storage", "error", err)
	}

	var mailer notify.Notifier = notify.LogNotifier{Log: log}
	if cfg.SendGridAPIKey != "" {
		if mailer, err = notify.NewSendGrid(log, cfg.SendGridAPIKey, cfg.MailFromEmail, cfg.MailFromName); err != nil {
			log.Fatal("Error initializing sendgrid", "error", err)
		}
	}

	var meetings meeting.Provider
	if cfg.ZoomClientID != "" {
		if meetings, err = meeting.NewZoom(log, cfg.ZoomClientID, cfg.ZoomClientSecret, cfg.ZoomAccountID); err != nil {
			log.Fatal("Error initializing zoom", "error", err)
		}
	} else {
		log.Warn("Zoom is not configured, online lessons need their own meeting url")
	}

	hasher := utils.NewBcryptHasher()
	userTokens := utils.NewTokenSigner(utils.RoleUser, cfg.JWTSecret, cfg.TokenTTL)
	adminTokens := utils.NewTokenSigner(utils.RoleAdmin, cfg.JWTSecretAdmin, cfg.TokenTTL)

	svc := routes.Services{
		Auth: services.NewAuthService(db, log, services.AuthDeps{
			Notifier:     mailer,
			Hasher:       hasher,
			Signer:       userTokens,
			Blacklist:    revoked,
			BlacklistTTL: cfg.BlacklistTTL,
		}),
		Admin:       services.NewAdminService(db, log, hasher, adminTokens, revoked, cfg.BlacklistTTL),
		Accounts:    services.NewAccountService(db, log, blobs, hasher),
		Catalog:     services.NewCatalogService(db, log, blobs, meetings),
		Enrollments: services.NewEnrollmentService(db, log, blobs),
		Reviews:     services.NewReviewService(db, log),
		Questions:   services.NewQuestionService(db, log),
		Interests:   services.NewInterestService(db, log, blobs),
		Banners:     services.NewBannerService(db, log, blobs),
		Contacts:    services.NewContactService(db, log),
		Meetings:    services.NewMeetingService(log, meetings),
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: utils.ErrorHandler(log),
		BodyLimit:    uploadLimit,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.TrimSpace(cfg.CORSOrigins),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(log))

	// Setup routes
	routes.SetupRoutes(app, svc)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "port", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}
