package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tournament-arena-system/handlers"
	"tournament-arena-system/middleware"
	"tournament-arena-system/models"
	"tournament-arena-system/services"
	"tournament-arena-system/utils"
	"tournament-arena-system/wizard"
	"tournament-arena-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 32 * 1024 * 1024, // screenshots only, keep it tight
	})

	// Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Name, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	// TranslateError turns driver-level constraint violations into
	// gorm.ErrDuplicatedKey, which the registration executor relies on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Tournament{},
		&models.TournamentRegistration{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.ResultSubmission{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// Wizard snapshots live in Redis so drafts survive restarts; without
	// Redis they fall back to process memory.
	var snapshotStore wizard.SnapshotStore
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL:", err)
		}
		snapshotStore = wizard.NewRedisSnapshotStore(redis.NewClient(opts))
	} else {
		log.Println("REDIS_URL not set — wizard drafts will not survive restarts")
		snapshotStore = wizard.NewMemorySnapshotStore()
	}

	visionURL := os.Getenv("VISION_SERVICE_URL")
	if visionURL == "" {
		log.Fatal("VISION_SERVICE_URL environment variable not set")
	}
	visionToken := os.Getenv("VISION_SERVICE_TOKEN")
	if visionToken == "" {
		log.Fatal("VISION_SERVICE_TOKEN environment variable not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectivity := workers.NewConnectivityMonitor()
	go connectivity.Run(ctx)

	countdowns := services.NewCountdownService()
	if err := countdowns.Start(); err != nil {
		log.Fatal("failed to start countdown ticker:", err)
	}
	defer countdowns.Stop()

	walletService := services.NewWalletService(db)
	registrationService := services.NewRegistrationService(db, connectivity)
	tournamentService := services.NewTournamentService(db, registrationService, countdowns)
	wizardService := services.NewWizardService(snapshotStore, registrationService)
	visionClient := services.NewVisionClient(visionURL, visionToken)
	resultService := services.NewResultService(db, visionClient, walletService)

	tournamentService.StartLifecycleScheduler()

	handlers.SetupRoutes(app, tournamentService, wizardService, walletService, resultService, connectivity)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server running on http://localhost:%s", port)
	log.Println("Countdown ticker running (1s)")
	log.Println("Lifecycle scheduler running (1m)")
	log.Println("Connectivity monitor running")
	log.Println("GatewayAuthMiddleware enforced globally — all requests must come from Gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
