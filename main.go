package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hoodie-academy/handlers"
	"hoodie-academy/middleware"
	"hoodie-academy/models"
	"hoodie-academy/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		AppName: "hoodie-academy-xp",
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Wallet-Address, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	// TranslateError surfaces unique-index violations as
	// gorm.ErrDuplicatedKey — the ledger's idempotency backstop.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.XPEvent{},
		&models.StreakRecord{},
		&models.BountySubmission{},
		&models.CourseCompletion{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// One open (submitted or approved) entry per wallet per bounty — the
	// DB-level backstop behind the submit pre-check.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_bounty_open_entry
		ON bounty_submissions (bounty_id, wallet_address)
		WHERE status IN ('submitted', 'approved')`).Error; err != nil {
		log.Fatal("failed to create bounty open-entry index:", err)
	}

	notifier := services.NewNotifier()
	ledgerService := services.NewLedgerService(db, notifier)
	streakService := services.NewStreakService(db, ledgerService)
	bountyService := services.NewBountyService(db, ledgerService)

	reconcileEvery := 10 * time.Minute
	if v := os.Getenv("RECONCILE_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			reconcileEvery = parsed
		} else {
			log.Printf("⚠️  Invalid RECONCILE_INTERVAL %q, keeping %s", v, reconcileEvery)
		}
	}
	ledgerService.StartReconcileScheduler(reconcileEvery)

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupXPRoutes(app, ledgerService, streakService, notifier)
	handlers.SetupBountyRoutes(app, bountyService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ Ledger reconcile sweep running (every %s)", reconcileEvery)
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
