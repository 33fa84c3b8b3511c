package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/seedbuilders/agency-portal-api/internal/config"
	"github.com/seedbuilders/agency-portal-api/internal/db"
	"github.com/seedbuilders/agency-portal-api/internal/presence"
	"github.com/seedbuilders/agency-portal-api/internal/services/auth"
	"github.com/seedbuilders/agency-portal-api/internal/services/catalog"
	"github.com/seedbuilders/agency-portal-api/internal/services/conversation"
	"github.com/seedbuilders/agency-portal-api/internal/services/invoice"
	"github.com/seedbuilders/agency-portal-api/internal/services/servicerequest"
	"github.com/seedbuilders/agency-portal-api/internal/services/upload"
	"github.com/seedbuilders/agency-portal-api/internal/ws"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Initialise the database
	if err := db.InitDB(cfg); err != nil {
		log.Fatalf("❌ Failed to initialise database: %v", err)
	}
	defer db.CloseDB()

	// Presence is an enhancement: without Redis the chat still works, the
	// portal just cannot show who is online.
	presenceStore, err := presence.NewStore(cfg.RedisConfig)
	if err != nil {
		log.Printf("⚠️ Presence store unavailable: %v", err)
		presenceStore = nil
	} else {
		defer presenceStore.Close()
	}

	// Create the Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Agency Portal API",
		ErrorHandler: errorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	// Realtime hub
	var tracker ws.PresenceTracker
	if presenceStore != nil {
		tracker = presenceStore
	}
	manager := ws.NewManager(conversation.NewStore(), tracker)
	wsServer := ws.NewServer(cfg, manager)

	// Services
	authService := auth.NewAuthService(cfg)
	catalogService := catalog.NewCatalogService(cfg)
	requestService := servicerequest.NewServiceRequestService(cfg)
	conversationService := conversation.NewConversationService(cfg, presenceStore)
	invoiceService := invoice.NewInvoiceService(cfg)
	uploadService := upload.NewUploadService(cfg)

	// Routes
	authService.SetupRoutes(app)
	catalogService.SetupRoutes(app)
	requestService.SetupRoutes(app)
	conversationService.SetupRoutes(app)
	invoiceService.SetupRoutes(app)
	uploadService.SetupRoutes(app)

	// Hand the realtime endpoint to clients
	app.Get("/api/realtime", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"url": cfg.WebSocketURL})
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("✅ Agency Portal API listening on :%s", cfg.Port)
		return app.Listen(":" + cfg.Port)
	})

	g.Go(func() error {
		return wsServer.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Printf("❌ Server stopped: %v", err)
	}
}

// errorHandler converts Fiber errors into JSON responses.
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
