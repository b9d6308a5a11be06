package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/rezabhm/slaughter-erp/internal/audit"
	"github.com/rezabhm/slaughter-erp/internal/auth"
	"github.com/rezabhm/slaughter-erp/internal/client"
	"github.com/rezabhm/slaughter-erp/internal/config"
	"github.com/rezabhm/slaughter-erp/internal/engine"
	"github.com/rezabhm/slaughter-erp/internal/erp"
	"github.com/rezabhm/slaughter-erp/internal/logging"
	"github.com/rezabhm/slaughter-erp/internal/schema"
	"github.com/rezabhm/slaughter-erp/internal/store"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logging.New(false)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()
	zlog.Info("config loaded",
		zap.Int("port", cfg.Server.Port),
		zap.String("db", fmt.Sprintf("%s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)))

	// 2. Connect to database
	db, err := store.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 3. Register domain schemas and bootstrap entity tables
	reg := schema.NewRegistry()
	schemas := erp.NewSchemas()
	schemas.RegisterAll(reg)
	if err := db.Bootstrap(ctx, reg); err != nil {
		log.Fatalf("Failed to bootstrap tables: %v", err)
	}
	zlog.Info("entity tables ready")

	// 4. Remote reference resolution for cross-service entities
	tokens := client.NewTokenProvider(cfg.Services.TokenURL, cfg.Services.Username, cfg.Services.Password)
	remote := client.NewServiceClient(cfg.Services.BaseURLs, tokens)

	// 5. Engine collaborators
	cache := engine.NewQueryCache(db, cfg.Cache.MaxBytes, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	expander := engine.NewExpander(db, remote)
	authz := auth.NewRoleTable(cfg.AllowedRoles)

	handler := engine.NewHandler(db, cache, expander, authz, zlog)

	if cfg.Audit.Enabled {
		shipper := audit.NewShipper(db.Pool, zlog, cfg.Audit.BufferSize,
			time.Duration(cfg.Audit.FlushIntervalMs)*time.Millisecond)
		defer shipper.Stop()
		handler.WithAudit(shipper)
	}

	// 6. Domain resources and workflow actions
	erp.Register(handler, db, schemas)

	// 7. Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 8. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 9. Auth routes (before middleware, no token required)
	accessTTL := time.Duration(cfg.Auth.AccessTokenTTLMin) * time.Minute
	authHandler := auth.NewHandler(db, schemas.User, cfg.JWTSecret, accessTTL)
	auth.RegisterRoutes(app, authHandler)

	// 10. Generic CRUD + action routes behind auth
	engine.RegisterRoutes(app, handler, auth.Middleware(cfg.JWTSecret))

	// 11. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	zlog.Info("starting server", zap.String("addr", addr))
	log.Fatal(app.Listen(addr))
}

func errorHandler(c *fiber.Ctx, err error) error {
	var appErr *engine.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(appErr)
	}

	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	log.Printf("ERROR: %v", err)
	return c.Status(code).JSON(fiber.Map{"message": "Internal server error"})
}
