package main

import (
	"log/slog"
	"net/http"
	"os"

	_ "capsulevault/docs" // swagger docs

	"github.com/labstack/echo/v4"

	"capsulevault/internal/auth"
	"capsulevault/internal/cache"
	"capsulevault/internal/config"
	"capsulevault/internal/crypto"
	"capsulevault/internal/db"
	"capsulevault/internal/handler"
	"capsulevault/internal/logging"
	"capsulevault/internal/model"
	"capsulevault/internal/repository"
	"capsulevault/internal/router"
	"capsulevault/internal/service"
)

// @title Time Capsule API
// @version 1.0
// @description Time capsule service: sealed messages with a time lock, goals, sharing and a community feed.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	logging.Setup()
	cfg := config.Load()

	e := echo.New()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		slog.Error("database init", "error", err)
		os.Exit(1)
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		slog.Warn("RESET_DB=true detected, dropping all tables")
		tables := []interface{}{
			&model.Comment{},
			&model.Reaction{},
			&model.Goal{},
			&model.CapsuleFile{},
			&model.Capsule{},
			&model.Draft{},
			&model.UserProfile{},
			&model.User{},
		}
		for _, table := range tables {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				slog.Warn("failed to drop table (may not exist)", "error", err)
			}
		}
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.UserProfile{},
		&model.Capsule{},
		&model.CapsuleFile{},
		&model.Goal{},
		&model.Comment{},
		&model.Reaction{},
		&model.Draft{},
	); err != nil {
		slog.Error("auto-migrate", "error", err)
		os.Exit(1)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	codec, err := crypto.NewCodec(cfg.CapsuleKey)
	if err != nil {
		slog.Error("capsule codec init", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	capsuleRepo := repository.NewCapsuleRepository(gormDB)
	goalRepo := repository.NewGoalRepository(gormDB)
	draftRepo := repository.NewDraftRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, capsuleRepo, jwtService, tokenStore)
	capsuleService := service.NewCapsuleService(capsuleRepo, draftRepo, userRepo, codec, cacheClient)
	goalService := service.NewGoalService(goalRepo, capsuleRepo)
	socialService := service.NewSocialService(capsuleRepo, cacheClient)
	shareService := service.NewShareService(capsuleRepo, codec, cacheClient)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	capsuleHandler := handler.NewCapsuleHandler(capsuleService)
	goalHandler := handler.NewGoalHandler(goalService)
	socialHandler := handler.NewSocialHandler(socialService, authService)
	shareHandler := handler.NewShareHandler(shareService)
	seedHandler := handler.NewSeedHandler(authService, capsuleService)

	// Register routes
	router.Register(
		e,
		cfg,
		authHandler,
		capsuleHandler,
		goalHandler,
		socialHandler,
		shareHandler,
		seedHandler,
	)

	addr := ":" + cfg.ServerPort
	slog.Info("server starting", "addr", addr)
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		slog.Error("server start", "error", err)
		os.Exit(1)
	}
}
