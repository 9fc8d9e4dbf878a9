package main

import (
	"context"
	"errors"
	"log"
	"time"

	"capsulevault/internal/apperr"
	"capsulevault/internal/auth"
	"capsulevault/internal/cache"
	"capsulevault/internal/config"
	"capsulevault/internal/crypto"
	"capsulevault/internal/db"
	"capsulevault/internal/model"
	"capsulevault/internal/repository"
	"capsulevault/internal/service"
)

type seedCapsule struct {
	Title   string
	Message string
	OpenIn  time.Duration
	IsGoal  bool
	Goals   []string
	Theme   model.CapsuleTheme
	Public  bool
}

type seedUser struct {
	Email       string
	Password    string
	DisplayName string
	Capsules    []seedCapsule
}

var fixtures = []seedUser{
	{
		Email:       "ava@example.com",
		Password:    "letmein-ava",
		DisplayName: "Ava",
		Capsules: []seedCapsule{
			{
				Title:   "Letter to 2027 me",
				Message: "Dear future me, I hope the garden made it.",
				OpenIn:  365 * 24 * time.Hour,
				Theme:   model.ThemeVintage,
			},
			{
				Title:   "Marathon goals",
				Message: "By the time this opens I want these done.",
				OpenIn:  90 * 24 * time.Hour,
				IsGoal:  true,
				Goals:   []string{"Run a half marathon", "Run a full marathon"},
				Theme:   model.ThemeModern,
			},
		},
	},
	{
		Email:       "noah@example.com",
		Password:    "letmein-noah",
		DisplayName: "Noah",
		Capsules: []seedCapsule{
			{
				Title:   "First apartment",
				Message: "Moving day photos and how it felt.",
				OpenIn:  30 * 24 * time.Hour,
				Theme:   model.ThemeCosmic,
				Public:  true,
			},
		},
	},
}

func main() {
	log.Println("Starting seed script...")

	// Load configuration
	cfg := config.Load()

	// Connect to database
	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	// Run migrations to ensure schema is up to date
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
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	codec, err := crypto.NewCodec(cfg.CapsuleKey)
	if err != nil {
		log.Fatalf("Failed to initialize capsule codec: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	userRepo := repository.NewUserRepository(gormDB)
	capsuleRepo := repository.NewCapsuleRepository(gormDB)
	draftRepo := repository.NewDraftRepository(gormDB)

	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	authService := service.NewAuthService(userRepo, capsuleRepo, jwtService, tokenStore)
	capsuleService := service.NewCapsuleService(capsuleRepo, draftRepo, userRepo, codec, cacheClient)

	ctx := context.Background()
	usersCreated, capsulesCreated, skipped := 0, 0, 0

	for _, fixture := range fixtures {
		_, _, user, err := authService.Register(ctx, fixture.Email, fixture.Password, fixture.DisplayName)
		if err != nil {
			if errors.Is(err, apperr.ErrDuplicateEmail) {
				log.Printf("Skipping user %s: already exists", fixture.Email)
				skipped++
				continue
			}
			log.Fatalf("Failed to create user %s: %v", fixture.Email, err)
		}
		usersCreated++

		for _, sc := range fixture.Capsules {
			_, err := capsuleService.Create(ctx, user.ID, service.CreateCapsuleInput{
				Title:      sc.Title,
				Message:    sc.Message,
				OpenDate:   time.Now().Add(sc.OpenIn),
				IsGoal:     sc.IsGoal,
				GoalTitles: sc.Goals,
				Theme:      sc.Theme,
				IsPublic:   sc.Public,
			})
			if err != nil {
				log.Fatalf("Failed to create capsule %q for %s: %v", sc.Title, fixture.Email, err)
			}
			capsulesCreated++
		}
	}

	log.Println("Seed completed successfully!")
	log.Printf("Summary: created %d users and %d capsules, skipped %d existing users", usersCreated, capsulesCreated, skipped)
}
