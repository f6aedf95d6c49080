package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/elevate-app/elevate-backend/internal/alert"
	"github.com/elevate-app/elevate-backend/internal/auth"
	"github.com/elevate-app/elevate-backend/internal/config"
	"github.com/elevate-app/elevate-backend/internal/database"
	"github.com/elevate-app/elevate-backend/internal/email"
	"github.com/elevate-app/elevate-backend/internal/geocode"
	httpServer "github.com/elevate-app/elevate-backend/internal/http"
	"github.com/elevate-app/elevate-backend/internal/location"
	"github.com/elevate-app/elevate-backend/internal/logging"
	"github.com/elevate-app/elevate-backend/internal/notify"
	"github.com/elevate-app/elevate-backend/internal/ratelimit"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	tokenService, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	emailService := email.NewService(cfg.Email, logger)
	geocoder := geocode.NewClient(cfg.Geocode)
	sender := notify.NewSender(cfg.Push, logger)
	rateLimiter := ratelimit.NewLimiter(redisClient)

	authService := auth.NewService(db, tokenService, emailService, logger)
	alertService := alert.NewService(db, geocoder, sender, logger)
	locationService := location.NewService(db, alertService, geocoder)

	authHandler := auth.NewHandler(authService, rateLimiter, logger)
	alertHandler := alert.NewHandler(alertService)
	locationHandler := location.NewHandler(locationService)
	authMiddleware := auth.NewMiddleware(tokenService, db)

	router := httpServer.NewRouter(cfg, authHandler, alertHandler, locationHandler, authMiddleware, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Printf("Received signal: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return database.NewBunDB(sqlDB), nil
}

func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
