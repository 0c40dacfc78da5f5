package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/cloudcentinel/principal-service/internal/config"
	"github.com/cloudcentinel/principal-service/internal/handler"
	"github.com/cloudcentinel/principal-service/internal/handler/middleware"
	"github.com/cloudcentinel/principal-service/internal/repository/postgres"
	"github.com/cloudcentinel/principal-service/internal/service"
	"github.com/cloudcentinel/principal-service/pkg/email"
	"github.com/cloudcentinel/principal-service/pkg/events"
	"github.com/cloudcentinel/principal-service/pkg/idp"
	"github.com/cloudcentinel/principal-service/pkg/validator"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
		}
	}()
	log.Println("✓ Database connection established")

	// Initialize Redis client (event stream backend)
	redisClient, err := initRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}()
	log.Println("✓ Redis connection established")

	// Initialize IdP client
	idpClient, err := idp.NewKeycloakClient(&idp.KeycloakConfig{
		BaseURL:      cfg.Keycloak.BaseURL,
		Realm:        cfg.Keycloak.Realm,
		ClientID:     cfg.Keycloak.ClientID,
		ClientSecret: cfg.Keycloak.ClientSecret,
		Timeout:      cfg.Keycloak.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to initialize Keycloak client: %v", err)
	}
	log.Printf("✓ Keycloak client initialized - %s (realm %s)", cfg.Keycloak.BaseURL, cfg.Keycloak.Realm)

	// Initialize validator
	validate := validator.NewValidator()

	// Initialize repositories
	principalRepo := postgres.NewPrincipalRepository(db)
	membershipRepo := postgres.NewMembershipRepository(db)
	tenantDirectory := postgres.NewTenantDirectory(db)
	txManager := postgres.NewTxManager(db)

	// Initialize event publisher
	publisher := events.NewRedisPublisher(redisClient, cfg.Events.Stream, cfg.Events.MaxLen)
	log.Printf("✓ Event publisher initialized - stream %s", cfg.Events.Stream)

	// Initialize email service
	var emailService email.EmailService
	if cfg.Email.Enabled {
		emailService, err = email.NewResendEmailService(&email.EmailConfig{
			APIKey:          cfg.Email.APIKey,
			FromEmail:       cfg.Email.FromEmail,
			FromName:        cfg.Email.FromName,
			VerificationURL: cfg.Email.VerificationURL,
		})
		if err != nil {
			log.Printf("Warning: Failed to initialize email service: %v", err)
			log.Println("Email functionality will be disabled")
			emailService = nil
		} else {
			log.Println("✓ Email service initialized (Resend)")
		}
	} else {
		log.Println("ℹ Email service disabled (set EMAIL_ENABLED=true to enable)")
	}

	// Initialize services
	registryService := service.NewRegistryService(
		principalRepo, membershipRepo, tenantDirectory, txManager,
		idpClient, publisher, emailService, nil,
		cfg.Credential.RotationWindow, nil,
	)
	lifecycleService := service.NewLifecycleService(
		principalRepo, membershipRepo, txManager,
		idpClient, publisher, emailService, nil,
	)
	credentialService := service.NewCredentialService(
		principalRepo, txManager, idpClient, publisher, nil,
		cfg.Credential.RotationWindow, nil,
	)
	membershipService := service.NewMembershipService(
		principalRepo, membershipRepo, tenantDirectory, txManager, nil,
	)
	deletionService := service.NewDeletionService(
		principalRepo, txManager, idpClient, publisher, emailService, nil,
		cfg.Credential.RetentionPeriod, nil,
	)

	// Initialize handlers
	principalHandler := handler.NewPrincipalHandler(registryService, validate)
	lifecycleHandler := handler.NewLifecycleHandler(lifecycleService, credentialService, deletionService, validate)
	membershipHandler := handler.NewMembershipHandler(membershipService, validate)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "Principal Service v1.0",
		DisableStartupMessage: false,
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
	})

	// Setup global middlewares
	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.CORSMiddleware(cfg.Server.AllowOrigins))

	// Setup routes
	handler.SetupRoutes(
		app,
		principalHandler,
		lifecycleHandler,
		membershipHandler,
		healthHandler,
	)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Printf("🚀 Server starting on http://localhost%s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		if err := app.Listen(addr); err != nil {
			// Don't use log.Fatalf in goroutine, send error to main
			log.Printf("❌ Server failed to start: %v", err)
			stop() // Trigger shutdown
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Println("⏳ Shutting down server gracefully...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✓ Server stopped")
}

// initDB initializes PostgreSQL database connection with retry logic
func initDB(cfg *config.Config) (*sqlx.DB, error) {
	dsn := cfg.Database.DSN()

	var db *sqlx.DB
	var err error

	maxRetries := 5
	retryInterval := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			break
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Error closing database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// initRedis initializes Redis client and verifies connection
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			log.Printf("Error closing Redis after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// customErrorHandler handles Fiber errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Log error for debugging (sanitized)
	log.Printf("Error handling request [%s %s]: %v", c.Method(), c.Path(), err)

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
