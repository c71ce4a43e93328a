package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	_ "github.com/SibusisoMad/SecureFileStatementDelivery/docs" // Swagger docs (generated)
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/auth"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/clock"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/config"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/database"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/downloadtoken"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/filestore"
	httpServer "github.com/SibusisoMad/SecureFileStatementDelivery/internal/http"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/logging"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/ratelimit"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/statement"
)

// @title           Secure File Statement Delivery API
// @version         1.0
// @description     Upload customer statement PDFs and deliver them through short-lived, customer-bound download links.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

// downloadKeyPurpose binds the derived HMAC key to download tokens.
const downloadKeyPurpose = "statement-download-token/v1"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"auth_token_format", cfg.Auth.TokenFormat,
	)

	clk := clock.Real()

	// Initialize database connection
	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Initialize statement storage
	files, err := filestore.New(cfg.Storage.DataDir, filestore.WithCaseInsensitive(cfg.Storage.CaseInsensitive))
	if err != nil {
		return fmt.Errorf("failed to initialize statement storage: %w", err)
	}
	logger.Info("statement storage ready", "data_dir", files.Root())

	// Initialize Redis connection (optional)
	var rateLimiter *ratelimit.Limiter
	if cfg.Redis.Enabled() {
		redisClient, err := initRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		defer redisClient.Close()
		rateLimiter = ratelimit.NewLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	} else {
		logger.Warn("REDIS_HOST not set, rate limiting disabled")
	}

	// Initialize download token service
	tokenService, err := initDownloadTokens(cfg.Download, clk)
	if err != nil {
		return fmt.Errorf("failed to initialize download tokens: %w", err)
	}

	// Initialize caller token verifier
	callerTokens, err := initCallerTokens(cfg.Auth, clk)
	if err != nil {
		return fmt.Errorf("failed to initialize auth: %w", err)
	}

	// Initialize services
	repo := statement.NewRepository(db)
	statementService := statement.NewService(repo, files, clk, logger)
	downloadService := statement.NewDownloadService(repo, files, tokenService, clk, logger)

	// Initialize HTTP handlers
	statementHandler := statement.NewHandler(statementService, downloadService, rateLimiter, cfg.Server.PublicBaseURL)
	statusHandler := httpServer.NewStatusHandler(repo, files.Root())
	authMiddleware := auth.NewMiddleware(callerTokens)

	// Initialize router
	router := httpServer.NewRouter(cfg, statementHandler, statusHandler, authMiddleware, logger)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initDB opens the configured database, applies migrations and returns a Bun DB instance
func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	driverName, err := database.SQLDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driverName, cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Verify connection
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	if cfg.Driver == database.DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	if err := database.Migrate(ctx, sqlDB, cfg.Driver); err != nil {
		sqlDB.Close()
		return nil, err
	}

	// Create Bun DB wrapper
	db, err := database.NewBunDB(sqlDB, cfg.Driver)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

func initDownloadTokens(cfg config.DownloadConfig, clk clock.Clock) (*downloadtoken.Service, error) {
	key, err := downloadtoken.DeriveKey(cfg.Secret, downloadKeyPurpose)
	if err != nil {
		return nil, err
	}

	signer, err := downloadtoken.NewSigner(key)
	if err != nil {
		return nil, err
	}

	svc := downloadtoken.NewService(signer, clk,
		downloadtoken.WithMaxLifetime(cfg.MaxLifetime),
		downloadtoken.WithClockSkew(cfg.ClockSkew),
	)
	// every link must be mintable
	if svc.MaxLifetime() < statement.LinkTTL {
		return nil, fmt.Errorf("download token max lifetime %s is shorter than link lifetime %s", svc.MaxLifetime(), statement.LinkTTL)
	}
	return svc, nil
}

func initCallerTokens(cfg config.AuthConfig, clk clock.Clock) (auth.TokenService, error) {
	// PASETO tokens carry the same issuer and audience claims as JWTs
	if cfg.TokenFormat == config.TokenFormatPaseto {
		svc, err := auth.NewPasetoService(cfg.PasetoKey, cfg.JWTIssuer, cfg.JWTAudience, clk)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}

	svc, err := auth.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience, clk)
	if err != nil {
		return nil, err
	}
	return svc, nil
}
