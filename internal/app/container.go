// Package app wires configuration, storage, messaging and services into
// a single dependency container shared by the HTTP server and the CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	identityApp "github.com/keygate/keygate/internal/identity/application"
	identityDomain "github.com/keygate/keygate/internal/identity/domain"
	identityPersistence "github.com/keygate/keygate/internal/identity/infrastructure/persistence"
	licensingApp "github.com/keygate/keygate/internal/licensing/application"
	licensingDomain "github.com/keygate/keygate/internal/licensing/domain"
	licensingPersistence "github.com/keygate/keygate/internal/licensing/infrastructure/persistence"
	"github.com/keygate/keygate/internal/ratelimit"
	"github.com/keygate/keygate/internal/shared/infrastructure/eventbus"
	"github.com/keygate/keygate/pkg/config"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database. Exactly one of Pool and SQLiteDB is non-nil.
	Pool     *pgxpool.Pool
	SQLiteDB *sql.DB

	RedisClient *redis.Client

	// Repositories
	LicenseRepo licensingDomain.Repository
	AttemptRepo licensingDomain.AttemptRepository
	AdminRepo   identityDomain.Repository

	// Rate limiters
	KeyLimiter ratelimit.Limiter
	IPLimiter  ratelimit.Limiter

	// Messaging
	EventPublisher eventbus.Publisher

	// Services
	ValidationService *licensingApp.ValidationService
	LicenseService    *licensingApp.LicenseService
	TokenService      *identityApp.TokenService
	AuthService       *identityApp.AuthService
}

// NewContainer builds the full dependency graph and runs schema setup.
// Optional backends degrade instead of failing: no Redis URL means
// in-memory rate limiting, no RabbitMQ URL means audit events are only
// written to the database.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{Config: cfg, Logger: logger}

	if err := c.setupDatabase(ctx); err != nil {
		return nil, err
	}
	c.setupRateLimiters(ctx)
	c.setupEventPublisher()
	c.setupServices()

	return c, nil
}

func (c *Container) setupDatabase(ctx context.Context) error {
	switch c.Config.DatabaseDriver {
	case "postgres":
		pool, err := pgxpool.New(ctx, c.Config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("ping postgres: %w", err)
		}
		if err := licensingPersistence.EnsurePostgresSchema(ctx, pool); err != nil {
			pool.Close()
			return fmt.Errorf("ensure schema: %w", err)
		}
		c.Pool = pool
		c.LicenseRepo = licensingPersistence.NewPostgresLicenseRepository(pool)
		c.AttemptRepo = licensingPersistence.NewPostgresAttemptRepository(pool)
		c.AdminRepo = identityPersistence.NewPostgresAdminRepository(pool)
		return nil

	case "sqlite":
		db, err := sql.Open("sqlite", c.Config.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		// modernc sqlite serializes writes; a single connection avoids
		// SQLITE_BUSY under concurrent handlers.
		db.SetMaxOpenConns(1)
		if err := licensingPersistence.EnsureSQLiteSchema(ctx, db); err != nil {
			_ = db.Close()
			return fmt.Errorf("ensure schema: %w", err)
		}
		c.SQLiteDB = db
		c.LicenseRepo = licensingPersistence.NewSQLiteLicenseRepository(db)
		c.AttemptRepo = licensingPersistence.NewSQLiteAttemptRepository(db)
		c.AdminRepo = identityPersistence.NewSQLiteAdminRepository(db)
		return nil

	default:
		return fmt.Errorf("unknown database driver %q", c.Config.DatabaseDriver)
	}
}

func (c *Container) setupRateLimiters(ctx context.Context) {
	cfg := c.Config

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err == nil {
			client := redis.NewClient(opts)
			pingErr := client.Ping(ctx).Err()
			if pingErr == nil {
				c.RedisClient = client
				c.KeyLimiter = ratelimit.NewRedis(client, "key", cfg.KeyRateLimit, cfg.KeyRateWindow)
				c.IPLimiter = ratelimit.NewRedis(client, "ip", cfg.IPRateLimit, cfg.IPRateWindow)
				return
			}
			_ = client.Close()
			c.Logger.Warn("redis unreachable, using in-memory rate limiting", "error", pingErr)
		} else {
			c.Logger.Warn("invalid redis URL, using in-memory rate limiting", "error", err)
		}
	}

	c.KeyLimiter = ratelimit.NewMemory(cfg.KeyRateLimit, cfg.KeyRateWindow)
	c.IPLimiter = ratelimit.NewMemory(cfg.IPRateLimit, cfg.IPRateWindow)
}

func (c *Container) setupEventPublisher() {
	if c.Config.RabbitMQURL == "" {
		c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
		return
	}
	publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
	if err != nil {
		c.Logger.Warn("rabbitmq unavailable, audit events will not be published", "error", err)
		c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
		return
	}
	c.EventPublisher = publisher
}

func (c *Container) setupServices() {
	cfg := c.Config

	c.ValidationService = licensingApp.NewValidationService(
		c.LicenseRepo,
		c.AttemptRepo,
		c.KeyLimiter,
		c.EventPublisher,
		licensingApp.ValidationConfig{
			SigningSecret:   cfg.SigningSecret,
			TimestampWindow: cfg.TimestampWindow,
		},
		c.Logger,
	)

	c.LicenseService = licensingApp.NewLicenseService(
		c.LicenseRepo,
		c.AttemptRepo,
		cfg.SigningSecret,
		c.Logger,
	)

	c.TokenService = identityApp.NewTokenService(identityApp.DefaultTokenConfig(cfg.JWTSecret))
	c.AuthService = identityApp.NewAuthService(c.AdminRepo, c.TokenService, c.Logger)
}

// Close releases every connection the container owns.
func (c *Container) Close() {
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("failed to close event publisher", "error", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("failed to close redis client", "error", err)
		}
	}
	if c.SQLiteDB != nil {
		if err := c.SQLiteDB.Close(); err != nil {
			c.Logger.Warn("failed to close sqlite database", "error", err)
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
