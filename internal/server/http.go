package server

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/hatchboard/backend/internal/cache"
	"github.com/hatchboard/backend/internal/config"
	"github.com/hatchboard/backend/internal/database"
	"github.com/hatchboard/backend/internal/domain/auth"
	"github.com/hatchboard/backend/internal/domain/session"
	"github.com/hatchboard/backend/internal/domain/user"
	"github.com/hatchboard/backend/internal/migrations"
)

// Start initializes and starts the HTTP server
func Start(cfg *config.Config, env *config.Environment) error {
	initLogger(cfg.Logging.Level)

	db, err := database.Connect(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return err
	}
	slog.Info("Database connected successfully")

	if err := migrations.Run(cfg.Database.URL()); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return err
	}
	slog.Info("Migrations completed successfully")

	var revocations *cache.SessionRevocationCache
	if cfg.Redis.Enabled {
		client, err := cache.Connect(&cfg.Redis)
		if err != nil {
			// Revocation caching is an optimization; the session rows stay
			// authoritative without it.
			slog.Warn("Redis unavailable, running without revocation cache", "error", err)
		} else {
			revocations = cache.NewSessionRevocationCache(client)
		}
	}

	keyStore, err := buildKeyStore(cfg, env)
	if err != nil {
		slog.Error("Failed to load signing keys", "error", err)
		return err
	}

	refreshSecret, err := resolveRefreshSecret(cfg, env)
	if err != nil {
		slog.Error("Failed to resolve refresh secret", "error", err)
		return err
	}

	userRepo := user.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	userService := user.NewService(userRepo)

	tokenService, err := auth.NewTokenService(auth.TokenServiceConfig{
		Users:         userRepo,
		Sessions:      sessionRepo,
		Keys:          keyStore,
		RefreshSecret: refreshSecret,
		Issuer:        cfg.Auth.Issuer,
		AccessTTL:     cfg.Auth.AccessTokenTTL(),
		RefreshTTL:    cfg.Auth.RefreshTokenTTL(),
		Revocations:   revocations,
	})
	if err != nil {
		slog.Error("Failed to construct token service", "error", err)
		return err
	}

	middleware := auth.NewMiddleware(keyStore, userRepo, revocations, cfg.Auth.Issuer)
	handler := auth.NewHandler(tokenService, userService, userRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleaner := session.NewCleaner(sessionRepo, cfg.Auth.SweepInterval())
	go cleaner.Run(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	SetupRoutes(app, handler, middleware)

	addr := cfg.Server.Address()
	slog.Info("Server starting", "address", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("Failed to start server", "error", err)
		return err
	}

	return nil
}

// buildKeyStore loads the RSA key directory when configured, otherwise falls
// back to the PRIVATE_KEY environment value (generated in development).
func buildKeyStore(cfg *config.Config, env *config.Environment) (*auth.KeyStore, error) {
	if cfg.Auth.KeysPath != "" {
		return auth.LoadKeys(cfg.Auth.KeysPath, cfg.Auth.ActiveKID)
	}

	priv, err := config.LoadRSAPrivateKey(env.PrivateKey, env.Environment)
	if err != nil {
		return nil, err
	}

	kid := cfg.Auth.ActiveKID
	if kid == "" {
		kid = "dev"
	}
	return auth.NewKeyStore(priv, kid)
}

// resolveRefreshSecret prefers the environment value over config. In
// production the secret must be provided; in development a random one is
// generated, which invalidates refresh tokens across restarts.
func resolveRefreshSecret(cfg *config.Config, env *config.Environment) ([]byte, error) {
	secret := env.RefreshSecret
	if secret == "" {
		secret = cfg.Auth.RefreshSecret
	}
	if secret != "" {
		return []byte(secret), nil
	}

	if env.Environment == config.EnvironmentProduction {
		return nil, fmt.Errorf("refresh secret is required in production environment")
	}

	slog.Warn("No refresh secret configured, generating a transient one")
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate refresh secret: %w", err)
	}
	return buf, nil
}

func initLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))
}
