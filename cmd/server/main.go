package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/userimport/internal/auth"
	"github.com/JonMunkholm/userimport/internal/config"
	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/database"
	"github.com/JonMunkholm/userimport/internal/logging"
	"github.com/JonMunkholm/userimport/internal/memstore"
	"github.com/JonMunkholm/userimport/internal/web"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"auth_required", cfg.Auth.Required,
		"bcrypt_cost", cfg.Import.BcryptCost,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	hasher, err := core.NewBcryptHasher(cfg.Import.BcryptCost)
	if err != nil {
		return fmt.Errorf("create hasher: %w", err)
	}

	service, err := core.NewService(store, hasher, core.ServiceConfig{
		TempDir:       cfg.Import.TempDir,
		MaxFileSize:   cfg.Import.MaxFileSize,
		MaxConcurrent: cfg.Import.MaxConcurrent,
		MaxWait:       cfg.Import.MaxWaitTime,
		Logger:        slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	var verifier *auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.Auth.JWTSecret,
			auth.WithIssuer(cfg.Auth.Issuer),
			auth.WithAudience(cfg.Auth.Audience),
		)
	} else {
		slog.Warn("no JWT secret configured; imports are anonymous")
	}

	server := web.NewServer(service, cfg, verifier)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		service.StartPurgeScheduler(gctx, core.PurgeConfig{
			RetentionDays: cfg.Audit.RetentionDays,
			CheckInterval: cfg.Audit.PurgeInterval,
		})
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let accepted batches finish before the store goes away.
		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore connects the configured storage backend.
func openStore(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		slog.Warn("using in-memory storage; imported users are lost on restart")
		return memstore.New(), func() {}, nil

	default:
		store, err := database.Open(ctx, database.Config{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			AutoMigrate:     cfg.Database.AutoMigrate,
		})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("connected to database", "name", database.DatabaseName(cfg.Database.URL))
		return store, store.Close, nil
	}
}
