package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"learnstream/internal/api"
	"learnstream/internal/catalog"
	"learnstream/internal/config"
	"learnstream/internal/database"
	"learnstream/internal/identity"
	"learnstream/internal/logger"
	"learnstream/internal/service"
	"learnstream/internal/storage"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the HTTP server.

Pending database migrations are applied before the listener starts unless
--skip-migrations is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	db, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if !skipMigrations {
		if err := database.Migrate(ctx, db.DB, database.Up, log); err != nil {
			return err
		}
	}

	cat, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	objects, err := storage.Dial(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	verifier, err := identity.NewVerifier(cfg.Identity.SessionSecret, cfg.Identity.PublicKeyPEM, cfg.Identity.Issuer)
	if err != nil {
		return err
	}
	directory := identity.NewDirectory(cfg.Identity.APIURL, cfg.Identity.SecretKey, cfg.Identity.RequestTimeout, nil)

	users := database.NewUserRepository(db)
	learning := service.NewLearningService(service.LearningDeps{
		Users:      users,
		Modules:    database.NewModuleRepository(db),
		Progress:   database.NewProgressRepository(db),
		Creations:  database.NewCreationRepository(db),
		Narrations: database.NewNarrationRepository(db),
		Objects:    objects,
		Catalog:    cat,
		Log:        log.With("component", "learning"),
	})
	onboarding := service.NewOnboardingService(users, directory, log.With("component", "onboarding"))

	handler := &api.ApiHandler{
		Onboarding: onboarding,
		Learning:   learning,
		Verifier:   verifier,
		Modules:    cat,
		DB:         db,
		StaticDir:  cfg.HTTP.StaticDir,
		Log:        log.With("component", "http"),
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "address", cfg.HTTP.Addr, "version", buildVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("received interruption signal, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("error during server shutdown", "error", err)
		return err
	}
	log.Info("shutdown complete")
	return nil
}
