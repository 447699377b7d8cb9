// Command content_loader writes every catalog module into content_modules
// in one transaction. Existing rows are left untouched.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"learnstream/internal/catalog"
	"learnstream/internal/config"
	"learnstream/internal/database"
	"learnstream/internal/logger"
	"learnstream/internal/models"
)

var (
	catalogFile string
	migrate     bool
)

var rootCmd = &cobra.Command{
	Use:          "content_loader",
	Short:        "Materialize catalog modules into the database",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&catalogFile, "file", "", "YAML catalog to load instead of the embedded one")
	rootCmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations first")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	start := time.Now()

	cfg, err := config.NewToolsConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	cat, err := loadCatalog(catalogFile)
	if err != nil {
		return err
	}
	log.Info("catalog loaded", "modules", len(cat.List()), "source", sourceName(catalogFile))

	db, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrate {
		if err := database.Migrate(ctx, db.DB, database.Up, log); err != nil {
			return err
		}
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := load(ctx, database.NewModuleRepository(tx), cat.List(), log)
	if err != nil {
		log.Error("loading failed, rolling back", "error", err)
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info("content loaded", "modules", n, "took", time.Since(start).String())
	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return catalog.Parse(f)
}

func sourceName(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

func load(ctx context.Context, store models.ModuleStore, modules []models.ContentModule, log *logger.Logger) (int, error) {
	for i, m := range modules {
		stored, err := store.Ensure(ctx, m)
		if err != nil {
			return i, fmt.Errorf("module %s: %w", m.ID, err)
		}
		log.Debug("module ready", "id", stored.ID, "title", stored.TopicTitle, "created_at", stored.CreatedAt)
	}
	return len(modules), nil
}
