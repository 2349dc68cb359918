// Command seed loads users and tasks from a YAML fixture into the database.
// Users whose email already exists and tasks whose title already exists are
// skipped, so the command can be re-run.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql
	"github.com/phrazzld/tracker-api/internal/config"
	"github.com/phrazzld/tracker-api/internal/platform/logger"
	"github.com/phrazzld/tracker-api/internal/platform/postgres"
	"github.com/phrazzld/tracker-api/internal/service/auth"
	"github.com/spf13/pflag"
)

func main() {
	fixturePath := pflag.StringP("file", "f", "seed.yaml", "YAML fixture to load")
	configDir := pflag.String("config-dir", ".", "directory containing config.yaml")
	pflag.Parse()

	if err := run(context.Background(), *fixturePath, *configDir); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

func run(ctx context.Context, fixturePath, configDir string) error {
	cfg, err := config.LoadFrom(configDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	f, err := os.Open(fixturePath)
	if err != nil {
		return fmt.Errorf("failed to open fixture: %w", err)
	}
	defer func() { _ = f.Close() }()

	fixture, err := parseFixture(f)
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := postgres.Migrate(ctx, db, "up", l); err != nil {
		return err
	}

	s := &seeder{
		hasher:    auth.NewBcryptHasher(cfg.Auth.BCryptCost),
		userStore: postgres.NewPostgresUserStore(db),
		taskStore: postgres.NewPostgresTaskStore(db),
		logger:    l.With("component", "seed"),
	}
	return s.seed(ctx, fixture)
}
