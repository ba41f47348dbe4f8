package test_utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/moneyboard/moneyboard/internal/config"
	"github.com/moneyboard/moneyboard/internal/database"
	log "github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	testDatabase = "moneyboard"
	testUser     = "test_moneyboard"
	testPassword = "test_moneyboard"
	snapshotName = "moneyboard-migrated"
)

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, error) {
	root, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}

	return postgres.Run(
		ctx, "postgres:18.1-alpine",
		postgres.WithInitScripts(filepath.Join(root, "dev", "init.sql")),
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUser),
		postgres.WithPassword(testPassword),
		postgres.BasicWaitStrategies(),
	)
}

// TestWithDB starts Postgres, applies all migrations and snapshots the
// migrated state so tests can Restore it. The returned func opens a new pool.
func TestWithDB() (*postgres.PostgresContainer, func() *pgxpool.Pool) {
	ctx := context.Background()

	container, err := startPostgres(ctx)
	if err != nil {
		log.Errorf("failed to start postgres container: %v", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("failed to get container port: %v", err)
	}
	log.Infof("postgres container started at %s:%d", host, port.Int())

	cfg := config.Database{
		Host:   host,
		Port:   port.Int(),
		User:   testUser,
		Pass:   testPassword,
		Name:   testDatabase,
		Schema: "moneyboard",
	}
	if err := database.Migrate(cfg); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}
	if err := container.Snapshot(ctx, postgres.WithSnapshotName(snapshotName)); err != nil {
		log.Fatalf("failed to snapshot postgres container: %v", err)
	}

	return container, func() *pgxpool.Pool {
		pool, err := database.Open(context.Background(), cfg)
		if err != nil {
			log.Fatalf("failed to open database pool: %v", err)
		}
		return pool
	}
}

// findProjectRoot walks up until it finds the directory holding go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root")
		}
		dir = parent
	}
}

// Restore brings the container back to its freshly migrated state. Every
// pool must be closed before.
func Restore(ctx context.Context, container *postgres.PostgresContainer) error {
	return container.Restore(ctx, postgres.WithSnapshotName(snapshotName))
}
