package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/pgx/v5"

	// File source driver for reading migration files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrationsDir returns the per-driver migration directory under root:
// postgres/ for pgx, mysql/ for mysql.
func MigrationsDir(root, driver string) string {
	if driver == "mysql" {
		return filepath.Join(root, "mysql")
	}
	return filepath.Join(root, "postgres")
}

// RunMigrations applies all pending migrations for driver from root.
// Already-applied migrations are skipped, so it is safe on every startup.
func RunMigrations(db *sql.DB, driver, root string) error {
	var (
		instance migratedb.Driver
		name     string
		err      error
	)
	switch driver {
	case "mysql":
		instance, err = mysql.WithInstance(db, &mysql.Config{})
		name = "mysql"
	default:
		instance, err = pgx.WithInstance(db, &pgx.Config{})
		name = "pgx5"
	}
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+MigrationsDir(root, driver),
		name,
		instance,
	)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	slog.Info("migrations applied",
		slog.String("driver", driver),
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)

	return nil
}
