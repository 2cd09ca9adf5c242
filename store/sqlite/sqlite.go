// Package sqlite implements the store contracts on a single SQLite file,
// using the pure-Go driver so deployments stay CGO-free.
package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type Config struct {
	// DSN is the database file path; empty resolves via ResolveDSN.
	DSN           string
	BusyTimeoutMs int
	WAL           bool
	ForeignKeys   bool
	AutoMigrate   bool
}

func DefaultConfig() Config {
	return Config{
		BusyTimeoutMs: 5000,
		WAL:           true,
		ForeignKeys:   true,
		AutoMigrate:   true,
	}
}

// Store owns the database handle and implements store.ChannelStore and
// store.ItemStore.
type Store struct {
	db *sql.DB
}

// ResolveDSN picks the database file. Precedence: an explicit dsn, an
// existing $HOME/.kurumi/kurumi.sqlite, an existing ./kurumi.sqlite, then
// a fresh $HOME/.kurumi/kurumi.sqlite.
func ResolveDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn != "" {
		return dsn, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	homeDir := filepath.Join(home, ".kurumi")
	homeDB := filepath.Join(homeDir, "kurumi.sqlite")
	localDB := filepath.Clean("./kurumi.sqlite")

	if _, err := os.Stat(homeDB); err == nil {
		return homeDB, nil
	}
	if _, err := os.Stat(localDB); err == nil {
		return localDB, nil
	}
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		return "", err
	}
	return homeDB, nil
}

func Open(cfg Config) (*Store, error) {
	dsn, err := ResolveDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite dsn: %w", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// A single writer sidesteps SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeoutMs),
	}
	if cfg.WAL {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	if cfg.ForeignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys=ON")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if cfg.AutoMigrate {
		if err := s.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
