package common

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Database is the sqlite handle shared by the components that persist state
type Database struct {
	DB *sql.DB
}

// OpenDatabase opens (creating if needed) the sqlite file and applies
// every pending migration
func OpenDatabase(filename string) (Database, error) {

	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Database{}, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", filename+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return Database{}, fmt.Errorf("open database: %w", err)
	}
	// sqlite serialises writers anyway
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return Database{}, fmt.Errorf("connect to database: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return Database{}, err
	}
	return Database{DB: db}, nil
}

func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	defer source.Close()

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	// Closing the migrator would close db as well, so it is left to the GC
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Database migrations applied")
	return nil
}

func (db *Database) Close() error {
	if db.DB == nil {
		return nil
	}
	return db.DB.Close()
}
