// Package store opens the SQLite database that holds WhatsApp device keys.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
	_ "modernc.org/sqlite"
)

// dialect tells whatsmeow which SQL flavour the connection speaks.
const dialect = "sqlite3"

// DeviceDB is the device database: the raw connection for health checks
// and the whatsmeow container built on top of it.
type DeviceDB struct {
	db        *sql.DB
	container *sqlstore.Container
}

// Open opens (creating if needed) the database at dbPath and brings the
// whatsmeow schema up to date.
func Open(ctx context.Context, dbPath string, log waLog.Logger) (*DeviceDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	container := sqlstore.NewWithDB(db, dialect, log)
	if err := container.Upgrade(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("upgrade device schema: %w", err)
	}

	return &DeviceDB{db: db, container: container}, nil
}

func dsn(dbPath string) string {
	return "file:" + dbPath +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)"
}

// Devices returns the whatsmeow device container.
func (d *DeviceDB) Devices() *sqlstore.Container {
	return d.container
}

// Ping verifies database connectivity.
func (d *DeviceDB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database connection.
func (d *DeviceDB) Close() error {
	return d.db.Close()
}
