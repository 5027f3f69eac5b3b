// Package db opens the postgres connection pool and applies the schema.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/config"
)

//go:embed schema.sql
var schema string

// Open connects to postgres and configures the pool
func Open(ctx context.Context, cfg config.DBConfig, log zerolog.Logger) (*sql.DB, error) {
	return OpenDSN(ctx, cfg.DSN(), log)
}

// OpenDSN connects using a raw connection string
func OpenDSN(ctx context.Context, dsn string, log zerolog.Logger) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test connection
	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	// Set connection pool settings
	conn.SetMaxOpenConns(25)                 // Max open connections
	conn.SetMaxIdleConns(5)                  // Max idle connections
	conn.SetConnMaxLifetime(5 * time.Minute) // Max connection lifetime

	log.Info().Msg("database connected")
	return conn, nil
}

// Migrate creates tables and indexes that do not exist yet
func Migrate(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the pool
func Close(conn *sql.DB, log zerolog.Logger) {
	if conn != nil {
		conn.Close()
		log.Info().Msg("database connection closed")
	}
}
