package config

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rongwang/yana-server/internal/utils"
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config, logger *utils.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	// Create tables if they don't exist
	if err := CreateTables(context.Background(), db, logger); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) PRIMARY KEY,
		public_id VARCHAR(64) UNIQUE NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(150) NOT NULL DEFAULT '',
		last_name VARCHAR(150) NOT NULL DEFAULT '',
		password VARCHAR(255) NOT NULL,
		avatar_id INTEGER NOT NULL DEFAULT 34,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		unread_messages BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS emotions (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) UNIQUE NOT NULL,
		image TEXT
	)`,
	// Coordinates are stored as codec output, never as plain numbers
	`CREATE TABLE IF NOT EXISTS shared_emotions (
		id BIGSERIAL PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		emotion_id BIGINT NOT NULL REFERENCES emotions(id) ON DELETE CASCADE,
		latitude_enc TEXT NOT NULL,
		longitude_enc TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS support_message_templates (
		id BIGSERIAL PRIMARY KEY,
		text VARCHAR(100) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS support_messages (
		id BIGSERIAL PRIMARY KEY,
		sender_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		receiver_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		shared_emotion_id BIGINT NOT NULL REFERENCES shared_emotions(id) ON DELETE CASCADE,
		template_id BIGINT REFERENCES support_message_templates(id) ON DELETE SET NULL,
		message VARCHAR(100) NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS help_resources (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		url TEXT NOT NULL,
		location VARCHAR(100) NOT NULL,
		category VARCHAR(100) NOT NULL,
		phone VARCHAR(20),
		email VARCHAR(254)
	)`,
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_shared_emotions_active_recent ON shared_emotions(is_active, created_at DESC, id DESC)",
	"CREATE INDEX IF NOT EXISTS idx_shared_emotions_user_recent ON shared_emotions(user_id, created_at DESC, id DESC)",
	"CREATE INDEX IF NOT EXISTS idx_support_messages_receiver ON support_messages(receiver_id, created_at DESC)",
}

// CreateTables creates the necessary tables in the database
func CreateTables(ctx context.Context, db *sqlx.DB, logger *utils.Logger) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			// Indexes are not critical
			logger.Warn("failed to create index: %v", err)
		}
	}

	return nil
}
