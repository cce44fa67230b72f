// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides merchant/store/product persistence with automatic schema creation

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS merchants (
			id             TEXT PRIMARY KEY,
			email          TEXT NOT NULL UNIQUE,
			phone          TEXT,
			phone_verified INTEGER NOT NULL DEFAULT 0,
			password_hash  TEXT,
			display_name   TEXT NOT NULL,
			created_at     TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_merchants_email ON merchants(email);

		CREATE TABLE IF NOT EXISTS sessions (
			id          TEXT PRIMARY KEY,
			merchant_id TEXT NOT NULL REFERENCES merchants(id) ON DELETE CASCADE,
			created_at  TEXT NOT NULL,
			expires_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_merchant ON sessions(merchant_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);

		CREATE TABLE IF NOT EXISTS stores (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL UNIQUE REFERENCES merchants(id) ON DELETE CASCADE,
			name       TEXT NOT NULL,
			industries TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_stores_owner ON stores(owner_id);

		CREATE TABLE IF NOT EXISTS products (
			id          TEXT PRIMARY KEY,
			store_id    TEXT NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
			name        TEXT NOT NULL,
			price_cents INTEGER NOT NULL,
			description TEXT,
			image_path  TEXT,
			created_at  TEXT NOT NULL,

			CHECK (price_cents >= 0)
		);

		CREATE INDEX IF NOT EXISTS idx_products_store ON products(store_id);
		CREATE INDEX IF NOT EXISTS idx_products_store_created ON products(store_id, created_at);

		CREATE TABLE IF NOT EXISTS otp_codes (
			id          TEXT PRIMARY KEY,
			merchant_id TEXT NOT NULL REFERENCES merchants(id) ON DELETE CASCADE,
			code        TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			expires_at  TEXT NOT NULL,
			used_at     TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_otp_codes_merchant ON otp_codes(merchant_id, created_at);

		CREATE TABLE IF NOT EXISTS password_resets (
			id          TEXT PRIMARY KEY,
			merchant_id TEXT NOT NULL REFERENCES merchants(id) ON DELETE CASCADE,
			used_at     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS webauthn_credentials (
			id               TEXT PRIMARY KEY,
			merchant_id      TEXT NOT NULL REFERENCES merchants(id) ON DELETE CASCADE,
			credential_id    BLOB NOT NULL UNIQUE,
			public_key       BLOB NOT NULL,
			attestation_type TEXT,
			transports       TEXT,
			sign_count       INTEGER NOT NULL DEFAULT 0,
			created_at       TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_webauthn_merchant ON webauthn_credentials(merchant_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueConstraintError checks if an error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	// SQLite returns "UNIQUE constraint failed" in the error message
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "unique constraint"))
}
