// ABOUTME: Storefront record store methods
// ABOUTME: One store per merchant, industries persisted as a JSON array

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CreateStore creates a merchant's storefront. A merchant may own at most one store.
func (s *SQLiteStore) CreateStore(ctx context.Context, rec *StoreRecord) error {
	industriesJSON, err := json.Marshal(rec.Industries)
	if err != nil {
		return fmt.Errorf("encoding industries: %w", err)
	}

	query := `
		INSERT INTO stores (id, owner_id, name, industries, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.OwnerID,
		rec.Name,
		string(industriesJSON),
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrStoreExists
		}
		return fmt.Errorf("inserting store: %w", err)
	}

	s.logger.Info("created store", "id", rec.ID, "owner_id", rec.OwnerID, "name", rec.Name)
	return nil
}

// GetStore retrieves a store by ID.
func (s *SQLiteStore) GetStore(ctx context.Context, id string) (*StoreRecord, error) {
	query := `
		SELECT id, owner_id, name, industries, created_at
		FROM stores
		WHERE id = ?
	`
	return s.scanStore(s.db.QueryRowContext(ctx, query, id))
}

// GetStoreByOwner retrieves the store owned by the given merchant.
func (s *SQLiteStore) GetStoreByOwner(ctx context.Context, ownerID string) (*StoreRecord, error) {
	query := `
		SELECT id, owner_id, name, industries, created_at
		FROM stores
		WHERE owner_id = ?
	`
	return s.scanStore(s.db.QueryRowContext(ctx, query, ownerID))
}

// scanStore scans a store row, mapping sql.ErrNoRows to ErrNotFound.
func (s *SQLiteStore) scanStore(row *sql.Row) (*StoreRecord, error) {
	var rec StoreRecord
	var industriesJSON, createdAtStr string

	err := row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&rec.Name,
		&industriesJSON,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning store: %w", err)
	}

	if err := json.Unmarshal([]byte(industriesJSON), &rec.Industries); err != nil {
		return nil, fmt.Errorf("decoding industries: %w", err)
	}
	rec.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &rec, nil
}
