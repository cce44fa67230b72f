// ABOUTME: Product store methods
// ABOUTME: Catalog items belonging to a store, ordered by creation time

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateProduct creates a catalog item.
func (s *SQLiteStore) CreateProduct(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (id, store_id, name, price_cents, description, image_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.StoreID,
		p.Name,
		p.PriceCents,
		p.Description,
		p.ImagePath,
		p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}

	s.logger.Info("created product", "id", p.ID, "store_id", p.StoreID, "name", p.Name)
	return nil
}

// GetProduct retrieves a product by ID.
func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	query := `
		SELECT id, store_id, name, price_cents, description, image_path, created_at
		FROM products
		WHERE id = ?
	`

	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProductsByStore returns all products for a store, newest first.
func (s *SQLiteStore) ListProductsByStore(ctx context.Context, storeID string) ([]*Product, error) {
	query := `
		SELECT id, store_id, name, price_cents, description, image_path, created_at
		FROM products
		WHERE store_id = ?
		ORDER BY created_at DESC, rowid DESC
	`

	rows, err := s.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}

	return products, nil
}

// CountProductsByStore returns how many products a store has.
func (s *SQLiteStore) CountProductsByStore(ctx context.Context, storeID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE store_id = ?`, storeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return count, nil
}

// DeleteProduct removes a product.
func (s *SQLiteStore) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	return requireRowAffected(result)
}

// scanTarget abstracts *sql.Row and *sql.Rows for product scanning.
type scanTarget interface {
	Scan(dest ...any) error
}

func scanProduct(row *sql.Row) (*Product, error) {
	p, err := scanProductFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func scanProductRow(rows *sql.Rows) (*Product, error) {
	return scanProductFrom(rows)
}

func scanProductFrom(t scanTarget) (*Product, error) {
	var p Product
	var description, imagePath sql.NullString
	var createdAtStr string

	err := t.Scan(
		&p.ID,
		&p.StoreID,
		&p.Name,
		&p.PriceCents,
		&description,
		&imagePath,
		&createdAtStr,
	)
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.ImagePath = imagePath.String
	p.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &p, nil
}
