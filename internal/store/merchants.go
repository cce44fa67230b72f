// ABOUTME: Merchant and session store methods
// ABOUTME: Supports email/password signup, phone verification flags, and cookie sessions

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateMerchant creates a new merchant account.
func (s *SQLiteStore) CreateMerchant(ctx context.Context, m *Merchant) error {
	query := `
		INSERT INTO merchants (id, email, phone, phone_verified, password_hash, display_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		m.ID,
		m.Email,
		m.Phone,
		boolToInt(m.PhoneVerified),
		m.PasswordHash,
		m.DisplayName,
		m.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("inserting merchant: %w", err)
	}

	s.logger.Info("created merchant", "id", m.ID, "email", m.Email)
	return nil
}

// GetMerchant retrieves a merchant by ID.
func (s *SQLiteStore) GetMerchant(ctx context.Context, id string) (*Merchant, error) {
	query := `
		SELECT id, email, phone, phone_verified, password_hash, display_name, created_at
		FROM merchants
		WHERE id = ?
	`
	return s.scanMerchant(s.db.QueryRowContext(ctx, query, id))
}

// GetMerchantByEmail retrieves a merchant by email address.
func (s *SQLiteStore) GetMerchantByEmail(ctx context.Context, email string) (*Merchant, error) {
	query := `
		SELECT id, email, phone, phone_verified, password_hash, display_name, created_at
		FROM merchants
		WHERE email = ?
	`
	return s.scanMerchant(s.db.QueryRowContext(ctx, query, email))
}

// scanMerchant scans a merchant row, mapping sql.ErrNoRows to ErrNotFound.
func (s *SQLiteStore) scanMerchant(row *sql.Row) (*Merchant, error) {
	var m Merchant
	var phone, passwordHash sql.NullString
	var phoneVerified int
	var createdAtStr string

	err := row.Scan(
		&m.ID,
		&m.Email,
		&phone,
		&phoneVerified,
		&passwordHash,
		&m.DisplayName,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning merchant: %w", err)
	}

	m.Phone = phone.String
	m.PasswordHash = passwordHash.String
	m.PhoneVerified = phoneVerified != 0
	m.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &m, nil
}

// UpdateMerchantPassword replaces a merchant's password hash.
func (s *SQLiteStore) UpdateMerchantPassword(ctx context.Context, id, passwordHash string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE merchants SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return requireRowAffected(result)
}

// MarkPhoneVerified flags a merchant's phone number as verified.
func (s *SQLiteStore) MarkPhoneVerified(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE merchants SET phone_verified = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking phone verified: %w", err)
	}
	return requireRowAffected(result)
}

// CountMerchants returns the total number of merchant accounts.
func (s *SQLiteStore) CountMerchants(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM merchants`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting merchants: %w", err)
	}
	return count, nil
}

// CreateSession creates a new browser session.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *Session) error {
	query := `
		INSERT INTO sessions (id, merchant_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		sess.ID,
		sess.MerchantID,
		sess.CreatedAt.UTC().Format(time.RFC3339),
		sess.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID. Expired sessions return ErrSessionExpired.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, merchant_id, created_at, expires_at
		FROM sessions
		WHERE id = ?
	`

	var sess Session
	var createdAtStr, expiresAtStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sess.ID,
		&sess.MerchantID,
		&createdAtStr,
		&expiresAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	sess.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	sess.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}

	if time.Now().After(sess.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	return &sess, nil
}

// DeleteSession removes a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all sessions past their expiry.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now)
	if err != nil {
		return fmt.Errorf("deleting expired sessions: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		s.logger.Debug("deleted expired sessions", "count", n)
	}
	return nil
}

// boolToInt converts a bool to the 0/1 form SQLite stores.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// requireRowAffected maps a zero-row update to ErrNotFound.
func requireRowAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
