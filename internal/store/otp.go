// ABOUTME: OTP code and password reset store methods
// ABOUTME: Supports phone verification codes and single-use reset token tracking

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateOTPCode records a newly issued verification code.
func (s *SQLiteStore) CreateOTPCode(ctx context.Context, code *OTPCode) error {
	query := `
		INSERT INTO otp_codes (id, merchant_id, code, created_at, expires_at, used_at)
		VALUES (?, ?, ?, ?, ?, NULL)
	`

	_, err := s.db.ExecContext(ctx, query,
		code.ID,
		code.MerchantID,
		code.Code,
		code.CreatedAt.UTC().Format(time.RFC3339),
		code.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting otp code: %w", err)
	}
	return nil
}

// GetLatestOTPCode returns the most recently issued code for a merchant.
func (s *SQLiteStore) GetLatestOTPCode(ctx context.Context, merchantID string) (*OTPCode, error) {
	query := `
		SELECT id, merchant_id, code, created_at, expires_at, used_at
		FROM otp_codes
		WHERE merchant_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`

	var code OTPCode
	var createdAtStr, expiresAtStr string
	var usedAtStr sql.NullString

	err := s.db.QueryRowContext(ctx, query, merchantID).Scan(
		&code.ID,
		&code.MerchantID,
		&code.Code,
		&createdAtStr,
		&expiresAtStr,
		&usedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning otp code: %w", err)
	}

	code.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	code.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	if usedAtStr.Valid {
		usedAt, err := time.Parse(time.RFC3339, usedAtStr.String)
		if err != nil {
			return nil, fmt.Errorf("parsing used_at: %w", err)
		}
		code.UsedAt = &usedAt
	}

	return &code, nil
}

// MarkOTPCodeUsed flags a code as consumed.
func (s *SQLiteStore) MarkOTPCodeUsed(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx,
		`UPDATE otp_codes SET used_at = ? WHERE id = ? AND used_at IS NULL`, now, id)
	if err != nil {
		return fmt.Errorf("marking otp code used: %w", err)
	}
	return requireRowAffected(result)
}

// MarkPasswordResetUsed records a reset token as consumed so it cannot be replayed.
func (s *SQLiteStore) MarkPasswordResetUsed(ctx context.Context, reset *PasswordReset) error {
	query := `
		INSERT INTO password_resets (id, merchant_id, used_at)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		reset.ID,
		reset.MerchantID,
		reset.UsedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting password reset: %w", err)
	}
	return nil
}

// PasswordResetUsed reports whether a reset token ID has been consumed.
func (s *SQLiteStore) PasswordResetUsed(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM password_resets WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking password reset: %w", err)
	}
	return true, nil
}
