// ABOUTME: WebAuthn credential store methods
// ABOUTME: Persists passkey credentials for merchant login

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateWebAuthnCredential stores a new passkey credential.
func (s *SQLiteStore) CreateWebAuthnCredential(ctx context.Context, cred *WebAuthnCredential) error {
	query := `
		INSERT INTO webauthn_credentials (id, merchant_id, credential_id, public_key, attestation_type, transports, sign_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		cred.ID,
		cred.MerchantID,
		cred.CredentialID,
		cred.PublicKey,
		cred.AttestationType,
		cred.Transports,
		cred.SignCount,
		cred.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting webauthn credential: %w", err)
	}

	s.logger.Info("created webauthn credential", "id", cred.ID, "merchant_id", cred.MerchantID)
	return nil
}

// GetWebAuthnCredentialsByMerchant returns all passkeys registered by a merchant.
func (s *SQLiteStore) GetWebAuthnCredentialsByMerchant(ctx context.Context, merchantID string) ([]*WebAuthnCredential, error) {
	query := `
		SELECT id, merchant_id, credential_id, public_key, attestation_type, transports, sign_count, created_at
		FROM webauthn_credentials
		WHERE merchant_id = ?
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("querying webauthn credentials: %w", err)
	}
	defer rows.Close()

	var creds []*WebAuthnCredential
	for rows.Next() {
		cred, err := scanWebAuthnCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating webauthn credentials: %w", err)
	}

	return creds, nil
}

// GetWebAuthnCredentialByCredentialID looks up a passkey by its raw credential ID.
func (s *SQLiteStore) GetWebAuthnCredentialByCredentialID(ctx context.Context, credentialID []byte) (*WebAuthnCredential, error) {
	query := `
		SELECT id, merchant_id, credential_id, public_key, attestation_type, transports, sign_count, created_at
		FROM webauthn_credentials
		WHERE credential_id = ?
	`

	var cred WebAuthnCredential
	var attestationType, transports sql.NullString
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, credentialID).Scan(
		&cred.ID,
		&cred.MerchantID,
		&cred.CredentialID,
		&cred.PublicKey,
		&attestationType,
		&transports,
		&cred.SignCount,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning webauthn credential: %w", err)
	}

	cred.AttestationType = attestationType.String
	cred.Transports = transports.String
	cred.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &cred, nil
}

// UpdateWebAuthnCredentialSignCount updates the authenticator sign counter.
func (s *SQLiteStore) UpdateWebAuthnCredentialSignCount(ctx context.Context, id string, signCount uint32) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE webauthn_credentials SET sign_count = ? WHERE id = ?`, signCount, id)
	if err != nil {
		return fmt.Errorf("updating sign count: %w", err)
	}
	return requireRowAffected(result)
}

// DeleteWebAuthnCredential removes a passkey.
func (s *SQLiteStore) DeleteWebAuthnCredential(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM webauthn_credentials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting webauthn credential: %w", err)
	}
	return requireRowAffected(result)
}

func scanWebAuthnCredential(rows *sql.Rows) (*WebAuthnCredential, error) {
	var cred WebAuthnCredential
	var attestationType, transports sql.NullString
	var createdAtStr string

	err := rows.Scan(
		&cred.ID,
		&cred.MerchantID,
		&cred.CredentialID,
		&cred.PublicKey,
		&attestationType,
		&transports,
		&cred.SignCount,
		&createdAtStr,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning webauthn credential: %w", err)
	}

	cred.AttestationType = attestationType.String
	cred.Transports = transports.String
	cred.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &cred, nil
}
