// ABOUTME: Store interface and data types for shopy persistence
// ABOUTME: Defines Merchant, Store, Product structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when trying to create a merchant with an existing email
var ErrEmailExists = errors.New("email already registered")

// ErrStoreExists is returned when a merchant who already owns a store tries to create another
var ErrStoreExists = errors.New("merchant already owns a store")

// ErrSessionExpired is returned when a session exists but is past its expiry
var ErrSessionExpired = errors.New("session expired")

// Merchant represents a registered business owner
type Merchant struct {
	ID            string
	Email         string
	Phone         string // E.164 form, empty if not provided
	PhoneVerified bool
	PasswordHash  string // bcrypt hash, empty if passkey-only
	DisplayName   string
	CreatedAt     time.Time
}

// Session represents an authenticated browser session
type Session struct {
	ID         string
	MerchantID string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// StoreRecord represents a merchant's storefront
type StoreRecord struct {
	ID         string
	OwnerID    string
	Name       string
	Industries []string // 1-3 entries from catalog.Industries
	CreatedAt  time.Time
}

// Product represents a catalog item belonging to a store
type Product struct {
	ID          string
	StoreID     string
	Name        string
	PriceCents  int64
	Description string // Markdown
	ImagePath   string // relative path under the media dir, empty if none
	CreatedAt   time.Time
}

// OTPCode represents a one-time phone verification code
type OTPCode struct {
	ID         string
	MerchantID string
	Code       string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	UsedAt     *time.Time
}

// PasswordReset records a consumed password-reset token so it cannot be replayed
type PasswordReset struct {
	ID         string
	MerchantID string
	UsedAt     time.Time
}

// WebAuthnCredential represents a passkey credential
type WebAuthnCredential struct {
	ID              string
	MerchantID      string
	CredentialID    []byte
	PublicKey       []byte
	AttestationType string
	Transports      string // JSON array
	SignCount       uint32
	CreatedAt       time.Time
}

// Store defines the interface for shopy persistence
type Store interface {
	// Merchants
	CreateMerchant(ctx context.Context, m *Merchant) error
	GetMerchant(ctx context.Context, id string) (*Merchant, error)
	GetMerchantByEmail(ctx context.Context, email string) (*Merchant, error)
	UpdateMerchantPassword(ctx context.Context, id, passwordHash string) error
	MarkPhoneVerified(ctx context.Context, id string) error
	CountMerchants(ctx context.Context) (int, error)

	// Sessions
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) error

	// Stores
	CreateStore(ctx context.Context, rec *StoreRecord) error
	GetStore(ctx context.Context, id string) (*StoreRecord, error)
	GetStoreByOwner(ctx context.Context, ownerID string) (*StoreRecord, error)

	// Products
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProductsByStore(ctx context.Context, storeID string) ([]*Product, error)
	CountProductsByStore(ctx context.Context, storeID string) (int, error)
	DeleteProduct(ctx context.Context, id string) error

	// OTP codes
	CreateOTPCode(ctx context.Context, code *OTPCode) error
	GetLatestOTPCode(ctx context.Context, merchantID string) (*OTPCode, error)
	MarkOTPCodeUsed(ctx context.Context, id string) error

	// Password resets
	MarkPasswordResetUsed(ctx context.Context, reset *PasswordReset) error
	PasswordResetUsed(ctx context.Context, id string) (bool, error)

	// WebAuthn credentials
	CreateWebAuthnCredential(ctx context.Context, cred *WebAuthnCredential) error
	GetWebAuthnCredentialsByMerchant(ctx context.Context, merchantID string) ([]*WebAuthnCredential, error)
	GetWebAuthnCredentialByCredentialID(ctx context.Context, credentialID []byte) (*WebAuthnCredential, error)
	UpdateWebAuthnCredentialSignCount(ctx context.Context, id string, signCount uint32) error
	DeleteWebAuthnCredential(ctx context.Context, id string) error

	// Close releases any resources held by the store
	Close() error
}
