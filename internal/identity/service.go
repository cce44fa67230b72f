// ABOUTME: Merchant signup, login, and session lifecycle
// ABOUTME: Publishes auth events on sign-in/sign-out and resolves session tokens to principals

package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopyhq/shopy/internal/store"
	"github.com/shopyhq/shopy/internal/throttle"
)

// dummyHash is a valid bcrypt hash compared against when the account does not
// exist, so login takes the same time whether or not the email is registered.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

const (
	sessionTokenBytes = 32
	loginWindowLimit  = 10 // failed attempts per email per throttle window
	minPasswordLength = 8
)

var (
	// ErrInvalidCredentials is returned for a wrong email/password combination.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidEmail is returned when an email address fails basic validation.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrWeakPassword is returned when a password is shorter than the minimum.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrThrottled is returned when an action exceeds its rate limit.
	ErrThrottled = errors.New("too many attempts, try again later")
)

// Principal is the authenticated identity attached to a browser session.
type Principal struct {
	ID            string
	Email         string
	Phone         string
	DisplayName   string
	PhoneVerified bool
}

// Config holds the tunables the identity service needs.
type Config struct {
	SessionTTL    time.Duration
	OTPTTL        time.Duration
	ResetTokenTTL time.Duration
	JWTSecret     []byte
}

// Service implements merchant authentication on top of the store.
type Service struct {
	store   store.Store
	events  *Broadcaster
	limiter *throttle.Limiter
	logger  *slog.Logger
	cfg     Config
}

// NewService creates an identity service. The limiter throttles login
// attempts and OTP issuance; pass nil logger for default.
func NewService(st store.Store, events *Broadcaster, limiter *throttle.Limiter, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   st,
		events:  events,
		limiter: limiter,
		logger:  logger.With("component", "identity"),
		cfg:     cfg,
	}
}

// Signup registers a new merchant. Phone is optional; when present it is
// normalized to E.164 and left unverified until the OTP flow completes.
func (s *Service) Signup(ctx context.Context, email, phone, password, displayName string) (*store.Merchant, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	if phone != "" {
		normalized, err := NormalizePhone(phone)
		if err != nil {
			return nil, err
		}
		phone = normalized
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	m := &store.Merchant{
		ID:           uuid.New().String(),
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(displayName),
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateMerchant(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("merchant registered", "merchant_id", m.ID, "email", m.Email)
	return m, nil
}

// Login verifies an email/password pair. Attempts are throttled per email,
// and a dummy bcrypt comparison keeps timing uniform for unknown emails.
func (s *Service) Login(ctx context.Context, email, password string) (*store.Merchant, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if s.limiter != nil && !s.limiter.Allow("login:"+email, loginWindowLimit) {
		return nil, ErrThrottled
	}

	m, err := s.store.GetMerchantByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same time as a real comparison
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up merchant: %w", err)
	}

	hash := m.PasswordHash
	if hash == "" {
		// Passkey-only account; never matches a password
		hash = dummyHash
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if s.limiter != nil {
		s.limiter.Reset("login:" + email)
	}
	return m, nil
}

// StartSession creates a browser session for the merchant and publishes a
// SIGNED_IN event keyed by the new session ID.
func (s *Service) StartSession(ctx context.Context, m *store.Merchant) (*store.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &store.Session{
		ID:         token,
		MerchantID: m.ID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.SessionTTL),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	if s.events != nil {
		s.events.Publish(AuthEvent{
			Type:      EventSignedIn,
			SessionID: sess.ID,
			Principal: principalFor(m),
		})
	}

	s.logger.Info("session started", "merchant_id", m.ID)
	return sess, nil
}

// EndSession deletes the session and publishes a SIGNED_OUT event. Deleting a
// session that no longer exists is not an error.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("deleting session: %w", err)
	}

	if s.events != nil {
		s.events.Publish(AuthEvent{
			Type:      EventSignedOut,
			SessionID: sessionID,
		})
	}
	return nil
}

// ResolveSession maps a session token to its Principal. A missing or expired
// session resolves to (nil, nil); only unexpected store failures return an
// error, and callers deciding access should treat that error as signed-out
// rather than failing the request.
func (s *Service) ResolveSession(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, nil
	}

	sess, err := s.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrSessionExpired) {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up session: %w", err)
	}

	m, err := s.store.GetMerchant(ctx, sess.MerchantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Merchant deleted out from under the session
			return nil, nil
		}
		return nil, fmt.Errorf("looking up merchant: %w", err)
	}

	return principalFor(m), nil
}

// Events exposes the auth event broadcaster for subscribers.
func (s *Service) Events() *Broadcaster {
	return s.events
}

func principalFor(m *store.Merchant) *Principal {
	return &Principal{
		ID:            m.ID,
		Email:         m.Email,
		Phone:         m.Phone,
		DisplayName:   m.DisplayName,
		PhoneVerified: m.PhoneVerified,
	}
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\n")
}

func generateToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
