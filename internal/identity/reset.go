// ABOUTME: Password reset via short-lived signed tokens
// ABOUTME: Issues single-use HS256 JWTs and applies the new password on redemption

package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopyhq/shopy/internal/store"
)

// ErrResetInvalid is returned when a reset token is expired, malformed,
// or already used.
var ErrResetInvalid = errors.New("reset link is invalid or expired")

// resetClaims are the JWT claims carried by a password-reset token.
type resetClaims struct {
	jwt.RegisteredClaims
}

// CreateResetToken issues a short-lived signed token for the merchant with
// the given email. The token embeds a unique ID so redemption can be
// single-use. Returns store.ErrNotFound for unknown emails; the caller
// decides whether to surface that or respond uniformly.
func (s *Service) CreateResetToken(ctx context.Context, email string) (string, error) {
	m, err := s.store.GetMerchantByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := resetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   m.ID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ResetTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.cfg.JWTSecret)
	if err != nil {
		return "", fmt.Errorf("signing reset token: %w", err)
	}

	s.logger.Info("password reset token issued", "merchant_id", m.ID)
	return signed, nil
}

// ResetPassword redeems a reset token and sets the new password. Each token
// may be redeemed once; the token's unique ID is recorded on success.
func (s *Service) ResetPassword(ctx context.Context, tokenString, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	claims := &resetClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.cfg.JWTSecret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" || claims.ID == "" {
		return ErrResetInvalid
	}

	used, err := s.store.PasswordResetUsed(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("checking reset token: %w", err)
	}
	if used {
		return ErrResetInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := s.store.UpdateMerchantPassword(ctx, claims.Subject, string(hash)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrResetInvalid
		}
		return fmt.Errorf("updating password: %w", err)
	}

	if err := s.store.MarkPasswordResetUsed(ctx, &store.PasswordReset{
		ID:         claims.ID,
		MerchantID: claims.Subject,
		UsedAt:     time.Now(),
	}); err != nil {
		return fmt.Errorf("recording reset token use: %w", err)
	}

	s.logger.Info("password reset completed", "merchant_id", claims.Subject)
	return nil
}
