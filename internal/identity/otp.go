// ABOUTME: Phone verification via one-time codes
// ABOUTME: Issues throttled 6-digit codes and normalizes local phone numbers to E.164

package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopyhq/shopy/internal/store"
)

const (
	otpDigits      = 6
	otpIssueLimit  = 3 // codes per merchant per throttle window
	otpVerifyLimit = 5 // verification attempts per merchant per window

	// localPrefix is prepended when a local number (leading zero, ten digits)
	// is normalized to E.164.
	localPrefix = "+256"
)

var (
	// ErrInvalidPhone is returned when a phone number cannot be normalized.
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrOTPInvalid is returned when the submitted code does not match.
	ErrOTPInvalid = errors.New("incorrect verification code")
	// ErrOTPExpired is returned when the latest code is past its expiry or
	// already used.
	ErrOTPExpired = errors.New("verification code expired, request a new one")
)

// NormalizePhone converts a user-entered phone number to E.164. Numbers
// already carrying a + prefix pass through after a digit check; local numbers
// of the form 07XXXXXXXX are rewritten with the country prefix.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return "", ErrInvalidPhone
	}

	if strings.HasPrefix(cleaned, "+") {
		digits := cleaned[1:]
		if len(digits) < 9 || len(digits) > 15 || !allDigits(digits) {
			return "", ErrInvalidPhone
		}
		return cleaned, nil
	}

	if len(cleaned) == 10 && cleaned[0] == '0' && allDigits(cleaned) {
		return localPrefix + cleaned[1:], nil
	}

	return "", ErrInvalidPhone
}

// IssueOTP generates a fresh 6-digit code for the merchant and persists it
// with the configured TTL. Issuance is throttled per merchant. The code is
// returned for delivery; SMS dispatch is the caller's concern.
func (s *Service) IssueOTP(ctx context.Context, merchantID string) (string, error) {
	if s.limiter != nil && !s.limiter.Allow("otp-issue:"+merchantID, otpIssueLimit) {
		return "", ErrThrottled
	}

	code, err := generateOTPCode()
	if err != nil {
		return "", err
	}

	now := time.Now()
	rec := &store.OTPCode{
		ID:         uuid.New().String(),
		MerchantID: merchantID,
		Code:       code,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.OTPTTL),
	}
	if err := s.store.CreateOTPCode(ctx, rec); err != nil {
		return "", fmt.Errorf("storing verification code: %w", err)
	}

	s.logger.Info("verification code issued", "merchant_id", merchantID)
	return code, nil
}

// VerifyOTP checks the submitted code against the merchant's latest issued
// code. On success the code is consumed and the merchant's phone is marked
// verified.
func (s *Service) VerifyOTP(ctx context.Context, merchantID, code string) error {
	if s.limiter != nil && !s.limiter.Allow("otp-verify:"+merchantID, otpVerifyLimit) {
		return ErrThrottled
	}

	latest, err := s.store.GetLatestOTPCode(ctx, merchantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrOTPExpired
		}
		return fmt.Errorf("looking up verification code: %w", err)
	}

	if latest.UsedAt != nil || time.Now().After(latest.ExpiresAt) {
		return ErrOTPExpired
	}
	if strings.TrimSpace(code) != latest.Code {
		return ErrOTPInvalid
	}

	if err := s.store.MarkOTPCodeUsed(ctx, latest.ID); err != nil {
		return fmt.Errorf("consuming verification code: %w", err)
	}
	if err := s.store.MarkPhoneVerified(ctx, merchantID); err != nil {
		return fmt.Errorf("marking phone verified: %w", err)
	}

	if s.limiter != nil {
		s.limiter.Reset("otp-verify:" + merchantID)
	}
	s.logger.Info("phone verified", "merchant_id", merchantID)
	return nil
}

func generateOTPCode() (string, error) {
	var sb strings.Builder
	for range otpDigits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generating verification code: %w", err)
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
