// ABOUTME: Tests for the password reset token flow
// ABOUTME: Covers redemption, single-use enforcement, tampering, and expiry

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopyhq/shopy/internal/store"
)

func TestPasswordResetFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "owner@example.com", "", "hunter2hunter2", "")
	require.NoError(t, err)

	token, err := svc.CreateResetToken(ctx, "owner@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, svc.ResetPassword(ctx, token, "newpassword123"))

	// Old password no longer works, new one does
	_, err = svc.Login(ctx, "owner@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "owner@example.com", "newpassword123")
	require.NoError(t, err)
}

func TestCreateResetToken_UnknownEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateResetToken(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResetPassword_SingleUse(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "owner@example.com", "", "hunter2hunter2", "")
	require.NoError(t, err)

	token, err := svc.CreateResetToken(ctx, "owner@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, token, "newpassword123"))
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "anotherpass456"), ErrResetInvalid)
}

func TestResetPassword_Tampered(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "owner@example.com", "", "hunter2hunter2", "")
	require.NoError(t, err)

	token, err := svc.CreateResetToken(ctx, "owner@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ResetPassword(ctx, token+"x", "newpassword123"), ErrResetInvalid)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "garbage", "newpassword123"), ErrResetInvalid)
}

func TestResetPassword_Expired(t *testing.T) {
	svc, _ := newTestService(t)
	svc.cfg.ResetTokenTTL = -time.Minute
	ctx := context.Background()

	_, err := svc.Signup(ctx, "owner@example.com", "", "hunter2hunter2", "")
	require.NoError(t, err)

	token, err := svc.CreateResetToken(ctx, "owner@example.com")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "newpassword123"), ErrResetInvalid)
}

func TestResetPassword_WeakPassword(t *testing.T) {
	svc, _ := newTestService(t)

	assert.ErrorIs(t, svc.ResetPassword(context.Background(), "whatever", "short"), ErrWeakPassword)
}
